package scheduler

import (
	"context"
	"time"

	"github.com/dalia-app/dalia/internal/modules/market"
	"github.com/rs/zerolog"
)

// IssuerSyncer refreshes the issuer catalog. *market.Service implements it.
type IssuerSyncer interface {
	SyncIssuers(ctx context.Context) (market.SyncResult, error)
}

// IssuerSyncJob refreshes the issuer catalog from the market data provider
// and removes ISIN duplicates
type IssuerSyncJob struct {
	syncer  IssuerSyncer
	timeout time.Duration
	log     zerolog.Logger
}

// NewIssuerSyncJob creates a new IssuerSyncJob
func NewIssuerSyncJob(syncer IssuerSyncer, timeout time.Duration, log zerolog.Logger) *IssuerSyncJob {
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &IssuerSyncJob{
		syncer:  syncer,
		timeout: timeout,
		log:     log.With().Str("job", "issuer_sync").Logger(),
	}
}

// Name returns the job name
func (j *IssuerSyncJob) Name() string {
	return "issuer_sync"
}

// Run executes the issuer sync
func (j *IssuerSyncJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	result, err := j.syncer.SyncIssuers(ctx)
	if err != nil {
		return err
	}

	j.log.Info().
		Int("fetched", result.Fetched).
		Int("duplicates_removed", result.DuplicatesRemoved).
		Msg("Issuer sync finished")
	return nil
}
