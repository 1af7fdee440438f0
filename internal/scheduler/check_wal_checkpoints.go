package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/rs/zerolog"
)

// walWarnBytes is the WAL size that triggers a TRUNCATE checkpoint
const walWarnBytes = 64 << 20

// CheckWALCheckpointsJob checkpoints the WAL of every database and logs their size
type CheckWALCheckpointsJob struct {
	databases map[string]*database.DB
	log       zerolog.Logger
}

// NewCheckWALCheckpointsJob creates a new CheckWALCheckpointsJob
func NewCheckWALCheckpointsJob(databases map[string]*database.DB, log zerolog.Logger) *CheckWALCheckpointsJob {
	return &CheckWALCheckpointsJob{
		databases: databases,
		log:       log.With().Str("job", "check_wal_checkpoints").Logger(),
	}
}

// Name returns the job name
func (j *CheckWALCheckpointsJob) Name() string {
	return "check_wal_checkpoints"
}

// Run executes the check WAL checkpoints job
func (j *CheckWALCheckpointsJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	names := make([]string, 0, len(j.databases))
	for name := range j.databases {
		names = append(names, name)
	}
	sort.Strings(names)

	var failed []string
	for _, name := range names {
		db := j.databases[name]
		stats, err := db.GetStats(ctx)
		if err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Failed to read database stats")
			failed = append(failed, name)
			continue
		}

		mode := "PASSIVE"
		if stats.WALSizeBytes > walWarnBytes {
			mode = "TRUNCATE"
			j.log.Warn().
				Str("database", name).
				Int64("wal_size_bytes", stats.WALSizeBytes).
				Msg("WAL is large, truncating")
		}

		if _, err := db.Conn().ExecContext(ctx, "PRAGMA wal_checkpoint("+mode+")"); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("WAL checkpoint failed")
			failed = append(failed, name)
			continue
		}

		j.log.Debug().
			Str("database", name).
			Int64("size_bytes", stats.SizeBytes).
			Int64("wal_size_bytes", stats.WALSizeBytes).
			Msg("WAL checkpoint completed")
	}

	if len(failed) > 0 {
		return fmt.Errorf("wal checkpoint failed for %v", failed)
	}
	return nil
}
