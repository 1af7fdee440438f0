package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob uploads a ledger snapshot and rotates old ones
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates a new backup job
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "ledger_backup").Logger(),
	}
}

// Name returns the job name
func (j *BackupJob) Name() string {
	return "ledger_backup"
}

// Run executes the backup job
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()

	if _, err := j.service.CreateAndUpload(ctx); err != nil {
		return err
	}
	// Rotation failures do not fail a successful upload
	if _, err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}
	return nil
}

// PricePruner deletes old intraday prices. *market.PriceRepository implements it.
type PricePruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// MaintenanceJob checks database health, free disk space and prunes intraday prices
type MaintenanceJob struct {
	databases      map[string]*database.DB
	pruner         PricePruner
	dataDir        string
	priceRetention time.Duration
	diskUsage      func(path string) (*disk.UsageStat, error)
	log            zerolog.Logger
}

// NewMaintenanceJob creates a new maintenance job
func NewMaintenanceJob(
	databases map[string]*database.DB,
	pruner PricePruner,
	dataDir string,
	priceRetention time.Duration,
	log zerolog.Logger,
) *MaintenanceJob {
	return &MaintenanceJob{
		databases:      databases,
		pruner:         pruner,
		dataDir:        dataDir,
		priceRetention: priceRetention,
		diskUsage:      disk.Usage,
		log:            log.With().Str("job", "maintenance").Logger(),
	}
}

// Name returns the job name
func (j *MaintenanceJob) Name() string {
	return "maintenance"
}

// Run executes the maintenance job
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	for name, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Database health check failed")
			return fmt.Errorf("health check failed for %s: %w", name, err)
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	if j.pruner != nil && j.priceRetention > 0 {
		removed, err := j.pruner.Prune(ctx, time.Now().Add(-j.priceRetention))
		if err != nil {
			j.log.Warn().Err(err).Msg("Intraday price pruning failed")
		} else if removed > 0 {
			j.log.Info().Int64("removed", removed).Msg("Old intraday prices pruned")
		}
	}
	return nil
}

// checkDiskSpace fails below 500MB free and warns below 5GB
func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.diskUsage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	availableGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", availableGB).Msg("Disk space check")

	if availableGB < 0.5 {
		j.log.Error().Float64("available_gb", availableGB).Msg("CRITICAL: Insufficient disk space")
		return fmt.Errorf("only %.2f GB free in %s", availableGB, j.dataDir)
	}
	if availableGB < 5.0 {
		j.log.Warn().Float64("available_gb", availableGB).Msg("Disk space running low")
	}
	return nil
}
