package di

import (
	"fmt"
	"time"

	"github.com/dalia-app/dalia/internal/config"
	"github.com/dalia-app/dalia/internal/database"
	"github.com/dalia-app/dalia/internal/reliability"
	"github.com/dalia-app/dalia/internal/scheduler"
	"github.com/rs/zerolog"
)

// intradayRetention is how long intraday prices are kept
const intradayRetention = 90 * 24 * time.Hour

// RegisterJobs creates the scheduler and registers every configured job.
// The scheduler is not started.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) (*JobInstances, error) {
	if container == nil || container.MarketService == nil {
		return nil, fmt.Errorf("services must be initialized first")
	}

	sched := scheduler.New(log)
	container.Scheduler = sched
	databases := map[string]*database.DB{
		"ledger": container.LedgerDB,
		"market": container.MarketDB,
	}

	jobs := &JobInstances{
		IssuerSync:    scheduler.NewIssuerSyncJob(container.MarketService, 5*time.Minute, log),
		WALCheckpoint: scheduler.NewCheckWALCheckpointsJob(databases, log),
		Maintenance:   reliability.NewMaintenanceJob(databases, container.PriceRepo, cfg.DataDir, intradayRetention, log),
	}
	if container.BackupService != nil {
		jobs.Backup = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
	}

	if err := sched.AddOptionalJob(cfg.Market.SyncSchedule, jobs.IssuerSync); err != nil {
		return nil, err
	}
	if err := sched.AddJob("@hourly", jobs.WALCheckpoint); err != nil {
		return nil, err
	}
	if err := sched.AddOptionalJob(cfg.MaintenanceSchedule, jobs.Maintenance); err != nil {
		return nil, err
	}
	if jobs.Backup != nil {
		if err := sched.AddOptionalJob(cfg.Backup.Schedule, jobs.Backup); err != nil {
			return nil, err
		}
	} else if cfg.Backup.Schedule != "" {
		log.Warn().Msg("BACKUP_SCHEDULE set but S3 bucket or credentials missing, backups disabled")
	}

	return jobs, nil
}
