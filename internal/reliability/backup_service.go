// Package reliability keeps the ledger safe: off-site snapshots and
// scheduled database maintenance.
package reliability

import (
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/dalia-app/dalia/internal/database"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const (
	backupPrefix     = "dalia-ledger-"
	backupSuffix     = ".db.gz"
	backupTimeLayout = "2006-01-02-150405"

	// minBackupsToKeep survive rotation regardless of age
	minBackupsToKeep = 3
)

// Snapshotter writes a consistent copy of a database. *database.DB implements it.
type Snapshotter interface {
	VacuumInto(ctx context.Context, dest string) error
}

var _ Snapshotter = (*database.DB)(nil)

// BackupInfo represents a backup stored off-site
type BackupInfo struct {
	Key       string    `json:"key"`
	Timestamp time.Time `json:"timestamp"`
	SizeBytes int64     `json:"size_bytes"`
	AgeHours  int64     `json:"age_hours"`
}

// BackupService snapshots the ledger and uploads it to an object store
type BackupService struct {
	ledger   Snapshotter
	store    ObjectStore
	stageDir string
	now      func() time.Time
	log      zerolog.Logger
}

// NewBackupService creates a new backup service staging snapshots under dataDir
func NewBackupService(ledger Snapshotter, store ObjectStore, dataDir string, log zerolog.Logger) *BackupService {
	return &BackupService{
		ledger:   ledger,
		store:    store,
		stageDir: filepath.Join(dataDir, "backup-staging"),
		now:      time.Now,
		log:      log.With().Str("service", "backup").Logger(),
	}
}

// CreateAndUpload snapshots the ledger with VACUUM INTO, gzips it and uploads it.
// Returns the object key.
func (s *BackupService) CreateAndUpload(ctx context.Context) (string, error) {
	start := time.Now()
	s.log.Info().Msg("Starting ledger backup")

	if err := os.MkdirAll(s.stageDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create staging directory: %w", err)
	}

	id := uuid.New().String()[:8]
	snapshot := filepath.Join(s.stageDir, "ledger-"+id+".db")
	archive := snapshot + ".gz"
	defer os.Remove(snapshot)
	defer os.Remove(archive)

	if err := s.ledger.VacuumInto(ctx, snapshot); err != nil {
		return "", fmt.Errorf("failed to snapshot ledger: %w", err)
	}
	if err := gzipFile(snapshot, archive); err != nil {
		return "", fmt.Errorf("failed to compress snapshot: %w", err)
	}

	f, err := os.Open(archive)
	if err != nil {
		return "", fmt.Errorf("failed to open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat archive: %w", err)
	}

	key := backupPrefix + s.now().UTC().Format(backupTimeLayout) + "-" + id + backupSuffix
	if err := s.store.Upload(ctx, key, f); err != nil {
		return "", err
	}

	s.log.Info().
		Str("key", key).
		Int64("size_bytes", info.Size()).
		Dur("duration_ms", time.Since(start)).
		Msg("Ledger backup uploaded")
	return key, nil
}

// ListBackups returns stored backups, newest first
func (s *BackupService) ListBackups(ctx context.Context) ([]BackupInfo, error) {
	objects, err := s.store.List(ctx, backupPrefix)
	if err != nil {
		return nil, err
	}

	now := s.now()
	backups := make([]BackupInfo, 0, len(objects))
	for _, obj := range objects {
		ts, ok := parseBackupKey(obj.Key)
		if !ok {
			s.log.Warn().Str("key", obj.Key).Msg("Ignoring object with unexpected name")
			continue
		}
		backups = append(backups, BackupInfo{
			Key:       obj.Key,
			Timestamp: ts,
			SizeBytes: obj.SizeBytes,
			AgeHours:  int64(now.Sub(ts).Hours()),
		})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].Timestamp.After(backups[j].Timestamp)
	})
	return backups, nil
}

// RotateOldBackups deletes backups older than retentionDays, always keeping
// the newest minBackupsToKeep. A retention of 0 keeps everything.
func (s *BackupService) RotateOldBackups(ctx context.Context, retentionDays int) (int, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	backups, err := s.ListBackups(ctx)
	if err != nil {
		return 0, err
	}
	if len(backups) <= minBackupsToKeep {
		return 0, nil
	}

	cutoff := s.now().AddDate(0, 0, -retentionDays)
	deleted := 0
	for _, b := range backups[minBackupsToKeep:] {
		if !b.Timestamp.Before(cutoff) {
			continue
		}
		if err := s.store.Delete(ctx, b.Key); err != nil {
			s.log.Error().Err(err).Str("key", b.Key).Msg("Failed to delete old backup")
			continue
		}
		deleted++
	}

	if deleted > 0 {
		s.log.Info().Int("deleted", deleted).Int("retention_days", retentionDays).Msg("Old backups rotated")
	}
	return deleted, nil
}

func parseBackupKey(key string) (time.Time, bool) {
	if !strings.HasPrefix(key, backupPrefix) || !strings.HasSuffix(key, backupSuffix) {
		return time.Time{}, false
	}
	rest := strings.TrimSuffix(strings.TrimPrefix(key, backupPrefix), backupSuffix)
	if len(rest) < len(backupTimeLayout) {
		return time.Time{}, false
	}
	ts, err := time.Parse(backupTimeLayout, rest[:len(backupTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

func gzipFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	zw := gzip.NewWriter(out)
	if _, err := io.Copy(zw, in); err != nil {
		return err
	}
	if err := zw.Close(); err != nil {
		return err
	}
	return out.Sync()
}
