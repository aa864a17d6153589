package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// BackupJob runs the backup service on a schedule.
type BackupJob struct {
	service *BackupService
	timeout time.Duration
	log     zerolog.Logger
}

// NewBackupJob creates a backup job.
func NewBackupJob(service *BackupService, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service: service,
		timeout: 10 * time.Minute,
		log:     log.With().Str("job", "r2_backup").Logger(),
	}
}

// Run creates, uploads and prunes backups.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if _, err := j.service.Run(ctx); err != nil {
		j.log.Error().Err(err).Msg("Backup failed")
		return err
	}
	return nil
}

// Name returns the job name for scheduler
func (j *BackupJob) Name() string {
	return "r2_backup"
}

// MaintainedDB is a sqlite database the maintenance job looks after.
type MaintainedDB interface {
	Name() string
	HealthCheck(ctx context.Context) error
	WALCheckpoint(mode string) error
}

// MinFreeBytes is the free space below which maintenance fails.
const MinFreeBytes = 500 * 1024 * 1024

// MaintenanceJob checks database integrity, truncates the WAL and checks
// free disk space under the data directory.
type MaintenanceJob struct {
	databases []MaintainedDB
	dataDir   string
	usage     func(path string) (*disk.UsageStat, error)
	log       zerolog.Logger
}

// NewMaintenanceJob creates a maintenance job.
func NewMaintenanceJob(databases []MaintainedDB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		usage:     disk.Usage,
		log:       log.With().Str("job", "daily_maintenance").Logger(),
	}
}

// Run executes the maintenance steps.
func (j *MaintenanceJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	start := time.Now()

	for _, db := range j.databases {
		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", db.Name()).Msg("Integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", db.Name(), err)
		}
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			// Not fatal; the next checkpoint retries.
			j.log.Warn().Err(err).Str("database", db.Name()).Msg("WAL checkpoint failed")
		}
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().Dur("duration_ms", time.Since(start)).Msg("Daily maintenance completed")
	return nil
}

// Name returns the job name for scheduler
func (j *MaintenanceJob) Name() string {
	return "daily_maintenance"
}

func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := j.usage(j.dataDir)
	if err != nil {
		return fmt.Errorf("failed to stat filesystem: %w", err)
	}

	freeGB := float64(usage.Free) / 1e9
	j.log.Debug().Float64("available_gb", freeGB).Float64("used_percent", usage.UsedPercent).Msg("Disk space check")

	if usage.Free < MinFreeBytes {
		j.log.Error().Float64("available_gb", freeGB).Msg("Insufficient disk space")
		return fmt.Errorf("only %.2f GB free under %s", freeGB, j.dataDir)
	}
	if freeGB < 5 {
		j.log.Warn().Float64("available_gb", freeGB).Msg("Disk space running low")
	}
	return nil
}
