package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/clientdata"
	"github.com/aristath/holdings/internal/config"
	"github.com/aristath/holdings/internal/quotecache"
	"github.com/aristath/holdings/internal/reliability"
	"github.com/aristath/holdings/internal/scheduler"
)

// JobInstances holds the registered jobs for manual triggering.
type JobInstances struct {
	DailyRefresh *scheduler.DailyRefreshJob
	CacheSweep   *quotecache.SweepJob
	Cleanup      *clientdata.CleanupJob
	Maintenance  *reliability.MaintenanceJob
	Backup       *reliability.BackupJob  // nil unless R2 is configured
	KeepAlive    *scheduler.KeepAliveJob // nil unless a URL is configured
}

type scheduledJob struct {
	spec string
	job  scheduler.Job
}

// RegisterJobs creates the background jobs and adds them to sched.
func RegisterJobs(ctx context.Context, container *Container, cfg *config.Config, sched *scheduler.Scheduler, log zerolog.Logger) (*JobInstances, error) {
	if container == nil {
		return nil, fmt.Errorf("container cannot be nil")
	}

	instances := &JobInstances{
		DailyRefresh: scheduler.NewDailyRefreshJob(container.PortfolioService, 0, log),
		CacheSweep:   quotecache.NewSweepJob(container.QuoteCache, log),
		Cleanup:      clientdata.NewCleanupJob(container.LastQuoteRepo, log),
	}

	var maintained []reliability.MaintainedDB
	var snapshotters []reliability.Snapshotter
	for _, db := range container.SQLiteDatabases() {
		maintained = append(maintained, db)
		snapshotters = append(snapshotters, db)
	}
	instances.Maintenance = reliability.NewMaintenanceJob(maintained, cfg.DataDir, log)

	if cfg.Backup.Enabled() {
		client, err := reliability.NewR2Client(ctx,
			cfg.Backup.AccountID,
			cfg.Backup.AccessKeyID,
			cfg.Backup.SecretAccessKey,
			cfg.Backup.BucketName,
			log,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create R2 client: %w", err)
		}
		svc := reliability.NewBackupService(client, snapshotters, cfg.DataDir, cfg.Backup.RetentionCount, log)
		instances.Backup = reliability.NewBackupJob(svc, log)
	}

	if cfg.KeepAliveURL != "" {
		instances.KeepAlive = scheduler.NewKeepAliveJob(cfg.KeepAliveURL, log)
	}

	if sched == nil {
		return instances, nil
	}

	schedules := []scheduledJob{
		{cfg.Snapshot.Schedule, instances.DailyRefresh},
		{cfg.Snapshot.SweepSchedule, instances.CacheSweep},
		{cfg.Snapshot.CleanupSchedule, instances.Cleanup},
		{"0 0 4 * * *", instances.Maintenance},
	}
	if instances.Backup != nil {
		schedules = append(schedules, scheduledJob{cfg.Backup.Schedule, instances.Backup})
	}
	if instances.KeepAlive != nil {
		schedules = append(schedules, scheduledJob{"0 */10 * * * *", instances.KeepAlive})
	}

	for _, s := range schedules {
		if err := sched.AddJob(s.spec, s.job); err != nil {
			return nil, fmt.Errorf("failed to schedule %s: %w", s.job.Name(), err)
		}
	}

	log.Info().Int("jobs", len(schedules)).Msg("Background jobs registered")
	return instances, nil
}
