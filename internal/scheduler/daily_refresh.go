package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/holdings/internal/modules/portfolio"
)

// Refresher refreshes prices and records snapshots for every user.
type Refresher interface {
	RefreshAll(ctx context.Context) (portfolio.RunSummary, error)
}

// DailyRefreshJob fetches prices and records the daily snapshot of every user.
type DailyRefreshJob struct {
	refresher Refresher
	timeout   time.Duration
	log       zerolog.Logger
}

// NewDailyRefreshJob creates the daily refresh job. timeout bounds one run.
func NewDailyRefreshJob(refresher Refresher, timeout time.Duration, log zerolog.Logger) *DailyRefreshJob {
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	return &DailyRefreshJob{
		refresher: refresher,
		timeout:   timeout,
		log:       log.With().Str("job", "daily_refresh").Logger(),
	}
}

// Name returns the job name
func (j *DailyRefreshJob) Name() string {
	return "daily_refresh"
}

// Run refreshes every user. Failures of individual users are reported in the
// returned error after all users were attempted.
func (j *DailyRefreshJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	summary, err := j.refresher.RefreshAll(ctx)
	j.log.Info().
		Str("run_id", summary.RunID).
		Int("users", summary.Users).
		Int("failed", summary.Failed).
		Msg("Daily refresh finished")
	return err
}
