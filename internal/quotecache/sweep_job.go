package quotecache

import "github.com/rs/zerolog"

// SweepJob evicts expired entries on a schedule. Reads never depend on it.
type SweepJob struct {
	cache *Cache
	log   zerolog.Logger
}

// NewSweepJob creates a cache sweep job.
func NewSweepJob(cache *Cache, log zerolog.Logger) *SweepJob {
	return &SweepJob{
		cache: cache,
		log:   log.With().Str("job", "quote_cache_sweep").Logger(),
	}
}

// Run removes expired entries.
func (j *SweepJob) Run() error {
	if removed := j.cache.Sweep(); removed > 0 {
		j.log.Debug().Int("removed", removed).Msg("Swept expired quotes")
	}
	return nil
}

// Name returns the job name for scheduling and logging.
func (j *SweepJob) Name() string {
	return "quote_cache_sweep"
}
