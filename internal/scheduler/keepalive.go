package scheduler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

// KeepAliveJob pings a URL so hosting platforms that idle inactive services
// keep this one running.
type KeepAliveJob struct {
	url    string
	client *http.Client
	log    zerolog.Logger
}

// NewKeepAliveJob creates a keep-alive job for url.
func NewKeepAliveJob(url string, log zerolog.Logger) *KeepAliveJob {
	return &KeepAliveJob{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log.With().Str("job", "keep_alive").Logger(),
	}
}

// Name returns the job name
func (j *KeepAliveJob) Name() string {
	return "keep_alive"
}

// Run sends one GET request.
func (j *KeepAliveJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, j.url, nil)
	if err != nil {
		return fmt.Errorf("failed to build keep-alive request: %w", err)
	}
	resp, err := j.client.Do(req)
	if err != nil {
		return fmt.Errorf("keep-alive ping failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("keep-alive ping returned %d", resp.StatusCode)
	}
	j.log.Debug().Int("status", resp.StatusCode).Msg("Keep-alive ping")
	return nil
}
