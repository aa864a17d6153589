// Package scrape holds the plumbing shared by the HTML and JSON quote sources:
// request pacing, client identity rotation, the HTTP session, and the
// fallback chain used to pull a price out of a page.
package scrape

import (
	"context"
	"math/rand/v2"
	"time"
)

// UserAgents is the pool of desktop browser identities rotated between requests.
var UserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:121.0) Gecko/20100101 Firefox/121.0",
}

// Humanizer paces outbound requests and picks the client identity for each one.
type Humanizer interface {
	// Pause blocks for the pre-request delay or until ctx is done.
	Pause(ctx context.Context) error
	// UserAgent returns the identity for the next request.
	UserAgent() string
}

// RandomHumanizer waits a uniformly random delay in [min, max] and rotates
// through UserAgents at random. Safe for concurrent use.
type RandomHumanizer struct {
	min, max time.Duration
	agents   []string
}

// NewRandomHumanizer creates a humanizer with the given delay bounds.
func NewRandomHumanizer(min, max time.Duration) *RandomHumanizer {
	if max < min {
		min, max = max, min
	}
	return &RandomHumanizer{min: min, max: max, agents: UserAgents}
}

// Delay draws the next pause duration.
func (h *RandomHumanizer) Delay() time.Duration {
	if h.max == h.min {
		return h.min
	}
	return h.min + rand.N(h.max-h.min+1)
}

// Pause sleeps for a random delay, returning early with ctx.Err() on cancellation.
func (h *RandomHumanizer) Pause(ctx context.Context) error {
	d := h.Delay()
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// UserAgent picks a random identity from the pool.
func (h *RandomHumanizer) UserAgent() string {
	return h.agents[rand.IntN(len(h.agents))]
}

// NoDelay never waits and always reports the same identity. Used in tests and
// when pacing is disabled by configuration.
type NoDelay struct {
	Agent string
}

// Pause returns immediately unless ctx is already done.
func (n NoDelay) Pause(ctx context.Context) error {
	return ctx.Err()
}

// UserAgent returns the fixed identity, or the first pooled one.
func (n NoDelay) UserAgent() string {
	if n.Agent != "" {
		return n.Agent
	}
	return UserAgents[0]
}
