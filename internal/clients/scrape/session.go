package scrape

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html/charset"

	"github.com/aristath/holdings/internal/domain"
)

// maxBodyBytes caps how much of a page is read.
const maxBodyBytes = 4 << 20

const (
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"
	AcceptJSON = "application/json,text/plain;q=0.9,*/*;q=0.8"
)

// Session is the HTTP client shared by all sources. Safe for concurrent use.
type Session struct {
	client *http.Client
	log    zerolog.Logger
}

// NewSession creates a session whose requests time out after timeout.
func NewSession(timeout time.Duration, log zerolog.Logger) *Session {
	return NewSessionWithClient(&http.Client{Timeout: timeout}, log)
}

// NewSessionWithClient wraps an existing client (tests point it at httptest servers).
func NewSessionWithClient(client *http.Client, log zerolog.Logger) *Session {
	return &Session{
		client: client,
		log:    log.With().Str("component", "scrape_session").Logger(),
	}
}

// Get fetches url with the given identity and Accept header and returns the body
// transcoded to UTF-8. Transport failures and non-2xx statuses wrap
// domain.ErrQuoteUnavailable.
func (s *Session) Get(ctx context.Context, url, userAgent, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	req.Header.Set("Accept-Language", "ja,en-US;q=0.9,en;q=0.8")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: request to %s failed: %v", domain.ErrQuoteUnavailable, url, err)
	}
	defer resp.Body.Close()

	s.log.Debug().
		Str("url", url).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("Fetched")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, fmt.Errorf("%w: %s returned status %d", domain.ErrQuoteUnavailable, url, resp.StatusCode)
	}

	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBodyBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		return nil, fmt.Errorf("%w: unsupported encoding from %s: %v", domain.ErrQuoteUnavailable, url, err)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read %s: %v", domain.ErrQuoteUnavailable, url, err)
	}
	return body, nil
}
