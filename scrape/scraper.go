// Package scrape retrieves raw exposition text from a metrics endpoint.
// It owns the network boundary: the parser only ever sees a fully read,
// successfully fetched payload.
package scrape

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"
)

// ErrNoTarget is returned by Fetch when no target URL has been configured
// yet (nothing submitted and no target_url in the config).
var ErrNoTarget = errors.New("no target URL configured")

// acceptHeader advertises the plaintext exposition format. The binary
// protobuf variant is not supported.
const acceptHeader = "text/plain;version=0.0.4;q=0.9,text/plain;q=0.8"

// Scraper fetches exposition text over HTTP. The target URL is mutable:
// submitting a new URL from the dashboard retargets subsequent fetches,
// including the periodic refresh.
type Scraper struct {
	mu     sync.RWMutex
	target string
	client *http.Client
}

// New creates a Scraper. target may be empty; a fetch before a target is
// set fails with ErrNoTarget.
func New(target string, timeout time.Duration) *Scraper {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Scraper{
		target: target,
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
	}
}

// Target returns the current target URL, or "" when none is set.
func (s *Scraper) Target() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.target
}

// SetTarget validates and stores a new target URL.
func (s *Scraper) SetTarget(rawURL string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid target URL %q: %w", rawURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid target URL %q: scheme must be http or https", rawURL)
	}
	if parsed.Host == "" {
		return fmt.Errorf("invalid target URL %q: missing host", rawURL)
	}

	s.mu.Lock()
	s.target = rawURL
	s.mu.Unlock()

	log.Printf("[scrape] Target set to %s", rawURL)
	return nil
}

// Fetch retrieves the exposition text from the current target.
func (s *Scraper) Fetch(ctx context.Context) (string, error) {
	target := s.Target()
	if target == "" {
		return "", ErrNoTarget
	}
	return s.FetchURL(ctx, target)
}

// FetchURL retrieves the exposition text from the given URL. An
// unsuccessful HTTP response is reported before any parsing is attempted;
// retry policy belongs to the caller.
func (s *Scraper) FetchURL(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", acceptHeader)

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("network error fetching %s: %w", rawURL, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			log.Printf("[scrape] Warning: failed to close response body: %v", closeErr)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code %d from %s", resp.StatusCode, rawURL)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	return string(body), nil
}
