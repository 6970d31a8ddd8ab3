package fetcher

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"
	"github.com/pfrederiksen/district-ratings/internal/logger"
)

const (
	UserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
	AcceptHeader   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	Timeout        = 10 * time.Second
	metricRequests = "fetch.requests"
	metricFailures = "fetch.failures"
	metricDuration = "fetch.duration"
)

// ErrNoContent is returned by SaveSource when the page could not be fetched.
var ErrNoContent = errors.New("no page content")

// Options configures a Fetcher. Zero values fall back to the package defaults,
// except Delay, where zero means no pause.
type Options struct {
	Delay      time.Duration
	Timeout    time.Duration
	UserAgent  string
	BrowserTLS bool
}

// Fetcher issues rate-limited GET requests
type Fetcher struct {
	client *resty.Client
	delay  time.Duration
}

// New creates a Fetcher.
func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = Timeout
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}

	client := resty.New()
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", opts.UserAgent)
	client.SetHeader("Accept", AcceptHeader)
	if opts.BrowserTLS {
		client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	}

	f := &Fetcher{
		client: client,
		delay:  opts.Delay,
	}
	client.OnBeforeRequest(f.wait)

	return f
}

// Delay returns the pause applied before each request.
func (f *Fetcher) Delay() time.Duration {
	return f.delay
}

// wait blocks for the fixed delay, or until the request context is done.
func (f *Fetcher) wait(_ *resty.Client, req *resty.Request) error {
	if f.delay <= 0 {
		return nil
	}

	timer := time.NewTimer(f.delay)
	defer timer.Stop()

	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}

// Fetch returns the body of url. ok is false on any transport error, timeout
// or non-2xx status; the failure is logged, never returned.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, bool) {
	logger.IncrCounter(metricRequests)
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		Get(url)
	logger.RecordTiming(metricDuration, time.Since(start))

	if err != nil {
		logger.IncrCounter(metricFailures)
		logger.Error("Error fetching page", logger.Fields{"url": url}, err)
		return "", false
	}

	if !resp.IsSuccess() {
		logger.IncrCounter(metricFailures)
		logger.Error("Error fetching page", logger.Fields{
			"url":    url,
			"status": resp.StatusCode(),
		}, fmt.Errorf("unexpected status code: %d", resp.StatusCode()))
		return "", false
	}

	logger.Debug("Fetched page", logger.Fields{
		"url":   url,
		"bytes": len(resp.Body()),
	})

	return resp.String(), true
}

// SaveSource fetches url and writes the raw HTML to path, for inspecting a
// site's markup when a pattern stops matching.
func (f *Fetcher) SaveSource(ctx context.Context, url, path string) error {
	body, ok := f.Fetch(ctx, url)
	if !ok {
		return fmt.Errorf("fetching %s: %w", url, ErrNoContent)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		return fmt.Errorf("writing source: %w", err)
	}

	logger.Info("Saved page source", logger.Fields{"url": url, "path": path})
	return nil
}
