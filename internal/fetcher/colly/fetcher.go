// Package collyfetcher implements resolver.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/metrics"
	"github.com/JakeFAU/pubmed-pdf-resolver/internal/resolver"
)

const defaultTimeout = 15 * time.Second

// Config controls collector behavior.
//   - Retries: extra attempts after the first one fails (0 disables retries).
//   - Backoff: wait unit; attempt n waits Backoff*(n-1) before it runs. Zero
//     retries immediately.
//   - Limiter: optional; consulted before every attempt, retries included.
type Config struct {
	UserAgent     string
	Timeout       time.Duration
	Retries       int
	Backoff       time.Duration
	RespectRobots bool
	Limiter       Waiter
}

// Waiter paces requests per host.
type Waiter interface {
	Wait(ctx context.Context, url string) error
}

// Fetcher implements resolver.Fetcher using the Colly collector. It owns a
// pooled transport; call Close when the fetcher is no longer needed.
type Fetcher struct {
	cfg           Config
	transport     *http.Transport
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// page is what a single attempt observed.
type page struct {
	statusCode int
	body       []byte
	err        error
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Backoff < 0 {
		cfg.Backoff = 0
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// Retries visit the same URL again, so revisits must be allowed.
	c := colly.NewCollector(colly.Async(false), colly.AllowURLRevisit())
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	// Every status reaches OnResponse; fetchOnce decides what counts as success.
	c.ParseHTTPErrorResponse = true

	transport := newHTTPTransport()
	c.WithTransport(transport)
	c.SetRequestTimeout(cfg.Timeout)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch retrieves url, retrying transport failures and non-2xx responses with
// linear backoff. The returned error is always a *resolver.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	attempts := f.cfg.Retries + 1
	var lastErr error
	made := 0
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			if err := sleep(ctx, time.Duration(attempt-1)*f.cfg.Backoff); err != nil {
				lastErr = fmt.Errorf("retry wait canceled: %w", err)
				break
			}
		}
		if f.cfg.Limiter != nil {
			if err := f.cfg.Limiter.Wait(ctx, url); err != nil {
				lastErr = err
				break
			}
		}
		made++
		body, err := f.fetchOnce(ctx, url)
		if err == nil {
			metrics.ObserveFetchAttempt(url, "ok")
			return body, nil
		}
		metrics.ObserveFetchAttempt(url, "error")
		lastErr = err
		f.logger.Debug("fetch attempt failed",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Error(err),
		)
		if ctx.Err() != nil {
			break
		}
	}
	return "", &resolver.FetchError{URL: url, Attempts: made, Err: lastErr}
}

// Close releases idle pooled connections.
func (f *Fetcher) Close() error {
	f.transport.CloseIdleConnections()
	return nil
}

func (f *Fetcher) fetchOnce(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("colly fetch canceled: %w", err)
	}
	collector := f.baseCollector.Clone()
	result := &page{}
	f.configureCollectorHooks(collector, result)

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return "", fmt.Errorf("colly visit failed: %w", err)
		}
		if result.err != nil {
			return "", fmt.Errorf("colly response failed: %w", result.err)
		}
		if result.statusCode < 200 || result.statusCode > 299 {
			return "", fmt.Errorf("unexpected status %d", result.statusCode)
		}
		return string(result.body), nil
	}
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, result *page) {
	hooks.OnResponse(func(r *colly.Response) {
		result.statusCode = r.StatusCode
		result.body = append([]byte(nil), r.Body...)
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		result.err = err
	})
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
