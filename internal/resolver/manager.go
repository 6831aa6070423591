package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/metrics"
)

const noSourceReason = "No PDF source discovered"

// Manager runs the full resolution pipeline for one article URL.
type Manager struct {
	fetcher    Fetcher
	extractor  *Extractor
	repository Locator
	external   Locator
	logger     *zap.Logger
}

// Option customizes a Manager.
type Option func(*Manager)

// WithLogger sets the logger used for pipeline diagnostics.
func WithLogger(logger *zap.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithRepositoryLocator replaces the PMC locator.
func WithRepositoryLocator(locator Locator) Option {
	return func(m *Manager) {
		if locator != nil {
			m.repository = locator
		}
	}
}

// WithExternalLocator replaces the landing page locator.
func WithExternalLocator(locator Locator) Option {
	return func(m *Manager) {
		if locator != nil {
			m.external = locator
		}
	}
}

// NewManager wires the default extractor and locators around fetcher.
func NewManager(fetcher Fetcher, opts ...Option) *Manager {
	m := &Manager{
		fetcher:    fetcher,
		extractor:  NewExtractor(),
		repository: NewRepositoryLocator(fetcher),
		external:   NewExternalLocator(fetcher),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Resolve returns the outcome for rawURL. It never fails: validation errors,
// fetch errors, and panics inside collaborators all become failed outcomes.
func (m *Manager) Resolve(ctx context.Context, rawURL string) (outcome Outcome) {
	logger := m.logger.With(zap.String("url", rawURL))
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("resolution panicked", zap.Any("panic", rec))
			outcome = Failure(fmt.Sprint(rec))
		}
		metrics.ObserveOutcome(string(outcome.Source))
	}()

	normalized, id, err := NormalizeArticleURL(rawURL)
	if err != nil {
		logger.Debug("article url rejected", zap.Error(err))
		return Failure(err.Error())
	}

	markup, err := m.fetcher.Fetch(ctx, normalized)
	if err != nil {
		logger.Warn("article fetch failed", zap.Error(err))
		return Failure(err.Error())
	}

	meta := m.extractor.Extract(markup, id)
	logger.Debug("article metadata extracted",
		zap.String("pmid", meta.Identifier),
		zap.String("pmc_id", meta.RepositoryID),
		zap.String("external_url", meta.ExternalURL),
	)

	var lastErr error
	if meta.RepositoryID != "" {
		result, err := m.repository.Locate(ctx, meta.RepositoryID)
		switch {
		case err != nil:
			logger.Warn("repository lookup failed", zap.String("pmc_id", meta.RepositoryID), zap.Error(err))
			lastErr = err
		case result.OK():
			logger.Info("pdf resolved", zap.String("source", string(result.Source)), zap.String("pdf_url", result.PDFURL))
			return result
		}
	}

	if meta.ExternalURL != "" {
		result, err := m.external.Locate(ctx, meta.ExternalURL)
		switch {
		case err != nil:
			logger.Warn("landing page lookup failed", zap.String("external_url", meta.ExternalURL), zap.Error(err))
			lastErr = err
		case result.OK():
			logger.Info("pdf resolved", zap.String("source", string(result.Source)), zap.String("pdf_url", result.PDFURL))
			return result
		}
	}

	if lastErr != nil {
		return Failure(rootMessage(lastErr))
	}
	return Failure(noSourceReason)
}

// Close releases the fetcher when it holds resources.
func (m *Manager) Close() error {
	closer, ok := m.fetcher.(io.Closer)
	if !ok {
		return nil
	}
	if err := closer.Close(); err != nil {
		return fmt.Errorf("close fetcher: %w", err)
	}
	return nil
}

// rootMessage prefers the FetchError text over the locator's wrapping so item
// reasons read the same whichever page failed.
func rootMessage(err error) string {
	var fetchErr *FetchError
	if errors.As(err, &fetchErr) {
		return fetchErr.Error()
	}
	return err.Error()
}
