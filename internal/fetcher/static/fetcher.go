// Package static implements a deterministic resolver.Fetcher backed by canned
// markup. It powers unit tests and the offline mock mode.
package static

import (
	"context"
	"fmt"
	"maps"

	"github.com/JakeFAU/pubmed-pdf-resolver/internal/resolver"
)

// Fetcher returns fixed markup per URL.
type Fetcher struct {
	responses map[string]string
}

// New copies responses into a Fetcher.
func New(responses map[string]string) *Fetcher {
	return &Fetcher{responses: maps.Clone(responses)}
}

// NewDemo returns a Fetcher serving DemoResponses.
func NewDemo() *Fetcher {
	return New(DemoResponses)
}

// Fetch returns the markup registered for url or a *resolver.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &resolver.FetchError{URL: url, Err: err}
	}
	markup, ok := f.responses[url]
	if !ok {
		return "", &resolver.FetchError{
			URL:      url,
			Attempts: 1,
			Err:      fmt.Errorf("no mock response configured for %s", url),
		}
	}
	return markup, nil
}
