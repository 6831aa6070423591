package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// RepositoryLocator resolves a PMC identifier to the article's PDF.
type RepositoryLocator struct {
	fetcher Fetcher
}

// NewRepositoryLocator constructs a RepositoryLocator backed by fetcher.
func NewRepositoryLocator(fetcher Fetcher) *RepositoryLocator {
	return &RepositoryLocator{fetcher: fetcher}
}

// Locate fetches the PMC article page for pmcID and returns the first link
// whose href ends in "pdf".
func (l *RepositoryLocator) Locate(ctx context.Context, pmcID string) (Outcome, error) {
	articleURL := RepositoryURL(pmcID)
	markup, err := l.fetcher.Fetch(ctx, articleURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch repository article: %w", err)
	}
	if pdfURL := findRepositoryPDF(markup, articleURL); pdfURL != "" {
		return Success(SourceRepository, pdfURL), nil
	}
	return Failure("PDF link not found"), nil
}

func findRepositoryPDF(markup, articleURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	href := strings.TrimSpace(doc.Find(`a[href$="pdf"]`).First().AttrOr("href", ""))
	if href == "" {
		return ""
	}
	return normalizeRepositoryHref(articleURL, href)
}
