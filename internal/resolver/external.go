package resolver

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExternalLocator looks for a PDF link on a publisher landing page.
type ExternalLocator struct {
	fetcher Fetcher
}

// NewExternalLocator constructs an ExternalLocator backed by fetcher.
func NewExternalLocator(fetcher Fetcher) *ExternalLocator {
	return &ExternalLocator{fetcher: fetcher}
}

// Locate fetches the landing page and applies, in order: a link ending in
// ".pdf", a link whose text mentions PDF, and a meta refresh target.
func (l *ExternalLocator) Locate(ctx context.Context, landingURL string) (Outcome, error) {
	markup, err := l.fetcher.Fetch(ctx, landingURL)
	if err != nil {
		return Outcome{}, fmt.Errorf("fetch landing page: %w", err)
	}
	if pdfURL := findLandingPDF(markup, landingURL); pdfURL != "" {
		return Success(SourceExternal, pdfURL), nil
	}
	return Failure("PDF link not discovered on landing page"), nil
}

func findLandingPDF(markup, pageURL string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	for _, heuristic := range []func(*goquery.Document) string{
		pdfSuffixLink,
		pdfTextLink,
		metaRefreshTarget,
	} {
		target := heuristic(doc)
		if target == "" {
			continue
		}
		if absolute, ok := resolveAgainst(pageURL, target); ok {
			return absolute
		}
	}
	return ""
}

func pdfSuffixLink(doc *goquery.Document) string {
	var href string
	doc.Find(`a[href$=".pdf"]`).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		href = strings.TrimSpace(anchor.AttrOr("href", ""))
		return href == ""
	})
	return href
}

func pdfTextLink(doc *goquery.Document) string {
	var href string
	doc.Find("a").EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
		if !strings.Contains(strings.ToLower(strings.TrimSpace(anchor.Text())), "pdf") {
			return true
		}
		href = strings.TrimSpace(anchor.AttrOr("href", ""))
		return href == ""
	})
	return href
}

func metaRefreshTarget(doc *goquery.Document) string {
	var target string
	doc.Find("meta").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if !strings.EqualFold(strings.TrimSpace(meta.AttrOr("http-equiv", "")), "refresh") {
			return true
		}
		content := meta.AttrOr("content", "")
		idx := strings.Index(strings.ToLower(content), "url=")
		if idx < 0 {
			return false
		}
		target = strings.Trim(strings.TrimSpace(content[idx+len("url="):]), `'"`)
		return false
	})
	return target
}
