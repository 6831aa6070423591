package resolver

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var repositoryIDPattern = regexp.MustCompile(`(?i)PMC(\d+)`)

// Meta tag names that may carry the PMC identifier, in priority order.
var repositoryMetaNames = []string{"citation_pmcid", "pmcid"}

// Anchors that usually point at the PMC copy of the article.
var repositoryAnchorSelectors = []string{
	"span.identifier.pmcid a",
	`a[data-ga-action="pmc_article"]`,
	`a[href*="ncbi.nlm.nih.gov/pmc/articles/"]`,
	`a[href*="/pmc/articles/"]`,
	`a[href*="pmc.ncbi.nlm.nih.gov/articles/"]`,
}

// Full-text link containers used by PubMed, tried in order. The first
// selector that yields a usable link wins; groups are never merged.
var externalLinkSelectors = []string{
	"div.full-text-links a",
	"div.full-text-links-list a",
	"section#full-text-links a",
	"ul.full-text-links-list a",
	"a.link-item",
	"a.external-link",
	`a[data-ga-category="full_text"]`,
	`a[data-ga-action="fulltext"]`,
	`a[data-ga-action="journal_link"]`,
	`a[data-ga-action="journal_link_click"]`,
}

// Extractor pulls ArticleMetadata out of PubMed article markup.
type Extractor struct{}

// NewExtractor constructs an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

// Extract parses markup for the article identified by id. Both lookups are
// best effort: unparsable markup or missing links yield empty fields.
func (e *Extractor) Extract(markup, id string) ArticleMetadata {
	meta := ArticleMetadata{Identifier: id}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(markup))
	if err != nil {
		return meta
	}
	meta.RepositoryID = extractRepositoryID(doc)
	meta.ExternalURL = extractExternalLink(doc, ArticleURL(id))
	return meta
}

func extractRepositoryID(doc *goquery.Document) string {
	for _, name := range repositoryMetaNames {
		content, _ := doc.Find(`meta[name="` + name + `"]`).First().Attr("content")
		if id := matchRepositoryID(content); id != "" {
			return id
		}
	}

	for _, selector := range repositoryAnchorSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
			if id := matchRepositoryID(anchor.Text()); id != "" {
				found = id
				return false
			}
			href, _ := anchor.Attr("href")
			if id := matchRepositoryID(href); id != "" {
				found = id
				return false
			}
			return true
		})
		if found != "" {
			return found
		}
	}
	return ""
}

func matchRepositoryID(value string) string {
	match := repositoryIDPattern.FindStringSubmatch(strings.TrimSpace(value))
	if match == nil {
		return ""
	}
	return match[1]
}

func extractExternalLink(doc *goquery.Document, baseURL string) string {
	for _, selector := range externalLinkSelectors {
		var found string
		doc.Find(selector).EachWithBreak(func(_ int, anchor *goquery.Selection) bool {
			href := strings.TrimSpace(anchor.AttrOr("href", ""))
			if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
				return true
			}
			absolute, ok := resolveAgainst(baseURL, href)
			if !ok || isBlockedLink(absolute) {
				return true
			}
			found = absolute
			return false
		})
		if found != "" {
			return found
		}
	}
	return ""
}
