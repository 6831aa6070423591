package resolver

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

const (
	// IndexHost is the only host accepted for article URLs.
	IndexHost = "pubmed.ncbi.nlm.nih.gov"
	// RepositoryHost serves PubMed Central articles.
	RepositoryHost = "pmc.ncbi.nlm.nih.gov"
)

var (
	identifierPath = regexp.MustCompile(`^/([0-9]+)/?$`)
	schemePrefix   = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*:`)
)

// blockedLinkFragments keeps the extractor from following links back into
// PubMed or PMC.
var blockedLinkFragments = []string{
	"ncbi.nlm.nih.gov/pmc/articles",
	IndexHost + "/",
	RepositoryHost + "/articles",
}

// blockedHosts are rejected whatever the path.
var blockedHosts = []string{IndexHost, RepositoryHost}

// NormalizeArticleURL validates a PubMed article URL and returns its canonical
// form together with the article identifier (PMID).
func NormalizeArticleURL(raw string) (string, string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Host != IndexHost {
		return "", "", &ValidationError{URL: raw, Reason: "URL is not a PubMed article"}
	}
	match := identifierPath.FindStringSubmatch(parsed.Path)
	if match == nil {
		return "", "", &ValidationError{URL: raw, Reason: "Cannot extract PMID from URL"}
	}
	id := match[1]
	return ArticleURL(id), id, nil
}

// ArticleURL builds the canonical PubMed URL for an identifier.
func ArticleURL(id string) string {
	return fmt.Sprintf("https://%s/%s/", IndexHost, id)
}

// RepositoryURL builds the PMC article URL for a numeric PMC identifier.
func RepositoryURL(pmcID string) string {
	return fmt.Sprintf("https://%s/articles/PMC%s/", RepositoryHost, pmcID)
}

// resolveAgainst joins href to base the way a browser would.
func resolveAgainst(base, href string) (string, bool) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", false
	}
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return "", false
	}
	return baseURL.ResolveReference(ref).String(), true
}

// normalizeRepositoryHref applies PMC's link conventions: scheme-absolute links
// pass through, protocol-relative links get https, root-relative links join
// the article origin, and anything else is appended to the article URL.
func normalizeRepositoryHref(articleURL, href string) string {
	switch {
	case schemePrefix.MatchString(href):
		return href
	case strings.HasPrefix(href, "//"):
		return "https:" + href
	case strings.HasPrefix(href, "/"):
		return originOf(articleURL) + href
	default:
		return articleURL + href
	}
}

func originOf(raw string) string {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(raw, "/")
	}
	return parsed.Scheme + "://" + parsed.Host
}

func isBlockedLink(absolute string) bool {
	if parsed, err := url.Parse(absolute); err == nil {
		host := strings.ToLower(parsed.Hostname())
		if slices.Contains(blockedHosts, host) {
			return true
		}
	}
	for _, fragment := range blockedLinkFragments {
		if strings.Contains(absolute, fragment) {
			return true
		}
	}
	return false
}
