package resolver

// Source identifies which strategy produced a PDF link.
type Source string

// Outcome sources.
const (
	SourceRepository Source = "repository"
	SourceExternal   Source = "external"
	SourceNone       Source = "none"
)

// Outcome is the terminal result of resolving one article URL.
// PDFURL is set exactly when Source is repository or external, and Reason is
// set exactly when it is not.
type Outcome struct {
	Source Source `json:"source"`
	PDFURL string `json:"pdf_url,omitempty"`
	Reason string `json:"reason,omitempty"`
}

// Success builds a successful Outcome. An empty URL or the none source
// degrades to a failure so the invariant holds for every constructed value.
func Success(source Source, pdfURL string) Outcome {
	if pdfURL == "" || source == SourceNone || source == "" {
		return Failure("empty PDF link")
	}
	return Outcome{Source: source, PDFURL: pdfURL}
}

// Failure builds a failed Outcome carrying a human readable reason.
func Failure(reason string) Outcome {
	if reason == "" {
		reason = "unknown failure"
	}
	return Outcome{Source: SourceNone, Reason: reason}
}

// OK reports whether the outcome carries a PDF link.
func (o Outcome) OK() bool {
	return o.PDFURL != ""
}

// ArticleMetadata is what the extractor learns from a PubMed article page.
// Empty optional fields mean the page did not expose them.
type ArticleMetadata struct {
	Identifier   string
	RepositoryID string
	ExternalURL  string
}
