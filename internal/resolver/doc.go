// Package resolver turns a PubMed article URL into a direct PDF link.
//
// The pipeline normalizes the article URL, fetches the PubMed page through an
// injected Fetcher, extracts a PubMed Central identifier and an external
// full-text link, and then asks the repository locator (PMC first) and the
// external landing-page locator for a PDF. Every failure along the way is
// reported as an Outcome value; Manager.Resolve never returns an error.
package resolver
