package resolver

import "context"

// Fetcher retrieves the markup of a page.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Locator finds a PDF link starting from a target, which is a repository
// identifier for the repository locator and a landing URL for the external one.
// Errors are reserved for fetch failures; "nothing found" is a failed Outcome.
type Locator interface {
	Locate(ctx context.Context, target string) (Outcome, error)
}
