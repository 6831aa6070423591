package resolver

import "fmt"

// ValidationError reports a URL that is not a PubMed article link.
type ValidationError struct {
	URL    string
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

// FetchError reports a page that could not be retrieved, either because of a
// transport failure or a non-success status after all retries were spent.
type FetchError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("fetch %s failed", e.URL)
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
