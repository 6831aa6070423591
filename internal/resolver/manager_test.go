package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestManagerPrefersRepository(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/12345678/":         readFixture(t, "pubmed_pmc_article.html"),
		"https://pmc.ncbi.nlm.nih.gov/articles/PMC7654321/": readFixture(t, "pmc_pdf_article.html"),
		"https://journals.example.com/article":              readFixture(t, "external_pdf_article.html"),
	})
	m := NewManager(fetcher, WithLogger(zap.NewNop()))

	out := m.Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/12345678/")

	require.Equal(t, SourceRepository, out.Source)
	require.Equal(t, "https://pmc.ncbi.nlm.nih.gov/articles/PMC7654321/pdf/sample.pdf", out.PDFURL)
	require.NotContains(t, fetcher.fetched(), "https://journals.example.com/article")
}

func TestManagerFallsBackToExternal(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/22223333/": readFixture(t, "pubmed_external_article.html"),
		"https://journals.example.com/article":      readFixture(t, "external_pdf_article.html"),
	})

	out := NewManager(fetcher).Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/22223333/")

	require.Equal(t, Success(SourceExternal, "https://journals.example.com/pdfs/download.pdf"), out)
}

func TestManagerFallsBackWhenRepositoryHasNoPDF(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/12345678/":         readFixture(t, "pubmed_pmc_article.html"),
		"https://pmc.ncbi.nlm.nih.gov/articles/PMC7654321/": `<p>embargoed</p>`,
		"https://journals.example.com/article":              readFixture(t, "external_pdf_article.html"),
	})

	out := NewManager(fetcher).Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/12345678")

	require.Equal(t, SourceExternal, out.Source)
}

func TestManagerReportsNoSource(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/99999999/": "<html><body>No links</body></html>",
	})

	out := NewManager(fetcher).Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/99999999/")

	require.Equal(t, Failure("No PDF source discovered"), out)
}

func TestManagerInvalidURL(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(nil)
	out := NewManager(fetcher).Resolve(context.Background(), "https://example.com/1/")

	require.Equal(t, Failure("URL is not a PubMed article"), out)
	require.Empty(t, fetcher.fetched())
}

func TestManagerInitialFetchFailure(t *testing.T) {
	t.Parallel()

	out := NewManager(newStubFetcher(nil)).Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/1/")

	require.Equal(t, SourceNone, out.Source)
	require.Equal(t, "no response for https://pubmed.ncbi.nlm.nih.gov/1/", out.Reason)
}

func TestManagerLocatorErrorBecomesReason(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/12345678/": `<meta name="citation_pmcid" content="PMC7654321">`,
	})

	out := NewManager(fetcher).Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/12345678/")

	require.Equal(t, Failure("no response for https://pmc.ncbi.nlm.nih.gov/articles/PMC7654321/"), out)
}

func TestManagerRecoversFromPanickingLocator(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/1/": `<meta name="citation_pmcid" content="PMC2">`,
	})
	m := NewManager(fetcher, WithRepositoryLocator(panicLocator{}))

	out := m.Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/1/")

	require.Equal(t, Failure("locator exploded"), out)
}

func TestManagerUsesInjectedLocators(t *testing.T) {
	t.Parallel()

	fetcher := newStubFetcher(map[string]string{
		"https://pubmed.ncbi.nlm.nih.gov/1/": `<div class="full-text-links"><a href="https://j.example.com/1">J</a></div>`,
	})
	external := &recordingLocator{out: Success(SourceExternal, "https://j.example.com/1.pdf")}
	m := NewManager(fetcher, WithExternalLocator(external))

	out := m.Resolve(context.Background(), "https://pubmed.ncbi.nlm.nih.gov/1/")

	require.Equal(t, "https://j.example.com/1.pdf", out.PDFURL)
	require.Equal(t, []string{"https://j.example.com/1"}, external.targets)
}

func TestManagerCloseReleasesFetcher(t *testing.T) {
	t.Parallel()

	closer := &closingFetcher{}
	require.NoError(t, NewManager(closer).Close())
	require.True(t, closer.closed)

	failing := &closingFetcher{err: errors.New("busy")}
	require.ErrorContains(t, NewManager(failing).Close(), "close fetcher: busy")

	require.NoError(t, NewManager(newStubFetcher(nil)).Close())
}

type panicLocator struct{}

func (panicLocator) Locate(context.Context, string) (Outcome, error) {
	panic("locator exploded")
}

type recordingLocator struct {
	out     Outcome
	targets []string
}

func (l *recordingLocator) Locate(_ context.Context, target string) (Outcome, error) {
	l.targets = append(l.targets, target)
	return l.out, nil
}

type closingFetcher struct {
	closed bool
	err    error
}

func (f *closingFetcher) Fetch(context.Context, string) (string, error) {
	return "", errors.New("unused")
}

func (f *closingFetcher) Close() error {
	f.closed = true
	return f.err
}
