package static

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// pageFile is the on-disk layout of a canned page set:
//
//	pages:
//	  https://pubmed.ncbi.nlm.nih.gov/123/: |
//	    <html>...</html>
type pageFile struct {
	Pages map[string]string `yaml:"pages"`
}

// LoadFile reads a YAML page set from path and returns a Fetcher serving it.
func LoadFile(path string) (*Fetcher, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read mock pages: %w", err)
	}
	var file pageFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse mock pages: %w", err)
	}
	if len(file.Pages) == 0 {
		return nil, errors.New("mock pages file defines no pages")
	}
	return New(file.Pages), nil
}
