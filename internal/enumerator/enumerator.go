// Package enumerator defines the contract for producing the ordered
// file manifest an archival job walks. Discovery of submission pages
// is a scraping concern that lives outside the engine; the engine only
// consumes the finished manifest.
package enumerator

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gradevault/internal/services"
)

// Entry is one manifest item: where to fetch from and where the bytes
// land in the archive tree.
type Entry struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

// Source produces a finite ordered manifest. Entry order is the order
// files are archived in; URL values must be unique across the slice.
type Source interface {
	Enumerate(ctx context.Context, courseID string) ([]Entry, error)
}

// Validate checks a manifest for the properties the engine depends on:
// it must be non-empty, every entry needs a URL and a path, and no URL
// may repeat.
func Validate(entries []Entry) error {
	if len(entries) == 0 {
		return services.Wrap(services.ErrValidation, "enumerator", "validate",
			"manifest is empty", nil)
	}
	seen := make(map[string]int, len(entries))
	for i, entry := range entries {
		if strings.TrimSpace(entry.URL) == "" {
			return services.Wrap(services.ErrValidation, "enumerator", "validate",
				fmt.Sprintf("entry %d has no url", i), nil)
		}
		if strings.TrimSpace(entry.Path) == "" {
			return services.Wrap(services.ErrValidation, "enumerator", "validate",
				fmt.Sprintf("entry %d has no path", i), nil)
		}
		if prev, dup := seen[entry.URL]; dup {
			return services.Wrap(services.ErrValidation, "enumerator", "validate",
				fmt.Sprintf("entries %d and %d share url %s", prev, i, entry.URL), nil)
		}
		seen[entry.URL] = i
	}
	return nil
}

// ManifestFile reads manifests from JSON files on disk. It is the
// reference Source implementation used by the CLI: an external scraper
// writes the manifest, gradevault archives it.
type ManifestFile struct {
	Path string
}

// Enumerate loads and validates the manifest. courseID is ignored; the
// file itself scopes the manifest to one course.
func (m *ManifestFile) Enumerate(ctx context.Context, courseID string) ([]Entry, error) {
	raw, err := os.ReadFile(m.Path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "enumerator", "load manifest",
			"read manifest file", err)
	}
	var entries []Entry
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, services.Wrap(services.ErrValidation, "enumerator", "load manifest",
			"parse manifest file", err)
	}
	if err := Validate(entries); err != nil {
		return nil, err
	}
	return entries, nil
}
