// Package courses maintains the durable catalog of discovered
// Gradescope courses. The catalog is keyed by course URL and survives
// across runs so user-chosen renames are never lost when discovery
// re-reports a course.
package courses

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"gradevault/internal/fileutil"
)

// Course is one catalog entry. Rename, when set by the user, overrides
// the discovered name for repository derivation.
type Course struct {
	URL       string    `json:"url"`
	FullName  string    `json:"full_name"`
	ShortName string    `json:"short_name"`
	Term      string    `json:"term"`
	Rename    string    `json:"rename,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DisplayName returns the rename when present, the discovered full
// name otherwise.
func (c Course) DisplayName() string {
	if strings.TrimSpace(c.Rename) != "" {
		return c.Rename
	}
	return c.FullName
}

// Catalog is a JSON-file-backed course registry.
type Catalog struct {
	path string

	mu      sync.RWMutex
	entries map[string]Course
}

// NewCatalog constructs a catalog backed by the provided JSON file.
// The file is created lazily on first save.
func NewCatalog(path string) *Catalog {
	return &Catalog{path: strings.TrimSpace(path), entries: make(map[string]Course)}
}

// Load reads the catalog from disk. A missing file is an empty
// catalog, not an error.
func (c *Catalog) Load() error {
	data, err := os.ReadFile(c.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	entries := make(map[string]Course)
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = entries
	c.mu.Unlock()
	return nil
}

// Save writes the catalog atomically.
func (c *Catalog) Save() error {
	c.mu.RLock()
	data, err := json.MarshalIndent(c.entries, "", "  ")
	c.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := fileutil.EnsureDir(filepath.Dir(c.path)); err != nil {
		return err
	}
	return fileutil.WriteFileAtomic(c.path, data, 0o644)
}

// Update merges freshly discovered courses into the catalog. New
// courses are added; existing entries get their discovered fields and
// timestamp refreshed while Rename is preserved. Returns how many
// entries were new.
func (c *Catalog) Update(discovered []Course, now time.Time) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	added := 0
	for _, course := range discovered {
		if course.URL == "" {
			continue
		}
		existing, known := c.entries[course.URL]
		if !known {
			course.UpdatedAt = now
			c.entries[course.URL] = course
			added++
			continue
		}
		existing.FullName = course.FullName
		existing.ShortName = course.ShortName
		existing.Term = course.Term
		existing.UpdatedAt = now
		c.entries[course.URL] = existing
	}
	return added
}

// Rename records a user-chosen name for a course. Returns false when
// the course is not in the catalog.
func (c *Catalog) Rename(url, name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	course, ok := c.entries[url]
	if !ok {
		return false
	}
	course.Rename = strings.TrimSpace(name)
	c.entries[url] = course
	return true
}

// Get looks a course up by URL.
func (c *Catalog) Get(url string) (Course, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	course, ok := c.entries[url]
	return course, ok
}

// List returns all courses ordered by term then full name, for stable
// table output.
func (c *Catalog) List() []Course {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Course, 0, len(c.entries))
	for _, course := range c.entries {
		out = append(out, course)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Term != out[j].Term {
			return out[i].Term < out[j].Term
		}
		return out[i].FullName < out[j].FullName
	})
	return out
}

// Len reports the number of cataloged courses.
func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
