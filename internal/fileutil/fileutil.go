// Package fileutil provides name sanitization for archive paths and
// repository names, plus small filesystem helpers.
package fileutil

import (
	"os"
	"path/filepath"
	"strings"
	"unicode"
)

// SanitizeName keeps letters, digits, and the characters `._- ` from a
// display name, producing something safe as an archive path element.
// Gradescope course and assignment titles routinely contain slashes,
// colons, and emoji.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || strings.ContainsRune("._- ", r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// RepoName derives a repository name from a course title: sanitize,
// then collapse spaces to hyphens. "CS 61A: Fall 2025" becomes
// "CS-61A-Fall-2025".
func RepoName(courseName string) string {
	sanitized := SanitizeName(courseName)
	sanitized = strings.Join(strings.Fields(sanitized), "-")
	return strings.Trim(sanitized, "-")
}

// SanitizePath sanitizes each element of a slash-separated archive
// path independently, preserving the hierarchy. Elements emptied by
// sanitization are dropped.
func SanitizePath(p string) string {
	parts := strings.Split(p, "/")
	kept := parts[:0]
	for _, part := range parts {
		if clean := SanitizeName(part); clean != "" {
			kept = append(kept, clean)
		}
	}
	return strings.Join(kept, "/")
}

// WriteFileAtomic writes data to path via a temp file and rename so a
// crash never leaves a truncated file behind.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}

// EnsureDir creates dir and parents when absent.
func EnsureDir(dir string) error {
	return os.MkdirAll(dir, 0o755)
}
