package payload

import (
	"net/url"
	"path"
	"strings"
)

// compoundExtensions are multi-part suffixes that a plain path.Ext call
// would split in the wrong place.
var compoundExtensions = []string{".tar.gz", ".tar.bz2", ".tar.xz"}

// FullExt returns the extension of name, keeping compound archive
// suffixes intact (".tar.gz" rather than ".gz"). The result includes
// the leading dot, or is empty when name has no extension.
func FullExt(name string) string {
	lower := strings.ToLower(name)
	for _, ext := range compoundExtensions {
		if strings.HasSuffix(lower, ext) {
			return ext
		}
	}
	return strings.ToLower(path.Ext(name))
}

// ResolveExt picks the most trustworthy extension for a fetched
// artifact. Priority: declared content type, then the server-resolved
// filename, then magic bytes, then the request URL path. Empty when
// nothing yields one.
func ResolveExt(contentType, resolvedFilename string, data []byte, rawURL string) string {
	mediaType := normalizeContentType(contentType)
	if ext, ok := extByContentType[mediaType]; ok && ext != "" {
		return ext
	}
	if ext := FullExt(resolvedFilename); ext != "" {
		return ext
	}
	if ext := sniffMagic(data); ext != "" {
		return ext
	}
	if parsed, err := url.Parse(rawURL); err == nil {
		if ext := FullExt(parsed.Path); ext != "" {
			return ext
		}
	}
	return ""
}

// CorrectPath appends ext to p when p's final element has no extension.
// It returns the corrected path and whether a correction was made.
func CorrectPath(p, ext string) (string, bool) {
	if ext == "" || FullExt(p) != "" {
		return p, false
	}
	return p + ext, true
}
