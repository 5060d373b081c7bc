package payload

import (
	"bytes"
	"mime"
	"strings"
)

// Kind is the outcome of inspecting a fetched payload.
type Kind int

const (
	// KindUnknown means neither the content type nor the leading bytes
	// identified the payload. Callers treat it as binary with no
	// extension correction.
	KindUnknown Kind = iota
	// KindBinary is a recognized artifact type worth archiving.
	KindBinary
	// KindLikelyText means the payload looks like JSON or HTML rather
	// than the requested file. Gradescope serves authorization and
	// review pages with a 200 status, so these must not be uploaded.
	KindLikelyText
)

func (k Kind) String() string {
	switch k {
	case KindBinary:
		return "binary"
	case KindLikelyText:
		return "likely_text"
	default:
		return "unknown"
	}
}

// Classification describes a payload. Ext is populated only for
// KindBinary and includes the leading dot.
type Classification struct {
	Kind Kind
	Ext  string
}

// extByContentType covers the types Gradescope actually serves for
// submission artifacts. Text-like types are handled separately.
var extByContentType = map[string]string{
	"application/pdf":              ".pdf",
	"application/zip":              ".zip",
	"application/x-zip-compressed": ".zip",
	"application/gzip":             ".gz",
	"application/x-gzip":           ".gz",
	"application/x-tar":            ".tar",
	"application/x-compressed-tar": ".tar.gz",
	"image/png":                    ".png",
	"image/jpeg":                   ".jpg",
	"image/gif":                    ".gif",
	"application/octet-stream":     "",
}

type magicSignature struct {
	prefix []byte
	ext    string
}

var magicSignatures = []magicSignature{
	{[]byte("%PDF-"), ".pdf"},
	{[]byte("PK\x03\x04"), ".zip"},
	{[]byte{0x1f, 0x8b}, ".gz"},
	{[]byte{0x89, 'P', 'N', 'G'}, ".png"},
	{[]byte{0xff, 0xd8, 0xff}, ".jpg"},
	{[]byte("GIF8"), ".gif"},
}

// Classify inspects the declared content type and the leading bytes of a
// fetched body. Content type wins when it is decisive; otherwise the
// bytes themselves are sniffed. A JSON or HTML body is classified
// LikelyText regardless of how small it is — it is exactly the small
// error pages that need catching.
func Classify(contentType string, data []byte) Classification {
	mediaType := normalizeContentType(contentType)

	switch {
	case strings.HasPrefix(mediaType, "text/"),
		mediaType == "application/json",
		mediaType == "application/xhtml+xml":
		return Classification{Kind: KindLikelyText}
	}

	if ext, ok := extByContentType[mediaType]; ok && ext != "" {
		return Classification{Kind: KindBinary, Ext: ext}
	}

	if ext := sniffMagic(data); ext != "" {
		return Classification{Kind: KindBinary, Ext: ext}
	}
	if looksLikeText(data) {
		return Classification{Kind: KindLikelyText}
	}
	return Classification{Kind: KindUnknown}
}

func normalizeContentType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}

func sniffMagic(data []byte) string {
	for _, sig := range magicSignatures {
		if bytes.HasPrefix(data, sig.prefix) {
			return sig.ext
		}
	}
	// ustar archives carry their signature mid-header.
	if len(data) > 262 && bytes.Equal(data[257:262], []byte("ustar")) {
		return ".tar"
	}
	return ""
}

// looksLikeText reports whether the leading bytes resemble a JSON
// document or HTML markup.
func looksLikeText(data []byte) bool {
	trimmed := bytes.TrimLeft(data, " \t\r\n")
	if len(trimmed) == 0 {
		return false
	}
	switch trimmed[0] {
	case '{', '[':
		return true
	}
	lower := bytes.ToLower(trimmed)
	return bytes.HasPrefix(lower, []byte("<!doctype")) ||
		bytes.HasPrefix(lower, []byte("<html")) ||
		bytes.HasPrefix(lower, []byte("<head")) ||
		bytes.HasPrefix(lower, []byte("<body"))
}
