// Package fetch defines the request/response contract between the
// archival engine and the actor that performs authenticated downloads,
// plus the default HTTP-backed implementation.
package fetch

import (
	"context"
	"time"
)

// Request asks a proxy to download one artifact.
type Request struct {
	URL     string
	Path    string
	Timeout time.Duration
	// Progress, when non-nil, receives byte counts while the body
	// streams. Total is -1 when the server declared no length.
	Progress func(received, total int64)
}

// ResponseKind discriminates the terminal outcome of a fetch.
type ResponseKind int

const (
	// KindResult carries the downloaded bytes.
	KindResult ResponseKind = iota
	// KindTooLarge means the artifact exceeded the size cap, either by
	// declared length or by streamed bytes.
	KindTooLarge
	// KindError is a transport-level failure: timeout, connection
	// reset, or a non-success HTTP status.
	KindError
)

func (k ResponseKind) String() string {
	switch k {
	case KindResult:
		return "result"
	case KindTooLarge:
		return "too_large"
	default:
		return "error"
	}
}

// Response is exactly one terminal outcome per Request.
type Response struct {
	Kind ResponseKind

	// Result fields.
	Bytes            []byte
	ContentType      string
	ResolvedFilename string

	// TooLarge field, in bytes. Holds the declared length when the
	// server sent one, otherwise the count streamed before the cap hit.
	DeclaredSize int64

	// Error field.
	Message string
}

// Proxy performs one download per call. Implementations return an
// error only for context cancellation or misuse; transport failures
// are reported as a KindError response so the caller's retry ladder
// can act on them.
type Proxy interface {
	Fetch(ctx context.Context, req Request) (*Response, error)
}
