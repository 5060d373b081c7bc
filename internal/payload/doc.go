// Package payload classifies fetched response bodies and derives the
// alternate-URL candidates used when a download returns an error or
// review page instead of the expected artifact.
package payload
