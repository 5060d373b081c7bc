// Package services defines shared utilities consumed by the archival engine
// and external integrations.
//
// Key responsibilities:
//   - Context helpers that stamp job IDs, file IDs, step names, and
//     correlation identifiers for logging.
//   - Structured error markers plus the Wrap helper that keep failure
//     classification (retryable vs terminal) uniform across components.
package services
