// Package contentstore is a typed client for a Git-style content-addressable
// object API (blobs, trees, commits, refs).
//
// Every operation is a single idempotent HTTP call with a uniform error
// contract: failures surface as *APIError carrying the HTTP status and, when
// the server supplied one, a retry delay. Any backend exposing the GitHub
// git-data operation set is substitutable through the base URL.
package contentstore
