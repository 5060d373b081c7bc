// Package daemon hosts the long-running gradevault process: it enforces
// single-instance execution through a file lock, runs the archival
// engine, and serves the read-only HTTP status API.
package daemon
