// Package api defines transport-friendly projections of job, file, and
// course records for read-only consumers such as the daemon HTTP API and
// the CLI status commands.
package api
