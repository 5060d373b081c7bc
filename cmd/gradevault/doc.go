// Command gradevault archives course submissions into a Git-style
// content store. The daemon subcommand runs the archival engine; the
// remaining subcommands enqueue work, inspect progress, and manage the
// course catalog.
package main
