// Package notifications delivers archival job events via pluggable notifiers.
//
// The default implementation publishes to ntfy using the topic configured in
// config.toml and gracefully degrades to a no-op when notifications are
// disabled. Job-event and error notifications can be toggled independently.
package notifications
