// Package config loads, normalizes, and validates GradeVault configuration.
//
// Configuration is TOML, discovered at ~/.config/gradevault/config.toml or a
// project-local gradevault.toml, with every absent value falling back to a
// repository default. Path fields are expanded (~) and made absolute during
// Load so downstream code never re-resolves them.
package config
