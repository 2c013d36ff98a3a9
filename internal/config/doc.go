// Package config loads, normalizes, and validates Downspout configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// DOWNSPOUT_FTP_PASSWORD. Remote paths are slash-normalized with trailing
// separators so prefix comparisons elsewhere stay directory-bounded.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
