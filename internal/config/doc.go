// Package config loads, normalizes, and validates montage configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks for
// secrets such as MONTAGE_API_TOKEN and the S3 credentials. The Config type
// centralizes every knob the daemon, the render pipeline and the CLI need, so
// scratch, upload and output directories plus engine settings are discovered
// in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
