// Package config loads, normalizes, and validates vnforge configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and layers environment overrides such as
// GEMINI_API_KEY and RENPY_SDK_PATH on top. The Config type centralizes the
// workspace location, generation provider settings, the Ren'Py SDK, image
// post-processing knobs, and preview binding in one pass.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical log formats, and clear validation errors.
package config
