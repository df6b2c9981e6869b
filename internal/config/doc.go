// Package config loads, normalizes, and validates clipsight's TOML
// configuration.
//
// Defaults apply when no config file exists, so the daemon starts with zero
// setup. Path fields are tilde-expanded and made absolute during load; the
// analysis API key may also arrive via the CLIPSIGHT_LLM_API_KEY environment
// variable.
package config
