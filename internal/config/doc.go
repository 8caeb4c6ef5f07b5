// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, files). It provides type-safe
// access to the settings needed by the orchestration components while keeping
// configuration details separate from the orchestration logic.
package config
