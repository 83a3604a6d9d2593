// Package config handles configuration loading, parsing, and validation
// from various sources (environment variables, .env and YAML files). It provides
// type-safe access to the settings needed by the scheduler, the stores and the
// HTTP surface while keeping configuration details separate from business logic.
package config
