// Package config defines the settings used by the catpoint binaries and
// provides helpers to load, validate and save them in YAML format.
//
// Secrets (vision API key, OAuth2 client secret, MQTT password) are never
// stored in YAML; they are resolved from the environment, an optional .env
// file, or the OS keyring.
package config
