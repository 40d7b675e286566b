// Package config loads Message Center host settings from a YAML file with
// MESSAGECENTER_* environment overrides.
package config
