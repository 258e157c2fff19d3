// Package config defines the application configuration: where module
// definitions live, where playbooks are written, how logging is set up, and
// the play defaults applied when a caller leaves them unset.
//
// A Config starts from Default, is optionally overlaid with a YAML file by
// Load, and is then overlaid with explicit command-line flags by the CLI.
package config
