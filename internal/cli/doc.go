// Package cli is responsible for parsing command-line arguments, validating
// user input, and handling process-level concerns like exit codes. It builds
// the cobra command tree, translates flags and an optional config file into
// the application configuration, and renders results for a terminal.
package cli
