// Package app wires the catalogue, the builder and the configuration into
// the operations the command line exposes: listing and describing modules,
// generating a playbook from one module, building a playbook from a recipe
// file, and rebuilding a recipe whenever module definitions change. It is
// decoupled from any specific entrypoint.
package app
