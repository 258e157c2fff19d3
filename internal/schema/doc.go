// Package schema holds the format-agnostic module model shared by the
// definition decoders, the catalogue, the parameter binder and the builder.
//
// A Module is produced by a decoder (YAML or HCL), checked with
// Module.Validate plus the catalogue's template checks, and from then on only
// read.
package schema
