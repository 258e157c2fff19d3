// Package catalogue loads module definitions from a directory, validates
// them and serves them by name.
//
// Definition files are YAML (.yaml, .yml; one module per file) or HCL (.hcl;
// any number of module blocks). Files are decoded concurrently and merged in
// path order, so the result does not depend on scheduling. Every defect of a
// module is collected before it is rejected, and one bad module never stops
// the others from loading.
package catalogue
