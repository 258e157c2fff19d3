// Package value defines the tagged variant used for every piece of data that
// flows through playbook generation: prompt values, module vars, task
// parameters and rendered results.
//
// A Value is one of null, string, integer, float, boolean, list or map. Maps
// are insertion ordered so that key order declared in a module definition
// survives rendering and serialization.
//
// The package also owns the two codecs the rest of the tool depends on:
// yaml.v3 nodes (module files, parameter files, the generated document) and
// cty values (the template engine's evaluation context).
package value
