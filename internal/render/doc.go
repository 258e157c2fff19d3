// Package render resolves template expressions embedded in module data.
//
// Templates use a small Jinja-like language: {{ expr }} interpolation,
// {% if %} and {% for %} blocks, {% raw %} sections, {# comments #} and "-"
// whitespace control. Each template string is translated into an HCL
// template (or a single HCL expression) and evaluated by hclsyntax against a
// cty evaluation context built from the render context. Filters map onto
// go-cty standard library functions plus a few local ones.
//
// Numbers follow cty rather than Jinja: there is one number type, so any
// whole result converts back to an integer and 4 / 2 yields 2, not 2.0.
// Ordering operators accept two numbers or two strings.
//
// Rendering is pure: the same value and context always produce the same
// result and neither argument is modified.
package render
