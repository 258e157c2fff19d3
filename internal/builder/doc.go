/*
Package builder aggregates rendered modules into one playbook document.

A Builder moves through a monotonic sequence of states:

 1. Empty: nothing has been set.
 2. Configured: the play name and host pattern are set.
 3. Accumulating: vars, modules, tasks or handlers have been added.
 4. Built: Build materialized the document. The builder is sealed and every
    later mutation fails with ErrSealed.
 5. Written: the document was written to disk at least once.

AddModule is the heart of the package. It looks the module up, binds the
supplied parameters against the module's prompts and vars, renders every task
and handler, and appends the results in call order. A failing AddModule leaves
the builder unchanged.

Output is a YAML list holding a single play mapping whose keys appear in the
order name, hosts, gather_facts, vars, tasks, handlers.
*/
package builder
