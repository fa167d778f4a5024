// Package reconcile walks a parsed shot identity top-down through the
// tracking graph, fetching or creating the episode, sequence, and shot
// entities and patching shot metadata that has drifted.
//
// Every level is searched by its full (project, type, name, parent) key
// before anything is created, so repeated runs converge on one entity per
// key. Writes are not transactional: a failure partway through a walk leaves
// the levels already created in place, and the next run picks them up.
package reconcile
