// Package layout derives the local directory tree and seed working file for a
// shot from its identity, and bootstraps new show directories.
//
// A shot folder is <shows_dir>/<show>/[episode]/[sequence]/<shot>; its depth
// follows the identity. All creation is idempotent: existing directories are
// accepted and an existing working file is never overwritten.
package layout
