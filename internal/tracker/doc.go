// Package tracker models the remote production-tracking graph: typed,
// parented entities (Project, Episode, Sequence, Shot) and the Directory
// capability set the reconciler uses to find, create, and update them.
//
// Concrete backends live in subpackages (see tracker/kitsu). Every Directory
// implementation must report transport failures with
// services.ErrRemoteUnavailable and well-formed refusals with
// services.ErrRemoteRejected so callers can decide whether to retry.
package tracker
