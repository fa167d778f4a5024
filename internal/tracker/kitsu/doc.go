// Package kitsu implements tracker.Directory against the Kitsu (zou) REST API.
//
// Every call runs under its own timeout. Transport errors, timeouts, and
// gateway statuses surface as services.ErrRemoteUnavailable; any other
// non-2xx reply or an undecodable body surfaces as services.ErrRemoteRejected.
// Entity and task type identifiers are cached for the life of the client.
package kitsu
