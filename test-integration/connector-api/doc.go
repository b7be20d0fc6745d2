// Package integration runs the connector API against a SQLite store and
// exercises the job lifecycle and the sync reconciler over HTTP.
package integration
