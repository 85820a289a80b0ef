// Package auth identifies the user whose progress is being read or written.
//
// Progress operations refuse to run without a user, so every entry point resolves one
// through a [Provider]: the CLI and study reader use a [StaticProvider] signed in from a
// flag or environment variable, and the HTTP API uses a [TokenProvider] that verifies
// HS256 bearer tokens and carries the subject in the request context.
package auth
