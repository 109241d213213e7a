// Package auth is the access gate in front of the signup service: it hashes
// and checks passwords, issues and verifies signed session tokens, keeps a
// denylist of logged-out tokens and carries the caller's identity through the
// request context.
package auth
