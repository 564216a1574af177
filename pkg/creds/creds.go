package creds

// Package creds is the persistence boundary for the client's two secrets:
// the session id and the CSRF token. The interface is deliberately tiny so
// that a platform keychain, an encrypted file, or an in-memory fake can all
// satisfy it.

import "errors"

// ErrNotFound is returned by Retrieve when no value is stored under the key.
// Absence is an expected condition (eg first launch), not a failure.
var ErrNotFound = errors.New("credential not found")

// Store persists named secrets. Implementations must be safe for concurrent
// use from any goroutine, and Delete must be idempotent.
type Store interface {
	Save(key, value string) error
	Retrieve(key string) (string, error)
	Delete(key string) error
}
