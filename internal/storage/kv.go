// Package storage provides the string-valued key-value port the stores
// persist through, with in-memory and JSON-file backends.
package storage

import "context"

// Keys of the persisted state layout.
const (
	KeyTestCases = "testCases"
	KeyModules   = "modules"
	KeyTeamUsers = "teamUsers"
	KeySessions  = "sessions"

	// KeyAuthToken and KeyUserData hold the single-session layout of older
	// data files. Stores discard them on load.
	KeyAuthToken = "authToken"
	KeyUserData  = "userData"
)

// KV reads, writes and clears string values by key.
type KV interface {
	// Get returns the value stored under key and whether it was present.
	Get(ctx context.Context, key string) (string, bool, error)
	// Set stores value under key, replacing any previous value.
	Set(ctx context.Context, key, value string) error
	// Delete removes the given keys. Missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
}
