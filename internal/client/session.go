package client

import (
	"encoding/json"
	"fmt"
	"os"
)

// DefaultSessionFile keeps the shell session between runs.
const DefaultSessionFile = ".qatm-session.json"

// SavedSession is the shell state persisted between runs.
type SavedSession struct {
	BaseURL string `json:"baseUrl"`
	Session
}

// LoadSession reads the saved session at path. A missing file yields an
// empty session and no error.
func LoadSession(path string) (SavedSession, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return SavedSession{}, nil
		}
		return SavedSession{}, fmt.Errorf("open session file: %w", err)
	}
	defer f.Close()

	var s SavedSession
	if err := json.NewDecoder(f).Decode(&s); err != nil {
		return SavedSession{}, fmt.Errorf("decode session file: %w", err)
	}
	return s, nil
}

// SaveSession writes s to path, readable by the owner only.
func SaveSession(path string, s SavedSession) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(s); err != nil {
		f.Close()
		return fmt.Errorf("encode session file: %w", err)
	}
	return f.Close()
}

// ClearSession removes the saved session, if any.
func ClearSession(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
