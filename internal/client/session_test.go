package client

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/karnan008/QA-Test-Manager/internal/models"
)

func TestSession_SaveLoadClear(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")

	s, err := LoadSession(path)
	if err != nil {
		t.Fatalf("LoadSession on missing file: %v", err)
	}
	if s.Token != "" {
		t.Errorf("expected empty session, got %+v", s)
	}

	want := SavedSession{
		BaseURL: "http://localhost:8080",
		Session: Session{User: models.User{ID: "1", Username: "admin"}, Token: "tok"},
	}
	if err := SaveSession(path, want); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("perm = %o; want 600", perm)
	}

	got, err := LoadSession(path)
	if err != nil {
		t.Fatal(err)
	}
	if got.BaseURL != want.BaseURL || got.Token != want.Token || got.User.Username != "admin" {
		t.Errorf("got %+v; want %+v", got, want)
	}

	if err := ClearSession(path); err != nil {
		t.Fatal(err)
	}
	if err := ClearSession(path); err != nil {
		t.Errorf("clearing twice: %v", err)
	}
}

func TestLoadSession_Corrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "session.json")
	if err := os.WriteFile(path, []byte("{"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadSession(path); err == nil {
		t.Error("expected decode error")
	}
}
