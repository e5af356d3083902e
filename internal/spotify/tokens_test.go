package spotify

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileTokenStoreLoadAbsent(t *testing.T) {
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "token.json"))
	creds, err := store.Load()
	if err != nil {
		t.Fatalf("absent file should not error: %v", err)
	}
	if creds != nil {
		t.Errorf("creds = %+v, want nil", creds)
	}
}

func TestFileTokenStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	store := NewFileTokenStore(path)

	want := &Credentials{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		ExpiresAt:    1700000000,
	}
	if err := store.Save(want); err != nil {
		t.Fatalf("Save: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("file mode = %o, want 600", perm)
	}

	got, err := store.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if *got != *want {
		t.Errorf("Load = %+v, want %+v", got, want)
	}
}

func TestFileTokenStoreSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	store := NewFileTokenStore(filepath.Join(dir, "token.json"))
	if err := store.Save(&Credentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: 1}); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "token.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("directory contents = %v, want only token.json", names)
	}
}

func TestFileTokenStoreLoadCorrupt(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{{{"},
		{"missing fields", `{"expires_at": 123}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "token.json")
			if err := os.WriteFile(path, []byte(tt.data), 0o600); err != nil {
				t.Fatal(err)
			}

			_, err := NewFileTokenStore(path).Load()
			var se *StorageError
			if !errors.As(err, &se) {
				t.Fatalf("expected StorageError, got %v", err)
			}
		})
	}
}

func TestCredentialsStale(t *testing.T) {
	now := time.Unix(1000, 0)
	skew := 60 * time.Second

	tests := []struct {
		name      string
		expiresAt int64
		want      bool
	}{
		{"long future", 10000, false},
		{"already expired", 500, true},
		{"inside skew window", 1030, true},
		{"exactly at skew boundary", 1060, true},
		{"just past skew boundary", 1061, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Credentials{AccessToken: "a", RefreshToken: "r", ExpiresAt: tt.expiresAt}
			if got := c.Stale(now, skew); got != tt.want {
				t.Errorf("Stale = %v, want %v", got, tt.want)
			}
		})
	}
}
