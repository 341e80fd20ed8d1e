package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.OpenMigrated(shared.DatabaseConfig{Path: ":memory:"})
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// exerciseStore runs the shared contract against any [models.CredentialStore].
func exerciseStore(t *testing.T, store models.CredentialStore) {
	t.Helper()

	t.Run("Get on empty slot", func(t *testing.T) {
		if _, err := store.Get(); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential, got %v", err)
		}
	})

	t.Run("Set then Get", func(t *testing.T) {
		if err := store.Set("token-one"); err != nil {
			t.Fatalf("failed to set credential: %v", err)
		}
		got, err := store.Get()
		if err != nil {
			t.Fatalf("failed to get credential: %v", err)
		}
		if got != "token-one" {
			t.Errorf("expected token-one, got %s", got)
		}
	})

	t.Run("Set replaces", func(t *testing.T) {
		if err := store.Set("token-two"); err != nil {
			t.Fatalf("failed to set credential: %v", err)
		}
		got, _ := store.Get()
		if got != "token-two" {
			t.Errorf("expected token-two, got %s", got)
		}
	})

	t.Run("Set rejects empty", func(t *testing.T) {
		if err := store.Set(""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Clear", func(t *testing.T) {
		if err := store.Clear(); err != nil {
			t.Fatalf("failed to clear: %v", err)
		}
		if _, err := store.Get(); !errors.Is(err, shared.ErrNoCredential) {
			t.Errorf("expected ErrNoCredential after clear, got %v", err)
		}
		if err := store.Clear(); err != nil {
			t.Errorf("clearing an empty slot should succeed, got %v", err)
		}
	})
}

func TestCredentialRepository(t *testing.T) {
	db := setupTestDB(t)
	exerciseStore(t, NewCredentialRepository(db))

	t.Run("keeps a single row", func(t *testing.T) {
		repo := NewCredentialRepository(db)
		for _, tok := range []models.Credential{"a", "b", "c"} {
			if err := repo.Set(tok); err != nil {
				t.Fatalf("failed to set credential: %v", err)
			}
		}

		var count int
		if err := db.QueryRow("SELECT COUNT(*) FROM credentials").Scan(&count); err != nil {
			t.Fatalf("failed to count credentials: %v", err)
		}
		if count != 1 {
			t.Errorf("expected 1 row, got %d", count)
		}
	})
}

func TestMemoryCredentialStore(t *testing.T) {
	exerciseStore(t, NewMemoryCredentialStore())
}

func TestFileCredentialStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "credential.json")
	exerciseStore(t, NewFileCredentialStore(path))

	t.Run("file is owner only", func(t *testing.T) {
		store := NewFileCredentialStore(path)
		if err := store.Set("secret"); err != nil {
			t.Fatalf("failed to set credential: %v", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			t.Fatalf("failed to stat credential file: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0600 {
			t.Errorf("expected 0600 permissions, got %o", perm)
		}
	})

	t.Run("survives a new store instance", func(t *testing.T) {
		got, err := NewFileCredentialStore(path).Get()
		if err != nil || got != "secret" {
			t.Errorf("expected persisted secret, got %q (%v)", got, err)
		}
	})

	t.Run("corrupt file", func(t *testing.T) {
		bad := filepath.Join(t.TempDir(), "credential.json")
		if err := os.WriteFile(bad, []byte("{not json"), 0600); err != nil {
			t.Fatalf("failed to write file: %v", err)
		}
		if _, err := NewFileCredentialStore(bad).Get(); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})
}

func TestNewCredentialStore(t *testing.T) {
	db := setupTestDB(t)

	tt := []struct {
		name string
		cfg  shared.SessionConfig
		db   *sql.DB
		want string
	}{
		{name: "sqlite", cfg: shared.SessionConfig{Store: shared.StoreSQLite}, db: db, want: "*repositories.CredentialRepository"},
		{name: "file", cfg: shared.SessionConfig{Store: shared.StoreFile, CredentialFile: filepath.Join(t.TempDir(), "c.json")}, want: "*repositories.FileCredentialStore"},
		{name: "memory", cfg: shared.SessionConfig{Store: shared.StoreMemory}, want: "*repositories.MemoryCredentialStore"},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			store, err := NewCredentialStore(tc.cfg, tc.db)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got := fmt.Sprintf("%T", store); got != tc.want {
				t.Errorf("expected %s, got %s", tc.want, got)
			}
		})
	}

	t.Run("sqlite without database", func(t *testing.T) {
		_, err := NewCredentialStore(shared.SessionConfig{Store: shared.StoreSQLite}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("unknown store", func(t *testing.T) {
		_, err := NewCredentialStore(shared.SessionConfig{Store: "vault"}, nil)
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})
}

func TestSessionEventRepository(t *testing.T) {
	t.Run("Create and List", func(t *testing.T) {
		repo := NewSessionEventRepository(setupTestDB(t))

		reasons := []string{"startup", "login", "logout"}
		for _, reason := range reasons {
			if err := repo.Create(models.NewSessionEvent("a", "b", reason)); err != nil {
				t.Fatalf("failed to create event: %v", err)
			}
		}

		events, err := repo.List(0)
		if err != nil {
			t.Fatalf("failed to list events: %v", err)
		}
		if len(events) != 3 {
			t.Fatalf("expected 3 events, got %d", len(events))
		}
		if events[0].Reason != "logout" {
			t.Errorf("expected newest event first, got %s", events[0].Reason)
		}
		if events[0].ID() == "" {
			t.Error("expected event ID to be set")
		}

		limited, err := repo.List(2)
		if err != nil {
			t.Fatalf("failed to list events: %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 events, got %d", len(limited))
		}
	})

	t.Run("Create rejects invalid event", func(t *testing.T) {
		repo := NewSessionEventRepository(setupTestDB(t))
		if err := repo.Create(models.NewSessionEvent("a", "b", "")); err == nil {
			t.Error("expected validation error")
		}
	})

	t.Run("Prune", func(t *testing.T) {
		repo := NewSessionEventRepository(setupTestDB(t))
		for range 5 {
			if err := repo.Create(models.NewSessionEvent("a", "b", "tick")); err != nil {
				t.Fatalf("failed to create event: %v", err)
			}
		}

		removed, err := repo.Prune(2)
		if err != nil {
			t.Fatalf("failed to prune: %v", err)
		}
		if removed != 3 {
			t.Errorf("expected 3 removed, got %d", removed)
		}

		events, _ := repo.List(0)
		if len(events) != 2 {
			t.Errorf("expected 2 remaining, got %d", len(events))
		}
	})
}
