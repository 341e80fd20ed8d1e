package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

const credentialSlot = 1

// CredentialRepository implements [models.CredentialStore] on the credentials table.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a new [CredentialRepository] with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Get returns the stored credential or [shared.ErrNoCredential]
func (r *CredentialRepository) Get() (models.Credential, error) {
	var token string
	err := r.db.QueryRow(`SELECT token FROM credentials WHERE slot = ?`, credentialSlot).Scan(&token)
	if errors.Is(err, sql.ErrNoRows) {
		return "", shared.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to query credential: %w", err)
	}
	return models.Credential(token), nil
}

// Set replaces whatever is in the slot.
func (r *CredentialRepository) Set(cred models.Credential) error {
	if cred.IsZero() {
		return fmt.Errorf("%w: empty credential", shared.ErrInvalidInput)
	}

	now := time.Now().UTC()
	query := `
		INSERT INTO credentials (slot, token, created_at, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(slot) DO UPDATE SET token = excluded.token, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, credentialSlot, string(cred), now, now); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	return nil
}

// Clear empties the slot. Clearing an empty slot is not an error.
func (r *CredentialRepository) Clear() error {
	if _, err := r.db.Exec(`DELETE FROM credentials WHERE slot = ?`, credentialSlot); err != nil {
		return fmt.Errorf("failed to clear credential: %w", err)
	}
	return nil
}

// MemoryCredentialStore keeps the credential in process memory.
type MemoryCredentialStore struct {
	mu   sync.RWMutex
	cred models.Credential
}

func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{}
}

func (s *MemoryCredentialStore) Get() (models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred.IsZero() {
		return "", shared.ErrNoCredential
	}
	return s.cred, nil
}

func (s *MemoryCredentialStore) Set(cred models.Credential) error {
	if cred.IsZero() {
		return fmt.Errorf("%w: empty credential", shared.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = cred
	return nil
}

func (s *MemoryCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred = ""
	return nil
}

var (
	_ models.CredentialStore = (*CredentialRepository)(nil)
	_ models.CredentialStore = (*MemoryCredentialStore)(nil)
	_ models.CredentialStore = (*FileCredentialStore)(nil)
)
