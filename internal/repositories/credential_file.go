package repositories

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

type credentialFile struct {
	Token     string    `json:"token"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FileCredentialStore persists the credential as JSON at a fixed path.
//
// Writes go through a temp file and rename so a crash never leaves a half-written token.
type FileCredentialStore struct {
	mu   sync.Mutex
	path string
}

// NewFileCredentialStore creates a store at path. The file is created on first [FileCredentialStore.Set].
func NewFileCredentialStore(path string) *FileCredentialStore {
	return &FileCredentialStore{path: path}
}

// Path returns the backing file path.
func (s *FileCredentialStore) Path() string { return s.path }

func (s *FileCredentialStore) Get() (models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", shared.ErrNoCredential
	}
	if err != nil {
		return "", fmt.Errorf("failed to read credential file: %w", err)
	}

	var f credentialFile
	if err := json.Unmarshal(data, &f); err != nil {
		return "", fmt.Errorf("%w: credential file is corrupt: %v", shared.ErrInvalidInput, err)
	}

	cred := models.Credential(f.Token)
	if cred.IsZero() {
		return "", shared.ErrNoCredential
	}
	return cred, nil
}

func (s *FileCredentialStore) Set(cred models.Credential) error {
	if cred.IsZero() {
		return fmt.Errorf("%w: empty credential", shared.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := shared.MarshalJSON(credentialFile{Token: string(cred), UpdatedAt: time.Now().UTC()}, true)
	if err != nil {
		return err
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("failed to create credential directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".credential-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to set credential permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write credential: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close credential file: %w", err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("failed to save credential: %w", err)
	}
	return nil
}

func (s *FileCredentialStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to remove credential file: %w", err)
	}
	return nil
}
