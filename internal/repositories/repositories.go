package repositories

import (
	"database/sql"
	"fmt"

	"github.com/desertthunder/watchlist/internal/models"
	"github.com/desertthunder/watchlist/internal/shared"
)

// NewCredentialStore returns the credential backend named by cfg.Store.
//
// db is only required for the sqlite backend and may be nil otherwise.
func NewCredentialStore(cfg shared.SessionConfig, db *sql.DB) (models.CredentialStore, error) {
	switch cfg.Store {
	case shared.StoreSQLite, "":
		if db == nil {
			return nil, fmt.Errorf("%w: sqlite credential store requires a database", shared.ErrInvalidConfig)
		}
		return NewCredentialRepository(db), nil
	case shared.StoreFile:
		path, err := shared.ExpandHome(cfg.CredentialFile)
		if err != nil {
			return nil, err
		}
		return NewFileCredentialStore(path), nil
	case shared.StoreMemory:
		return NewMemoryCredentialStore(), nil
	default:
		return nil, fmt.Errorf("%w: unknown credential store %q", shared.ErrInvalidConfig, cfg.Store)
	}
}
