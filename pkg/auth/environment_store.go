package auth

import (
	"os"
	"time"
)

// CookieEnv holds a raw Cookie header for non-interactive runs
const CookieEnv = "FANFOUDL_COOKIE"

// EnvironmentStore is a read-only store backed by FANFOUDL_COOKIE
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(account *Account) error {
	return ErrStoreUnavailable
}

// Retrieve returns the environment cookie under any name; an empty name becomes "default"
func (e *EnvironmentStore) Retrieve(name string) (*Account, error) {
	raw := os.Getenv(CookieEnv)
	if raw == "" {
		return nil, ErrCredentialsNotFound
	}
	if name == "" {
		name = "default"
	}

	return &Account{
		Name:         name,
		Cookie:       raw,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Account, error) {
	account, err := e.Retrieve("")
	if err != nil {
		return []*Account{}, nil
	}
	return []*Account{account}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(name string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(name string) bool {
	return os.Getenv(CookieEnv) != ""
}
