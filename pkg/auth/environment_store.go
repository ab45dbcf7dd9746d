package auth

import (
	"os"
	"time"
)

// EnvProfile names the credential read from the environment
const EnvProfile = "env"

// EnvironmentStore is a read-only store over TILEFETCH_ACCESS_TOKEN, then
// MAPBOX_ACCESS_TOKEN
type EnvironmentStore struct{}

func NewEnvironmentStore() *EnvironmentStore {
	return &EnvironmentStore{}
}

func (e *EnvironmentStore) token() string {
	if token := os.Getenv("TILEFETCH_ACCESS_TOKEN"); token != "" {
		return token
	}
	return os.Getenv("MAPBOX_ACCESS_TOKEN")
}

// Store is not supported for environment variables
func (e *EnvironmentStore) Store(cred *Credential) error {
	return ErrStoreUnavailable
}

// Retrieve answers for the env profile and the default profile
func (e *EnvironmentStore) Retrieve(profile string) (*Credential, error) {
	if profile != EnvProfile && profile != DefaultProfile && profile != "" {
		return nil, ErrCredentialsNotFound
	}
	token := e.token()
	if token == "" {
		return nil, ErrCredentialsNotFound
	}
	return &Credential{
		Profile:      EnvProfile,
		AccessToken:  token,
		LastModified: time.Now(),
	}, nil
}

func (e *EnvironmentStore) List() ([]*Credential, error) {
	cred, err := e.Retrieve(EnvProfile)
	if err != nil {
		return []*Credential{}, nil
	}
	return []*Credential{cred}, nil
}

// Delete is not supported for environment variables
func (e *EnvironmentStore) Delete(profile string) error {
	return ErrStoreUnavailable
}

func (e *EnvironmentStore) Exists(profile string) bool {
	_, err := e.Retrieve(profile)
	return err == nil
}
