package auth

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"strings"
	"time"
)

// DefaultProfile is used when no profile name is given
const DefaultProfile = "default"

// Credential is a named Mapbox access token
type Credential struct {
	Profile      string    `json:"profile"`
	AccessToken  string    `json:"access_token"`
	LastModified time.Time `json:"last_modified"`
}

// CredentialStore is the interface for storing and retrieving credentials
type CredentialStore interface {
	Store(cred *Credential) error
	Retrieve(profile string) (*Credential, error)
	List() ([]*Credential, error)
	Delete(profile string) error
	Exists(profile string) bool
}

// Manager handles credential storage with fallback mechanisms
type Manager struct {
	stores []CredentialStore
}

// NewManager uses the system keychain when it works, an encrypted file in
// the user config directory otherwise, and the environment as a read-only
// last resort
func NewManager() (*Manager, error) {
	var stores []CredentialStore

	if keyringStore, err := NewKeyringStore(); err == nil {
		stores = append(stores, keyringStore)
	}

	configDir, err := ConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config directory: %w", err)
	}
	encryptedStore, err := NewEncryptedFileStore(filepath.Join(configDir, "credentials.enc"))
	if err != nil {
		return nil, fmt.Errorf("failed to create encrypted store: %w", err)
	}
	stores = append(stores, encryptedStore)

	stores = append(stores, NewEnvironmentStore())

	return &Manager{stores: stores}, nil
}

// NewManagerWithStores builds a Manager over explicit stores, tried in order
func NewManagerWithStores(stores ...CredentialStore) *Manager {
	return &Manager{stores: stores}
}

// Store validates cred and saves it in the first store that accepts it
func (m *Manager) Store(cred *Credential) error {
	if cred == nil {
		return ErrInvalidCredentials
	}
	if cred.Profile == "" {
		cred.Profile = DefaultProfile
	}
	if err := ValidateToken(cred.AccessToken); err != nil {
		return err
	}

	cred.LastModified = time.Now()

	var lastErr error
	for _, store := range m.stores {
		err := store.Store(cred)
		if err == nil {
			return nil
		}
		lastErr = err
	}

	if lastErr != nil {
		return fmt.Errorf("failed to store credentials: %w", lastErr)
	}
	return ErrStoreUnavailable
}

// Retrieve gets credentials from the first store that has them
func (m *Manager) Retrieve(profile string) (*Credential, error) {
	if profile == "" {
		profile = DefaultProfile
	}
	for _, store := range m.stores {
		if cred, err := store.Retrieve(profile); err == nil && cred != nil {
			return cred, nil
		}
	}
	return nil, fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
}

// RetrieveDefault returns the default profile, or the only stored profile
// when there is exactly one
func (m *Manager) RetrieveDefault() (*Credential, error) {
	if cred, err := m.Retrieve(DefaultProfile); err == nil {
		return cred, nil
	}

	creds, err := m.List()
	if err != nil {
		return nil, err
	}
	switch len(creds) {
	case 0:
		return nil, ErrCredentialsNotFound
	case 1:
		return creds[0], nil
	default:
		return nil, fmt.Errorf("%d profiles stored and none is %q, pick one with --profile", len(creds), DefaultProfile)
	}
}

// List returns the credentials from all stores, newest copy per profile,
// sorted by profile name
func (m *Manager) List() ([]*Credential, error) {
	byProfile := make(map[string]*Credential)

	for _, store := range m.stores {
		creds, err := store.List()
		if err != nil {
			continue
		}
		for _, cred := range creds {
			if existing, ok := byProfile[cred.Profile]; !ok || cred.LastModified.After(existing.LastModified) {
				byProfile[cred.Profile] = cred
			}
		}
	}

	result := make([]*Credential, 0, len(byProfile))
	for _, cred := range byProfile {
		result = append(result, cred)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Profile < result[j].Profile })
	return result, nil
}

// Delete removes credentials from all stores
func (m *Manager) Delete(profile string) error {
	if profile == "" {
		profile = DefaultProfile
	}

	var deleted bool
	var lastErr error
	for _, store := range m.stores {
		if err := store.Delete(profile); err == nil {
			deleted = true
		} else if !errors.Is(err, ErrCredentialsNotFound) && !errors.Is(err, ErrStoreUnavailable) {
			lastErr = err
		}
	}

	if deleted {
		return nil
	}
	if lastErr != nil {
		return fmt.Errorf("failed to delete credentials: %w", lastErr)
	}
	return fmt.Errorf("%w for profile: %s", ErrCredentialsNotFound, profile)
}

// ConfigDir returns the per-user configuration directory, creating it
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "tilefetch")
	case "windows":
		configDir = filepath.Join(os.Getenv("APPDATA"), "tilefetch")
	default:
		if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
			configDir = filepath.Join(xdgConfig, "tilefetch")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			configDir = filepath.Join(home, ".config", "tilefetch")
		}
	}

	if err := os.MkdirAll(configDir, 0700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return configDir, nil
}

// ValidateToken checks the shape of a Mapbox token: a pk., sk. or tk. prefix
// followed by two dot separated parts
func ValidateToken(token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return fmt.Errorf("%w: access token is required", ErrInvalidCredentials)
	}
	parts := strings.Split(token, ".")
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return fmt.Errorf("%w: access token must look like pk.<payload>.<signature>", ErrInvalidCredentials)
	}
	switch parts[0] {
	case "pk", "sk", "tk":
		return nil
	default:
		return fmt.Errorf("%w: unknown token type %q", ErrInvalidCredentials, parts[0])
	}
}

// SanitizeCredential returns a copy of cred with the token masked
func SanitizeCredential(cred *Credential) *Credential {
	if cred == nil {
		return nil
	}
	return &Credential{
		Profile:      cred.Profile,
		AccessToken:  MaskToken(cred.AccessToken),
		LastModified: cred.LastModified,
	}
}

// MaskToken keeps the first and last 4 characters of a token
func MaskToken(s string) string {
	if len(s) <= 8 {
		return "********"
	}
	return s[:4] + "..." + s[len(s)-4:]
}

var (
	ErrCredentialsNotFound = errors.New("credentials not found")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrStoreUnavailable    = errors.New("credential store unavailable")
)
