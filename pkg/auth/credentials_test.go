package auth

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

const sampleToken = "pk.eyJ1IjoidGVzdCJ9.c2lnbmF0dXJl"

func TestManagerStoreAndRetrieve(t *testing.T) {
	manager, store := NewMockManager()

	cred := &Credential{AccessToken: sampleToken}
	require.NoError(t, manager.Store(cred))
	assert.Equal(t, DefaultProfile, cred.Profile)
	assert.False(t, cred.LastModified.IsZero())
	assert.Equal(t, 1, store.Count())

	got, err := manager.Retrieve("")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, got.AccessToken)

	_, err = manager.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
}

func TestManagerRejectsMalformedTokens(t *testing.T) {
	manager, store := NewMockManager()

	for _, token := range []string{"", "abc", "pk.only", "xx.a.b"} {
		err := manager.Store(&Credential{Profile: "p", AccessToken: token})
		assert.ErrorIs(t, err, ErrInvalidCredentials, token)
	}
	assert.Equal(t, 0, store.Count())
}

func TestManagerFallsBackToNextStore(t *testing.T) {
	broken := NewMockStore()
	broken.StoreError = errors.New("keychain locked")
	working := NewMockStore()

	manager := NewManagerWithStores(broken, working)
	require.NoError(t, manager.Store(&Credential{Profile: "work", AccessToken: sampleToken}))
	assert.True(t, working.Exists("work"))

	working.StoreError = errors.New("disk full")
	err := manager.Store(&Credential{Profile: "x", AccessToken: sampleToken})
	assert.ErrorContains(t, err, "disk full")
}

func TestManagerRetrieveDefault(t *testing.T) {
	manager, _ := NewMockManager()

	_, err := manager.RetrieveDefault()
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, manager.Store(&Credential{Profile: "work", AccessToken: sampleToken}))
	cred, err := manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "work", cred.Profile, "a single profile is the default")

	require.NoError(t, manager.Store(&Credential{Profile: "home", AccessToken: sampleToken}))
	_, err = manager.RetrieveDefault()
	assert.ErrorContains(t, err, "--profile")

	require.NoError(t, manager.Store(&Credential{Profile: DefaultProfile, AccessToken: "sk.a.b"}))
	cred, err = manager.RetrieveDefault()
	require.NoError(t, err)
	assert.Equal(t, "sk.a.b", cred.AccessToken)
}

func TestManagerListAndDelete(t *testing.T) {
	a, b := NewMockStore(), NewMockStore()
	manager := NewManagerWithStores(a, b)

	require.NoError(t, a.Store(&Credential{Profile: "zeta", AccessToken: sampleToken}))
	require.NoError(t, b.Store(&Credential{Profile: "alpha", AccessToken: sampleToken}))

	creds, err := manager.List()
	require.NoError(t, err)
	require.Len(t, creds, 2)
	assert.Equal(t, "alpha", creds[0].Profile)
	assert.Equal(t, "zeta", creds[1].Profile)

	require.NoError(t, manager.Delete("zeta"))
	assert.False(t, a.Exists("zeta"))
	assert.ErrorIs(t, manager.Delete("zeta"), ErrCredentialsNotFound)
}

func TestEncryptedFileStore(t *testing.T) {
	dir := t.TempDir()
	t.Setenv(passphraseEnv, "")
	path := filepath.Join(dir, "nested", "credentials.enc")

	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)

	_, err = store.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	require.NoError(t, store.Store(&Credential{Profile: "work", AccessToken: sampleToken}))
	require.NoError(t, store.Store(&Credential{Profile: "home", AccessToken: "pk.x.y"}))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(content), sampleToken, "tokens are encrypted at rest")

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	// a second store over the same file reuses the generated passphrase
	reopened, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	cred, err := reopened.Retrieve("work")
	require.NoError(t, err)
	assert.Equal(t, sampleToken, cred.AccessToken)

	list, err := reopened.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "home", list[0].Profile)

	require.NoError(t, reopened.Delete("work"))
	require.NoError(t, reopened.Delete("home"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "file is removed with its last profile")
}

func TestEncryptedFileStoreWrongPassphrase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "credentials.enc")

	t.Setenv(passphraseEnv, "first")
	store, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Store(&Credential{Profile: "work", AccessToken: sampleToken}))

	t.Setenv(passphraseEnv, "second")
	other, err := NewEncryptedFileStore(path)
	require.NoError(t, err)
	_, err = other.Retrieve("work")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrCredentialsNotFound)
}

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()

	store, err := NewKeyringStore()
	require.NoError(t, err)

	require.NoError(t, store.Store(&Credential{Profile: "work", AccessToken: sampleToken}))
	require.NoError(t, store.Store(&Credential{Profile: "home", AccessToken: "pk.x.y"}))
	assert.True(t, store.Exists("work"))

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "home", list[0].Profile)
	assert.Equal(t, "work", list[1].Profile)

	require.NoError(t, store.Delete("home"))
	assert.ErrorIs(t, store.Delete("home"), ErrCredentialsNotFound)

	list, err = store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, sampleToken, list[0].AccessToken)
}

func TestEnvironmentStore(t *testing.T) {
	t.Setenv("TILEFETCH_ACCESS_TOKEN", "")
	t.Setenv("MAPBOX_ACCESS_TOKEN", "")
	env := NewEnvironmentStore()

	_, err := env.Retrieve(DefaultProfile)
	assert.ErrorIs(t, err, ErrCredentialsNotFound)

	t.Setenv("MAPBOX_ACCESS_TOKEN", "pk.mapbox.env")
	cred, err := env.Retrieve(DefaultProfile)
	require.NoError(t, err)
	assert.Equal(t, "pk.mapbox.env", cred.AccessToken)
	assert.Equal(t, EnvProfile, cred.Profile)

	t.Setenv("TILEFETCH_ACCESS_TOKEN", "pk.tilefetch.env")
	cred, err = env.Retrieve(EnvProfile)
	require.NoError(t, err)
	assert.Equal(t, "pk.tilefetch.env", cred.AccessToken)

	_, err = env.Retrieve("work")
	assert.ErrorIs(t, err, ErrCredentialsNotFound)
	assert.ErrorIs(t, env.Store(cred), ErrStoreUnavailable)
	assert.ErrorIs(t, env.Delete(EnvProfile), ErrStoreUnavailable)
}

func TestMaskingHelpers(t *testing.T) {
	assert.Equal(t, "pk.e...dXJl", MaskToken(sampleToken))
	assert.Equal(t, "********", MaskToken("short"))

	sanitized := SanitizeCredential(&Credential{Profile: "work", AccessToken: sampleToken})
	assert.Equal(t, "work", sanitized.Profile)
	assert.NotEqual(t, sampleToken, sanitized.AccessToken)
	assert.Nil(t, SanitizeCredential(nil))
}

func TestShowTokenGuide(t *testing.T) {
	var buf bytes.Buffer
	ShowTokenGuide(&buf)
	assert.Contains(t, buf.String(), "account.mapbox.com")
	assert.Contains(t, buf.String(), "MAPBOX_ACCESS_TOKEN")
}
