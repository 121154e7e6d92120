package pocket

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCredentials(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("consumer-key\naccess-token\n"), 0o600))

	creds, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, "consumer-key", creds.ConsumerKey)
	assert.Equal(t, "access-token", creds.AccessToken)
}

func TestLoadCredentialsMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadCredentials(filepath.Join(t.TempDir(), "nope"))
	require.Error(t, err)
}

func TestLoadCredentialsIncomplete(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials")
	require.NoError(t, os.WriteFile(path, []byte("only-one-line\n"), 0o600))

	_, err := LoadCredentials(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "consumer key")
}

func TestCredentialsSaveRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "credentials")
	creds := Credentials{ConsumerKey: "ck", AccessToken: "at"}
	require.NoError(t, creds.Save(path))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	loaded, err := LoadCredentials(path)
	require.NoError(t, err)
	assert.Equal(t, creds, loaded)
}

func TestCredentialsSaveRefusesIncomplete(t *testing.T) {
	t.Parallel()

	err := Credentials{ConsumerKey: "ck"}.Save(filepath.Join(t.TempDir(), "credentials"))
	require.Error(t, err)
}
