package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_STATE_HOME", t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "epub", cfg.Format)
	assert.Equal(t, DefaultWorkers, cfg.Workers)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, "Pocket", cfg.Device.FolderName)
	assert.Equal(t, "Archive", cfg.Device.ArchiveFolderName)
	assert.Equal(t, DefaultQueryCount, cfg.Query.Count)
	assert.NotEmpty(t, cfg.Device.Root)
	assert.NotEmpty(t, cfg.StatePath)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadFromFile(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "repocket")
	require.NoError(t, os.MkdirAll(dir, 0o755))

	yaml := `
format: html
workers: 2
device:
  root: /mnt/device/xochitl
  folder_name: Reading
query:
  count: 5
  tag: longform
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yaml), 0o644))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "html", cfg.Format)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "/mnt/device/xochitl", cfg.Device.Root)
	assert.Equal(t, "Reading", cfg.Device.FolderName)
	assert.Equal(t, "Archive", cfg.Device.ArchiveFolderName) // default kept
	assert.Equal(t, 5, cfg.Query.Count)
	assert.Equal(t, "longform", cfg.Query.Tag)
}

func TestLoadRejectsBadFormat(t *testing.T) {
	configHome := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", configHome)

	dir := filepath.Join(configHome, "repocket")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("format: docx\n"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "format")
}

func TestValidate(t *testing.T) {
	t.Parallel()

	base := Config{
		Format:  "epub",
		Workers: 1,
		Timeout: time.Second,
		Query:   QueryConfig{Count: 1},
	}

	t.Run("accepts sane config", func(t *testing.T) {
		t.Parallel()
		assert.NoError(t, base.Validate())
	})

	t.Run("rejects zero workers", func(t *testing.T) {
		t.Parallel()
		c := base
		c.Workers = 0
		assert.Error(t, c.Validate())
	})

	t.Run("rejects zero timeout", func(t *testing.T) {
		t.Parallel()
		c := base
		c.Timeout = 0
		assert.Error(t, c.Validate())
	})

	t.Run("rejects zero query count", func(t *testing.T) {
		t.Parallel()
		c := base
		c.Query.Count = 0
		assert.Error(t, c.Validate())
	})
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	got, err := ExpandPath("~/x/y")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "x", "y"), got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)
}
