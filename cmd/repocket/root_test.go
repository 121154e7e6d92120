package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFlagOverrides(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, rootCmd.ParseFlags([]string{
		"--format", "html",
		"--workers", "2",
		"--tag", "longform",
		"--device-root", "/tmp/device",
	}))

	cfg, err := loadConfig(rootCmd)
	require.NoError(t, err)
	assert.Equal(t, "html", cfg.Format)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, "longform", cfg.Query.Tag)
	assert.Equal(t, "/tmp/device", cfg.Device.Root)
}

func TestLoadConfigRejectsBadFormat(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	require.NoError(t, rootCmd.ParseFlags([]string{"--format", "mobi"}))
	_, err := loadConfig(rootCmd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid format")
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"sync", "watch", "status", "auth", "version"} {
		assert.True(t, names[want], "missing subcommand %s", want)
	}
}
