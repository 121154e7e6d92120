package config

import (
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
)

// Defaults applied when the config file and environment say nothing.
const (
	DefaultFolderName        = "Pocket"
	DefaultArchiveFolderName = "Archive"
	DefaultFormat            = "epub"
	DefaultWorkers           = 4
	DefaultTimeout           = 30 * time.Second
	DefaultQueryCount        = 10
)

// DefaultDeviceRoot returns the document-store directory on the device.
func DefaultDeviceRoot(homeDir string) string {
	return filepath.Join(homeDir, ".local", "share", "remarkable", "xochitl")
}

// DefaultCredentialsPath returns the default credentials file location.
func DefaultCredentialsPath() string {
	return filepath.Join(xdg.ConfigHome, "repocket", "credentials")
}

// DefaultStatePath returns the default snapshot file location.
func DefaultStatePath() string {
	return filepath.Join(xdg.StateHome, "repocket", "state.json")
}
