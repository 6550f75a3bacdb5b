package pathing

import (
	"os"
	"path/filepath"
)

// EnsureDirs creates the directories that must exist. Call on startup.
func EnsureDirs() error {
	// Directories that must exist:
	dirs := []string{
		GetDataDir(),
		GetConfigDir(),
	}

	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

func GetMeterDbPath() string {
	return filepath.Join(GetDataDir(), "esm-meter.db")
}

func GetDataDir() string {
	if dir := os.Getenv("ESM_DATA_DIR"); dir != "" {
		return dir
	}
	return "/var/lib/european_smart_meter"
}

func GetConfigDir() string {
	if dir := os.Getenv("ESM_CONFIG_DIR"); dir != "" {
		return dir
	}
	return "/etc/european_smart_meter"
}
