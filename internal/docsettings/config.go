package docsettings

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/tailscale/hujson"
)

// PlacementMode selects where a document's sidecar directory is stored.
type PlacementMode uint8

const (
	// PlaceDocFolder stores the ".sdr" directory next to the document.
	PlaceDocFolder PlacementMode = iota
	// PlaceCentralDir stores it under a central root that mirrors the
	// document's directory structure.
	PlaceCentralDir
)

// String returns the config-file spelling of the mode.
func (m PlacementMode) String() string {
	if m == PlaceCentralDir {
		return "central"
	}

	return "doc"
}

// ParsePlacementMode parses the config-file spelling of a placement mode.
func ParsePlacementMode(s string) (PlacementMode, error) {
	switch s {
	case "doc":
		return PlaceDocFolder, nil
	case "central":
		return PlaceCentralDir, nil
	default:
		return PlaceDocFolder, fmt.Errorf("%w: %q", errUnknownPlacementMode, s)
	}
}

// Config holds the resolved store configuration. It is passed explicitly
// into [NewStore] so tests can vary it per case.
type Config struct {
	// PlacementMode is where flushed sidecar directories go.
	// Default PlaceDocFolder.
	PlacementMode PlacementMode
	// SettingsDir is the central sidecar root used by PlaceCentralDir and
	// as the read-only-storage fallback in PlaceDocFolder mode.
	SettingsDir string
	// HistoryDir is the legacy flat history folder, read-only for
	// resolution of records written by old versions.
	HistoryDir string
}

// ConfigFileName is the default config file name under the user config dir.
const ConfigFileName = "config.json"

const appDirName = "pagemark"

// DefaultConfig returns the default configuration, rooted in the user's
// data directory. If the home directory cannot be determined the central
// paths are empty and only doc-folder placement works.
func DefaultConfig() Config {
	data := os.Getenv("XDG_DATA_HOME")
	if data == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}
		}

		data = filepath.Join(home, ".local", "share")
	}

	return Config{
		PlacementMode: PlaceDocFolder,
		SettingsDir:   filepath.Join(data, appDirName, "docsettings"),
		HistoryDir:    filepath.Join(data, appDirName, "history"),
	}
}

// fileConfig is the JSONC shape of a config file. All fields are optional;
// empty fields keep their defaults.
type fileConfig struct {
	PlacementMode string `json:"placement_mode"` //nolint:tagliatelle // snake_case for config file
	SettingsDir   string `json:"settings_dir"`   //nolint:tagliatelle
	HistoryDir    string `json:"history_dir"`    //nolint:tagliatelle
}

// LoadConfig loads configuration with the following precedence (highest
// wins): defaults, then the global user config
// ($XDG_CONFIG_HOME/pagemark/config.json or ~/.config/pagemark/config.json),
// then the explicit file at configPath if non-empty.
//
// An explicit configPath must exist; the global config is optional.
func LoadConfig(configPath string) (Config, error) {
	cfg := DefaultConfig()

	globalPath := globalConfigPath()
	if globalPath != "" {
		err := applyConfigFile(&cfg, globalPath, false)
		if err != nil {
			return Config{}, err
		}
	}

	if configPath != "" {
		err := applyConfigFile(&cfg, configPath, true)
		if err != nil {
			return Config{}, err
		}
	}

	return cfg, nil
}

// globalConfigPath returns the path to the global config file, or empty if
// the home directory cannot be determined.
func globalConfigPath() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, appDirName, ConfigFileName)
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".config", appDirName, ConfigFileName)
}

// applyConfigFile merges one JSONC config file into cfg.
// Missing optional files are not an error.
func applyConfigFile(cfg *Config, path string, mustExist bool) error {
	data, err := os.ReadFile(path) //nolint:gosec // path is intentionally user-controlled
	if err != nil {
		if os.IsNotExist(err) && !mustExist {
			return nil
		}

		return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
	}

	// Standardize JSONC to JSON.
	standardized, err := hujson.Standardize(data)
	if err != nil {
		return fmt.Errorf("%w %s: invalid JSONC: %w", errConfigInvalid, path, err)
	}

	var raw fileConfig

	err = json.Unmarshal(standardized, &raw)
	if err != nil {
		return fmt.Errorf("%w %s: invalid JSON: %w", errConfigInvalid, path, err)
	}

	if raw.PlacementMode != "" {
		mode, err := ParsePlacementMode(raw.PlacementMode)
		if err != nil {
			return fmt.Errorf("%w %s: %w", errConfigInvalid, path, err)
		}

		cfg.PlacementMode = mode
	}

	if raw.SettingsDir != "" {
		cfg.SettingsDir = raw.SettingsDir
	}

	if raw.HistoryDir != "" {
		cfg.HistoryDir = raw.HistoryDir
	}

	return nil
}
