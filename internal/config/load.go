package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < preset < file < flags.
// The preset is taken from the -preset flag, then the file's preset key,
// then DefaultPreset. f may be nil.
func Load(f *Flags) (*Config, error) {
	// Try to load from file (explicit path takes priority)
	configPath := f.ConfigPath()
	if configPath == "" {
		configPath = findConfigFile()
	}

	name := f.Preset()
	if name == "" && configPath != "" {
		var err error
		if name, err = filePreset(configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
	}
	cfg, err := WithPreset(name)
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config from %s: %w", configPath, err)
		}
		cfg.Preset = name
		if name == "" {
			cfg.Preset = DefaultPreset
		}
	}

	// Apply CLI flags (highest priority)
	f.applyFlags(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// WithPreset returns the defaults with the planet replaced by the named
// preset. An empty name selects DefaultPreset.
func WithPreset(name string) (*Config, error) {
	cfg := Default()
	if name == "" || name == DefaultPreset {
		return cfg, nil
	}
	planet, err := Preset(name)
	if err != nil {
		return nil, err
	}
	cfg.Preset = name
	cfg.Planet = planet
	return cfg, nil
}

// findConfigFile looks for config in standard locations.
func findConfigFile() string {
	candidates := []string{
		"./planetgen.yaml",
		filepath.Join(ConfigDir(), "config.yaml"),
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Planetgen")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Planetgen")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "planetgen")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "planetgen")
	}
}

// filePreset returns the preset key of a YAML file, empty when absent.
func filePreset(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var head struct {
		Preset string `yaml:"preset"`
	}
	if err := yaml.Unmarshal(data, &head); err != nil {
		return "", err
	}
	return head.Preset, nil
}

// loadFromFile loads config from a YAML file, merging with existing values.
// The document is checked against the schema first.
func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ValidateDocument(data); err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}
