// Package conf loads and holds the application settings. Configuration is read
// from a YAML file with viper, with environment variable overrides under the
// PREFSEL_ prefix.
package conf

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LogConfig holds file logging and rotation settings.
type LogConfig struct {
	Enabled    bool   // true to write a rotating log file
	Path       string // log file path
	MaxSize    int    // megabytes before rotation
	MaxBackups int    // rotated files to keep
	MaxAge     int    // days to keep rotated files
}

// ClassifierSettings configures the boundary call to the text-classification
// capability. The engine treats the capability as a pure function over
// (utterance, label set); these settings only describe how to reach it.
type ClassifierSettings struct {
	Endpoint string // chat-completions compatible endpoint URL
	APIKey   string // bearer token, usually via PREFSEL_CLASSIFIER_APIKEY
	Model    string // model identifier sent with each request
	Timeout  int    // request timeout in seconds
}

// RequestTimeout returns the classifier timeout as a duration.
func (c *ClassifierSettings) RequestTimeout() time.Duration {
	if c.Timeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// SeedEntity is a vocabulary entry created at startup if missing.
type SeedEntity struct {
	Name        string
	Code        string // optional short code, e.g. ISO 639-1 for languages
	Description string
}

// DomainSettings configures one selection domain (language, service).
type DomainSettings struct {
	Default        string // fallback entity when detection yields nothing
	ReselectPolicy string // ReselectAppend or ReselectRefresh
	// MultiSelect controls how a multi-entity detection is recorded. When
	// true every detected entity gets a selection row (a user may want
	// delivery and catering at once); when false only the primary is
	// recorded so "current = most recent row" stays meaningful.
	MultiSelect bool
	Seed        []SeedEntity // vocabulary created at startup if missing
}

// Settings contains all application settings.
type Settings struct {
	Debug bool // true to enable debug logging

	Main struct {
		Name string    // node name for logs
		Log  LogConfig // file logging settings
	}

	WebServer struct {
		Enabled bool
		Port    string
		Debug   bool
	}

	Output struct {
		SQLite struct {
			Enabled bool
			Path    string
		}
		MySQL struct {
			Enabled  bool
			Username string
			Password string
			Host     string
			Port     string
			Database string
		}
	}

	Classifier ClassifierSettings

	Domains map[string]DomainSettings
}

// Domain returns the settings for the named domain, or false when the domain
// is not configured.
func (s *Settings) Domain(name string) (DomainSettings, bool) {
	d, ok := s.Domains[strings.ToLower(strings.TrimSpace(name))]
	return d, ok
}

var (
	settingsInstance *Settings
	once             sync.Once
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into a Settings
// instance and stores it as the package singleton.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	settings := &Settings{}

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	if err := viper.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// Setting returns the singleton settings instance, loading it on first use.
func Setting() *Settings {
	once.Do(func() {
		if settingsInstance == nil {
			if _, err := Load(); err != nil {
				panic(fmt.Sprintf("error loading settings: %v", err))
			}
		}
	})
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// initViper initializes viper with default values and reads the configuration file.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return fmt.Errorf("error getting default config paths: %w", err)
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	viper.SetEnvPrefix("prefsel")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	setDefaultConfig()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	return nil
}

// createDefaultConfig writes the default configuration as YAML to the first
// config path so a fresh install has a file to edit.
func createDefaultConfig(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}
	configPath := filepath.Join(dir, "config.yaml")

	out, err := yaml.Marshal(viper.AllSettings())
	if err != nil {
		return fmt.Errorf("error rendering default config: %w", err)
	}
	if err := os.WriteFile(configPath, out, 0o644); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}
	return nil
}

// GetDefaultConfigPaths returns the list of directories searched for config.yaml,
// in priority order.
func GetDefaultConfigPaths() ([]string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("error fetching user home directory: %w", err)
	}
	return []string{
		".",
		filepath.Join(homeDir, ".config", "prefsel"),
	}, nil
}

// ValidateSettings checks that the loaded settings are coherent enough to start.
func ValidateSettings(settings *Settings) error {
	if settings.Output.SQLite.Enabled && settings.Output.MySQL.Enabled {
		return errors.New("only one of output.sqlite and output.mysql may be enabled")
	}
	if !settings.Output.SQLite.Enabled && !settings.Output.MySQL.Enabled {
		return errors.New("one of output.sqlite or output.mysql must be enabled")
	}
	if len(settings.Domains) == 0 {
		return errors.New("at least one selection domain must be configured")
	}
	for name, domain := range settings.Domains {
		if strings.TrimSpace(domain.Default) == "" {
			return fmt.Errorf("domain %q has no default entity", name)
		}
		switch domain.ReselectPolicy {
		case ReselectAppend, ReselectRefresh:
		default:
			return fmt.Errorf("domain %q has invalid reselect policy %q", name, domain.ReselectPolicy)
		}
	}
	return nil
}
