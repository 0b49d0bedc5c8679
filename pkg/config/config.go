package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for modelkeep
type Config struct {
	Storage   StorageConfig   `mapstructure:"storage"`
	Registry  RegistryConfig  `mapstructure:"registry"`
	Integrity IntegrityConfig `mapstructure:"integrity"`
	Reconcile ReconcileConfig `mapstructure:"reconcile"`
	Watch     WatchConfig     `mapstructure:"watch"`
}

// StorageConfig describes the storage roots the locator scans.
type StorageConfig struct {
	ModelDir string `mapstructure:"model_dir"` // flat root of loose assets (category: active)
	UserDir  string `mapstructure:"user_dir"`  // per-user data root (category: custom)
	StoreDir string `mapstructure:"store_dir"` // categorized universal store (one subdir per category)
}

// RegistryConfig holds registry persistence settings.
type RegistryConfig struct {
	Path string `mapstructure:"path"`
}

// IntegrityConfig holds the classification thresholds.
type IntegrityConfig struct {
	MinValidSize    int64 `mapstructure:"min_valid_size"`   // bytes; assets at or above this are real
	PlaceholderSize int64 `mapstructure:"placeholder_size"` // bytes; files below this are probed as stubs
}

// ReconcileConfig holds reconciliation execution settings.
type ReconcileConfig struct {
	Workers int `mapstructure:"workers"` // scan workers; 0 = one per storage root
}

// WatchConfig holds filesystem watch settings.
type WatchConfig struct {
	Debounce time.Duration `mapstructure:"debounce"`
}

var defaultConfig = Config{
	Integrity: IntegrityConfig{
		MinValidSize:    100 * 1024 * 1024,
		PlaceholderSize: 1024,
	},
	Reconcile: ReconcileConfig{
		Workers: 0,
	},
	Watch: WatchConfig{
		Debounce: 500 * time.Millisecond,
	},
}

// LoadConfig loads configuration from defaults, config file, and environment
func LoadConfig() (*Config, error) {
	v := viper.New()

	home, err := GetModelkeepHome()
	if err != nil {
		return nil, err
	}

	// Defaults
	v.SetDefault("storage.model_dir", filepath.Join(home, "models"))
	v.SetDefault("storage.user_dir", filepath.Join(home, "userdata"))
	v.SetDefault("storage.store_dir", filepath.Join(home, "store"))
	v.SetDefault("registry.path", filepath.Join(home, "registry.json"))
	v.SetDefault("integrity.min_valid_size", defaultConfig.Integrity.MinValidSize)
	v.SetDefault("integrity.placeholder_size", defaultConfig.Integrity.PlaceholderSize)
	v.SetDefault("reconcile.workers", defaultConfig.Reconcile.Workers)
	v.SetDefault("watch.debounce", defaultConfig.Watch.Debounce)

	// Configuration file search paths
	v.SetConfigName("modelkeep")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME")
	if configDir, err := GetConfigDir(); err == nil {
		v.AddConfigPath(configDir)
	}

	// Environment variables
	v.SetEnvPrefix("MODELKEEP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Config file is optional; defaults apply when absent
	_ = v.ReadInConfig()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %v", err)
	}

	return &config, nil
}

// LoadConfigFile loads configuration from an explicit file path, layered
// over the same defaults as LoadConfig.
func LoadConfigFile(path string) (*Config, error) {
	config, err := LoadConfig()
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %v", path, err)
	}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config file %s: %v", path, err)
	}
	return config, nil
}

// GetModelkeepHome returns the modelkeep home directory
func GetModelkeepHome() (string, error) {
	if home := os.Getenv("MODELKEEP_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %v", err)
	}

	return filepath.Join(homeDir, ".modelkeep"), nil
}

// EnsureModelkeepHome creates the modelkeep home directory if it doesn't exist
func EnsureModelkeepHome() (string, error) {
	homeDir, err := GetModelkeepHome()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(homeDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create modelkeep home directory: %v", err)
	}

	return homeDir, nil
}

// GetConfigDir returns the config directory
func GetConfigDir() (string, error) {
	homeDir, err := EnsureModelkeepHome()
	if err != nil {
		return "", err
	}
	configDir := filepath.Join(homeDir, "config")
	if err := os.MkdirAll(configDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create config directory: %v", err)
	}
	return configDir, nil
}

// GetLogDir returns the log directory
func GetLogDir() (string, error) {
	homeDir, err := EnsureModelkeepHome()
	if err != nil {
		return "", err
	}
	logDir := filepath.Join(homeDir, "logs")
	if err := os.MkdirAll(logDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create log directory: %v", err)
	}
	return logDir, nil
}
