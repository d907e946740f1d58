package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	internal "watchtest/internal"

	"github.com/spf13/viper"
)

// Config stores all configuration of the application.
// The values are read by viper from a config file, environment variables or
// command-line flags.
type Config struct {
	// Directories
	SourceDirectory     string   `mapstructure:"sourceDirectory"`
	TestSourceDirectory string   `mapstructure:"testSourceDirectory"`
	WatchDirectories    []string `mapstructure:"watchDirectories"`

	// Watch behaviour
	DebounceMs int64 `mapstructure:"debounceMs"`
	WatchMode  bool  `mapstructure:"watchMode"`
	Recursive  bool  `mapstructure:"recursive"`

	// Path filtering (glob patterns, excludes win)
	Includes []string `mapstructure:"includes"`
	Excludes []string `mapstructure:"excludes"`

	// Test runner knobs, passed through to Maven/Surefire
	RerunFailingTestsCount int               `mapstructure:"rerunFailingTestsCount"`
	RunOrder               string            `mapstructure:"runOrder"`
	Parallel               bool              `mapstructure:"parallel"`
	ThreadCount            int               `mapstructure:"threadCount"`
	SkipAfterFailureCount  int               `mapstructure:"skipAfterFailureCount"`
	UseFile                bool              `mapstructure:"useFile"`
	TempDir                string            `mapstructure:"tempDir"`
	AdditionalProperties   map[string]string `mapstructure:"additionalProperties"`

	// Tag filtering. The watcher-specific variants take precedence over the
	// Surefire-compatible ones.
	WatcherGroups         string `mapstructure:"watcherGroups"`
	Groups                string `mapstructure:"groups"`
	WatcherExcludedGroups string `mapstructure:"watcherExcludedGroups"`
	ExcludedGroups        string `mapstructure:"excludedGroups"`

	// TestTimeoutMinutes bounds a single test run. 0 means no timeout.
	TestTimeoutMinutes int `mapstructure:"testTimeoutMinutes"`

	Verbose bool `mapstructure:"verbose"`
}

var AppConfig Config

// LoadConfig reads configuration from file or environment variables.
func LoadConfig(configPath string) (*Config, error) {
	if configPath != "" {
		viper.SetConfigFile(configPath)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName("watchtest")
		viper.SetConfigType("yaml")
	}

	SetDefaults()

	viper.AutomaticEnv()
	viper.SetEnvPrefix(strings.ToUpper(internal.DefaultAppName))
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found; defaults, env and flags still apply.
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, fmt.Errorf("unable to decode into struct: %w", err)
	}

	return &AppConfig, nil
}

// SetDefaults registers the default values for every knob so that the
// configuration is complete even without a config file.
func SetDefaults() {
	viper.SetDefault("sourceDirectory", internal.DefaultSourceDirectory)
	viper.SetDefault("testSourceDirectory", internal.DefaultTestDirectory)
	viper.SetDefault("debounceMs", internal.DefaultDebounce.Milliseconds())
	viper.SetDefault("watchMode", true)
	viper.SetDefault("recursive", true)
	viper.SetDefault("runOrder", internal.DefaultRunOrder)
	viper.SetDefault("threadCount", 1)
	viper.SetDefault("tempDir", internal.DefaultTempDir)
	viper.SetDefault("useFile", false)
	viper.SetDefault("testTimeoutMinutes", 0)
}

// Validate checks the configuration for values that would make startup
// impossible. These are fatal; the caller should abort.
func (c *Config) Validate() error {
	if _, err := os.Stat(c.SourceDirectory); err != nil {
		return fmt.Errorf("source directory does not exist: %s", c.SourceDirectory)
	}
	if _, err := os.Stat(c.TestSourceDirectory); err != nil {
		return fmt.Errorf("test source directory does not exist: %s", c.TestSourceDirectory)
	}
	if c.DebounceMs < 0 {
		return fmt.Errorf("debounceMs must be >= 0, got %d", c.DebounceMs)
	}
	if c.RerunFailingTestsCount < 0 {
		return fmt.Errorf("rerunFailingTestsCount must be >= 0, got %d", c.RerunFailingTestsCount)
	}
	if c.ThreadCount < 1 {
		return fmt.Errorf("threadCount must be >= 1, got %d", c.ThreadCount)
	}
	if c.TestTimeoutMinutes < 0 {
		return fmt.Errorf("testTimeoutMinutes must be >= 0, got %d", c.TestTimeoutMinutes)
	}
	return nil
}

// Debounce returns the debounce window as a duration.
func (c *Config) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// EffectiveGroups returns the tag expression to include, with the
// watcher-specific property taking precedence over the Surefire one.
func (c *Config) EffectiveGroups() string {
	if strings.TrimSpace(c.WatcherGroups) != "" {
		return c.WatcherGroups
	}
	return c.Groups
}

// EffectiveExcludedGroups returns the tag expression to exclude, with the
// watcher-specific property taking precedence over the Surefire one.
func (c *Config) EffectiveExcludedGroups() string {
	if strings.TrimSpace(c.WatcherExcludedGroups) != "" {
		return c.WatcherExcludedGroups
	}
	return c.ExcludedGroups
}

// WatchPaths returns every directory the watcher should cover: source root,
// test root, then any extra watch directories that exist. Missing extras are
// skipped, not fatal.
func (c *Config) WatchPaths() []string {
	paths := []string{c.SourceDirectory, c.TestSourceDirectory}
	for _, dir := range c.WatchDirectories {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			continue
		}
		paths = append(paths, dir)
	}
	return paths
}
