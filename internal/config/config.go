package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	lconfig "github.com/lixenwraith/config"

	"mcaplog/internal/core"
	"mcaplog/internal/service"
)

// Config is the file/env/CLI-facing shape of the logger settings, used
// by the demo binary and by anyone embedding the library with external
// configuration.
type Config struct {
	// Path of the output container; empty disables the file sink.
	Path     string `toml:"path"`
	Level    string `toml:"level"`
	Compress bool   `toml:"compress"`

	Viewer ViewerConfig `toml:"viewer"`
	Worker WorkerConfig `toml:"worker"`
}

type ViewerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
	Name string `toml:"name"`
}

type WorkerConfig struct {
	QueueCapacity  int `toml:"queue_capacity"`
	PollIntervalMs int `toml:"poll_interval_ms"`
}

func defaults() *Config {
	return &Config{
		Level:    "info",
		Compress: true,
		Viewer: ViewerConfig{
			Host: core.DefaultViewerHost,
			Port: core.DefaultViewerPort,
			Name: core.DefaultViewerName,
		},
		Worker: WorkerConfig{
			QueueCapacity:  core.DefaultQueueCapacity,
			PollIntervalMs: int(core.DefaultPollInterval / time.Millisecond),
		},
	}
}

// Load resolves configuration with CLI > env > file > defaults
// precedence.
func Load(cliArgs []string) (*Config, error) {
	cfg, err := lconfig.NewBuilder().
		WithDefaults(defaults()).
		WithEnvPrefix("MCAPLOG_").
		WithFile(ConfigPath()).
		WithArgs(cliArgs).
		WithEnvTransform(envTransform).
		WithSources(
			lconfig.SourceCLI,
			lconfig.SourceEnv,
			lconfig.SourceFile,
			lconfig.SourceDefault,
		).
		Build()
	if err != nil {
		if !strings.Contains(err.Error(), "not found") {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	final := &Config{}
	if err := cfg.Scan(final); err != nil {
		return nil, fmt.Errorf("failed to scan config: %w", err)
	}

	return final, final.validate()
}

func (c *Config) validate() error {
	if _, err := core.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid level: %w", err)
	}
	if c.Viewer.Port < 0 || c.Viewer.Port > 65535 {
		return fmt.Errorf("invalid viewer port: %d", c.Viewer.Port)
	}
	if c.Worker.QueueCapacity < 0 {
		return fmt.Errorf("invalid queue capacity: %d", c.Worker.QueueCapacity)
	}
	if c.Worker.PollIntervalMs < 0 {
		return fmt.Errorf("invalid poll interval: %dms", c.Worker.PollIntervalMs)
	}
	return nil
}

// ServiceOptions converts the external configuration into the options
// the service layer takes.
func (c *Config) ServiceOptions() service.Options {
	level, _ := core.ParseLevel(c.Level)
	return service.Options{
		Path:          c.Path,
		Level:         level,
		Compress:      c.Compress,
		ViewerHost:    c.Viewer.Host,
		ViewerPort:    c.Viewer.Port,
		ViewerName:    c.Viewer.Name,
		QueueCapacity: c.Worker.QueueCapacity,
		PollInterval:  time.Duration(c.Worker.PollIntervalMs) * time.Millisecond,
	}
}

func envTransform(path string) string {
	env := strings.ReplaceAll(path, ".", "_")
	env = strings.ToUpper(env)
	return "MCAPLOG_" + env
}

// ConfigPath resolves the configuration file location from the
// environment, falling back to the user config directory.
func ConfigPath() string {
	if configFile := os.Getenv("MCAPLOG_CONFIG_FILE"); configFile != "" {
		if filepath.IsAbs(configFile) {
			return configFile
		}
		if configDir := os.Getenv("MCAPLOG_CONFIG_DIR"); configDir != "" {
			return filepath.Join(configDir, configFile)
		}
		return configFile
	}

	if configDir := os.Getenv("MCAPLOG_CONFIG_DIR"); configDir != "" {
		return filepath.Join(configDir, "mcaplog.toml")
	}

	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, ".config", "mcaplog.toml")
	}

	return "mcaplog.toml"
}
