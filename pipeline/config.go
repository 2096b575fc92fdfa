// CLAUDE:SUMMARY Configuration struct, defaults and YAML loader for the extraction pipeline.
package pipeline

import (
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/hazyhaar/extpipe/runlog"
)

// Config configures a Pipeline.
type Config struct {
	// MaxInputSize is the maximum request input size in bytes
	// (default: 100 MB). Oversized input is rejected before any
	// plugin runs.
	MaxInputSize int64 `yaml:"max_input_size"`

	// Logger for debug/error messages.
	Logger *slog.Logger `yaml:"-"`

	// RunLog, when set, records one audit row per run.
	RunLog *runlog.Store `yaml:"-"`
}

func (c *Config) defaults() {
	if c.MaxInputSize <= 0 {
		c.MaxInputSize = 100 * 1024 * 1024
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// LoadConfigFile reads a YAML config file.
func LoadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
