package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pelletier/go-toml/v2"
)

// EnvPrefix prefixes every environment variable
const EnvPrefix = "FGPIPE"

// ErrInvalid is wrapped by every validation failure
var ErrInvalid = errors.New("invalid configuration")

// Config holds all application configuration.
type Config struct {
	Pipeline PipelineConfig `toml:"pipeline" yaml:"pipeline"`
	Worker   WorkerConfig   `toml:"worker" yaml:"worker"`
	Control  ControlConfig  `toml:"control" yaml:"control"`
	Logging  LogConfig      `toml:"logging" yaml:"logging"`
	Metrics  MetricsConfig  `toml:"metrics" yaml:"metrics"`
	Output   OutputConfig   `toml:"output" yaml:"output"`
}

// PipelineConfig tunes the in-flight ring and the event loop.
type PipelineConfig struct {
	BufferSize   int      `envconfig:"BUFFER_SIZE" toml:"buffer_size" yaml:"buffer_size"`
	MaxSoftRetry int      `envconfig:"MAX_SOFT_RETRY" toml:"max_soft_retry" yaml:"max_soft_retry"`
	RetryBackoff Duration `envconfig:"RETRY_BACKOFF" toml:"retry_backoff" yaml:"retry_backoff"`
	PollTimeout  Duration `envconfig:"POLL_TIMEOUT" toml:"poll_timeout" yaml:"poll_timeout"`
	DrainTimeout Duration `envconfig:"DRAIN_TIMEOUT" toml:"drain_timeout" yaml:"drain_timeout"`
}

// WorkerConfig holds worker process settings.
type WorkerConfig struct {
	Binary         string   `envconfig:"WORKER_BINARY" toml:"binary" yaml:"binary"`
	FifoDir        string   `envconfig:"FIFO_DIR" toml:"fifo_dir" yaml:"fifo_dir"`
	TerminateGrace Duration `envconfig:"TERMINATE_GRACE" toml:"terminate_grace" yaml:"terminate_grace"`
	SoftAttempts   int      `envconfig:"WORKER_SOFT_ATTEMPTS" toml:"soft_attempts" yaml:"soft_attempts"`
}

// ControlConfig holds interrupt handling settings.
type ControlConfig struct {
	ConfirmShutdown bool     `envconfig:"CONFIRM_SHUTDOWN" toml:"confirm_shutdown" yaml:"confirm_shutdown"`
	ConfirmTimeout  Duration `envconfig:"CONFIRM_TIMEOUT" toml:"confirm_timeout" yaml:"confirm_timeout"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" toml:"level" yaml:"level"`
	Development bool   `envconfig:"LOG_DEV" toml:"development" yaml:"development"`
}

// MetricsConfig holds the Prometheus endpoint address; empty disables it.
type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR" toml:"addr" yaml:"addr"`
}

// OutputConfig selects how results are printed.
type OutputConfig struct {
	Format string `envconfig:"OUTPUT_FORMAT" toml:"format" yaml:"format"`
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			BufferSize:   10,
			MaxSoftRetry: 3,
			PollTimeout:  Duration(time.Second),
		},
		Worker: WorkerConfig{
			Binary:         "calculon",
			FifoDir:        os.TempDir(),
			TerminateGrace: Duration(500 * time.Millisecond),
			SoftAttempts:   1,
		},
		Control: ControlConfig{
			ConfirmShutdown: true,
			ConfirmTimeout:  Duration(5 * time.Second),
		},
		Logging: LogConfig{
			Level: "info",
		},
		Output: OutputConfig{
			Format: "text",
		},
	}
}

// Load builds configuration from defaults, an optional TOML or YAML file,
// and FGPIPE_* environment variables, in increasing precedence.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := cfg.LoadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.LoadEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile merges a TOML (.toml) or YAML (.yaml, .yml) file into c.
// Keys missing from the file keep their current values.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, c)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		return fmt.Errorf("%w: unsupported config file extension %q", ErrInvalid, ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// LoadEnv overrides c with FGPIPE_* environment variables that are set.
func (c *Config) LoadEnv() error {
	sections := []interface{}{
		&c.Pipeline, &c.Worker, &c.Control, &c.Logging, &c.Metrics, &c.Output,
	}
	for _, section := range sections {
		if err := envconfig.Process(EnvPrefix, section); err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Pipeline.BufferSize < 2:
		return fmt.Errorf("%w: buffer size %d is below 2", ErrInvalid, c.Pipeline.BufferSize)
	case c.Pipeline.MaxSoftRetry < 0:
		return fmt.Errorf("%w: max soft retry %d is negative", ErrInvalid, c.Pipeline.MaxSoftRetry)
	case c.Pipeline.RetryBackoff < 0:
		return fmt.Errorf("%w: retry backoff is negative", ErrInvalid)
	case c.Pipeline.PollTimeout <= 0:
		return fmt.Errorf("%w: poll timeout must be positive", ErrInvalid)
	case c.Pipeline.DrainTimeout < 0:
		return fmt.Errorf("%w: drain timeout is negative", ErrInvalid)
	case c.Control.ConfirmTimeout <= 0:
		return fmt.Errorf("%w: confirm timeout must be positive", ErrInvalid)
	case c.Worker.TerminateGrace < 0:
		return fmt.Errorf("%w: terminate grace is negative", ErrInvalid)
	case c.Worker.SoftAttempts < 0:
		return fmt.Errorf("%w: worker soft attempts %d is negative", ErrInvalid, c.Worker.SoftAttempts)
	case c.Worker.Binary == "":
		return fmt.Errorf("%w: worker binary is empty", ErrInvalid)
	}

	switch strings.ToLower(c.Output.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("%w: output format %q", ErrInvalid, c.Output.Format)
	}
	return nil
}

// Duration is a time.Duration written as "500ms" or "2s" in files and
// environment variables.
type Duration time.Duration

// Std returns the standard library duration
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// String formats the duration
func (d Duration) String() string {
	return time.Duration(d).String()
}

// UnmarshalText parses a duration string
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(parsed)
	return nil
}

// MarshalText formats the duration string
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
