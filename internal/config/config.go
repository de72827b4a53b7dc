// Package config loads diagbench run settings. Values come from, in
// increasing precedence: built-in defaults, an optional YAML run file,
// DIAGBENCH_* environment variables and finally command-line flags applied
// by the caller.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variables read by ApplyEnv.
const (
	EnvDataset    = "DIAGBENCH_DATASET"
	EnvSplit      = "DIAGBENCH_SPLIT"
	EnvPredictor  = "DIAGBENCH_PREDICTOR"
	EnvAlpha      = "DIAGBENCH_ALPHA"
	EnvWorkers    = "DIAGBENCH_WORKERS"
	EnvModel      = "DIAGBENCH_ONNX_MODEL"
	EnvORTLibrary = "DIAGBENCH_ORT_LIBRARY"
	EnvStore      = "DIAGBENCH_STORE"
	EnvDebug      = "DIAGBENCH_DEBUG"
)

// ErrInvalid wraps every configuration error.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the resolved run configuration.
type Config struct {
	Dataset        string        `yaml:"dataset"`
	Split          string        `yaml:"split"`
	Predictor      string        `yaml:"predictor" validate:"required"`
	Alpha          float64       `yaml:"alpha" validate:"gt=0"`
	Workers        int           `yaml:"workers" validate:"gte=1"`
	SkipFailed     bool          `yaml:"skip_failed"`
	Permissive     bool          `yaml:"permissive"`
	Output         string        `yaml:"output"`
	PromTextfile   string        `yaml:"prom_textfile"`
	Store          string        `yaml:"store"`
	Debug          bool          `yaml:"debug"`
	Command        []string      `yaml:"command"`
	CommandTimeout time.Duration `yaml:"command_timeout" validate:"gte=0"`
	ONNX           ONNX          `yaml:"onnx"`
}

// ONNX holds the settings of the onnx predictor.
type ONNX struct {
	Model         string  `yaml:"model"`
	Library       string  `yaml:"library"`
	Sessions      int     `yaml:"sessions" validate:"gte=0"`
	InputSize     int     `yaml:"input_size" validate:"gte=0"`
	NodeThreshold float64 `yaml:"node_threshold" validate:"gte=0,lte=1"`
	EdgeThreshold float64 `yaml:"edge_threshold" validate:"gte=0,lte=1"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Predictor: "oracle",
		Alpha:     0.35,
		Workers:   1,
		ONNX:      ONNX{Sessions: 1},
	}
}

// Load reads the YAML run file at path over the defaults, then applies the
// environment. An empty path skips the file. ${VAR} references in the file
// are expanded with getenv.
func Load(path string, getenv func(string) string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
		}
		if err := decode(data, &cfg, getenv); err != nil {
			return Config{}, fmt.Errorf("%w: %s: %w", ErrInvalid, path, err)
		}
	}
	if err := cfg.ApplyEnv(getenv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func decode(data []byte, cfg *Config, getenv func(string) string) error {
	expanded := os.Expand(string(data), getenv)
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overlays DIAGBENCH_* variables that are set and non-empty.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	str := func(key string, dst *string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	str(EnvDataset, &c.Dataset)
	str(EnvSplit, &c.Split)
	str(EnvPredictor, &c.Predictor)
	str(EnvModel, &c.ONNX.Model)
	str(EnvORTLibrary, &c.ONNX.Library)
	str(EnvStore, &c.Store)

	if v := strings.TrimSpace(getenv(EnvAlpha)); v != "" {
		a, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvAlpha, v, err)
		}
		c.Alpha = a
	}
	if v := strings.TrimSpace(getenv(EnvWorkers)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvWorkers, v, err)
		}
		c.Workers = n
	}
	if v := strings.TrimSpace(getenv(EnvDebug)); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s=%q: %w", ErrInvalid, EnvDebug, v, err)
		}
		c.Debug = b
	}
	return nil
}

var validate = validator.New()

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none
// are named) into the process environment without overriding variables that
// are already set. Missing files are ignored.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("load %s: %w", f, err)
		}
	}
	return nil
}
