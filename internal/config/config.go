package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"gormi/adapters/tabular"
	"gormi/domain/percentile"
	"gormi/internal/aggregate"
	"gormi/internal/analysis"
	"gormi/internal/compare"
	"gormi/internal/errors"
	"gormi/internal/estimator"
)

// Config represents the complete application configuration
type Config struct {
	Analysis analysis.Config `yaml:"analysis"`
	Columns  tabular.Columns `yaml:"columns"`
	Server   ServerConfig    `yaml:"server"`
	Data     DataConfig      `yaml:"data"`
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string `yaml:"port"`
}

// DataConfig points at the default trial file
type DataConfig struct {
	InputFile string `yaml:"input_file"`
	Sheet     string `yaml:"sheet"`
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Analysis: analysis.DefaultConfig(),
		Columns:  tabular.DefaultColumns(),
		Server:   ServerConfig{Port: "8080"},
	}
}

// Load builds the configuration from defaults, the optional YAML file at
// path, and environment overrides, in that order.
func Load(path string) (*Config, error) {
	config := Default()

	if path != "" {
		if err := loadFile(config, path); err != nil {
			return nil, err
		}
	}

	if err := applyEnv(config); err != nil {
		return nil, errors.WithCode(errors.CodeConfigInvalid, err)
	}

	if err := validateConfig(config); err != nil {
		return nil, errors.Wrap(err, "configuration validation failed")
	}
	return config, nil
}

func loadFile(config *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "read config file %s", path))
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(config); err != nil && err != io.EOF {
		return errors.WithCode(errors.CodeConfigInvalid, errors.Wrapf(err, "parse config file %s", path))
	}
	return nil
}

func applyEnv(config *Config) error {
	a := &config.Analysis

	if value := os.Getenv("GORMI_GRID"); value != "" {
		grid, err := ParseGrid(value)
		if err != nil {
			return errors.Wrap(err, "GORMI_GRID")
		}
		a.Estimator.Grid = grid
	}
	a.Estimator.Method = estimator.Method(getEnvOrDefault("GORMI_METHOD", string(a.Estimator.Method)))
	a.Estimator.Boundary = estimator.Boundary(getEnvOrDefault("GORMI_BOUNDARY", string(a.Estimator.Boundary)))
	a.Aggregate.Mode = aggregate.Mode(getEnvOrDefault("GORMI_AGGREGATE_MODE", string(a.Aggregate.Mode)))
	if value := os.Getenv("GORMI_TESTS"); value != "" {
		a.Compare.Tests = compare.ParseTests(value)
	}
	a.Compare.Alternative = compare.Alternative(getEnvOrDefault("GORMI_ALTERNATIVE", string(a.Compare.Alternative)))

	concurrency, err := getEnvInt("GORMI_CONCURRENCY", a.Concurrency)
	if err != nil {
		return err
	}
	a.Concurrency = concurrency

	config.Server.Port = getEnvOrDefault("PORT", config.Server.Port)
	config.Data.InputFile = getEnvOrDefault("GORMI_INPUT_FILE", config.Data.InputFile)
	return nil
}

// ParseGrid reads a grid from a comma separated list of levels
// ("0.1,0.5,0.9") or from "even:N" for N midpoint levels.
func ParseGrid(s string) (percentile.Grid, error) {
	s = strings.TrimSpace(s)
	if n, ok := strings.CutPrefix(s, "even:"); ok {
		count, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("grid %q: %v", s, err))
		}
		return percentile.EvenGrid(count)
	}
	var levels []float64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return nil, errors.InvalidInput(fmt.Sprintf("grid level %q is not a number", part))
		}
		levels = append(levels, v)
	}
	return percentile.NewGrid(levels)
}

func validateConfig(config *Config) error {
	if err := config.Analysis.Validate(); err != nil {
		return err
	}
	if config.Server.Port == "" {
		return errors.ConfigInvalid("server port is required")
	}
	if _, err := strconv.Atoi(config.Server.Port); err != nil {
		return errors.ConfigInvalid(fmt.Sprintf("server port %q is not a number", config.Server.Port))
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	intValue, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.ConfigInvalid(fmt.Sprintf("%s=%q is not an integer", key, value))
	}
	return intValue, nil
}
