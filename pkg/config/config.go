// Package config provides YAML configuration loading for the command line
// tool. Values of the form ${VAR_NAME} are substituted from the environment
// before parsing.
package config

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ajitpratap0/bintable/pkg/errors"
)

// Config holds the command line tool settings
type Config struct {
	// Log controls the logger backend
	Log LogConfig `yaml:"log"`
	// Convert holds conversion defaults applied when flags are absent
	Convert ConvertConfig `yaml:"convert"`
}

// LogConfig selects logger level and encoding
type LogConfig struct {
	Level    string `yaml:"level"`
	Encoding string `yaml:"encoding"`
}

// ConvertConfig holds conversion defaults
type ConvertConfig struct {
	// InputType forces the input format when set
	InputType string `yaml:"input_type"`
	// OutputType forces the output format when set
	OutputType string `yaml:"output_type"`
}

// Default returns the built-in settings used when no config file is given
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "error", Encoding: "console"},
	}
}

// Load reads a YAML config file into cfg
func Load(filePath string, cfg interface{}) error {
	data, err := os.ReadFile(filePath) //nolint:gosec // G304: File path is controlled by caller and validated
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "reading config file")
	}

	content := substituteEnvVars(string(data))

	if err := yaml.Unmarshal([]byte(content), cfg); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "parsing config YAML")
	}
	return nil
}

// Save writes cfg to a YAML file
func Save(filePath string, cfg interface{}) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "marshaling config YAML")
	}
	if err := os.WriteFile(filePath, data, 0644); err != nil { //nolint:gosec
		return errors.Wrap(err, errors.ErrorTypeFile, "writing config file")
	}
	return nil
}

// substituteEnvVars replaces ${VAR_NAME} with environment variable values
func substituteEnvVars(content string) string {
	for {
		start := strings.Index(content, "${")
		if start == -1 {
			break
		}
		end := strings.Index(content[start:], "}")
		if end == -1 {
			break
		}
		end += start

		varName := content[start+2 : end]
		envValue := os.Getenv(varName)
		content = content[:start] + envValue + content[end+1:]
	}
	return content
}
