package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Format is a document encoding.
type Format string

// Supported formats.
const (
	YAML Format = "yaml"
	JSON Format = "json"
)

// ErrUnsupportedFormat is returned for unknown formats and file extensions.
var ErrUnsupportedFormat = errors.New("unsupported config format")

// FormatOf picks the format from a file extension: .yaml, .yml or .json.
func FormatOf(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return YAML, nil
	case ".json":
		return JSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
}

// FromFile loads a document, picking the format by extension. ${VAR}
// references are expanded from the environment before decoding.
func FromFile(path string) (Config, error) {
	format, err := FormatOf(path)
	if err != nil {
		return Config{}, err
	}
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	return FromReader(f, format, os.Getenv)
}

// FromReader decodes a document from r. When lookup is non-nil, ${VAR} and
// $VAR references are replaced with lookup(VAR) first.
func FromReader(r io.Reader, format Format, lookup func(string) string) (Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if lookup != nil {
		data = []byte(os.Expand(string(data), lookup))
	}
	return decode(data, format)
}

// FromYAML parses a YAML document.
func FromYAML(data []byte) (Config, error) {
	return decode(data, YAML)
}

// FromJSON parses a JSON document.
func FromJSON(data []byte) (Config, error) {
	return decode(data, JSON)
}

func decode(data []byte, format Format) (Config, error) {
	var m map[string]any
	var err error
	switch format {
	case YAML:
		err = yaml.Unmarshal(data, &m)
	case JSON:
		err = json.Unmarshal(data, &m)
	default:
		return Config{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse %s: %w", format, err)
	}
	return New(m), nil
}
