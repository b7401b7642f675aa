// Package config provides configuration helpers for the huemask command.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Defaults used when neither a flag, env var nor config file sets a value.
const (
	DefaultDevice     = 0
	DefaultBackend    = "opencv"
	DefaultOutputPath = "video_with_mask.avi"
	DefaultCodec      = "XVID"
	DefaultLogLevel   = "info"
)

// Device returns the camera index from HUEMASK_DEVICE.
// Falls back to def if unset or not a number.
func Device(def int) int {
	if v := os.Getenv("HUEMASK_DEVICE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

// OutputPath returns the output file from HUEMASK_OUTPUT or def.
func OutputPath(def string) string {
	return envOr("HUEMASK_OUTPUT", def)
}

// Backend returns the capture backend from HUEMASK_BACKEND or def.
func Backend(def string) string {
	return envOr("HUEMASK_BACKEND", def)
}

// WebPort returns the preview server port from HUEMASK_WEB_PORT or def.
// An empty port disables the preview server.
func WebPort(def string) string {
	return envOr("HUEMASK_WEB_PORT", def)
}

// LogLevel returns the log level from HUEMASK_LOG_LEVEL or def.
func LogLevel(def string) string {
	return envOr("HUEMASK_LOG_LEVEL", def)
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// Triple is an HSV bound as written in the config file: [h, s, v].
type Triple [3]int

// File is the on-disk YAML configuration. Zero values mean "not set".
type File struct {
	Backend     string  `yaml:"backend"`
	Device      *int    `yaml:"device"`
	DevicePath  string  `yaml:"device_path"`
	Output      string  `yaml:"output"`
	Codec       string  `yaml:"codec"`
	FallbackFPS float64 `yaml:"fallback_fps"`
	Headless    bool    `yaml:"headless"`
	WebPort     string  `yaml:"web_port"`
	LogLevel    string  `yaml:"log_level"`

	Range *Bounds `yaml:"range"`
}

// Bounds is the HSV range section of the config file.
type Bounds struct {
	Lower Triple `yaml:"lower"`
	Upper Triple `yaml:"upper"`
}

// LoadFile reads a YAML config file. A missing path is an error;
// callers that want the file to be optional should not call LoadFile.
func LoadFile(path string) (File, error) {
	var f File
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parse config %s: %w", path, err)
	}
	if f.Range != nil {
		for _, t := range []Triple{f.Range.Lower, f.Range.Upper} {
			for _, c := range t {
				if c < 0 || c > 255 {
					return f, fmt.Errorf("parse config %s: range component %d out of 0..255", path, c)
				}
			}
		}
	}
	return f, nil
}
