// Package config holds the typed configuration surface: the recognition
// parameters the pipeline consumes, optional stream and MQTT settings, and
// the parsers for the decorated CLI values (`in=path:scale`,
// `using=family:param`).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Source kinds derived from the `in` parameter.
const (
	SourceWebcam = "webcam"
	SourceRTSP   = "rtsp"
	SourceFile   = "file"
)

// Defaults mirroring the original parameter surface.
const (
	DefaultAlgorithm      = "sift"
	DefaultMinMatches     = 4
	DefaultEvery          = 1
	DefaultRatio          = 0.7
	DefaultReportInterval = time.Second
)

// Config is the complete program configuration.
type Config struct {
	// Find is the path of the reference image to locate (required).
	Find string `yaml:"find"`
	// In is the search source: "webcam", an rtsp:// URL, or an image path.
	// A ":scale" suffix is parsed off into Scale before this is set.
	In string `yaml:"in"`
	// Scale resizes every acquired frame when != 1.0.
	Scale float64 `yaml:"scale"`
	// Algorithm selects the detector/matcher family.
	Algorithm AlgorithmConfig `yaml:"algorithm"`
	// Superpose optionally names an image composited onto the located
	// region.
	Superpose string `yaml:"superpose"`
	// MinMatches is the correspondence threshold; verification requires
	// strictly more.
	MinMatches int `yaml:"min_matches"`
	// Every runs the expensive stages on every Nth streamed frame.
	Every int `yaml:"every"`
	// Ratio is the Lowe ratio-test threshold.
	Ratio float64 `yaml:"ratio"`
	// Grayscale converts the reference and every frame before detection.
	Grayscale bool `yaml:"grayscale"`
	// ReportIntervalS is the statistics window in seconds (default 1).
	ReportIntervalS int `yaml:"report_interval_s"`

	// Stream configures the RTSP source; ignored for webcam/file inputs.
	Stream StreamConfig `yaml:"stream"`
	// MQTT enables interval-report publishing when Broker is set.
	MQTT MQTTConfig `yaml:"mqtt"`
}

// AlgorithmConfig selects the feature algorithm family, with its
// family-specific numeric parameter (ORB feature count).
type AlgorithmConfig struct {
	Family string `yaml:"family"`
	Param  int    `yaml:"param"`
}

// StreamConfig carries RTSP capture settings.
type StreamConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
	FPS    int `yaml:"fps"`
}

// MQTTConfig carries the optional report-publishing settings.
type MQTTConfig struct {
	Broker   string `yaml:"broker"`
	Topic    string `yaml:"topic"`
	ClientID string `yaml:"client_id"`
	// Encoding is the payload wire format: "json" (default) or "msgpack".
	Encoding string `yaml:"encoding"`
	QoS      byte   `yaml:"qos"`
}

// Default returns a Config with every optional field at its default.
func Default() Config {
	return Config{
		In:              SourceWebcam,
		Scale:           1.0,
		Algorithm:       AlgorithmConfig{Family: DefaultAlgorithm},
		MinMatches:      DefaultMinMatches,
		Every:           DefaultEvery,
		Ratio:           DefaultRatio,
		ReportIntervalS: 1,
		Stream:          StreamConfig{Width: 1280, Height: 720, FPS: 30},
		MQTT:            MQTTConfig{Topic: "spotter/reports", Encoding: "json"},
	}
}

// ReportInterval returns the statistics window as a duration.
func (c *Config) ReportInterval() time.Duration {
	if c.ReportIntervalS <= 0 {
		return DefaultReportInterval
	}
	return time.Duration(c.ReportIntervalS) * time.Second
}

// Load reads and parses a YAML configuration file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// SourceKind classifies the In parameter.
func (c *Config) SourceKind() string {
	switch {
	case strings.EqualFold(c.In, SourceWebcam):
		return SourceWebcam
	case strings.HasPrefix(strings.ToLower(c.In), "rtsp://"):
		return SourceRTSP
	default:
		return SourceFile
	}
}

// ParseSource splits an `in` value's optional scale decoration, e.g.
// "webcam:0.5" or "scene.png:1.5". No decoration leaves scale at 1.0.
func ParseSource(raw string) (source string, scale float64, err error) {
	scale = 1.0
	// rtsp://host:554/path keeps its colons; only a trailing numeric
	// segment is a scale decoration.
	idx := strings.LastIndex(raw, ":")
	if idx <= 0 || idx == len(raw)-1 {
		return raw, scale, nil
	}
	// In an rtsp URL with no path, the trailing colon is the port
	// separator, never a decoration (rtsp://host:554).
	const rtspScheme = "rtsp://"
	if strings.HasPrefix(strings.ToLower(raw), rtspScheme) &&
		!strings.Contains(raw[len(rtspScheme):idx], "/") {
		return raw, scale, nil
	}
	suffix := raw[idx+1:]
	parsed, perr := strconv.ParseFloat(suffix, 64)
	if perr != nil {
		return raw, scale, nil
	}
	if parsed <= 0 {
		return "", 0, fmt.Errorf("invalid scale %q in source %q", suffix, raw)
	}
	return raw[:idx], parsed, nil
}

// ParseAlgorithm splits a `using` value's optional numeric parameter, e.g.
// "orb:1000". The family is lower-cased; the parameter defaults to 0 (the
// factory substitutes its family default).
func ParseAlgorithm(raw string) (AlgorithmConfig, error) {
	family, param, found := strings.Cut(raw, ":")
	cfg := AlgorithmConfig{Family: strings.ToLower(strings.TrimSpace(family))}
	if cfg.Family == "" {
		return cfg, fmt.Errorf("empty algorithm family in %q", raw)
	}
	if found {
		n, err := strconv.Atoi(strings.TrimSpace(param))
		if err != nil || n <= 0 {
			return cfg, fmt.Errorf("invalid algorithm parameter %q in %q", param, raw)
		}
		cfg.Param = n
	}
	return cfg, nil
}
