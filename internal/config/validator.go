package config

import (
	"errors"
	"fmt"
)

// Validate checks the configuration before any collaborator is opened.
// Violations here are fatal at startup; the pipeline itself never revisits
// configuration.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Find == "" {
		errs = append(errs, errors.New("find: reference image path is required"))
	}
	if cfg.In == "" {
		errs = append(errs, errors.New("in: search source is required"))
	}
	if cfg.Scale <= 0 {
		errs = append(errs, fmt.Errorf("scale: %v must be positive", cfg.Scale))
	}
	if cfg.Algorithm.Family == "" {
		errs = append(errs, errors.New("algorithm: family is required"))
	}
	if cfg.Algorithm.Param < 0 {
		errs = append(errs, fmt.Errorf("algorithm: param %d must not be negative", cfg.Algorithm.Param))
	}
	if cfg.MinMatches < 1 {
		errs = append(errs, fmt.Errorf("min_matches: %d must be at least 1", cfg.MinMatches))
	}
	if cfg.Every < 1 {
		errs = append(errs, fmt.Errorf("every: %d must be at least 1", cfg.Every))
	}
	if cfg.Ratio <= 0 || cfg.Ratio >= 1 {
		errs = append(errs, fmt.Errorf("ratio: %v must be in (0, 1)", cfg.Ratio))
	}

	if cfg.SourceKind() == SourceRTSP {
		if cfg.Stream.Width <= 0 || cfg.Stream.Height <= 0 {
			errs = append(errs, fmt.Errorf("stream: invalid resolution %dx%d", cfg.Stream.Width, cfg.Stream.Height))
		}
		if cfg.Stream.FPS <= 0 {
			errs = append(errs, fmt.Errorf("stream: invalid fps %d", cfg.Stream.FPS))
		}
	}

	if cfg.MQTT.Broker != "" {
		if cfg.MQTT.Topic == "" {
			errs = append(errs, errors.New("mqtt: topic is required when a broker is set"))
		}
		switch cfg.MQTT.Encoding {
		case "", "json", "msgpack":
		default:
			errs = append(errs, fmt.Errorf("mqtt: unknown encoding %q (want json or msgpack)", cfg.MQTT.Encoding))
		}
		if cfg.MQTT.QoS > 2 {
			errs = append(errs, fmt.Errorf("mqtt: invalid qos %d", cfg.MQTT.QoS))
		}
	}

	return errors.Join(errs...)
}
