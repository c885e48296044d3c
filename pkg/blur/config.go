package blur

import (
	"encoding/json"
	"fmt"
	"math"

	"go.uber.org/zap"
)

// Attribute keys accepted in a service configuration.
const (
	AttrCameraName      = "camera_name"
	AttrBlurryThreshold = "blurry_threshold"
)

// Config is the validated service configuration. It is replaced wholesale
// on every reconfiguration.
type Config struct {
	CameraName string `json:"camera_name" yaml:"camera_name"`

	// BlurryThreshold is nil when the attribute was not supplied.
	BlurryThreshold *float64 `json:"blurry_threshold,omitempty" yaml:"blurry_threshold,omitempty"`
}

// ParseConfig builds a Config from a loosely typed attribute map and
// validates it. Unknown attributes are ignored.
func ParseConfig(attrs map[string]any) (Config, error) {
	var cfg Config

	if v, ok := attrs[AttrCameraName]; ok && v != nil {
		name, ok := v.(string)
		if !ok {
			return Config{}, &ConfigError{
				Field: AttrCameraName,
				Err:   fmt.Errorf("expected a string, got %T", v),
			}
		}
		cfg.CameraName = name
	}

	if v, ok := attrs[AttrBlurryThreshold]; ok && v != nil {
		t, ok := toFloat(v)
		if !ok {
			return Config{}, &ConfigError{Field: AttrBlurryThreshold, Err: ErrInvalidThreshold}
		}
		cfg.BlurryThreshold = &t
	}

	if _, err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns the names of the
// resources it implicitly depends on.
func (c Config) Validate() ([]string, error) {
	if c.CameraName == "" {
		return nil, &ConfigError{Field: AttrCameraName, Err: ErrCameraNameRequired}
	}
	if c.BlurryThreshold != nil {
		t := *c.BlurryThreshold
		if t < 0 || math.IsNaN(t) || math.IsInf(t, 0) {
			return nil, &ConfigError{Field: AttrBlurryThreshold, Err: ErrInvalidThreshold}
		}
	}
	return []string{c.CameraName}, nil
}

// Attributes returns the configuration as an attribute map.
func (c Config) Attributes() map[string]any {
	attrs := map[string]any{AttrCameraName: c.CameraName}
	if c.BlurryThreshold != nil {
		attrs[AttrBlurryThreshold] = *c.BlurryThreshold
	}
	return attrs
}

// Threshold returns a pointer to t, for building a Config literal.
func Threshold(t float64) *float64 {
	return &t
}

func toFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err == nil {
			return f, true
		}
	}
	return 0, false
}

// Observer receives every scored frame and every failure.
type Observer interface {
	ObserveResult(model string, r *Result)
	ObserveError(stage string, err error)
}

// Option is a functional option for configuring a Classifier.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	scorer   Scorer
	observer Observer
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// withScorer replaces the sharpness scorer.
func withScorer(s Scorer) Option {
	return func(o *options) { o.scorer = s }
}

// WithObserver sets an observer for results and failures.
func WithObserver(obs Observer) Option {
	return func(o *options) { o.observer = obs }
}
