// Package config loads the blurry service configuration from a YAML file
// with environment overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"gopkg.in/yaml.v3"
)

// DefaultPath is read when BLURRY_CONFIG is unset and the file exists.
const DefaultPath = "blurry.yaml"

// Archive types.
const (
	ArchiveNone = ""
	ArchiveDir  = "dir"
	ArchiveGCS  = "gcs"
)

// Config is the full service configuration.
type Config struct {
	Service ServiceConfig         `yaml:"service"`
	Server  ServerConfig          `yaml:"server"`
	Log     LogConfig             `yaml:"log"`
	Cameras []camera.SourceConfig `yaml:"cameras"`
	Monitor MonitorConfig         `yaml:"monitor"`
	Archive ArchiveConfig         `yaml:"archive"`
}

// ServiceConfig configures the vision service itself.
type ServiceConfig struct {
	Name string `yaml:"name"`

	// Model is a variant short name ("classifier", "detector") or model triplet.
	Model string `yaml:"model"`

	// Attributes holds camera_name and blurry_threshold.
	Attributes map[string]any `yaml:"attributes"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	AuthSecret   string        `yaml:"auth_secret"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	BodyLimit    int           `yaml:"body_limit"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MonitorConfig configures the background monitor.
type MonitorConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
}

// ArchiveConfig configures where blurry frames are kept.
type ArchiveConfig struct {
	Type            string `yaml:"type"`
	Dir             string `yaml:"dir"`
	Bucket          string `yaml:"bucket"`
	Prefix          string `yaml:"prefix"`
	CredentialsFile string `yaml:"credentials_file"`
}

// Default returns the configuration used before the file is applied.
func Default() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:       "blurry",
			Model:      blur.ClassifierVariant.Name,
			Attributes: map[string]any{},
		},
		Server: ServerConfig{
			Addr:         ":8080",
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			BodyLimit:    16 << 20,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Monitor: MonitorConfig{
			Interval: 5 * time.Second,
		},
	}
}

// Load reads path (if non-empty), applies environment overrides and
// validates the result.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromEnv loads the file named by BLURRY_CONFIG, falling back to
// DefaultPath when it exists.
func LoadFromEnv() (*Config, error) {
	path := os.Getenv("BLURRY_CONFIG")
	if path == "" {
		if _, err := os.Stat(DefaultPath); err == nil {
			path = DefaultPath
		}
	}
	return Load(path)
}

func (c *Config) applyEnv() {
	if v := os.Getenv("BLURRY_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := os.Getenv("BLURRY_AUTH_SECRET"); v != "" {
		c.Server.AuthSecret = v
	}
	if v := os.Getenv("BLURRY_LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("BLURRY_LOG_FORMAT"); v != "" {
		c.Log.Format = v
	}
	if c.Service.Attributes == nil {
		c.Service.Attributes = map[string]any{}
	}
	if v := os.Getenv("BLURRY_CAMERA"); v != "" {
		c.Service.Attributes[blur.AttrCameraName] = v
	}

	// With no cameras configured, ROBOT_IP brings up the robot's stream.
	robotIP := RobotIP("")
	if robotIP == "" {
		return
	}
	if len(c.Cameras) == 0 {
		c.Cameras = append(c.Cameras, camera.SourceConfig{
			Name:    "reachy",
			Type:    camera.TypeWebRTC,
			RobotIP: robotIP,
		})
		if _, ok := c.Service.Attributes[blur.AttrCameraName]; !ok {
			c.Service.Attributes[blur.AttrCameraName] = "reachy"
		}
	}
	for i := range c.Cameras {
		if c.Cameras[i].Type == camera.TypeWebRTC && c.Cameras[i].RobotIP == "" {
			c.Cameras[i].RobotIP = robotIP
		}
	}
}

// Variant returns the configured service variant.
func (c *Config) Variant() (blur.Variant, error) {
	return blur.LookupVariant(c.Service.Model)
}

// BlurConfig parses the service attributes.
func (c *Config) BlurConfig() (blur.Config, error) {
	return blur.ParseConfig(c.Service.Attributes)
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	var problems []string

	if c.Service.Name == "" {
		problems = append(problems, "service.name is required")
	}
	if _, err := c.Variant(); err != nil {
		problems = append(problems, err.Error())
	}

	seen := make(map[string]bool, len(c.Cameras))
	for _, cam := range c.Cameras {
		problems = append(problems, cam.Validate()...)
		if seen[cam.Name] {
			problems = append(problems, fmt.Sprintf("duplicate camera %q", cam.Name))
		}
		seen[cam.Name] = true
	}

	bc, err := c.BlurConfig()
	if err != nil {
		problems = append(problems, err.Error())
	} else if !seen[bc.CameraName] {
		problems = append(problems, fmt.Sprintf("service camera %q is not in cameras", bc.CameraName))
	}

	if c.Server.Addr == "" {
		problems = append(problems, "server.addr is required")
	}
	if c.Server.BodyLimit < 0 {
		problems = append(problems, "server.body_limit must be >= 0")
	}

	if c.Monitor.Enabled && c.Monitor.Interval <= 0 {
		problems = append(problems, "monitor.interval must be > 0")
	}

	switch c.Archive.Type {
	case ArchiveNone:
	case ArchiveDir:
		if c.Archive.Dir == "" {
			problems = append(problems, "archive.dir is required for dir archives")
		}
	case ArchiveGCS:
		if c.Archive.Bucket == "" {
			problems = append(problems, "archive.bucket is required for gcs archives")
		}
	default:
		problems = append(problems, fmt.Sprintf("unknown archive type %q", c.Archive.Type))
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

// ErrInvalid is matched by every *ValidationError.
var ErrInvalid = errors.New("config: invalid")

// ValidationError lists every problem found by Validate.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: validation failed: %v", e.Problems)
}

// Is reports whether target is ErrInvalid.
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalid
}
