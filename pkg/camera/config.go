package camera

import (
	"fmt"
	"time"
)

// Source types understood by NewFromConfig and the service binary.
const (
	TypeHTTP   = "http"
	TypeFile   = "file"
	TypeWebRTC = "webrtc"
)

// DefaultSnapshotTimeout bounds one HTTP snapshot request.
const DefaultSnapshotTimeout = 5 * time.Second

// SourceConfig describes one named camera source.
type SourceConfig struct {
	Name string `yaml:"name" json:"name"`

	// Type is one of "http", "file" or "webrtc".
	Type string `yaml:"type" json:"type"`

	// URL is the snapshot endpoint for http sources.
	URL string `yaml:"url" json:"url,omitempty"`

	// Path is a file or directory of images for file sources.
	Path string `yaml:"path" json:"path,omitempty"`

	// RobotIP is the robot address for webrtc sources.
	RobotIP string `yaml:"robot_ip" json:"robot_ip,omitempty"`

	// SignallingURL overrides the signalling websocket derived from RobotIP.
	SignallingURL string `yaml:"signalling_url" json:"signalling_url,omitempty"`

	// Producer is the signalling producer to subscribe to. Empty means the
	// robot's default.
	Producer string `yaml:"producer" json:"producer,omitempty"`

	// FFmpeg is the ffmpeg binary webrtc sources decode with. Empty means
	// "ffmpeg" on PATH.
	FFmpeg string `yaml:"ffmpeg" json:"ffmpeg,omitempty"`

	// Timeout bounds a single frame fetch.
	Timeout time.Duration `yaml:"timeout" json:"timeout,omitempty"`
}

// Validate checks the configuration and returns a list of problems.
func (c SourceConfig) Validate() []string {
	var errors []string

	if c.Name == "" {
		errors = append(errors, "name is required")
	}

	switch c.Type {
	case TypeHTTP:
		if c.URL == "" {
			errors = append(errors, fmt.Sprintf("%s: url is required for http sources", c.Name))
		}
	case TypeFile:
		if c.Path == "" {
			errors = append(errors, fmt.Sprintf("%s: path is required for file sources", c.Name))
		}
	case TypeWebRTC:
		if c.RobotIP == "" && c.SignallingURL == "" {
			errors = append(errors, fmt.Sprintf("%s: robot_ip or signalling_url is required for webrtc sources", c.Name))
		}
	default:
		errors = append(errors, fmt.Sprintf("%s: unknown type %q", c.Name, c.Type))
	}

	if c.Timeout < 0 {
		errors = append(errors, fmt.Sprintf("%s: timeout must be >= 0", c.Name))
	}

	return errors
}

// NewFromConfig builds an http or file source. WebRTC sources live in
// pkg/video and are built by the caller.
func NewFromConfig(cfg SourceConfig) (Camera, error) {
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: validation failed: %v", errs)
	}

	switch cfg.Type {
	case TypeHTTP:
		return NewHTTPSource(cfg.URL, cfg.Timeout), nil
	case TypeFile:
		return NewFileSource(cfg.Path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownSourceType, cfg.Type)
	}
}
