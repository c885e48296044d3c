package blur

import (
	"errors"
	"fmt"
)

// Sentinel errors for common conditions.
var (
	// ErrCameraNameRequired is returned when the configuration names no camera.
	ErrCameraNameRequired = errors.New("blur: a camera name is required for the blurry classifier vision service")

	// ErrInvalidThreshold is returned for a non-numeric, negative or non-finite threshold.
	ErrInvalidThreshold = errors.New("blur: blurry_threshold must be a non-negative number")

	// ErrNotConfigured is returned by camera-bound calls before the first Reconfigure.
	ErrNotConfigured = errors.New("blur: service is not configured")

	// ErrNotImplemented is returned by detection and point cloud entry points.
	ErrNotImplemented = errors.New("blur: not implemented")

	// ErrDecode is returned when a frame cannot be decoded into an image.
	ErrDecode = errors.New("blur: cannot decode image")

	// ErrUnsupportedMimeType is returned for frames that are neither JPEG nor PNG.
	ErrUnsupportedMimeType = errors.New("blur: unsupported mime type")

	// ErrCameraFailed wraps errors returned by the camera dependency.
	ErrCameraFailed = errors.New("blur: camera failed")

	// ErrCameraMismatch is matched by every *MismatchError.
	ErrCameraMismatch = errors.New("blur: camera name mismatch")
)

// ConfigError reports an invalid configuration attribute.
type ConfigError struct {
	Field string
	Err   error
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("blur: invalid config field %s: %v", e.Field, e.Err)
}

// Unwrap returns the underlying error.
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MismatchError is returned when a caller names a camera other than the
// configured one.
type MismatchError struct {
	Requested  string
	Configured string
}

// Error implements the error interface.
func (e *MismatchError) Error() string {
	return fmt.Sprintf("Camera name %s does not match the camera name %s in the config.", e.Requested, e.Configured)
}

// Is reports whether target is ErrCameraMismatch.
func (e *MismatchError) Is(target error) bool {
	return target == ErrCameraMismatch
}
