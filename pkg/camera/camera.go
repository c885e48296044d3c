// Package camera provides the image-source capability the blurry service
// consumes, a name-keyed registry for resolving camera dependencies and a
// few concrete sources (HTTP snapshot, files on disk, WebRTC via pkg/video).
package camera

import (
	"context"
	"errors"
)

// Supported MIME types.
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
)

var (
	// ErrCameraNotFound is returned when no camera is registered under a name.
	ErrCameraNotFound = errors.New("camera: not found")

	// ErrNoFrame is returned when a source has nothing to serve yet.
	ErrNoFrame = errors.New("camera: no frame available")

	// ErrUnknownSourceType is returned for an unrecognised source type.
	ErrUnknownSourceType = errors.New("camera: unknown source type")
)

// Image is one encoded frame plus its MIME type.
type Image struct {
	Data     []byte
	MimeType string
}

// Camera returns a single frame on request, encoded as mimeType where the
// source supports it.
type Camera interface {
	GetImage(ctx context.Context, mimeType string) (*Image, error)
}
