// Package archive stores frames the service classified as blurry, either
// in a local directory or a Google Cloud Storage bucket.
package archive

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

// ErrEmptyImage is returned when asked to store nothing.
var ErrEmptyImage = errors.New("archive: empty image")

// Sink stores one frame under name and returns where it ended up.
type Sink interface {
	Store(ctx context.Context, name string, img *camera.Image) (string, error)
}

// ObjectName builds a stable, sortable name for a frame:
// <camera>/<UTC timestamp>-<id><ext>.
func ObjectName(cameraName string, at time.Time, id, mimeType string) string {
	stamp := at.UTC().Format("20060102T150405.000Z")
	return path.Join(cameraName, fmt.Sprintf("%s-%s%s", stamp, id, Ext(mimeType)))
}

// Ext returns the file extension for a MIME type.
func Ext(mimeType string) string {
	switch mimeType {
	case camera.MimePNG:
		return ".png"
	case camera.MimeJPEG:
		return ".jpg"
	}
	return ".bin"
}

func check(img *camera.Image) error {
	if img == nil || len(img.Data) == 0 {
		return ErrEmptyImage
	}
	return nil
}
