package archive

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

// DirSink writes frames below a directory.
type DirSink struct {
	root string
}

// NewDirSink creates root if needed.
func NewDirSink(root string) (*DirSink, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create %s: %w", root, err)
	}
	return &DirSink{root: root}, nil
}

// Store writes img to root/name through a temp file and rename.
func (s *DirSink) Store(ctx context.Context, name string, img *camera.Image) (string, error) {
	if err := check(img); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dst := filepath.Join(s.root, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".frame-*")
	if err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(img.Data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("archive: write %s: %w", dst, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("archive: write %s: %w", dst, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", fmt.Errorf("archive: %w", err)
	}
	return dst, nil
}
