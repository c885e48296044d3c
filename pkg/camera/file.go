package camera

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// FileSource serves image files from disk. A directory is served in
// lexical order, wrapping around at the end.
type FileSource struct {
	files []string

	mu   sync.Mutex
	next int
}

// NewFileSource creates a source for a single image file or a directory of
// .jpg, .jpeg and .png files.
func NewFileSource(path string) (*FileSource, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}

	if !info.IsDir() {
		return &FileSource{files: []string{path}}, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}

	var files []string
	for _, e := range entries {
		if e.IsDir() || mimeFromExt(e.Name()) == "" {
			continue
		}
		files = append(files, filepath.Join(path, e.Name()))
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("file source %s: %w", path, ErrNoFrame)
	}
	sort.Strings(files)

	return &FileSource{files: files}, nil
}

// GetImage returns the next file. The MIME type comes from the extension.
func (s *FileSource) GetImage(ctx context.Context, _ string) (*Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	path := s.files[s.next]
	s.next = (s.next + 1) % len(s.files)
	s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("file source: %w", err)
	}
	return &Image{Data: data, MimeType: mimeFromExt(path)}, nil
}

func mimeFromExt(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg":
		return MimeJPEG
	case ".png":
		return MimePNG
	}
	return ""
}
