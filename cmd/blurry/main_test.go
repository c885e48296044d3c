package main

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/teslashibe/blurry-classifier/internal/config"
	"github.com/teslashibe/blurry-classifier/pkg/archive"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"go.uber.org/zap"
)

func TestVideoOptions(t *testing.T) {
	tests := []struct {
		name string
		src  camera.SourceConfig
		want int
	}{
		{"default decoder", camera.SourceConfig{Name: "reachy", Type: camera.TypeWebRTC, RobotIP: "10.0.0.2"}, 1},
		{"custom ffmpeg", camera.SourceConfig{Name: "reachy", Type: camera.TypeWebRTC, RobotIP: "10.0.0.2", FFmpeg: "/opt/ffmpeg"}, 2},
		{"explicit signalling", camera.SourceConfig{Name: "bench", Type: camera.TypeWebRTC, SignallingURL: "ws://bench:8443", Producer: "front"}, 3},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := len(videoOptions(tc.src, zap.NewNop())); got != tc.want {
				t.Errorf("got %d options, want %d", got, tc.want)
			}
		})
	}
}

func TestBuildSink(t *testing.T) {
	ctx := context.Background()

	sink, err := buildSink(ctx, config.ArchiveConfig{Type: config.ArchiveNone})
	if err != nil || sink != nil {
		t.Errorf("no archive: got %v, %v", sink, err)
	}

	sink, err = buildSink(ctx, config.ArchiveConfig{Type: config.ArchiveDir, Dir: filepath.Join(t.TempDir(), "frames")})
	if err != nil {
		t.Fatalf("dir archive: %v", err)
	}
	if _, ok := sink.(*archive.DirSink); !ok {
		t.Errorf("expected *archive.DirSink, got %T", sink)
	}

	if _, err := buildSink(ctx, config.ArchiveConfig{Type: "s3"}); err == nil {
		t.Error("expected error for unknown archive type")
	}
}
