package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"google.golang.org/api/option"
)

func TestObjectName(t *testing.T) {
	at := time.Date(2026, 10, 16, 9, 30, 5, 123e6, time.FixedZone("CEST", 2*3600))

	got := ObjectName("front", at, "abc", camera.MimeJPEG)
	if got != "front/20261016T073005.123Z-abc.jpg" {
		t.Errorf("unexpected name %q", got)
	}

	if Ext(camera.MimePNG) != ".png" || Ext("application/x") != ".bin" {
		t.Error("unexpected extensions")
	}
}

func TestDirSink(t *testing.T) {
	root := t.TempDir() + "/frames"
	sink, err := NewDirSink(root)
	if err != nil {
		t.Fatalf("NewDirSink failed: %v", err)
	}

	loc, err := sink.Store(context.Background(), "front/one.jpg", &camera.Image{Data: []byte("jpeg"), MimeType: camera.MimeJPEG})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}
	if !strings.HasSuffix(loc, "front/one.jpg") {
		t.Errorf("unexpected location %q", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "jpeg" {
		t.Errorf("stored file mismatch: %q %v", data, err)
	}

	entries, _ := os.ReadDir(root + "/front")
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %v", entries)
	}

	if _, err := sink.Store(context.Background(), "x.jpg", &camera.Image{}); !errors.Is(err, ErrEmptyImage) {
		t.Errorf("expected ErrEmptyImage, got %v", err)
	}
}

func TestGCSSink(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotBody  []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotBody, _ = io.ReadAll(r.Body)

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"bucket": "robot-frames",
			"name":   "blurry/front/one.jpg",
		})
	}))
	defer srv.Close()

	ctx := context.Background()
	sink, err := NewGCSSink(ctx, GCSConfig{Bucket: "robot-frames", Prefix: "/blurry/"},
		option.WithEndpoint(srv.URL+"/storage/v1/"),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("NewGCSSink failed: %v", err)
	}

	loc, err := sink.Store(ctx, "front/one.jpg", &camera.Image{Data: []byte("jpeg-bytes"), MimeType: camera.MimeJPEG})
	if err != nil {
		t.Fatalf("Store failed: %v", err)
	}

	if loc != "gs://robot-frames/blurry/front/one.jpg" {
		t.Errorf("unexpected location %q", loc)
	}
	if !strings.HasPrefix(gotPath, "/upload/") || !strings.HasSuffix(gotPath, "/b/robot-frames/o") {
		t.Errorf("unexpected upload path %q", gotPath)
	}
	if !strings.Contains(gotQuery, "uploadType=multipart") {
		t.Errorf("expected multipart upload, got %q", gotQuery)
	}
	if !bytes.Contains(gotBody, []byte("jpeg-bytes")) || !bytes.Contains(gotBody, []byte(`"name":"blurry/front/one.jpg"`)) {
		t.Errorf("upload body missing object data: %q", gotBody)
	}

	if _, err := NewGCSSink(ctx, GCSConfig{}); err == nil {
		t.Error("expected error without bucket")
	}
}
