package camera

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()

	cam := NewStatic([]byte("x"), MimeJPEG)
	if err := r.Register("front", cam); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if err := r.Register("", cam); err == nil {
		t.Error("expected error for empty name")
	}
	if err := r.Register("nil", nil); err == nil {
		t.Error("expected error for nil camera")
	}

	got, err := r.Get("front")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got != cam {
		t.Error("Get returned a different camera")
	}

	_ = r.Register("back", cam)
	names := r.Names()
	if len(names) != 2 || names[0] != "back" || names[1] != "front" {
		t.Errorf("unexpected names: %v", names)
	}

	_, err = r.Get("missing")
	if !errors.Is(err, ErrCameraNotFound) {
		t.Errorf("expected ErrCameraNotFound, got %v", err)
	}
	if err != nil && !strings.Contains(err.Error(), "[back front]") {
		t.Errorf("not-found error should list registered cameras, got %q", err)
	}
}

func TestSourceConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     SourceConfig
		wantErr bool
	}{
		{"http ok", SourceConfig{Name: "a", Type: TypeHTTP, URL: "http://x"}, false},
		{"http missing url", SourceConfig{Name: "a", Type: TypeHTTP}, true},
		{"file ok", SourceConfig{Name: "a", Type: TypeFile, Path: "/tmp"}, false},
		{"file missing path", SourceConfig{Name: "a", Type: TypeFile}, true},
		{"webrtc ok", SourceConfig{Name: "a", Type: TypeWebRTC, RobotIP: "10.0.0.2"}, false},
		{"webrtc signalling only", SourceConfig{Name: "a", Type: TypeWebRTC, SignallingURL: "ws://bench:8443"}, false},
		{"webrtc missing ip", SourceConfig{Name: "a", Type: TypeWebRTC}, true},
		{"missing name", SourceConfig{Type: TypeHTTP, URL: "http://x"}, true},
		{"unknown type", SourceConfig{Name: "a", Type: "usb"}, true},
		{"negative timeout", SourceConfig{Name: "a", Type: TypeHTTP, URL: "http://x", Timeout: -time.Second}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := tt.cfg.Validate()
			if tt.wantErr && len(errs) == 0 {
				t.Error("expected validation errors")
			}
			if !tt.wantErr && len(errs) > 0 {
				t.Errorf("unexpected validation errors: %v", errs)
			}
		})
	}
}

func TestNewFromConfigWebRTCNotBuiltHere(t *testing.T) {
	_, err := NewFromConfig(SourceConfig{Name: "a", Type: TypeWebRTC, RobotIP: "10.0.0.2"})
	if !errors.Is(err, ErrUnknownSourceType) {
		t.Errorf("expected ErrUnknownSourceType, got %v", err)
	}
}

func TestHTTPSource(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/snap":
			w.Header().Set("Content-Type", "image/png; charset=binary")
			w.Write([]byte("pngdata"))
		case "/empty":
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()

	ctx := context.Background()

	src := NewHTTPSource(srv.URL+"/snap", 0)
	img, err := src.GetImage(ctx, MimeJPEG)
	if err != nil {
		t.Fatalf("GetImage failed: %v", err)
	}
	if string(img.Data) != "pngdata" {
		t.Errorf("unexpected body %q", img.Data)
	}
	if img.MimeType != MimePNG {
		t.Errorf("expected content type from response, got %q", img.MimeType)
	}

	if _, err := NewHTTPSource(srv.URL+"/down", time.Second).GetImage(ctx, MimeJPEG); err == nil {
		t.Error("expected error for non-200 status")
	}

	if _, err := NewHTTPSource(srv.URL+"/empty", time.Second).GetImage(ctx, MimeJPEG); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame for empty body, got %v", err)
	}
}

func TestFileSource(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"b.png":     "second",
		"a.jpg":     "first",
		"notes.txt": "ignored",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	src, err := NewFileSource(dir)
	if err != nil {
		t.Fatalf("NewFileSource failed: %v", err)
	}
	ctx := context.Background()
	want := []struct {
		data string
		mime string
	}{
		{"first", MimeJPEG},
		{"second", MimePNG},
		{"first", MimeJPEG},
	}
	for i, w := range want {
		img, err := src.GetImage(ctx, "")
		if err != nil {
			t.Fatalf("GetImage %d failed: %v", i, err)
		}
		if string(img.Data) != w.data || img.MimeType != w.mime {
			t.Errorf("frame %d: got (%q, %q), want (%q, %q)", i, img.Data, img.MimeType, w.data, w.mime)
		}
	}

	if _, err := NewFileSource(t.TempDir()); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame for empty dir, got %v", err)
	}
}

func TestMock(t *testing.T) {
	ctx := context.Background()
	testErr := errors.New("lens cap on")

	m := WithError(testErr)
	if _, err := m.GetImage(ctx, MimeJPEG); !errors.Is(err, testErr) {
		t.Errorf("expected test error, got %v", err)
	}
	if m.CallCount() != 1 {
		t.Errorf("expected 1 call, got %d", m.CallCount())
	}
	if m.Calls()[0].MimeType != MimeJPEG {
		t.Error("call should record the requested MIME type")
	}
	m.Reset()
	if m.CallCount() != 0 {
		t.Error("expected 0 calls after reset")
	}

	var empty Mock
	if _, err := empty.GetImage(ctx, ""); !errors.Is(err, ErrNoFrame) {
		t.Errorf("expected ErrNoFrame from empty mock, got %v", err)
	}
}
