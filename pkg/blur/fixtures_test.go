package blur

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"

	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

// checkerboard alternates 0 and 255 on every pixel.
func checkerboard(w, h int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x+y)%2 == 0 {
				img.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	return img
}

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 100}); err != nil {
		t.Fatalf("jpeg encode: %v", err)
	}
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png encode: %v", err)
	}
	return buf.Bytes()
}

// blurryFrame is a flat gray JPEG. Its Laplacian variance is 0.
func blurryFrame(t *testing.T) *camera.Image {
	return &camera.Image{Data: encodeJPEG(t, uniform(64, 48, 128)), MimeType: camera.MimeJPEG}
}

// sharpFrame is a pixel checkerboard JPEG. Its Laplacian variance is about 1e6.
func sharpFrame(t *testing.T) *camera.Image {
	return &camera.Image{Data: encodeJPEG(t, checkerboard(64, 48)), MimeType: camera.MimeJPEG}
}

// fixedScorer returns score for every frame.
func fixedScorer(score float64) Scorer {
	return ScorerFunc(func(*camera.Image) (float64, error) { return score, nil })
}
