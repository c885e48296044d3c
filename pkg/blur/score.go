package blur

import (
	"bytes"
	"fmt"
	"image"
	"mime"

	"github.com/disintegration/imaging"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

// Scorer computes a sharpness score for an encoded frame. Lower is blurrier.
type Scorer interface {
	Score(img *camera.Image) (float64, error)
}

// ScorerFunc adapts a function to the Scorer interface.
type ScorerFunc func(img *camera.Image) (float64, error)

// Score calls f.
func (f ScorerFunc) Score(img *camera.Image) (float64, error) {
	return f(img)
}

// LaplacianScorer scores a frame as the variance of its Laplacian,
// computed in pure Go.
type LaplacianScorer struct{}

// Score decodes img to grayscale and returns its Laplacian variance.
func (LaplacianScorer) Score(img *camera.Image) (float64, error) {
	g, err := DecodeGray(img)
	if err != nil {
		return 0, err
	}
	return LaplacianVariance(g), nil
}

// Gray is a single-channel intensity grid in row-major order.
type Gray struct {
	Width  int
	Height int
	Pix    []float64
}

// At returns the intensity at (x, y).
func (g *Gray) At(x, y int) float64 {
	return g.Pix[y*g.Width+x]
}

// NewGray wraps pix as a width×height grid.
func NewGray(width, height int, pix []float64) *Gray {
	return &Gray{Width: width, Height: height, Pix: pix}
}

// DecodeGray decodes a JPEG or PNG frame, applies its EXIF orientation and
// converts it to luma with the 0.299/0.587/0.114 weights.
func DecodeGray(img *camera.Image) (*Gray, error) {
	if err := checkMimeType(img); err != nil {
		return nil, err
	}

	src, err := imaging.Decode(bytes.NewReader(img.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	b := src.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrDecode)
	}

	gray := imaging.Grayscale(src)
	return grayFromNRGBA(gray), nil
}

func grayFromNRGBA(img *image.NRGBA) *Gray {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	pix := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			pix[y*w+x] = float64(row[x*4])
		}
	}
	return NewGray(w, h, pix)
}

func checkMimeType(img *camera.Image) error {
	if img == nil || len(img.Data) == 0 {
		return fmt.Errorf("%w: no image data", ErrDecode)
	}
	if img.MimeType == "" {
		return nil
	}
	mt, _, err := mime.ParseMediaType(img.MimeType)
	if err != nil {
		return fmt.Errorf("%w: %w %q", ErrDecode, ErrUnsupportedMimeType, img.MimeType)
	}
	switch mt {
	case camera.MimeJPEG, camera.MimePNG:
		return nil
	}
	return fmt.Errorf("%w: %w %q", ErrDecode, ErrUnsupportedMimeType, img.MimeType)
}

// LaplacianVariance applies the 3x3 kernel [[0,1,0],[1,-4,1],[0,1,0]] with
// reflect-101 borders and returns the population variance of the response.
func LaplacianVariance(g *Gray) float64 {
	n := g.Width * g.Height
	if n == 0 {
		return 0
	}

	resp := make([]float64, n)
	var sum float64
	for y := 0; y < g.Height; y++ {
		up := reflect101(y-1, g.Height)
		down := reflect101(y+1, g.Height)
		for x := 0; x < g.Width; x++ {
			left := reflect101(x-1, g.Width)
			right := reflect101(x+1, g.Width)
			v := g.At(left, y) + g.At(right, y) + g.At(x, up) + g.At(x, down) - 4*g.At(x, y)
			resp[y*g.Width+x] = v
			sum += v
		}
	}

	mean := sum / float64(n)
	var sq float64
	for _, v := range resp {
		d := v - mean
		sq += d * d
	}
	return sq / float64(n)
}

// reflect101 maps an out-of-range index back into [0, n) mirroring around
// the edge pixel without repeating it (dcb|abcd|cba).
func reflect101(i, n int) int {
	if n == 1 {
		return 0
	}
	for i < 0 || i >= n {
		if i < 0 {
			i = -i
		}
		if i >= n {
			i = 2*n - 2 - i
		}
	}
	return i
}
