package video

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"os/exec"
	"sync"
	"time"
)

// DefaultDecodeInterval caps decoding at 10 frames per second.
const DefaultDecodeInterval = 100 * time.Millisecond

// decodeTimeout bounds a single ffmpeg run over one keyframe group.
const decodeTimeout = time.Second

// Decoder turns buffered H264 Annex-B data into JPEG frames through an
// ffmpeg pipe. Decoding is rate limited.
type Decoder struct {
	// Command is the ffmpeg binary.
	Command string

	interval time.Duration

	mu         sync.Mutex
	lastDecode time.Time
}

// NewDecoder creates a decoder that runs at most once per interval.
func NewDecoder(interval time.Duration) *Decoder {
	return &Decoder{
		Command:  "ffmpeg",
		interval: interval,
	}
}

// Due reports whether enough time has passed since the last decode and,
// if so, claims the slot.
func (d *Decoder) Due() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if time.Since(d.lastDecode) < d.interval {
		return false
	}
	d.lastDecode = time.Now()
	return true
}

// Decode converts H264 data to JPEG and returns the last frame, which is
// the most recent one in the buffer. It returns nil without an error when
// the data holds no usable frame yet.
func (d *Decoder) Decode(ctx context.Context, h264 []byte) ([]byte, error) {
	if len(h264) < 100 {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, decodeTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, d.Command,
		"-loglevel", "error",
		"-f", "h264",
		"-i", "pipe:0",
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "3",
		"pipe:1",
	)

	var stdout, stderr bytes.Buffer
	cmd.Stdin = bytes.NewReader(h264)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if cmd.ProcessState == nil {
			return nil, fmt.Errorf("ffmpeg: %w", err)
		}
		if ctx.Err() != nil {
			return nil, nil
		}
		// not enough data for a frame yet
		if stdout.Len() == 0 {
			return nil, nil
		}
		return nil, fmt.Errorf("ffmpeg: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	frame := lastJPEG(stdout.Bytes())
	if isGrayJPEG(frame) {
		return nil, nil
	}
	return frame, nil
}

// eoiSOI is an end-of-image marker directly followed by a start-of-image
// marker. Entropy-coded JPEG data never contains it, so it only occurs
// between frames of an MJPEG stream.
var eoiSOI = []byte{0xFF, 0xD9, 0xFF, 0xD8}

// lastJPEG returns the last image of a concatenated MJPEG stream.
func lastJPEG(stream []byte) []byte {
	if i := bytes.LastIndex(stream, eoiSOI); i >= 0 {
		return stream[i+2:]
	}
	return stream
}

// isGrayJPEG checks if a JPEG is likely gray/corrupt. Decoders emit these
// before the first keyframe.
func isGrayJPEG(jpegData []byte) bool {
	if len(jpegData) < 1000 {
		return true
	}

	img, err := jpeg.Decode(bytes.NewReader(jpegData))
	if err != nil {
		return true
	}

	bounds := img.Bounds()
	if bounds.Dx() < 100 || bounds.Dy() < 100 {
		return true
	}

	avgR, avgG, avgB := sampleMean(img)

	// Gray frames have R ≈ G ≈ B with low values
	if avgR < 30 && avgG < 30 && avgB < 30 {
		return true
	}

	colorDiff := abs(avgR-avgG) + abs(avgG-avgB) + abs(avgR-avgB)
	return colorDiff < 15 && avgR > 100 && avgR < 150
}

// sampleMean averages a 10x10 grid of pixels.
func sampleMean(img image.Image) (r, g, b int) {
	bounds := img.Bounds()
	stepX, stepY := bounds.Dx()/10, bounds.Dy()/10

	samples := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y += stepY {
		for x := bounds.Min.X; x < bounds.Max.X; x += stepX {
			pr, pg, pb, _ := img.At(x, y).RGBA()
			r += int(pr >> 8)
			g += int(pg >> 8)
			b += int(pb >> 8)
			samples++
		}
	}
	return r / samples, g / samples, b / samples
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
