// Package blur implements the blurry vision service: frames are scored by
// the variance of their Laplacian and reported as "blurry" when the score
// falls below a configurable threshold.
package blur

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/teslashibe/blurry-classifier/internal/log"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"go.uber.org/zap"
)

// Resolver looks up a camera dependency by name. *camera.Registry
// satisfies it.
type Resolver interface {
	Get(name string) (camera.Camera, error)
}

// snapshot is the immutable state a single call works against.
type snapshot struct {
	cameraName string
	cam        camera.Camera
	threshold  float64
}

// Classifier is the blurry vision service. It is safe for concurrent use.
// Calls read one snapshot and never observe a half-applied
// reconfiguration.
type Classifier struct {
	name     string
	variant  Variant
	scorer   Scorer
	logger   *zap.Logger
	observer Observer

	state atomic.Pointer[snapshot]

	// serializes Reconfigure so threshold retention reads the latest value
	mu sync.Mutex
}

// New creates an unconfigured classifier. Image classification works
// immediately with the variant's default threshold; camera-bound calls
// fail with ErrNotConfigured until Reconfigure succeeds.
func New(name string, variant Variant, opts ...Option) *Classifier {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.scorer == nil {
		o.scorer = DefaultScorer()
	}
	if o.logger == nil {
		o.logger = log.L()
	}

	c := &Classifier{
		name:     name,
		variant:  variant,
		scorer:   o.scorer,
		observer: o.observer,
		logger:   o.logger.With(zap.String("service", name), zap.String("model", variant.Model)),
	}
	c.state.Store(&snapshot{threshold: variant.DefaultThreshold})
	return c
}

// NewFromConfig creates a classifier and applies cfg.
func NewFromConfig(name string, variant Variant, cfg Config, deps Resolver, opts ...Option) (*Classifier, error) {
	c := New(name, variant, opts...)
	if err := c.Reconfigure(cfg, deps); err != nil {
		return nil, err
	}
	return c, nil
}

// Reconfigure validates cfg, resolves its camera from deps and swaps the
// active snapshot. A missing threshold keeps the current one. On error the
// previous snapshot stays active.
func (c *Classifier) Reconfigure(cfg Config, deps Resolver) error {
	if _, err := cfg.Validate(); err != nil {
		return err
	}

	cam, err := deps.Get(cfg.CameraName)
	if err != nil {
		return fmt.Errorf("blur: resolve camera %q: %w", cfg.CameraName, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	next := &snapshot{
		cameraName: cfg.CameraName,
		cam:        cam,
		threshold:  c.state.Load().threshold,
	}
	if cfg.BlurryThreshold != nil {
		next.threshold = *cfg.BlurryThreshold
	}
	c.state.Store(next)

	c.logger.Info("reconfigured",
		zap.String("camera", next.cameraName),
		zap.Float64("threshold", next.threshold))
	return nil
}

// Name returns the service name.
func (c *Classifier) Name() string { return c.name }

// Variant returns the variant the classifier was built with.
func (c *Classifier) Variant() Variant { return c.variant }

// Threshold returns the active threshold.
func (c *Classifier) Threshold() float64 { return c.state.Load().threshold }

// CameraName returns the configured camera name, or "" when unconfigured.
func (c *Classifier) CameraName() string { return c.state.Load().cameraName }

// Configured reports whether a camera has been bound.
func (c *Classifier) Configured() bool { return c.state.Load().cam != nil }

// Config returns the active configuration.
func (c *Classifier) Config() Config {
	s := c.state.Load()
	return Config{CameraName: s.cameraName, BlurryThreshold: Threshold(s.threshold)}
}

// Classify scores img and compares it against threshold. It returns a
// single "blurry" classification when the score is below the threshold and
// an empty list otherwise.
func (c *Classifier) Classify(img *camera.Image, threshold float64) ([]Classification, error) {
	r, err := c.evaluate(img, threshold)
	if err != nil {
		return nil, err
	}
	return r.Classifications, nil
}

// Evaluate scores img against the active threshold and returns the score
// with the classification.
func (c *Classifier) Evaluate(ctx context.Context, img *camera.Image) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return c.evaluate(img, c.Threshold())
}

func (c *Classifier) evaluate(img *camera.Image, threshold float64) (*Result, error) {
	score, err := c.scorer.Score(img)
	if err != nil {
		c.observeError("decode", err)
		return nil, err
	}

	c.logger.Info("laplacian variance",
		zap.Float64("score", score),
		zap.Float64("threshold", threshold))

	r := &Result{
		Score:           score,
		Threshold:       threshold,
		Blurry:          score < threshold,
		Classifications: []Classification{},
	}
	if r.Blurry {
		r.Classifications = append(r.Classifications, Classification{
			ClassName:  ClassBlurry,
			Confidence: c.variant.Confidence,
		})
	}

	if c.observer != nil {
		c.observer.ObserveResult(c.variant.Model, r)
	}
	return r, nil
}

// GetClassifications classifies img. A positive count caps the number of
// classifications returned; zero or negative means no cap.
func (c *Classifier) GetClassifications(ctx context.Context, img *camera.Image, count int) ([]Classification, error) {
	r, err := c.Evaluate(ctx, img)
	if err != nil {
		return nil, err
	}
	return limit(r.Classifications, count), nil
}

// GetClassificationsFromCamera fetches one JPEG frame from the configured
// camera and classifies it. An empty cameraName means the configured
// camera.
func (c *Classifier) GetClassificationsFromCamera(ctx context.Context, cameraName string, count int) ([]Classification, error) {
	s, err := c.resolve(cameraName)
	if err != nil {
		return nil, err
	}

	img, err := c.fetch(ctx, s)
	if err != nil {
		return nil, err
	}

	r, err := c.evaluate(img, s.threshold)
	if err != nil {
		return nil, err
	}
	return limit(r.Classifications, count), nil
}

// CaptureAllFromCamera fetches one frame and returns the frame and/or its
// classification as selected by opts.
func (c *Classifier) CaptureAllFromCamera(ctx context.Context, cameraName string, opts CaptureOptions) (*Capture, error) {
	s, err := c.resolve(cameraName)
	if err != nil {
		return nil, err
	}

	img, err := c.fetch(ctx, s)
	if err != nil {
		return nil, err
	}

	capture := &Capture{}
	if opts.ReturnImage {
		capture.Image = img
	}
	if opts.ReturnClassifications {
		r, err := c.evaluate(img, s.threshold)
		if err != nil {
			return nil, err
		}
		capture.Result = r
	}
	return capture, nil
}

// GetDetections is not supported.
func (c *Classifier) GetDetections(ctx context.Context, img *camera.Image) ([]Detection, error) {
	return nil, fmt.Errorf("detections: %w", ErrNotImplemented)
}

// GetDetectionsFromCamera is not supported.
func (c *Classifier) GetDetectionsFromCamera(ctx context.Context, cameraName string) ([]Detection, error) {
	return nil, fmt.Errorf("detections from camera: %w", ErrNotImplemented)
}

// GetObjectPointClouds is not supported.
func (c *Classifier) GetObjectPointClouds(ctx context.Context, cameraName string) ([]PointCloudObject, error) {
	return nil, fmt.Errorf("object point clouds: %w", ErrNotImplemented)
}

// Properties reports classification-only support.
func (c *Classifier) Properties() Properties {
	return Properties{
		ClassificationsSupported:   true,
		DetectionsSupported:        false,
		ObjectPointCloudsSupported: false,
	}
}

// resolve applies the camera-name rule against the current snapshot.
func (c *Classifier) resolve(cameraName string) (*snapshot, error) {
	s := c.state.Load()
	if s.cam == nil {
		return nil, ErrNotConfigured
	}
	if cameraName != "" && cameraName != s.cameraName {
		return nil, &MismatchError{Requested: cameraName, Configured: s.cameraName}
	}
	return s, nil
}

func (c *Classifier) fetch(ctx context.Context, s *snapshot) (*camera.Image, error) {
	img, err := s.cam.GetImage(ctx, camera.MimeJPEG)
	if err != nil {
		c.observeError("camera", err)
		return nil, fmt.Errorf("%w: get image from %q: %w", ErrCameraFailed, s.cameraName, err)
	}
	return img, nil
}

func (c *Classifier) observeError(stage string, err error) {
	c.logger.Warn("frame failed", zap.String("stage", stage), zap.Error(err))
	if c.observer != nil {
		c.observer.ObserveError(stage, err)
	}
}

func limit(cs []Classification, count int) []Classification {
	if count > 0 && len(cs) > count {
		return cs[:count]
	}
	return cs
}
