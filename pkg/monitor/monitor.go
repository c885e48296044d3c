// Package monitor periodically classifies frames from the configured
// camera, publishes the results and archives blurry frames.
package monitor

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/teslashibe/blurry-classifier/internal/log"
	"github.com/teslashibe/blurry-classifier/pkg/archive"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"go.uber.org/zap"
)

// Event is one monitored frame.
type Event struct {
	ID              string                `json:"id"`
	Service         string                `json:"service"`
	Camera          string                `json:"camera"`
	Time            time.Time             `json:"time"`
	Score           float64               `json:"score"`
	Threshold       float64               `json:"threshold"`
	Blurry          bool                  `json:"blurry"`
	Classifications []blur.Classification `json:"classifications"`
	ArchivedAs      string                `json:"archived_as,omitempty"`

	// FrameMimeType is set on blurry events; the frame itself follows
	// as a binary message.
	FrameMimeType string `json:"frame_mime_type,omitempty"`
}

// Capturer is the slice of *blur.Classifier the monitor needs.
type Capturer interface {
	Name() string
	CameraName() string
	CaptureAllFromCamera(ctx context.Context, cameraName string, opts blur.CaptureOptions) (*blur.Capture, error)
}

// Publisher fans events and blurry frames out to subscribers. *hub.Hub
// satisfies it.
type Publisher interface {
	PublishEvent(v any) error
	PublishFrame(image []byte)
}

// Monitor runs the capture loop.
type Monitor struct {
	svc       Capturer
	interval  time.Duration
	publisher Publisher
	sink      archive.Sink
	onArchive func()
	logger    *zap.Logger

	now   func() time.Time
	newID func() string

	mu     sync.RWMutex
	latest *Event
}

// Option configures a Monitor.
type Option func(*Monitor)

// WithPublisher publishes every event.
func WithPublisher(p Publisher) Option {
	return func(m *Monitor) { m.publisher = p }
}

// WithSink archives blurry frames.
func WithSink(s archive.Sink) Option {
	return func(m *Monitor) { m.sink = s }
}

// WithArchiveHook is called after each successful archive write.
func WithArchiveHook(fn func()) Option {
	return func(m *Monitor) { m.onArchive = fn }
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(m *Monitor) { m.logger = l }
}

// New creates a monitor that ticks every interval.
func New(svc Capturer, interval time.Duration, opts ...Option) *Monitor {
	m := &Monitor{
		svc:      svc,
		interval: interval,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.logger == nil {
		m.logger = log.L()
	}
	m.logger = m.logger.With(zap.String("component", "monitor"))
	return m
}

// Run ticks until ctx is cancelled. Failed ticks are logged and the loop
// continues.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("monitor started", zap.Duration("interval", m.interval))
	for {
		if _, err := m.Tick(ctx); err != nil && ctx.Err() == nil {
			m.logger.Warn("tick failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			m.logger.Info("monitor stopped")
			return
		case <-ticker.C:
		}
	}
}

// Tick captures and classifies one frame.
func (m *Monitor) Tick(ctx context.Context) (*Event, error) {
	capture, err := m.svc.CaptureAllFromCamera(ctx, "", blur.CaptureOptions{
		ReturnImage:           true,
		ReturnClassifications: true,
	})
	if err != nil {
		return nil, fmt.Errorf("monitor: capture: %w", err)
	}

	r := capture.Result
	ev := &Event{
		ID:              m.newID(),
		Service:         m.svc.Name(),
		Camera:          m.svc.CameraName(),
		Time:            m.now(),
		Score:           r.Score,
		Threshold:       r.Threshold,
		Blurry:          r.Blurry,
		Classifications: r.Classifications,
	}
	if ev.Blurry && capture.Image != nil {
		ev.FrameMimeType = capture.Image.MimeType
	}

	if ev.Blurry && m.sink != nil && capture.Image != nil {
		name := archive.ObjectName(ev.Camera, ev.Time, ev.ID, capture.Image.MimeType)
		loc, err := m.sink.Store(ctx, name, capture.Image)
		if err != nil {
			m.logger.Warn("archive failed", zap.String("event", ev.ID), zap.Error(err))
		} else {
			ev.ArchivedAs = loc
			if m.onArchive != nil {
				m.onArchive()
			}
		}
	}

	m.mu.Lock()
	m.latest = ev
	m.mu.Unlock()

	if m.publisher != nil {
		m.publish(ev, capture.Image)
	}
	return ev, nil
}

// publish sends the event, then the frame for blurry events.
func (m *Monitor) publish(ev *Event, img *camera.Image) {
	if err := m.publisher.PublishEvent(ev); err != nil {
		m.logger.Warn("publish failed", zap.Error(err))
		return
	}
	if ev.FrameMimeType != "" {
		m.publisher.PublishFrame(img.Data)
	}
}

// Latest returns the most recent event.
func (m *Monitor) Latest() (*Event, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latest, m.latest != nil
}
