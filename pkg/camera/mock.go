package camera

import (
	"context"
	"sync"
	"time"
)

// Mock implements Camera for testing.
type Mock struct {
	// GetImageFunc is called when GetImage is invoked.
	GetImageFunc func(ctx context.Context, mimeType string) (*Image, error)

	mu    sync.Mutex
	calls []MockCall
}

// MockCall records a GetImage invocation.
type MockCall struct {
	MimeType string
	Time     time.Time
}

// NewStatic returns a mock that always serves the same frame.
func NewStatic(data []byte, mimeType string) *Mock {
	return &Mock{
		GetImageFunc: func(ctx context.Context, _ string) (*Image, error) {
			return &Image{Data: data, MimeType: mimeType}, nil
		},
	}
}

// WithError returns a mock whose GetImage always fails with err.
func WithError(err error) *Mock {
	return &Mock{
		GetImageFunc: func(ctx context.Context, _ string) (*Image, error) {
			return nil, err
		},
	}
}

// GetImage calls GetImageFunc and records the call.
func (m *Mock) GetImage(ctx context.Context, mimeType string) (*Image, error) {
	m.mu.Lock()
	m.calls = append(m.calls, MockCall{MimeType: mimeType, Time: time.Now()})
	m.mu.Unlock()

	if m.GetImageFunc != nil {
		return m.GetImageFunc(ctx, mimeType)
	}
	return nil, ErrNoFrame
}

// CallCount returns the number of GetImage calls.
func (m *Mock) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// Calls returns all recorded calls.
func (m *Mock) Calls() []MockCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// Reset clears recorded calls.
func (m *Mock) Reset() {
	m.mu.Lock()
	m.calls = nil
	m.mu.Unlock()
}
