// Package video provides a camera source backed by the robot's WebRTC
// H264 stream.
package video

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/rtp/codecs"
	"github.com/pion/webrtc/v3"
	"github.com/teslashibe/blurry-classifier/internal/config"
	"github.com/teslashibe/blurry-classifier/internal/log"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"go.uber.org/zap"
)

// DefaultProducer is the signalling producer name the robot advertises.
const DefaultProducer = "reachymini"

// ErrClosed is returned by GetImage after Close.
var ErrClosed = errors.New("video: client closed")

// Client connects to the robot's WebRTC video stream via GStreamer
// signalling and serves the latest decoded frame as JPEG.
type Client struct {
	signallingURL string
	producerName  string
	logger        *zap.Logger
	decoder       *Decoder

	ws   *websocket.Conn
	wsMu sync.Mutex
	pc   *webrtc.PeerConnection

	myPeerID   string
	producerID string

	sessionMu sync.RWMutex
	sessionID string

	frameMu     sync.RWMutex
	latestFrame []byte
	frameAt     time.Time
	frameReady  chan struct{}

	trackReady chan struct{}
	closed     atomic.Bool
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithSignallingURL overrides the signalling websocket URL.
func WithSignallingURL(url string) Option {
	return func(c *Client) { c.signallingURL = url }
}

// WithProducer overrides the producer name to subscribe to.
func WithProducer(name string) Option {
	return func(c *Client) { c.producerName = name }
}

// WithDecoder overrides the H264 decoder.
func WithDecoder(d *Decoder) Option {
	return func(c *Client) { c.decoder = d }
}

// NewClient creates a client for the robot at robotIP.
func NewClient(robotIP string, opts ...Option) *Client {
	c := &Client{
		signallingURL: config.SignallingURL(robotIP),
		producerName:  DefaultProducer,
		frameReady:    make(chan struct{}),
		trackReady:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = log.L()
	}
	if c.decoder == nil {
		c.decoder = NewDecoder(DefaultDecodeInterval)
	}
	c.logger = c.logger.With(zap.String("signalling", c.signallingURL))
	return c
}

// Connect establishes the WebRTC session and returns once a video track
// arrives or ctx ends.
func (c *Client) Connect(ctx context.Context) error {
	c.logger.Info("connecting to signalling server")

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, _, err := dialer.DialContext(ctx, c.signallingURL, nil)
	if err != nil {
		return fmt.Errorf("video: signalling connect failed: %w", err)
	}
	c.ws = ws

	if err := c.waitForWelcome(); err != nil {
		return fmt.Errorf("video: welcome failed: %w", err)
	}
	if err := c.findProducer(); err != nil {
		return fmt.Errorf("video: find producer failed: %w", err)
	}
	c.logger.Info("found producer", zap.String("peer", c.myPeerID), zap.String("producer", c.producerID))

	if err := c.createPeerConnection(); err != nil {
		return fmt.Errorf("video: peer connection failed: %w", err)
	}
	if err := c.startSession(); err != nil {
		return fmt.Errorf("video: start session failed: %w", err)
	}

	go c.handleSignalling()

	select {
	case <-c.trackReady:
		c.logger.Info("video track connected")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("video: waiting for track: %w", ctx.Err())
	}
}

type signal struct {
	Type      string `json:"type"`
	PeerID    string `json:"peerId,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
	Producers []struct {
		ID   string            `json:"id"`
		Meta map[string]string `json:"meta"`
	} `json:"producers,omitempty"`
	SDP *struct {
		Type string `json:"type"`
		SDP  string `json:"sdp"`
	} `json:"sdp,omitempty"`
	ICE *struct {
		Candidate     string  `json:"candidate"`
		SDPMid        *string `json:"sdpMid"`
		SDPMLineIndex *uint16 `json:"sdpMLineIndex"`
	} `json:"ice,omitempty"`
}

func (c *Client) readSignal(timeout time.Duration) (*signal, error) {
	if timeout > 0 {
		c.ws.SetReadDeadline(time.Now().Add(timeout))
		defer c.ws.SetReadDeadline(time.Time{})
	}
	_, msg, err := c.ws.ReadMessage()
	if err != nil {
		return nil, err
	}
	var s signal
	if err := json.Unmarshal(msg, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func (c *Client) writeSignal(v any) error {
	c.wsMu.Lock()
	defer c.wsMu.Unlock()
	return c.ws.WriteJSON(v)
}

func (c *Client) waitForWelcome() error {
	s, err := c.readSignal(10 * time.Second)
	if err != nil {
		return err
	}
	if s.Type != "welcome" {
		return fmt.Errorf("expected welcome, got %s", s.Type)
	}
	c.myPeerID = s.PeerID
	return nil
}

func (c *Client) findProducer() error {
	if err := c.writeSignal(map[string]string{"type": "list"}); err != nil {
		return err
	}

	s, err := c.readSignal(5 * time.Second)
	if err != nil {
		return err
	}

	for _, p := range s.Producers {
		if p.Meta["name"] == c.producerName {
			c.producerID = p.ID
			return nil
		}
	}
	return fmt.Errorf("%s producer not found in %d producers", c.producerName, len(s.Producers))
}

func (c *Client) createPeerConnection() error {
	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{})
	if err != nil {
		return err
	}
	c.pc = pc

	if _, err = pc.AddTransceiverFromKind(webrtc.RTPCodecTypeVideo, webrtc.RTPTransceiverInit{
		Direction: webrtc.RTPTransceiverDirectionRecvonly,
	}); err != nil {
		return err
	}

	pc.OnTrack(func(track *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		c.logger.Info("got track", zap.String("kind", track.Kind().String()), zap.String("codec", track.Codec().MimeType))
		if track.Kind() == webrtc.RTPCodecTypeVideo {
			go c.handleVideoTrack(track)
		}
	})

	pc.OnICECandidate(func(candidate *webrtc.ICECandidate) {
		if candidate != nil {
			c.sendICECandidate(candidate)
		}
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		c.logger.Debug("connection state", zap.String("state", state.String()))
	})

	return nil
}

func (c *Client) startSession() error {
	return c.writeSignal(map[string]string{
		"type":   "startSession",
		"peerId": c.producerID,
	})
}

func (c *Client) handleSignalling() {
	for !c.closed.Load() {
		s, err := c.readSignal(0)
		if err != nil {
			if !c.closed.Load() {
				c.logger.Warn("signalling error", zap.Error(err))
			}
			return
		}

		switch s.Type {
		case "sessionStarted":
			c.sessionMu.Lock()
			c.sessionID = s.SessionID
			c.sessionMu.Unlock()
		case "peer":
			c.handlePeerMessage(s)
		case "endSession":
			c.logger.Info("session ended by producer")
			return
		}
	}
}

func (c *Client) handlePeerMessage(s *signal) {
	if s.SDP != nil && s.SDP.Type == "offer" {
		offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: s.SDP.SDP}
		if err := c.pc.SetRemoteDescription(offer); err != nil {
			c.logger.Warn("set remote description", zap.Error(err))
			return
		}

		answer, err := c.pc.CreateAnswer(nil)
		if err != nil {
			c.logger.Warn("create answer", zap.Error(err))
			return
		}
		if err := c.pc.SetLocalDescription(answer); err != nil {
			c.logger.Warn("set local description", zap.Error(err))
			return
		}
		c.sendSDP(answer)
	}

	if s.ICE != nil {
		if err := c.pc.AddICECandidate(webrtc.ICECandidateInit{
			Candidate:     s.ICE.Candidate,
			SDPMid:        s.ICE.SDPMid,
			SDPMLineIndex: s.ICE.SDPMLineIndex,
		}); err != nil {
			c.logger.Debug("add ice candidate", zap.Error(err))
		}
	}
}

func (c *Client) session() string {
	c.sessionMu.RLock()
	defer c.sessionMu.RUnlock()
	return c.sessionID
}

func (c *Client) sendSDP(sdp webrtc.SessionDescription) {
	err := c.writeSignal(map[string]any{
		"type":      "peer",
		"sessionId": c.session(),
		"sdp": map[string]string{
			"type": sdp.Type.String(),
			"sdp":  sdp.SDP,
		},
	})
	if err != nil {
		c.logger.Warn("send sdp", zap.Error(err))
	}
}

func (c *Client) sendICECandidate(candidate *webrtc.ICECandidate) {
	sessionID := c.session()
	if sessionID == "" {
		return
	}

	init := candidate.ToJSON()
	err := c.writeSignal(map[string]any{
		"type":      "peer",
		"sessionId": sessionID,
		"ice": map[string]any{
			"candidate":     init.Candidate,
			"sdpMid":        init.SDPMid,
			"sdpMLineIndex": init.SDPMLineIndex,
		},
	})
	if err != nil {
		c.logger.Warn("send ice candidate", zap.Error(err))
	}
}

func (c *Client) handleVideoTrack(track *webrtc.TrackRemote) {
	select {
	case c.trackReady <- struct{}{}:
	default:
	}

	var (
		depacketizer codecs.H264Packet
		buf          nalBuffer
	)
	for !c.closed.Load() {
		pkt, _, err := track.ReadRTP()
		if err != nil {
			return
		}

		nal, err := depacketizer.Unmarshal(pkt.Payload)
		if err != nil || len(nal) == 0 {
			continue
		}
		buf.Write(nal)

		if !c.decoder.Due() {
			continue
		}
		frame, err := c.decoder.Decode(context.Background(), buf.Bytes())
		if err != nil {
			c.logger.Debug("decode", zap.Error(err))
			continue
		}
		if frame != nil {
			c.setFrame(frame)
		}
	}
}

func (c *Client) setFrame(frame []byte) {
	c.frameMu.Lock()
	c.latestFrame = frame
	c.frameAt = time.Now()
	ready := c.frameReady
	c.frameReady = make(chan struct{})
	c.frameMu.Unlock()
	close(ready)
}

// Frame returns a copy of the latest frame and when it was decoded.
func (c *Client) Frame() ([]byte, time.Time, error) {
	c.frameMu.RLock()
	defer c.frameMu.RUnlock()

	if c.latestFrame == nil {
		return nil, time.Time{}, camera.ErrNoFrame
	}
	frame := make([]byte, len(c.latestFrame))
	copy(frame, c.latestFrame)
	return frame, c.frameAt, nil
}

// GetImage returns the latest frame as JPEG, waiting for the first one
// until ctx ends. Only JPEG is produced.
func (c *Client) GetImage(ctx context.Context, mimeType string) (*camera.Image, error) {
	if mimeType != "" && mimeType != camera.MimeJPEG {
		return nil, fmt.Errorf("video: unsupported mime type %q", mimeType)
	}

	for {
		if c.closed.Load() {
			return nil, ErrClosed
		}

		c.frameMu.RLock()
		ready := c.frameReady
		c.frameMu.RUnlock()

		frame, _, err := c.Frame()
		if err == nil {
			return &camera.Image{Data: frame, MimeType: camera.MimeJPEG}, nil
		}

		select {
		case <-ready:
		case <-ctx.Done():
			return nil, fmt.Errorf("video: waiting for frame: %w", ctx.Err())
		}
	}
}

// Close closes the WebRTC connection.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}

	// wake GetImage waiters
	c.frameMu.Lock()
	close(c.frameReady)
	c.frameReady = make(chan struct{})
	c.frameMu.Unlock()

	var errs []error
	if c.pc != nil {
		errs = append(errs, c.pc.Close())
	}
	if c.ws != nil {
		errs = append(errs, c.ws.Close())
	}
	return errors.Join(errs...)
}

var _ camera.Camera = (*Client)(nil)
