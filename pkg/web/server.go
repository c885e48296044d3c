// Package web exposes the blurry vision service over HTTP and streams
// monitor events over a websocket.
package web

import (
	"context"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/teslashibe/blurry-classifier/internal/log"
	"github.com/teslashibe/blurry-classifier/internal/metrics"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
	"github.com/teslashibe/blurry-classifier/pkg/hub"
	"github.com/teslashibe/blurry-classifier/pkg/monitor"
	"go.uber.org/zap"
)

// requestIDKey holds the request id in fiber locals.
const requestIDKey = "requestid"

// LatestSource returns the most recent monitor event. *monitor.Monitor
// satisfies it.
type LatestSource interface {
	Latest() (*monitor.Event, bool)
}

// Options configures a Server. Zero values disable the optional parts.
type Options struct {
	AuthSecret   string
	BodyLimit    int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Metrics *metrics.Recorder
	Events  *hub.Hub
	Monitor LatestSource
	Logger  *zap.Logger
}

// Server is the HTTP API server.
type Server struct {
	app     *fiber.App
	svc     *blur.Classifier
	cameras *camera.Registry
	events  *hub.Hub
	monitor LatestSource
	logger  *zap.Logger
}

// NewServer builds the fiber app and routes. Reconfiguration resolves
// cameras from the registry.
func NewServer(svc *blur.Classifier, cameras *camera.Registry, opts Options) *Server {
	s := &Server{
		svc:     svc,
		cameras: cameras,
		events:  opts.Events,
		monitor: opts.Monitor,
		logger:  opts.Logger,
	}
	if s.logger == nil {
		s.logger = log.L()
	}
	s.logger = s.logger.With(zap.String("component", "web"))

	app := fiber.New(fiber.Config{
		AppName:               "blurry",
		DisableStartupMessage: true,
		BodyLimit:             opts.BodyLimit,
		ReadTimeout:           opts.ReadTimeout,
		WriteTimeout:          opts.WriteTimeout,
		ErrorHandler:          errorHandler,
	})

	app.Use(recover.New())
	app.Use(requestid.New(requestid.Config{
		Generator:  uuid.NewString,
		ContextKey: requestIDKey,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,OPTIONS",
		AllowHeaders: "Content-Type,Authorization",
	}))
	app.Use(s.requestLogger)

	app.Get("/health", s.handleHealth)
	if opts.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(opts.Metrics.Handler()))
	}

	api := app.Group("/api/v1")
	if opts.AuthSecret != "" {
		api.Use(JWTMiddleware(opts.AuthSecret))
	}
	api.Get("/properties", s.handleProperties)
	api.Post("/classifications", s.handleClassifications)
	api.Get("/classifications/camera", s.handleClassificationsFromCamera)
	api.Get("/capture", s.handleCapture)
	api.Post("/detections", s.handleDetections)
	api.Get("/detections/camera", s.handleDetectionsFromCamera)
	api.Get("/object_point_clouds", s.handleObjectPointClouds)
	api.Get("/config", s.handleGetConfig)
	api.Put("/config", s.handlePutConfig)
	api.Get("/monitor/latest", s.handleLatest)

	if s.events != nil {
		app.Use("/ws", func(c *fiber.Ctx) error {
			if websocket.IsWebSocketUpgrade(c) {
				return c.Next()
			}
			return fiber.ErrUpgradeRequired
		})
		app.Get("/ws/events", websocket.New(func(conn *websocket.Conn) {
			hub.Serve(s.events, conn)
		}))
	}

	s.app = app
	return s
}

// Listen serves on addr until Shutdown.
func (s *Server) Listen(addr string) error {
	s.logger.Info("listening", zap.String("addr", addr))
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) requestLogger(c *fiber.Ctx) error {
	start := time.Now()
	err := c.Next()
	if err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	fields := []zap.Field{
		zap.String("method", c.Method()),
		zap.String("path", c.Path()),
		zap.Int("status", status),
		zap.Duration("latency", time.Since(start)),
		zap.String("request_id", c.GetRespHeader(fiber.HeaderXRequestID)),
	}
	if status >= fiber.StatusInternalServerError {
		s.logger.Warn("request", fields...)
	} else {
		s.logger.Debug("request", fields...)
	}
	return nil
}
