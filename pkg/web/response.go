package web

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

// Response represents the standard API response structure
type Response struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
	Meta    *MetaInfo  `json:"meta"`
}

// ErrorInfo represents error details
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// MetaInfo represents response metadata
type MetaInfo struct {
	Timestamp string `json:"timestamp"`
	RequestID string `json:"request_id"`
}

// Error codes.
const (
	CodeBadRequest       = "BAD_REQUEST"
	CodeInvalidConfig    = "INVALID_CONFIG"
	CodeCameraMismatch   = "CAMERA_MISMATCH"
	CodeCameraNotFound   = "CAMERA_NOT_FOUND"
	CodeCameraError      = "CAMERA_ERROR"
	CodeDecodeFailed     = "DECODE_FAILED"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA_TYPE"
	CodeNotConfigured    = "NOT_CONFIGURED"
	CodeNotImplemented   = "NOT_IMPLEMENTED"
	CodeNotFound         = "NOT_FOUND"
	CodeUnauthorized     = "UNAUTHORIZED"
	CodeTimeout          = "TIMEOUT"
	CodeInternal         = "INTERNAL_ERROR"
)

func newMeta(c *fiber.Ctx) *MetaInfo {
	requestID, _ := c.Locals(requestIDKey).(string)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	return &MetaInfo{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: requestID,
	}
}

func respondSuccess(c *fiber.Ctx, status int, data any) error {
	return c.Status(status).JSON(Response{
		Success: true,
		Data:    data,
		Meta:    newMeta(c),
	})
}

func respondError(c *fiber.Ctx, status int, code, message string) error {
	return c.Status(status).JSON(Response{
		Success: false,
		Error: &ErrorInfo{
			Code:    code,
			Message: message,
		},
		Meta: newMeta(c),
	})
}

// statusFor maps service errors to an HTTP status and error code.
func statusFor(err error) (int, string) {
	var cfgErr *blur.ConfigError
	var fe *fiber.Error

	switch {
	case errors.Is(err, blur.ErrCameraMismatch):
		return fiber.StatusBadRequest, CodeCameraMismatch
	case errors.As(err, &cfgErr):
		return fiber.StatusBadRequest, CodeInvalidConfig
	case errors.Is(err, camera.ErrCameraNotFound):
		return fiber.StatusBadRequest, CodeCameraNotFound
	case errors.Is(err, blur.ErrUnsupportedMimeType):
		return fiber.StatusUnsupportedMediaType, CodeUnsupportedMedia
	case errors.Is(err, blur.ErrDecode):
		return fiber.StatusBadRequest, CodeDecodeFailed
	case errors.Is(err, blur.ErrNotConfigured):
		return fiber.StatusServiceUnavailable, CodeNotConfigured
	case errors.Is(err, blur.ErrNotImplemented):
		return fiber.StatusNotImplemented, CodeNotImplemented
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, blur.ErrCameraFailed):
		return fiber.StatusBadGateway, CodeCameraError
	case errors.As(err, &fe):
		return fe.Code, codeForStatus(fe.Code)
	}
	return fiber.StatusInternalServerError, CodeInternal
}

func codeForStatus(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return CodeNotFound
	case fiber.StatusUnauthorized:
		return CodeUnauthorized
	case fiber.StatusInternalServerError:
		return CodeInternal
	}
	return CodeBadRequest
}

// errorHandler renders every returned error in the response envelope.
func errorHandler(c *fiber.Ctx, err error) error {
	status, code := statusFor(err)
	return respondError(c, status, code, err.Error())
}
