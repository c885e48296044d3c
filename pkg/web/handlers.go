package web

import (
	"bytes"
	"encoding/json"
	"mime"

	"github.com/gofiber/fiber/v2"
	"github.com/teslashibe/blurry-classifier/pkg/blur"
	"github.com/teslashibe/blurry-classifier/pkg/camera"
)

type healthResponse struct {
	Status        string   `json:"status"`
	Model         string   `json:"model"`
	Configured    bool     `json:"configured"`
	Camera        string   `json:"camera,omitempty"`
	Cameras       []string `json:"cameras"`
	WSClients     int      `json:"ws_clients"`
	EventsDropped uint64   `json:"events_dropped"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	resp := healthResponse{
		Status:     "ok",
		Model:      s.svc.Variant().Model,
		Configured: s.svc.Configured(),
		Camera:     s.svc.CameraName(),
		Cameras:    s.cameras.Names(),
	}
	if s.events != nil {
		resp.WSClients = s.events.ClientCount()
		resp.EventsDropped = s.events.Dropped()
	}
	return c.JSON(resp)
}

func (s *Server) handleProperties(c *fiber.Ctx) error {
	return respondSuccess(c, fiber.StatusOK, s.svc.Properties())
}

// handleClassifications classifies the request body. The Content-Type
// names the image format; octet-stream or none means sniff.
func (s *Server) handleClassifications(c *fiber.Ctx) error {
	body := c.Body()
	if len(body) == 0 {
		return respondError(c, fiber.StatusBadRequest, CodeBadRequest, "request body must be an image")
	}

	// fasthttp reuses the body buffer after the handler returns
	img := &camera.Image{
		Data:     bytes.Clone(body),
		MimeType: imageMimeType(c.Get(fiber.HeaderContentType)),
	}

	cs, err := s.svc.GetClassifications(c.UserContext(), img, c.QueryInt("count", 0))
	if err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, cs)
}

func (s *Server) handleClassificationsFromCamera(c *fiber.Ctx) error {
	cs, err := s.svc.GetClassificationsFromCamera(c.UserContext(), c.Query("camera_name"), c.QueryInt("count", 0))
	if err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, cs)
}

type imagePayload struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

type captureResponse struct {
	Image  *imagePayload `json:"image,omitempty"`
	Result *blur.Result  `json:"result,omitempty"`
}

func (s *Server) handleCapture(c *fiber.Ctx) error {
	opts := blur.CaptureOptions{
		ReturnImage:           c.QueryBool("return_image", true),
		ReturnClassifications: c.QueryBool("return_classifications", true),
	}

	capture, err := s.svc.CaptureAllFromCamera(c.UserContext(), c.Query("camera_name"), opts)
	if err != nil {
		return err
	}

	resp := captureResponse{Result: capture.Result}
	if capture.Image != nil {
		resp.Image = &imagePayload{MimeType: capture.Image.MimeType, Data: capture.Image.Data}
	}
	return respondSuccess(c, fiber.StatusOK, resp)
}

func (s *Server) handleDetections(c *fiber.Ctx) error {
	img := &camera.Image{Data: bytes.Clone(c.Body()), MimeType: imageMimeType(c.Get(fiber.HeaderContentType))}
	ds, err := s.svc.GetDetections(c.UserContext(), img)
	if err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, ds)
}

func (s *Server) handleDetectionsFromCamera(c *fiber.Ctx) error {
	ds, err := s.svc.GetDetectionsFromCamera(c.UserContext(), c.Query("camera_name"))
	if err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, ds)
}

func (s *Server) handleObjectPointClouds(c *fiber.Ctx) error {
	objs, err := s.svc.GetObjectPointClouds(c.UserContext(), c.Query("camera_name"))
	if err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, objs)
}

type configResponse struct {
	Name    string       `json:"name"`
	Variant blur.Variant `json:"variant"`
	Config  blur.Config  `json:"config"`
}

func (s *Server) configResponse() configResponse {
	return configResponse{
		Name:    s.svc.Name(),
		Variant: s.svc.Variant(),
		Config:  s.svc.Config(),
	}
}

func (s *Server) handleGetConfig(c *fiber.Ctx) error {
	return respondSuccess(c, fiber.StatusOK, s.configResponse())
}

// handlePutConfig replaces the service configuration with the attribute
// object in the body.
func (s *Server) handlePutConfig(c *fiber.Ctx) error {
	var attrs map[string]any
	dec := json.NewDecoder(bytes.NewReader(c.Body()))
	dec.UseNumber()
	if err := dec.Decode(&attrs); err != nil {
		return respondError(c, fiber.StatusBadRequest, CodeBadRequest, "body must be a JSON object: "+err.Error())
	}

	cfg, err := blur.ParseConfig(attrs)
	if err != nil {
		return err
	}
	if err := s.svc.Reconfigure(cfg, s.cameras); err != nil {
		return err
	}
	return respondSuccess(c, fiber.StatusOK, s.configResponse())
}

func (s *Server) handleLatest(c *fiber.Ctx) error {
	if s.monitor == nil {
		return respondError(c, fiber.StatusNotFound, CodeNotFound, "monitor is disabled")
	}
	ev, ok := s.monitor.Latest()
	if !ok {
		return respondError(c, fiber.StatusNotFound, CodeNotFound, "no frames monitored yet")
	}
	return respondSuccess(c, fiber.StatusOK, ev)
}

func imageMimeType(contentType string) string {
	if contentType == "" {
		return ""
	}
	mt, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return contentType
	}
	if mt == fiber.MIMEOctetStream {
		return ""
	}
	return mt
}
