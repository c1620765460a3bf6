// Package web serves the composed frame and runtime diagnostics over HTTP.
package web

import (
	"bytes"
	"image"
	"image/png"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/fox-energy/powermon/internal/app"
	"github.com/fox-energy/powermon/internal/history"
)

// FrameSource provides the current screen content.
type FrameSource interface {
	ComposeFrame() *image.RGBA
}

// DiagSource provides the orchestrator snapshot and accepts repaint
// requests.
type DiagSource interface {
	Snapshot() app.Diagnostics
	ForceRedraw()
}

// Server exposes /frame, /status and /graph.
type Server struct {
	app    *fiber.App
	frames FrameSource
	diag   DiagSource
	hist   *history.Log
}

// NewServer builds the fiber app and its routes.
func NewServer(frames FrameSource, diag DiagSource, hist *history.Log) *Server {
	s := &Server{
		app:    fiber.New(fiber.Config{DisableStartupMessage: true}),
		frames: frames,
		diag:   diag,
		hist:   hist,
	}
	s.app.Get("/", func(c *fiber.Ctx) error {
		return c.Redirect("/frame")
	})
	s.app.Get("/frame", s.serveFrame)
	s.app.Get("/status", s.serveStatus)
	s.app.Get("/graph", s.serveGraph)
	s.app.Post("/redraw", s.serveRedraw)
	return s
}

func (s *Server) serveFrame(c *fiber.Ctx) error {
	frame := s.frames.ComposeFrame()
	var buf bytes.Buffer
	if err := png.Encode(&buf, frame); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode frame")
	}
	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

func (s *Server) serveStatus(c *fiber.Ctx) error {
	return c.JSON(s.diag.Snapshot())
}

// serveRedraw queues a full repaint, useful after poking the panel over
// SPI by hand or when the glass picked up noise.
func (s *Server) serveRedraw(c *fiber.Ctx) error {
	s.diag.ForceRedraw()
	return c.SendString("OK")
}

func (s *Server) serveGraph(c *fiber.Ctx) error {
	w := c.QueryInt("w", 320)
	h := c.QueryInt("h", 120)
	if w < 16 || w > 2048 || h < 16 || h > 1024 {
		return c.Status(fiber.StatusBadRequest).SendString("Bad graph dimensions")
	}
	img := s.hist.RenderGraph(w, h)
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return c.Status(fiber.StatusInternalServerError).SendString("Failed to encode graph")
	}
	c.Set("Content-Type", "image/png")
	c.Set("Content-Length", strconv.Itoa(buf.Len()))
	return c.Send(buf.Bytes())
}

// Listen blocks serving HTTP on addr.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}
