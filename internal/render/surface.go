package render

import (
	"image"
	"image/color"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Panel is the physical display boundary: a block transfer of pixels to an
// origin, plus the post-rotation dimensions.
type Panel interface {
	Blit(x, y int, img *image.RGBA) error
	Size() (width, height int)
}

// Surface is the drawing target handed to region renderers. It is selected
// once per screen region at initialization: an off-screen canvas when
// buffering is available, a direct panel surface otherwise.
type Surface interface {
	FillRect(x, y, w, h int, c color.Color)
	DrawText(text string, x, y int, face font.Face, c color.Color)
	DrawImage(img *image.RGBA, x, y int)
	Bounds() image.Rectangle
}

// drawTextInto paints text onto an RGBA image with (x, y) as the top-left
// corner of the text box and returns the painted rectangle.
func drawTextInto(img *image.RGBA, text string, x, y int, face font.Face, clr color.Color) image.Rectangle {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(clr),
		Face: face,
	}
	metrics := face.Metrics()
	baseline := y + metrics.Ascent.Round()
	d.Dot = fixed.P(x, baseline)
	d.DrawString(text)

	w := d.MeasureString(text).Round()
	h := metrics.Ascent.Round() + metrics.Descent.Round()
	return image.Rect(x, y, x+w, y+h)
}

// textWidth measures the horizontal advance of text in pixels.
func textWidth(face font.Face, text string) int {
	return (&font.Drawer{Face: face}).MeasureString(text).Round()
}

// faceHeight is the ascent plus descent of a face in pixels.
func faceHeight(face font.Face) int {
	m := face.Metrics()
	return m.Ascent.Round() + m.Descent.Round()
}

// fillRectRGBA paints an axis-aligned rectangle, clipped to the image.
func fillRectRGBA(img *image.RGBA, x, y, w, h int, c color.Color) {
	r, g, b, a := c.RGBA()
	col := color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
	rect := image.Rect(x, y, x+w, y+h).Intersect(img.Bounds())
	for yy := rect.Min.Y; yy < rect.Max.Y; yy++ {
		for xx := rect.Min.X; xx < rect.Max.X; xx++ {
			img.SetRGBA(xx, yy, col)
		}
	}
}

// clearFrame resets every pixel to opaque black.
func clearFrame(img *image.RGBA) {
	pix := img.Pix
	for i := 0; i < len(pix); i += 4 {
		pix[i] = 0
		pix[i+1] = 0
		pix[i+2] = 0
		pix[i+3] = 255
	}
}

// Canvas is a deferred surface: draws accumulate in an off-screen buffer
// and reach the panel only through Flush, as one block transfer. The panel
// never sees a half-drawn region.
type Canvas struct {
	img    *image.RGBA
	origin image.Point
	panel  Panel
}

// NewCanvas wraps an allocated buffer destined for a fixed panel origin.
func NewCanvas(img *image.RGBA, origin image.Point, panel Panel) *Canvas {
	return &Canvas{img: img, origin: origin, panel: panel}
}

func (c *Canvas) FillRect(x, y, w, h int, clr color.Color) {
	fillRectRGBA(c.img, x, y, w, h, clr)
}

func (c *Canvas) DrawText(text string, x, y int, face font.Face, clr color.Color) {
	drawTextInto(c.img, text, x, y, face, clr)
}

func (c *Canvas) DrawImage(img *image.RGBA, x, y int) {
	compositeAt(c.img, img, x, y)
}

func (c *Canvas) Bounds() image.Rectangle { return c.img.Bounds() }

// Clear repaints the whole buffer with the background color.
func (c *Canvas) Clear() { clearFrame(c.img) }

// Flush pushes the composed buffer to the panel.
func (c *Canvas) Flush() error {
	return c.panel.Blit(c.origin.X, c.origin.Y, c.img)
}

// Image exposes the backing buffer for frame composition.
func (c *Canvas) Image() *image.RGBA { return c.img }

// directSurface draws straight through to the panel: each primitive paints
// a shadow buffer and immediately transfers the touched rectangle. Used
// when buffer allocation failed for a region.
type directSurface struct {
	shadow *image.RGBA
	origin image.Point
	panel  Panel
}

func newDirectSurface(w, h int, origin image.Point, panel Panel) *directSurface {
	s := &directSurface{
		shadow: image.NewRGBA(image.Rect(0, 0, w, h)),
		origin: origin,
		panel:  panel,
	}
	clearFrame(s.shadow)
	return s
}

func (s *directSurface) FillRect(x, y, w, h int, clr color.Color) {
	fillRectRGBA(s.shadow, x, y, w, h, clr)
	s.push(image.Rect(x, y, x+w, y+h))
}

func (s *directSurface) DrawText(text string, x, y int, face font.Face, clr color.Color) {
	r := drawTextInto(s.shadow, text, x, y, face, clr)
	s.push(r)
}

func (s *directSurface) DrawImage(img *image.RGBA, x, y int) {
	compositeAt(s.shadow, img, x, y)
	b := img.Bounds()
	s.push(image.Rect(x, y, x+b.Dx(), y+b.Dy()))
}

func (s *directSurface) Bounds() image.Rectangle { return s.shadow.Bounds() }

func (s *directSurface) push(r image.Rectangle) {
	r = r.Intersect(s.shadow.Bounds())
	if r.Empty() {
		return
	}
	sub := s.shadow.SubImage(r).(*image.RGBA)
	// Panel transfer errors are transient SPI hiccups; the next paint of
	// this region repairs the pixels.
	_ = s.panel.Blit(s.origin.X+r.Min.X, s.origin.Y+r.Min.Y, sub)
}

// Image exposes the shadow buffer for frame composition.
func (s *directSurface) Image() *image.RGBA { return s.shadow }
