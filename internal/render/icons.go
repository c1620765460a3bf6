package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	svg "github.com/ajstarks/svgo"
	"github.com/llgcode/draw2d/draw2dimg"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// Signal icon geometry.
const (
	signalIconWidth  = 24
	signalIconHeight = 18
	signalBars       = 4
	signalBarWidth   = 4
	signalBarGap     = 2
)

// iconCache holds the rasterized signal icon per level. Five levels, five
// small bitmaps, rendered once.
type iconCache struct {
	levels map[int]*image.RGBA
}

func newIconCache() *iconCache {
	return &iconCache{levels: make(map[int]*image.RGBA)}
}

// signalIcon returns the bar icon for a signal level 0..4. Bars at or below
// the level are active, the rest dimmed.
func (ic *iconCache) signalIcon(level int) (*image.RGBA, error) {
	if level < 0 {
		level = 0
	}
	if level > signalBars {
		level = signalBars
	}
	if img, ok := ic.levels[level]; ok {
		return img, nil
	}

	var buf bytes.Buffer
	canvas := svg.New(&buf)
	canvas.Start(signalIconWidth, signalIconHeight)
	for i := 0; i < signalBars; i++ {
		barH := signalIconHeight * (i + 1) / signalBars
		x := i * (signalBarWidth + signalBarGap)
		y := signalIconHeight - barH
		fill := hexColor(colDimmed)
		if level >= i+1 {
			fill = hexColor(colWhite)
		}
		canvas.Roundrect(x, y, signalBarWidth, barH, 1, 1, "fill:"+fill)
	}
	canvas.End()

	icon, err := oksvg.ReadIconStream(bytes.NewReader(buf.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("rendering signal icon: %w", err)
	}
	icon.SetTarget(0, 0, signalIconWidth, signalIconHeight)

	img := image.NewRGBA(image.Rect(0, 0, signalIconWidth, signalIconHeight))
	scanner := rasterx.NewScannerGV(signalIconWidth, signalIconHeight, img, img.Bounds())
	dasher := rasterx.NewDasher(signalIconWidth, signalIconHeight, scanner)
	icon.Draw(dasher, 1.0)

	ic.levels[level] = img
	return img, nil
}

func hexColor(c color.RGBA) string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// compositeAt copies src over dst at the given offset, honoring alpha.
func compositeAt(dst *image.RGBA, src *image.RGBA, x, y int) {
	r := src.Bounds()
	target := image.Rect(x, y, x+r.Dx(), y+r.Dy())
	draw.Draw(dst, target, src, r.Min, draw.Over)
}

// drawAdvisoryBox paints a rounded-rect panel for fullscreen messages.
func drawAdvisoryBox(img *image.RGBA, x, y, w, h float64, fill color.RGBA) {
	gc := draw2dimg.NewGraphicContext(img)
	gc.SetFillColor(fill)
	roundedRectPath(gc, x, y, w, h, 8)
	gc.Fill()
}

func roundedRectPath(gc *draw2dimg.GraphicContext, x, y, w, h, r float64) {
	gc.MoveTo(x+r, y)
	gc.LineTo(x+w-r, y)
	gc.ArcTo(x+w-r, y+r, r, r, -90, 90)
	gc.LineTo(x+w, y+h-r)
	gc.ArcTo(x+w-r, y+h-r, r, r, 0, 90)
	gc.LineTo(x+r, y+h)
	gc.ArcTo(x+r, y+h-r, r, r, 90, 90)
	gc.LineTo(x, y+r)
	gc.ArcTo(x+r, y+r, r, r, 180, 90)
	gc.Close()
}
