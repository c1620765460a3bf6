package render

import (
	"image"
	"image/color"
	"time"

	"github.com/rs/zerolog/log"
)

const startupStripHeight = 60

// grayRGBA maps a 0..255 gray value to an opaque color.
func grayRGBA(g int) color.RGBA {
	if g < 0 {
		g = 0
	}
	if g > 255 {
		g = 255
	}
	v := uint8(g)
	return color.RGBA{v, v, v, 255}
}

// PlayStartupAnimation fades the panel black -> white, shows the boot
// text, then fades back to black. The screen is rendered in horizontal
// strips through one rolling buffer so no frame is ever half-painted. If
// the strip cannot be allocated the sequence degrades to plain fills.
func (m *Manager) PlayStartupAnimation(alloc BufferAlloc, sleep func(time.Duration)) {
	if alloc == nil {
		alloc = defaultAlloc
	}
	if sleep == nil {
		sleep = time.Sleep
	}

	const title = "FOX ENERGY"
	const subtitle = "Power Monitor"

	titleW := textWidth(m.faces.Value, title)
	titleH := faceHeight(m.faces.Value)
	subW := textWidth(m.faces.Status, subtitle)
	titleX := (m.width - titleW) / 2
	titleY := m.height/2 - titleH
	subX := (m.width - subW) / 2
	subY := titleY + titleH + 15

	strip := alloc(m.width, startupStripHeight)
	if strip == nil || len(strip.Pix) == 0 {
		log.Warn().Msg("strip buffer allocation failed, plain startup screen")
		m.blitUniform(colBlack)
		sleep(500 * time.Millisecond)
		frame := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
		fillRectRGBA(frame, 0, 0, m.width, m.height, colWhite)
		drawTextInto(frame, title, titleX, titleY, m.faces.Value, colBlack)
		drawTextInto(frame, subtitle, subX, subY, m.faces.Status, colBlack)
		_ = m.panel.Blit(0, 0, frame)
		sleep(1500 * time.Millisecond)
		m.blitUniform(colBlack)
		return
	}

	draw := func(bg, text color.RGBA, showText bool) {
		m.drawStartupFrame(strip, bg, text, showText, title, subtitle, titleX, titleY, subX, subY)
	}

	draw(colBlack, colBlack, false)
	sleep(300 * time.Millisecond)

	for g := 0; g <= 255; g += 20 {
		c := grayRGBA(g)
		draw(c, c, false)
		sleep(25 * time.Millisecond)
	}

	draw(colWhite, colBlack, true)
	sleep(1500 * time.Millisecond)

	for g := 255; g >= 0; g -= 20 {
		draw(grayRGBA(g), grayRGBA(g-80), g > 30)
		sleep(30 * time.Millisecond)
	}

	draw(colBlack, colBlack, false)
	sleep(100 * time.Millisecond)
}

// drawStartupFrame renders one full-screen frame strip by strip.
func (m *Manager) drawStartupFrame(strip *image.RGBA, bg, textColor color.RGBA, showText bool,
	title, subtitle string, titleX, titleY, subX, subY int) {

	stripH := strip.Bounds().Dy()
	titleH := faceHeight(m.faces.Value)
	subH := faceHeight(m.faces.Status)

	for stripY := 0; stripY < m.height; stripY += stripH {
		curH := stripH
		if stripY+curH > m.height {
			curH = m.height - stripY
		}
		fillRectRGBA(strip, 0, 0, m.width, stripH, bg)

		if showText {
			if titleY < stripY+curH && titleY+titleH > stripY {
				drawTextInto(strip, title, titleX, titleY-stripY, m.faces.Value, textColor)
			}
			if subY < stripY+curH && subY+subH > stripY {
				drawTextInto(strip, subtitle, subX, subY-stripY, m.faces.Status, textColor)
			}
		}

		part := strip
		if curH < stripH {
			part = strip.SubImage(image.Rect(0, 0, m.width, curH)).(*image.RGBA)
		}
		_ = m.panel.Blit(0, stripY, part)
	}
}

func (m *Manager) blitUniform(c color.RGBA) {
	frame := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	fillRectRGBA(frame, 0, 0, m.width, m.height, c)
	_ = m.panel.Blit(0, 0, frame)
}
