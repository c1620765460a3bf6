// Package render owns the screen: off-screen buffers, per-field change
// detection and the fixed energy-monitor layout.
package render

import (
	"image"
	"image/color"
	"math"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/fox-energy/powermon/internal/meter"
)

// Layout constants for the 320x240 landscape panel. Widths scale with the
// panel; heights are fixed.
const (
	statusBarHeight = 40
	statusVPad      = 20 // gap between separator line and main area
	timeLeftX       = 5
	timeSegmentW    = 28 // fixed slot per HH/MM/SS segment
	timeSeparatorW  = 8
	wifiRightPad    = 5
	tempWifiGap     = 8
	unitGapPx       = 6
)

var (
	colBlack   = color.RGBA{0, 0, 0, 255}
	colWhite   = color.RGBA{255, 255, 255, 255}
	colDimmed  = color.RGBA{66, 66, 74, 255}
	colGreen   = color.RGBA{0, 255, 0, 255}
	colYellow  = color.RGBA{255, 255, 0, 255}
	colOrange  = color.RGBA{255, 165, 0, 255}
	colRed     = color.RGBA{255, 0, 0, 255}
	colCyan    = color.RGBA{0, 255, 255, 255}
	colMagenta = color.RGBA{255, 0, 255, 255}
)

func powerColor(c PowerClass) color.RGBA {
	switch c {
	case PowerNormal:
		return colGreen
	case PowerMedium:
		return colYellow
	case PowerHigh:
		return colOrange
	default:
		return colRed
	}
}

func tempColor(c TempClass) color.RGBA {
	switch c {
	case TempGreen:
		return colGreen
	case TempYellow:
		return colYellow
	case TempOrange:
		return colOrange
	default:
		return colRed
	}
}

// BufferAlloc allocates a pixel buffer, returning nil when memory is not
// available. Replaceable for tests.
type BufferAlloc func(w, h int) *image.RGBA

func defaultAlloc(w, h int) *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, w, h))
}

// Options tunes a Manager.
type Options struct {
	Thresholds   Thresholds
	PowerDelta   float64 // W, below this a power change is noise
	CurrentDelta float64 // A
	Alloc        BufferAlloc
}

// Manager renders the fixed layout: a status strip (time, temperature,
// signal) and a main area (power, voltage, current). Each region draws
// through an off-screen buffer when one could be allocated at startup, and
// falls back to direct panel drawing for the rest of the process when not.
type Manager struct {
	mu    sync.RWMutex
	panel Panel
	faces Faces
	th    Thresholds

	powerDelta   float64
	currentDelta float64

	width, height int
	mainTop       int
	mainH         int
	powerAreaH    int

	statusSurf   Surface
	statusCanvas *Canvas // nil in direct mode
	statusImg    *image.RGBA
	mainSurf     Surface
	mainCanvas   *Canvas
	mainImg      *image.RGBA

	icons *iconCache
	state *state
}

// NewManager allocates the region buffers and chooses a draw target per
// region. The smaller status strip is allocated first so that when memory
// runs out the continuously-moving strip still gets buffering. A failed
// allocation is permanent: fragmentation only worsens over a long-running
// process, so no later code path retries it.
func NewManager(panel Panel, faces Faces, opts Options) *Manager {
	alloc := opts.Alloc
	if alloc == nil {
		alloc = defaultAlloc
	}
	if opts.PowerDelta <= 0 {
		opts.PowerDelta = 0.5
	}
	if opts.CurrentDelta <= 0 {
		opts.CurrentDelta = 0.05
	}

	w, h := panel.Size()
	m := &Manager{
		panel:        panel,
		faces:        faces,
		th:           opts.Thresholds,
		powerDelta:   opts.PowerDelta,
		currentDelta: opts.CurrentDelta,
		width:        w,
		height:       h,
		mainTop:      statusBarHeight + 1 + statusVPad,
		icons:        newIconCache(),
		state:        newState(),
	}
	m.mainH = h - m.mainTop
	m.powerAreaH = m.mainH * 3 / 5

	if img := alloc(w, statusBarHeight); img != nil && len(img.Pix) > 0 {
		clearFrame(img)
		c := NewCanvas(img, image.Point{}, panel)
		m.statusCanvas = c
		m.statusSurf = c
		m.statusImg = img
		log.Info().Int("w", w).Int("h", statusBarHeight).Msg("status buffer allocated")
	} else {
		d := newDirectSurface(w, statusBarHeight, image.Point{}, panel)
		m.statusSurf = d
		m.statusImg = d.Image()
		log.Warn().Msg("status buffer allocation failed, using direct rendering")
	}

	if img := alloc(w, m.mainH); img != nil && len(img.Pix) > 0 {
		clearFrame(img)
		c := NewCanvas(img, image.Pt(0, m.mainTop), panel)
		m.mainCanvas = c
		m.mainSurf = c
		m.mainImg = img
		log.Info().Int("w", w).Int("h", m.mainH).Msg("main buffer allocated")
	} else {
		d := newDirectSurface(w, m.mainH, image.Pt(0, m.mainTop), panel)
		m.mainSurf = d
		m.mainImg = d.Image()
		log.Warn().Msg("main buffer allocation failed, using direct rendering")
	}

	return m
}

// StatusBuffered reports whether the status strip draws through a buffer.
func (m *Manager) StatusBuffered() bool { return m.statusCanvas != nil }

// MainBuffered reports whether the main area draws through a buffer.
func (m *Manager) MainBuffered() bool { return m.mainCanvas != nil }

// InitScreen paints the static chrome, black background and the separator
// line under the status strip, and discards the previous-frame memo so the
// next draws repaint every field. Called at startup and after a reconnect
// or an advisory overlay, when the on-screen content can no longer be
// trusted.
func (m *Manager) InitScreen() {
	m.mu.Lock()
	defer m.mu.Unlock()

	bg := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	clearFrame(bg)
	fillRectRGBA(bg, 0, statusBarHeight, m.width, 1, colDimmed)
	if err := m.panel.Blit(0, 0, bg); err != nil {
		log.Warn().Err(err).Msg("chrome blit failed")
	}
	if m.statusCanvas != nil {
		m.statusCanvas.Clear()
	}
	if m.mainCanvas != nil {
		m.mainCanvas.Clear()
	}
	m.state.reset()
}

// DrawStatusBar refreshes the strip. Buffered mode repaints the whole tile
// and flushes it in one transfer; direct mode repaints only fields whose
// value or bucket changed.
func (m *Manager) DrawStatusBar(st Status, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	level := SignalLevel(st.RSSI)
	rounded := int(math.Round(st.TempC))
	tClass := ClassifyTemperature(st.TempC, m.th)

	timeChanged := st.Hours != m.state.hours ||
		st.Minutes != m.state.minutes ||
		st.Seconds != m.state.seconds
	rssiChanged := level != m.state.signalLevel
	tempChanged := rounded != m.state.tempRounded || tClass != m.state.tempClass

	buffered := m.statusCanvas != nil
	// A buffered tile is cleared before every flush, so its content must be
	// repainted in full each cycle.
	effForce := force || buffered

	if !rssiChanged && !tempChanged && !timeChanged && !effForce {
		return
	}

	if buffered {
		m.statusCanvas.Clear()
	}

	if rssiChanged || effForce {
		m.drawSignal(level)
		m.state.signalLevel = level
	}
	if tempChanged || effForce {
		m.drawTemperature(st.TempC, rounded, tClass)
		m.state.tempRounded = rounded
		m.state.tempClass = tClass
	}
	if timeChanged || effForce {
		m.drawTime(st, effForce)
		m.state.hours = st.Hours
		m.state.minutes = st.Minutes
		m.state.seconds = st.Seconds
	}

	if buffered {
		if err := m.statusCanvas.Flush(); err != nil {
			log.Warn().Err(err).Msg("status flush failed")
		}
	}
}

// DrawMainArea refreshes power, voltage and current.
func (m *Manager) DrawMainArea(s meter.Sample, force bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	buffered := m.mainCanvas != nil
	effForce := force || buffered

	if buffered {
		m.mainCanvas.Clear()
	}

	m.drawPower(s.ActivePower, effForce)
	m.drawVoltageCurrent(s.Voltage, s.Current, effForce)

	if buffered {
		if err := m.mainCanvas.Flush(); err != nil {
			log.Warn().Err(err).Msg("main flush failed")
		}
	}
}

func (m *Manager) drawSignal(level int) {
	x := m.width - signalIconWidth - wifiRightPad
	y := (statusBarHeight - signalIconHeight) / 2
	m.statusSurf.FillRect(x, y, signalIconWidth, signalIconHeight, colBlack)
	icon, err := m.icons.signalIcon(level)
	if err != nil {
		log.Warn().Err(err).Int("level", level).Msg("signal icon unavailable")
		return
	}
	m.statusSurf.DrawImage(icon, x, y)
}

func (m *Manager) drawTemperature(tempC float64, rounded int, class TempClass) {
	text := FormatTemperature(tempC)
	face := m.faces.Status
	w := textWidth(face, text)
	h := faceHeight(face)
	rightX := m.width - signalIconWidth - wifiRightPad - tempWifiGap
	x := rightX - w
	y := (statusBarHeight - h) / 2
	newRect := image.Rect(x, y, x+w, y+h)

	erase := m.state.tempRect.Union(newRect)
	if !erase.Empty() {
		m.statusSurf.FillRect(erase.Min.X, erase.Min.Y, erase.Dx(), erase.Dy(), colBlack)
	}
	m.statusSurf.DrawText(text, x, y, face, tempColor(class))
	m.state.tempRect = newRect
}

func (m *Manager) drawTime(st Status, force bool) {
	x := timeLeftX

	m.drawTimeSegment(st.Hours, m.state.hours, x, force)
	x += timeSegmentW
	m.drawTimeSeparator(x, force)
	x += timeSeparatorW
	m.drawTimeSegment(st.Minutes, m.state.minutes, x, force)
	x += timeSegmentW
	m.drawTimeSeparator(x, force)
	x += timeSeparatorW
	m.drawTimeSegment(st.Seconds, m.state.seconds, x, force)
}

// drawTimeSegment paints one HH/MM/SS slot. Text is right-aligned inside a
// fixed-width slot so digit-width changes never shift the neighbors.
func (m *Manager) drawTimeSegment(text, prev string, x int, force bool) {
	if text == prev && !force {
		return
	}
	face := m.faces.Status
	m.statusSurf.FillRect(x, 0, timeSegmentW, statusBarHeight, colBlack)
	tx := x + timeSegmentW - textWidth(face, text)
	ty := (statusBarHeight - faceHeight(face)) / 2
	m.statusSurf.DrawText(text, tx, ty, face, colWhite)
}

// Separators are static; they are painted only on a full redraw.
func (m *Manager) drawTimeSeparator(x int, force bool) {
	if !force {
		return
	}
	face := m.faces.Status
	ty := (statusBarHeight - faceHeight(face)) / 2
	m.statusSurf.DrawText(":", x, ty, face, colWhite)
}

func (m *Manager) drawPower(watts float64, force bool) {
	class := ClassifyPower(watts, m.th)
	valueChanged := math.Abs(watts-m.state.sample.ActivePower) > m.powerDelta
	classChanged := class != m.state.powerClass
	if !valueChanged && !classChanged && !force {
		return
	}

	value, unit := FormatPower(watts)
	vFace, uFace := m.faces.Value, m.faces.Unit
	vw := textWidth(vFace, value)
	vh := faceHeight(vFace)
	uw := textWidth(uFace, unit)
	uh := faceHeight(uFace)

	total := vw + unitGapPx + uw
	startX := (m.width - total) / 2
	startY := (m.powerAreaH - vh) / 2
	newRect := image.Rect(startX, startY, startX+total, startY+vh)

	erase := m.state.powerRect.Union(newRect)
	if !erase.Empty() {
		m.mainSurf.FillRect(erase.Min.X, erase.Min.Y, erase.Dx(), erase.Dy(), colBlack)
	}

	clr := powerColor(class)
	m.mainSurf.DrawText(value, startX, startY, vFace, clr)
	unitY := startY + (vh - uh) - vh/10
	m.mainSurf.DrawText(unit, startX+vw+unitGapPx, unitY, uFace, clr)

	m.state.sample.ActivePower = watts
	m.state.powerClass = class
	m.state.powerRect = newRect
}

func (m *Manager) drawVoltageCurrent(v, c float64, force bool) {
	face := m.faces.Status
	vRounded := int(math.Round(v))
	vChanged := vRounded != m.state.voltRounded
	cChanged := math.Abs(c-m.state.currValue) > m.currentDelta

	if !vChanged && !cChanged && !force {
		return
	}

	halfW := m.width / 2
	areaY := m.powerAreaH
	areaH := m.mainH - m.powerAreaH
	h := faceHeight(face)

	if vChanged || force {
		text := FormatVoltage(v)
		w := textWidth(face, text)
		x := (halfW - w) / 2
		y := areaY + (areaH-h)/2
		newRect := image.Rect(x, y, x+w, y+h)
		erase := m.state.voltRect.Union(newRect)
		if !erase.Empty() {
			m.mainSurf.FillRect(erase.Min.X, erase.Min.Y, erase.Dx(), erase.Dy(), colBlack)
		}
		m.mainSurf.DrawText(text, x, y, face, colCyan)
		m.state.voltRounded = vRounded
		m.state.sample.Voltage = v
		m.state.voltRect = newRect
	}

	if cChanged || force {
		text := FormatCurrent(c)
		w := textWidth(face, text)
		x := halfW + (halfW-w)/2
		y := areaY + (areaH-h)/2
		newRect := image.Rect(x, y, x+w, y+h)
		erase := m.state.currRect.Union(newRect)
		if !erase.Empty() {
			m.mainSurf.FillRect(erase.Min.X, erase.Min.Y, erase.Dx(), erase.Dy(), colBlack)
		}
		m.mainSurf.DrawText(text, x, y, face, colMagenta)
		m.state.currValue = c
		m.state.sample.Current = c
		m.state.currRect = newRect
	}
}

// DrawFullScreenMessage replaces the whole screen with an advisory panel.
// The previous-frame memo is discarded: whatever was on screen is gone.
func (m *Manager) DrawFullScreenMessage(lines ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	frame := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	clearFrame(frame)

	face := m.faces.Status
	lineH := faceHeight(face) + 6
	maxW := 0
	for _, l := range lines {
		if w := textWidth(face, l); w > maxW {
			maxW = w
		}
	}
	boxW := float64(maxW + 40)
	boxH := float64(lineH*len(lines) + 30)
	boxX := (float64(m.width) - boxW) / 2
	boxY := (float64(m.height) - boxH) / 2
	drawAdvisoryBox(frame, boxX, boxY, boxW, boxH, colDimmed)

	y := int(boxY) + 15
	for _, l := range lines {
		x := (m.width - textWidth(face, l)) / 2
		drawTextInto(frame, l, x, y, face, colWhite)
		y += lineH
	}

	if err := m.panel.Blit(0, 0, frame); err != nil {
		log.Warn().Err(err).Msg("advisory blit failed")
	}
	m.state.reset()
}

// ComposeFrame assembles the current screen content into a single image
// for the diagnostics server.
func (m *Manager) ComposeFrame() *image.RGBA {
	m.mu.RLock()
	defer m.mu.RUnlock()

	frame := image.NewRGBA(image.Rect(0, 0, m.width, m.height))
	clearFrame(frame)
	compositeAt(frame, m.statusImg, 0, 0)
	fillRectRGBA(frame, 0, statusBarHeight, m.width, 1, colDimmed)
	compositeAt(frame, m.mainImg, 0, m.mainTop)
	return frame
}
