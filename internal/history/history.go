// Package history keeps a rolling window of power readings for the
// diagnostics sparkline.
package history

import (
	"encoding/json"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Point is one recorded reading.
type Point struct {
	Timestamp time.Time `json:"timestamp"`
	Watts     float64   `json:"watts"`
}

// Log is a bounded ring of readings, safe for one writer (the render loop)
// and concurrent readers (the web server).
type Log struct {
	mu     sync.RWMutex
	points []Point
	max    int
	path   string
}

// NewLog opens (or starts) a history file. max bounds the window; a zero
// or negative value defaults to 900 points.
func NewLog(path string, max int) *Log {
	if max <= 0 {
		max = 900
	}
	l := &Log{
		points: make([]Point, 0, max),
		max:    max,
		path:   path,
	}
	l.load()
	return l
}

// Record appends a reading, evicting the oldest when full.
func (l *Log) Record(watts float64, at time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.points) >= l.max {
		l.points = l.points[1:]
	}
	l.points = append(l.points, Point{Timestamp: at, Watts: watts})
}

// Len returns the number of stored points.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.points)
}

// Save persists the window to disk. Best effort: a read-only filesystem
// just costs the history across restarts.
func (l *Log) Save() error {
	if l.path == "" {
		return nil
	}
	l.mu.RLock()
	data, err := json.Marshal(l.points)
	l.mu.RUnlock()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0o644)
}

func (l *Log) load() {
	if l.path == "" {
		return
	}
	data, err := os.ReadFile(l.path)
	if err != nil {
		return
	}
	var pts []Point
	if err := json.Unmarshal(data, &pts); err != nil {
		log.Warn().Err(err).Str("path", l.path).Msg("discarding corrupt history file")
		return
	}
	if len(pts) > l.max {
		pts = pts[len(pts)-l.max:]
	}
	l.points = pts
}

// RenderGraph draws the recorded window as a sparkline.
func (l *Log) RenderGraph(w, h int) *image.RGBA {
	l.mu.RLock()
	pts := make([]Point, len(l.points))
	copy(pts, l.points)
	l.mu.RUnlock()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	bg := color.RGBA{0, 0, 0, 255}
	fg := color.RGBA{70, 235, 145, 255}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, bg)
		}
	}
	if len(pts) < 2 {
		return img
	}

	minW, maxW := pts[0].Watts, pts[0].Watts
	for _, p := range pts {
		if p.Watts < minW {
			minW = p.Watts
		}
		if p.Watts > maxW {
			maxW = p.Watts
		}
	}
	span := maxW - minW
	if span <= 0 {
		span = 1
	}

	prevY := -1
	for x := 0; x < w; x++ {
		idx := x * (len(pts) - 1) / (w - 1)
		v := (pts[idx].Watts - minW) / span
		y := h - 1 - int(v*float64(h-1))
		if prevY < 0 {
			prevY = y
		}
		lo, hi := y, prevY
		if lo > hi {
			lo, hi = hi, lo
		}
		for yy := lo; yy <= hi; yy++ {
			img.SetRGBA(x, yy, fg)
		}
		prevY = y
	}
	return img
}
