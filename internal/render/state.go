package render

import (
	"image"

	"github.com/fox-energy/powermon/internal/meter"
)

// Status is the status strip input: device temperature, link RSSI and the
// wall clock split into zero-padded segments so only the segment that
// changed repaints.
type Status struct {
	TempC   float64
	RSSI    int
	Hours   string
	Minutes string
	Seconds string
}

// state is the previous-frame memo used for change detection. It is owned
// by the Manager, mutated only after a successful paint, and never read
// outside the render loop.
type state struct {
	sample     meter.Sample
	powerClass PowerClass
	powerRect  image.Rectangle

	voltRounded int
	voltRect    image.Rectangle
	currValue   float64
	currRect    image.Rectangle

	tempRounded int
	tempClass   TempClass
	tempRect    image.Rectangle

	signalLevel int

	hours, minutes, seconds string
}

func newState() *state {
	s := &state{}
	s.reset()
	return s
}

// reset discards the memo; the next frame must repaint everything.
func (s *state) reset() {
	s.sample = meter.Sample{Voltage: -1, Current: -1, ActivePower: -1}
	s.powerClass = -1
	s.powerRect = image.Rectangle{}
	s.voltRounded = -1
	s.voltRect = image.Rectangle{}
	s.currValue = -1
	s.currRect = image.Rectangle{}
	s.tempRounded = -1000
	s.tempClass = -1
	s.tempRect = image.Rectangle{}
	s.signalLevel = -1
	s.hours = ""
	s.minutes = ""
	s.seconds = ""
}
