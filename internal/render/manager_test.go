package render

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fox-energy/powermon/internal/meter"
)

type blitRec struct {
	x, y, w, h int
}

// fakePanel records every block transfer instead of talking to hardware.
type fakePanel struct {
	w, h  int
	blits []blitRec
}

func (p *fakePanel) Blit(x, y int, img *image.RGBA) error {
	b := img.Bounds()
	p.blits = append(p.blits, blitRec{x, y, b.Dx(), b.Dy()})
	return nil
}

func (p *fakePanel) Size() (int, int) { return p.w, p.h }

func (p *fakePanel) reset() { p.blits = nil }

func failAlloc(w, h int) *image.RGBA { return nil }

func testFaces(t *testing.T) Faces {
	t.Helper()
	faces, err := LoadFaces("")
	require.NoError(t, err)
	return faces
}

func newDirectManager(t *testing.T) (*Manager, *fakePanel) {
	t.Helper()
	panel := &fakePanel{w: 320, h: 240}
	m := NewManager(panel, testFaces(t), Options{
		Thresholds: DefaultThresholds(),
		Alloc:      failAlloc,
	})
	require.False(t, m.StatusBuffered())
	require.False(t, m.MainBuffered())
	return m, panel
}

func TestAllocFailureIsPermanent(t *testing.T) {
	m, _ := newDirectManager(t)

	// No later call re-attempts allocation: the mode is fixed at startup.
	m.InitScreen()
	m.DrawMainArea(meter.Sample{Voltage: 230, Current: 1, ActivePower: 230}, true)
	assert.False(t, m.StatusBuffered())
	assert.False(t, m.MainBuffered())
}

func TestBufferedModeChosenWhenAllocSucceeds(t *testing.T) {
	panel := &fakePanel{w: 320, h: 240}
	m := NewManager(panel, testFaces(t), Options{Thresholds: DefaultThresholds()})
	assert.True(t, m.StatusBuffered())
	assert.True(t, m.MainBuffered())
}

func TestDirectModeSkipsUnchangedMainArea(t *testing.T) {
	m, panel := newDirectManager(t)
	sample := meter.Sample{Voltage: 230.2, Current: 4.31, ActivePower: 1200}

	m.DrawMainArea(sample, true)
	require.NotEmpty(t, panel.blits)

	panel.reset()
	m.DrawMainArea(sample, false)
	assert.Empty(t, panel.blits, "identical sample must not touch the panel")
}

func TestDirectModeIgnoresSubThresholdChanges(t *testing.T) {
	m, panel := newDirectManager(t)
	m.DrawMainArea(meter.Sample{Voltage: 230.2, Current: 4.31, ActivePower: 1200}, true)

	panel.reset()
	// Power within 0.5 W, current within 0.05 A, voltage rounding to the
	// same integer: all below the repaint deltas.
	m.DrawMainArea(meter.Sample{Voltage: 230.4, Current: 4.33, ActivePower: 1200.3}, false)
	assert.Empty(t, panel.blits)
}

func TestDirectModeRepaintsOnBucketChange(t *testing.T) {
	m, panel := newDirectManager(t)
	m.DrawMainArea(meter.Sample{Voltage: 230, Current: 6.5, ActivePower: 1499.9}, true)

	panel.reset()
	// Within the value delta would not matter, but the color bucket flips.
	m.DrawMainArea(meter.Sample{Voltage: 230, Current: 6.5, ActivePower: 1500.2}, false)
	assert.NotEmpty(t, panel.blits)
}

func TestSecondsChangeRepaintsOnlySecondsSlot(t *testing.T) {
	m, panel := newDirectManager(t)
	st := Status{TempC: 45, RSSI: -60, Hours: "12", Minutes: "30", Seconds: "07"}
	m.DrawStatusBar(st, true)

	panel.reset()
	st.Seconds = "08"
	m.DrawStatusBar(st, false)

	require.NotEmpty(t, panel.blits)
	slotX := timeLeftX + 2*timeSegmentW + 2*timeSeparatorW
	for _, b := range panel.blits {
		assert.GreaterOrEqual(t, b.x, slotX, "blit left of the seconds slot")
		assert.LessOrEqual(t, b.x+b.w, slotX+timeSegmentW, "blit right of the seconds slot")
		assert.Less(t, b.y+b.h, statusBarHeight+1, "blit below the status strip")
	}
}

func TestUnchangedStatusIsIdleInDirectMode(t *testing.T) {
	m, panel := newDirectManager(t)
	st := Status{TempC: 45, RSSI: -60, Hours: "12", Minutes: "30", Seconds: "07"}
	m.DrawStatusBar(st, true)

	panel.reset()
	m.DrawStatusBar(st, false)
	assert.Empty(t, panel.blits)

	// RSSI wobble inside the same bar bucket is not a change either.
	m.DrawStatusBar(Status{TempC: 45, RSSI: -58, Hours: "12", Minutes: "30", Seconds: "07"}, false)
	assert.Empty(t, panel.blits)
}

func TestBufferedStatusFlushesWholeTile(t *testing.T) {
	panel := &fakePanel{w: 320, h: 240}
	m := NewManager(panel, testFaces(t), Options{Thresholds: DefaultThresholds()})
	require.True(t, m.StatusBuffered())

	panel.reset()
	m.DrawStatusBar(Status{TempC: 45, RSSI: -60, Hours: "12", Minutes: "30", Seconds: "07"}, false)

	require.Len(t, panel.blits, 1)
	assert.Equal(t, blitRec{0, 0, 320, statusBarHeight}, panel.blits[0])
}

func TestBufferedMainAlwaysFlushesOnce(t *testing.T) {
	panel := &fakePanel{w: 320, h: 240}
	m := NewManager(panel, testFaces(t), Options{Thresholds: DefaultThresholds()})
	sample := meter.Sample{Voltage: 230, Current: 1, ActivePower: 230}

	m.DrawMainArea(sample, true)
	panel.reset()
	m.DrawMainArea(sample, false)

	// One transfer per cycle, unchanged data or not: the buffer is cleared
	// and recomposed every time.
	require.Len(t, panel.blits, 1)
	assert.Equal(t, 0, panel.blits[0].x)
}

func TestForceRepaintsEverything(t *testing.T) {
	m, panel := newDirectManager(t)
	st := Status{TempC: 45, RSSI: -60, Hours: "12", Minutes: "30", Seconds: "07"}
	m.DrawStatusBar(st, true)

	panel.reset()
	m.DrawStatusBar(st, true)
	// Signal icon, temperature and all three time slots repaint.
	assert.GreaterOrEqual(t, len(panel.blits), 5)
}

func TestInitScreenForcesNextPaint(t *testing.T) {
	m, panel := newDirectManager(t)
	sample := meter.Sample{Voltage: 230, Current: 1, ActivePower: 230}
	m.DrawMainArea(sample, true)

	m.InitScreen()
	panel.reset()
	m.DrawMainArea(sample, false)
	assert.NotEmpty(t, panel.blits, "memo was discarded, same values must repaint")
}

func TestComposeFrameDimensions(t *testing.T) {
	panel := &fakePanel{w: 320, h: 240}
	m := NewManager(panel, testFaces(t), Options{Thresholds: DefaultThresholds()})
	m.DrawStatusBar(Status{TempC: 45, RSSI: -60, Hours: "12", Minutes: "30", Seconds: "07"}, true)
	m.DrawMainArea(meter.Sample{Voltage: 230, Current: 1, ActivePower: 230}, true)

	frame := m.ComposeFrame()
	assert.Equal(t, 320, frame.Bounds().Dx())
	assert.Equal(t, 240, frame.Bounds().Dy())
}

func TestFullScreenMessageResetsMemo(t *testing.T) {
	m, panel := newDirectManager(t)
	sample := meter.Sample{Voltage: 230, Current: 1, ActivePower: 230}
	m.DrawMainArea(sample, true)

	m.DrawFullScreenMessage("WiFi connection lost", "Reconnecting...")
	panel.reset()
	m.DrawMainArea(sample, false)
	assert.NotEmpty(t, panel.blits)
}
