// Package app coordinates the per-tick refresh: what to fetch, whether to
// force a full redraw, and which recovery path runs on failure.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/fox-energy/powermon/internal/meter"
	"github.com/fox-energy/powermon/internal/netmon"
	"github.com/fox-energy/powermon/internal/render"
)

// phase is the orchestrator state. initial forces the first full frame,
// steady diffs per field, errored keeps the last good main area on screen
// while the status strip stays live.
type phase int

const (
	phaseInitial phase = iota
	phaseSteady
	phaseError
)

func (p phase) String() string {
	switch p {
	case phaseInitial:
		return "initial"
	case phaseSteady:
		return "steady"
	case phaseError:
		return "error"
	}
	return "unknown"
}

// MetricSource delivers samples on demand.
type MetricSource interface {
	Fetch(ctx context.Context) (meter.Sample, error)
	ConsecutiveFailures() int
	ResetFailures()
}

// Link is the connectivity boundary.
type Link interface {
	IsConnected() bool
	SignalStrength() int
	Reconnect() (bool, error)
}

// Display is the rendering boundary.
type Display interface {
	DrawStatusBar(st render.Status, force bool)
	DrawMainArea(s meter.Sample, force bool)
	DrawFullScreenMessage(lines ...string)
	InitScreen()
}

// Recorder receives every accepted power reading.
type Recorder interface {
	Record(watts float64, at time.Time)
}

// Options wires an Orchestrator.
type Options struct {
	Meter        MetricSource
	Link         Link
	Display      Display
	ReadTemp     func() (float64, error)
	Recorder     Recorder // optional
	Clock        func() time.Time
	FetchTimeout time.Duration
	// FailureThreshold is the consecutive-failure count that triggers a
	// diagnostic log entry.
	FailureThreshold int
}

// Orchestrator owns the refresh state machine. All methods run on the
// single scheduler goroutine; the diagnostics snapshot is the only value
// read from elsewhere and is guarded separately.
type Orchestrator struct {
	meter    MetricSource
	link     Link
	disp     Display
	readTemp func() (float64, error)
	recorder Recorder
	now      func() time.Time

	fetchTimeout     time.Duration
	failureThreshold int

	phase         phase
	forceStatus   bool
	advisoryShown bool
	lastTemp      float64
	lastSample    meter.Sample
	haveSample    bool

	redrawReq atomic.Bool

	diagMu sync.RWMutex
	diag   Diagnostics
}

// Diagnostics is the snapshot served by the web endpoint.
type Diagnostics struct {
	Phase               string       `json:"phase"`
	ConsecutiveFailures int          `json:"consecutive_failures"`
	LastSample          meter.Sample `json:"last_sample"`
	HaveSample          bool         `json:"have_sample"`
	RSSI                int          `json:"rssi_dbm"`
	TempC               float64      `json:"temp_c"`
}

// New builds an orchestrator in the initial phase.
func New(opts Options) *Orchestrator {
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 4 * time.Second
	}
	if opts.FailureThreshold <= 0 {
		opts.FailureThreshold = 5
	}
	return &Orchestrator{
		meter:            opts.Meter,
		link:             opts.Link,
		disp:             opts.Display,
		readTemp:         opts.ReadTemp,
		recorder:         opts.Recorder,
		now:              opts.Clock,
		fetchTimeout:     opts.FetchTimeout,
		failureThreshold: opts.FailureThreshold,
		phase:            phaseInitial,
		forceStatus:      true,
	}
}

// TickStatus refreshes the status strip. It runs on the fast cadence and
// keeps running through data errors and reconnects so the device visibly
// stays alive.
func (o *Orchestrator) TickStatus(now time.Time) {
	if temp, err := o.readTemp(); err == nil {
		o.lastTemp = temp
	} else {
		log.Debug().Err(err).Msg("temperature read failed")
	}

	rssi := o.link.SignalStrength()
	st := render.Status{
		TempC: o.lastTemp,
		RSSI:  rssi,
	}
	st.Hours, st.Minutes, st.Seconds = clockSegments(now)

	force := o.forceStatus
	o.forceStatus = false
	o.disp.DrawStatusBar(st, force)
	o.publishDiag(rssi)
}

// clockSegments splits the wall clock into zero-padded segments. Before
// the clock is synced (year still at epoch default) placeholders render.
func clockSegments(now time.Time) (hh, mm, ss string) {
	if now.Year() < 2024 {
		return "--", "--", "--"
	}
	return fmt.Sprintf("%02d", now.Hour()),
		fmt.Sprintf("%02d", now.Minute()),
		fmt.Sprintf("%02d", now.Second())
}

// TickMetrics runs on the slow cadence: check connectivity, fetch a
// sample, classify failures and render the main area.
func (o *Orchestrator) TickMetrics(now time.Time) {
	if !o.link.IsConnected() {
		o.onLinkDown()
		return
	}

	recovered := o.advisoryShown
	if recovered {
		// Link is back; the advisory overlay is stale.
		o.advisoryShown = false
		o.meter.ResetFailures()
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.fetchTimeout)
	sample, err := o.meter.Fetch(ctx)
	cancel()

	if err != nil {
		o.onFetchError(err, recovered)
		return
	}

	forced := o.redrawReq.Swap(false)
	wasDown := o.phase != phaseSteady || recovered || forced
	o.phase = phaseSteady
	if wasDown {
		// Exactly one full redraw after initial frame or recovery: the
		// on-screen content may be stale relative to whatever was shown.
		o.disp.InitScreen()
		o.forceStatus = true
	}
	o.disp.DrawMainArea(sample, wasDown)

	o.lastSample = sample
	o.haveSample = true
	if o.recorder != nil {
		o.recorder.Record(sample.ActivePower, now)
	}
}

func (o *Orchestrator) onLinkDown() {
	o.phase = phaseError
	if !o.advisoryShown {
		o.disp.DrawFullScreenMessage("WiFi connection lost", "Reconnecting...")
		o.advisoryShown = true
	}

	ok, err := o.link.Reconnect()
	switch {
	case ok:
		// Recovery finishes on the next metric tick, when fresh data
		// confirms the link carries traffic again.
		log.Info().Msg("connectivity restored")
	case errors.Is(err, netmon.ErrLinkFailed):
		log.Error().Msg("reconnect attempt budget exhausted")
		o.disp.DrawFullScreenMessage("WiFi connection failed", "Check network and power cycle")
	case err != nil:
		log.Warn().Err(err).Msg("reconnect failed")
	}
}

func (o *Orchestrator) onFetchError(err error, recovered bool) {
	if o.phase == phaseSteady {
		o.phase = phaseError
	}
	if recovered {
		// The advisory was just cleared but there is no data yet; put the
		// last good frame back instead of leaving the overlay remnants.
		o.disp.InitScreen()
		o.forceStatus = true
		if o.haveSample {
			o.disp.DrawMainArea(o.lastSample, true)
		}
	}

	var fe *meter.FetchError
	ev := log.Warn()
	if errors.As(err, &fe) {
		ev = ev.Str("kind", fe.Kind.String())
	}
	ev.Err(err).Msg("metric fetch failed, keeping last good values")

	if n := o.meter.ConsecutiveFailures(); n > 0 && n%o.failureThreshold == 0 {
		log.Error().Int("consecutive_failures", n).Msg("metric source persistently failing")
	}
}

// ForceRedraw requests a full repaint on the next successful metric tick.
// Unlike the tick methods it is safe to call from other goroutines.
func (o *Orchestrator) ForceRedraw() {
	o.redrawReq.Store(true)
}

func (o *Orchestrator) publishDiag(rssi int) {
	o.diagMu.Lock()
	o.diag = Diagnostics{
		Phase:               o.phase.String(),
		ConsecutiveFailures: o.meter.ConsecutiveFailures(),
		LastSample:          o.lastSample,
		HaveSample:          o.haveSample,
		RSSI:                rssi,
		TempC:               o.lastTemp,
	}
	o.diagMu.Unlock()
}

// Snapshot returns the latest diagnostics; safe from other goroutines.
func (o *Orchestrator) Snapshot() Diagnostics {
	o.diagMu.RLock()
	defer o.diagMu.RUnlock()
	return o.diag
}
