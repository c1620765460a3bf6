// Package netmon tracks wireless link health and performs reconnection
// with exponential backoff.
package netmon

import (
	"errors"
	"fmt"
	"os/exec"
	"time"

	"github.com/go-ping/ping"
	"github.com/rs/zerolog/log"
)

// LinkState is the current phase of the connection lifecycle.
type LinkState int

const (
	StateDisconnected LinkState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateFailed
)

func (s LinkState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// DisconnectedRSSI is the sentinel signal strength reported while the link
// is down.
const DisconnectedRSSI = -100

// ErrLinkFailed is returned once the attempt budget is exhausted. The
// caller decides whether that is terminal.
var ErrLinkFailed = errors.New("link recovery failed: attempt budget exhausted")

// Options configures a Monitor.
type Options struct {
	Interface   string
	ProbeHost   string
	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxAttempts int
}

// Monitor owns the reconnection state machine. It is used from the single
// render loop only.
type Monitor struct {
	opts Options

	state       LinkState
	attempts    int
	lastAttempt time.Time

	now     func() time.Time
	probe   func(host string) bool
	bringUp func(iface string) error
	rssi    func(iface string) (int, bool)
}

// New returns a monitor with the real probe, reconnect and RSSI readers.
func New(opts Options) *Monitor {
	if opts.BackoffBase <= 0 {
		opts.BackoffBase = time.Second
	}
	if opts.BackoffMax < opts.BackoffBase {
		opts.BackoffMax = 16 * time.Second
	}
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 3
	}
	return &Monitor{
		opts:    opts,
		state:   StateDisconnected,
		now:     time.Now,
		probe:   pingProbe,
		bringUp: bringUpInterface,
		rssi:    readWirelessDBM,
	}
}

// IsConnected probes the configured host with a short ICMP echo.
func (m *Monitor) IsConnected() bool {
	if m.probe(m.opts.ProbeHost) {
		m.state = StateConnected
		return true
	}
	if m.state == StateConnected {
		m.state = StateDisconnected
	}
	return false
}

// SignalStrength returns the link RSSI in dBm, or DisconnectedRSSI when the
// interface reports no signal.
func (m *Monitor) SignalStrength() int {
	dbm, ok := m.rssi(m.opts.Interface)
	if !ok {
		return DisconnectedRSSI
	}
	return dbm
}

// State returns the current lifecycle phase.
func (m *Monitor) State() LinkState { return m.state }

// Attempts returns the consecutive failed reconnect count.
func (m *Monitor) Attempts() int { return m.attempts }

// NextDelay is the backoff delay the next reconnect attempt must respect:
// base doubled per consecutive failure, capped at the ceiling.
func (m *Monitor) NextDelay() time.Duration {
	d := m.opts.BackoffBase << uint(m.attempts)
	if d > m.opts.BackoffMax || d <= 0 {
		d = m.opts.BackoffMax
	}
	return d
}

// Reconnect tries to restore the link. It returns (false, nil) when called
// inside the current backoff window, (true, nil) on success, and
// (false, ErrLinkFailed) once the attempt budget is exhausted. Success
// resets the attempt counter and the backoff delay.
func (m *Monitor) Reconnect() (bool, error) {
	if m.probe(m.opts.ProbeHost) {
		m.state = StateConnected
		m.attempts = 0
		return true, nil
	}

	if m.state == StateFailed {
		return false, ErrLinkFailed
	}

	now := m.now()
	if !m.lastAttempt.IsZero() && now.Sub(m.lastAttempt) < m.NextDelay() {
		return false, nil // too soon to retry
	}
	m.lastAttempt = now
	m.state = StateReconnecting

	log.Info().
		Int("attempt", m.attempts+1).
		Int("max", m.opts.MaxAttempts).
		Dur("backoff", m.NextDelay()).
		Msg("attempting link recovery")

	if err := m.bringUp(m.opts.Interface); err != nil {
		log.Warn().Err(err).Str("interface", m.opts.Interface).Msg("interface bring-up failed")
	}

	if m.probe(m.opts.ProbeHost) {
		m.state = StateConnected
		m.attempts = 0
		log.Info().Msg("link recovered")
		return true, nil
	}

	m.attempts++
	if m.attempts >= m.opts.MaxAttempts {
		m.state = StateFailed
		return false, ErrLinkFailed
	}
	return false, nil
}

// ResetBudget re-arms a failed monitor so the caller can keep retrying on
// its own slow cadence.
func (m *Monitor) ResetBudget() {
	if m.state == StateFailed {
		m.state = StateDisconnected
	}
	m.attempts = 0
	m.lastAttempt = time.Time{}
}

// pingProbe sends a single ICMP echo with a 2 second deadline.
func pingProbe(host string) bool {
	if host == "" {
		return false
	}
	pinger, err := ping.NewPinger(host)
	if err != nil {
		return false
	}
	pinger.SetPrivileged(true)
	pinger.Count = 1
	pinger.Timeout = 2 * time.Second
	if err := pinger.Run(); err != nil {
		return false
	}
	return pinger.Statistics().PacketsRecv > 0
}

// bringUpInterface asks the platform network manager to reconnect the
// interface, falling back to a plain link-up.
func bringUpInterface(iface string) error {
	if err := exec.Command("nmcli", "device", "connect", iface).Run(); err == nil {
		return nil
	}
	if err := exec.Command("wifi", "up").Run(); err == nil { // OpenWrt
		return nil
	}
	if err := exec.Command("ip", "link", "set", iface, "up").Run(); err != nil {
		return fmt.Errorf("no usable reconnect method for %s: %w", iface, err)
	}
	return nil
}
