package sched

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIndependentCadences(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(func() time.Time { return now }, 0)

	var fast, slow int
	s.Add("fast", time.Second, func(time.Time) { fast++ })
	s.Add("slow", 3*time.Second, func(time.Time) { slow++ })

	// First tick runs everything.
	assert.Equal(t, 2, s.Tick())
	assert.Equal(t, 1, fast)
	assert.Equal(t, 1, slow)

	// Advance one second at a time for 6 seconds.
	for i := 0; i < 6; i++ {
		now = now.Add(time.Second)
		s.Tick()
	}
	assert.Equal(t, 7, fast)
	assert.Equal(t, 3, slow)
}

func TestNothingDueRunsNothing(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(func() time.Time { return now }, 0)
	s.Add("only", time.Minute, func(time.Time) {})

	assert.Equal(t, 1, s.Tick())
	now = now.Add(time.Second)
	assert.Equal(t, 0, s.Tick())
}

func TestTasksRunInRegistrationOrder(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(func() time.Time { return now }, 0)

	var order []string
	s.Add("a", time.Second, func(time.Time) { order = append(order, "a") })
	s.Add("b", time.Second, func(time.Time) { order = append(order, "b") })

	s.Tick()
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestTaskReceivesTickTime(t *testing.T) {
	now := time.Unix(1700000000, 0)
	s := New(func() time.Time { return now }, 0)

	var got time.Time
	s.Add("clock", time.Second, func(ts time.Time) { got = ts })
	s.Tick()
	assert.Equal(t, now, got)
}
