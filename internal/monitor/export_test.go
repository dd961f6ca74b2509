package monitor

import (
	"time"

	"scribe/internal/protocol"
)

// Test hooks: drive the event loop's state transitions directly instead of
// racing against the Run goroutine and its sweep ticker.

func (m *Monitor) Apply(ev protocol.StatusEvent) { m.apply(ev) }

func (m *Monitor) Sweep() { m.sweep() }

func (m *Monitor) SetClock(now func() time.Time) { m.now = now }

func (m *Monitor) DeadInterval() time.Duration { return m.deadInterval }
