package observability

import (
	"sync/atomic"
	"time"
)

// Statuses with their own response counter; anything else counts as 500
var trackedStatuses = [...]int{200, 400, 403, 404, 405, 500}

// Latency bucket upper bounds; the last bucket is open-ended
var latencyBounds = [...]time.Duration{
	100 * time.Microsecond,
	time.Millisecond,
	5 * time.Millisecond,
	10 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	500 * time.Millisecond,
	time.Second,
	5 * time.Second,
}

// Monitor counts connection and response events for one server.
// Writers are the event loop; readers may be any goroutine.
type Monitor struct {
	started time.Time

	accepted atomic.Uint64
	rejected atomic.Uint64
	closed   atomic.Uint64
	aborted  atomic.Uint64
	active   atomic.Int64

	bytesSent atomic.Uint64
	responses [len(trackedStatuses)]atomic.Uint64

	latency [len(latencyBounds) + 1]atomic.Uint64
}

// NewMonitor creates a monitor
func NewMonitor() *Monitor {
	return &Monitor{started: time.Now()}
}

// ConnectionAccepted records a connection that got a slot
func (m *Monitor) ConnectionAccepted() {
	m.accepted.Add(1)
	m.active.Add(1)
}

// ConnectionRejected records a connection dropped for lack of a slot
func (m *Monitor) ConnectionRejected() {
	m.rejected.Add(1)
}

// ConnectionClosed records a slot release. completed is false when the
// connection ended before its response was fully sent.
func (m *Monitor) ConnectionClosed(completed bool, lifetime time.Duration) {
	m.closed.Add(1)
	m.active.Add(-1)
	if !completed {
		m.aborted.Add(1)
		return
	}
	m.latency[latencyBucket(lifetime)].Add(1)
}

// ResponsePrepared records the status of a prepared response
func (m *Monitor) ResponsePrepared(status int) {
	for i, s := range trackedStatuses {
		if s == status {
			m.responses[i].Add(1)
			return
		}
	}
	m.responses[len(trackedStatuses)-1].Add(1)
}

// BytesSent records bytes written to clients
func (m *Monitor) BytesSent(n int) {
	if n > 0 {
		m.bytesSent.Add(uint64(n))
	}
}

func latencyBucket(d time.Duration) int {
	for i, bound := range latencyBounds {
		if d < bound {
			return i
		}
	}
	return len(latencyBounds)
}

// Snapshot is a point-in-time copy of the counters
type Snapshot struct {
	Uptime    time.Duration
	Accepted  uint64
	Rejected  uint64
	Closed    uint64
	Aborted   uint64
	Active    int64
	BytesSent uint64
	// Responses is keyed by status code
	Responses map[int]uint64
	// Latency holds completed-connection counts per bucket, paired with
	// LatencyBounds; the final entry counts everything slower
	Latency []uint64

	// Pool usage, filled in by the owner of the pools
	SlotAcquires uint64
	SlotReleases uint64
	SlotRejects  uint64
	BufferGets   uint64
	BufferPuts   uint64
	BufferAllocs uint64
}

// LatencyBounds returns the upper bound of each latency bucket
func LatencyBounds() []time.Duration {
	return append([]time.Duration(nil), latencyBounds[:]...)
}

// Snapshot copies the current counters
func (m *Monitor) Snapshot() Snapshot {
	s := Snapshot{
		Uptime:    time.Since(m.started),
		Accepted:  m.accepted.Load(),
		Rejected:  m.rejected.Load(),
		Closed:    m.closed.Load(),
		Aborted:   m.aborted.Load(),
		Active:    m.active.Load(),
		BytesSent: m.bytesSent.Load(),
		Responses: make(map[int]uint64, len(trackedStatuses)),
		Latency:   make([]uint64, len(m.latency)),
	}
	for i, status := range trackedStatuses {
		s.Responses[status] = m.responses[i].Load()
	}
	for i := range m.latency {
		s.Latency[i] = m.latency[i].Load()
	}
	return s
}
