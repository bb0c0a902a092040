package poller

// Interest selects which readiness conditions a descriptor is watched for
type Interest uint8

const (
	Readable Interest = 1 << iota
	Writable
)

// Event is one readiness notification
type Event struct {
	Fd       int
	Readable bool
	Writable bool
	// Hangup reports an error or full hang-up condition on the descriptor
	Hangup bool
}

// Poller is the I/O multiplexing interface
type Poller interface {
	Add(fd int, in Interest) error
	Modify(fd int, in Interest) error
	Remove(fd int) error
	// Wait blocks for at most timeout milliseconds (-1 waits forever).
	// The returned slice is reused by the next call.
	Wait(timeout int) ([]Event, error)
	Close() error
}
