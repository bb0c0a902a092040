//go:build darwin || freebsd

package poller

import (
	"golang.org/x/sys/unix"
)

// KqueuePoller is a kqueue-based I/O multiplexer
type KqueuePoller struct {
	kqfd      int
	events    []unix.Kevent_t
	ready     []Event
	interests map[int]Interest
}

// NewPoller creates a new Poller (BSD/macOS) able to report up to size events per Wait
func NewPoller(size int) (Poller, error) {
	if size <= 0 {
		size = 1024
	}
	kqfd, err := unix.Kqueue()
	if err != nil {
		return nil, err
	}
	unix.CloseOnExec(kqfd)

	return &KqueuePoller{
		kqfd:      kqfd,
		events:    make([]unix.Kevent_t, size),
		ready:     make([]Event, 0, size),
		interests: make(map[int]Interest),
	}, nil
}

// apply registers the filter changes needed to move fd from old to in.
// Filters stay level-triggered (no EV_CLEAR).
func (p *KqueuePoller) apply(fd int, old, in Interest) error {
	changes := make([]unix.Kevent_t, 0, 2)
	for _, f := range []struct {
		bit    Interest
		filter int
	}{{Readable, unix.EVFILT_READ}, {Writable, unix.EVFILT_WRITE}} {
		var ev unix.Kevent_t
		switch {
		case in&f.bit != 0 && old&f.bit == 0:
			unix.SetKevent(&ev, fd, f.filter, unix.EV_ADD|unix.EV_ENABLE)
		case in&f.bit == 0 && old&f.bit != 0:
			unix.SetKevent(&ev, fd, f.filter, unix.EV_DELETE)
		default:
			continue
		}
		changes = append(changes, ev)
	}
	if len(changes) == 0 {
		return nil
	}

	_, err := unix.Kevent(p.kqfd, changes, nil, nil)
	return err
}

// Add adds a file descriptor to the watch list
func (p *KqueuePoller) Add(fd int, in Interest) error {
	if err := p.apply(fd, 0, in); err != nil {
		return err
	}
	p.interests[fd] = in
	return nil
}

// Modify replaces the interest set of a watched descriptor
func (p *KqueuePoller) Modify(fd int, in Interest) error {
	if err := p.apply(fd, p.interests[fd], in); err != nil {
		return err
	}
	p.interests[fd] = in
	return nil
}

// Remove removes a file descriptor from the watch list
func (p *KqueuePoller) Remove(fd int) error {
	old, ok := p.interests[fd]
	if !ok {
		return unix.ENOENT
	}
	delete(p.interests, fd)
	return p.apply(fd, old, 0)
}

// Wait waits for I/O events
func (p *KqueuePoller) Wait(timeout int) ([]Event, error) {
	var ts *unix.Timespec
	if timeout >= 0 {
		t := unix.NsecToTimespec(int64(timeout) * 1e6)
		ts = &t
	}

	n, err := unix.Kevent(p.kqfd, nil, p.events, ts)
	if err != nil {
		if err == unix.EINTR {
			return nil, nil
		}
		return nil, err
	}

	p.ready = p.ready[:0]
	for i := 0; i < n; i++ {
		kev := &p.events[i]
		ev := Event{Fd: int(kev.Ident)}
		switch {
		case kev.Flags&unix.EV_ERROR != 0:
			ev.Hangup = true
		case kev.Filter == unix.EVFILT_READ:
			// EV_EOF on the read filter may still leave data to drain; the
			// zero-length read that follows reports the close
			ev.Readable = true
		case kev.Filter == unix.EVFILT_WRITE:
			ev.Writable = true
			if kev.Flags&unix.EV_EOF != 0 {
				ev.Hangup = true
			}
		}
		p.ready = append(p.ready, ev)
	}

	return p.ready, nil
}

// Close closes the Poller
func (p *KqueuePoller) Close() error {
	return unix.Close(p.kqfd)
}
