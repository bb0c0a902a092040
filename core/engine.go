package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fast-static/core/http"
	"github.com/searchktools/fast-static/core/observability"
	"github.com/searchktools/fast-static/core/poller"
	"github.com/searchktools/fast-static/core/pools"
	"github.com/searchktools/fast-static/core/resolver"
)

// Engine is a single-threaded static file server driven by epoll/kqueue.
// Every socket and file operation happens on the goroutine running Serve;
// only Stop, Addr and Stats may be called from elsewhere.
type Engine struct {
	cfg     ServerConfig
	poller  poller.Poller
	slots   *pools.SlotPool[*Connection]
	fds     map[int]*Connection
	buffers *pools.BytePool
	monitor *observability.Monitor

	lfd     int
	addr    *net.TCPAddr
	stopped atomic.Bool

	rejectBuf []byte
	rejecting bool
}

// NewEngine creates an engine for cfg
func NewEngine(cfg ServerConfig) (*Engine, error) {
	cfg = cfg.withDefaults()
	if cfg.DocumentRoot == "" {
		return nil, ErrNoDocRoot
	}
	fi, err := os.Stat(cfg.DocumentRoot)
	if err != nil {
		return nil, fmt.Errorf("document root: %w", err)
	}
	if !fi.IsDir() {
		return nil, fmt.Errorf("document root %s is not a directory", cfg.DocumentRoot)
	}

	e := &Engine{
		cfg:     cfg,
		fds:     make(map[int]*Connection, cfg.MaxConnections),
		buffers: pools.NewBytePool(),
		monitor: observability.NewMonitor(),
		lfd:     -1,
	}

	env := &connEnv{
		resolver:  resolver.New(cfg.DocumentRoot),
		maxHeader: cfg.MaxHeaderBytes,
		buffers:   e.buffers,
		monitor:   e.monitor,
	}
	e.slots = pools.NewSlotPool(cfg.MaxConnections, func(idx int) *Connection {
		return newConnection(env, idx)
	})

	return e, nil
}

// Config returns the effective configuration
func (e *Engine) Config() ServerConfig {
	return e.cfg
}

// Listen opens the listening socket and the poller
func (e *Engine) Listen() error {
	lfd, addr, err := listenTCP(e.cfg.BindAddress, e.cfg.Port, e.cfg.Backlog)
	if err != nil {
		return err
	}

	p, err := poller.NewPoller(e.cfg.MaxConnections + 1)
	if err != nil {
		unix.Close(lfd)
		return err
	}
	if err := p.Add(lfd, poller.Readable); err != nil {
		p.Close()
		unix.Close(lfd)
		return err
	}

	e.lfd = lfd
	e.addr = addr
	e.poller = p
	return nil
}

// Addr returns the bound address, nil before Listen
func (e *Engine) Addr() net.Addr {
	if e.addr == nil {
		return nil
	}
	return e.addr
}

// Run listens and serves until Stop is called
func (e *Engine) Run() error {
	if err := e.Listen(); err != nil {
		return err
	}
	return e.Serve()
}

// Serve runs the event loop until Stop is called or the poller fails.
// On return every connection, the poller and the listening socket are closed.
func (e *Engine) Serve() error {
	if e.poller == nil {
		return ErrNotListening
	}
	defer e.shutdown()

	log.Printf("🚀 Static server listening on %s", e.addr)
	log.Printf("📁 Document root: %s (%d slots, %d byte header limit)",
		e.cfg.DocumentRoot, e.cfg.MaxConnections, e.cfg.MaxHeaderBytes)

	timeout := int(e.cfg.PollTimeout / time.Millisecond)
	for !e.stopped.Load() {
		events, err := e.poller.Wait(timeout)
		if err != nil {
			log.Printf("Poller wait error: %v", err)
			return err
		}

		for _, ev := range events {
			if ev.Fd == e.lfd {
				e.acceptConnections()
			} else {
				e.handleConnectionEvent(ev)
			}
		}
	}

	return nil
}

// Stop asks the event loop to exit. Safe to call from any goroutine,
// including a signal handler; takes effect within one poll timeout.
func (e *Engine) Stop() {
	e.stopped.Store(true)
}

// Stats returns a snapshot of the engine counters, including slot table
// and buffer pool usage
func (e *Engine) Stats() observability.Snapshot {
	s := e.monitor.Snapshot()

	slots := e.slots.Stats()
	s.SlotAcquires = slots.Acquires
	s.SlotReleases = slots.Releases
	s.SlotRejects = slots.Rejects

	buffers := e.buffers.Stats()
	s.BufferGets = buffers.Gets
	s.BufferPuts = buffers.Puts
	s.BufferAllocs = buffers.Allocs
	return s
}

// ActiveConnections returns the number of occupied slots
func (e *Engine) ActiveConnections() int {
	return e.slots.Active()
}

// acceptConnections accepts every pending connection
func (e *Engine) acceptConnections() {
	e.rejecting = false
	for {
		nfd, _, err := unix.Accept(e.lfd)
		if err != nil {
			switch {
			case err == unix.EINTR, err == unix.ECONNABORTED:
				continue
			case isWouldBlock(err):
			default:
				log.Printf("Accept error: %v", err)
			}
			return
		}
		unix.CloseOnExec(nfd)

		if err := unix.SetNonblock(nfd, true); err != nil {
			unix.Close(nfd)
			continue
		}

		_, conn, err := e.slots.Acquire()
		if err != nil {
			e.reject(nfd)
			continue
		}
		conn.open(nfd)

		if err := e.poller.Add(nfd, poller.Readable); err != nil {
			e.slots.Release(conn.slot)
			continue
		}

		e.fds[nfd] = conn
		e.monitor.ConnectionAccepted()
	}
}

// reject turns away a connection accepted while the slot table is full
func (e *Engine) reject(fd int) {
	if !e.rejecting {
		e.rejecting = true
		log.Printf("Connection table full (%d slots), rejecting with policy %s",
			e.cfg.MaxConnections, e.cfg.RejectPolicy)
	}

	if e.cfg.RejectPolicy == RejectServiceUnavailable {
		e.rejectBuf = http.AppendServiceUnavailable(e.rejectBuf[:0], time.Now())
		// one attempt, whatever the socket takes
		unix.Write(fd, e.rejectBuf)
	}
	unix.Close(fd)
	e.monitor.ConnectionRejected()
}

// handleConnectionEvent dispatches one readiness event to its connection
func (e *Engine) handleConnectionEvent(ev poller.Event) {
	conn, ok := e.fds[ev.Fd]
	if !ok {
		return
	}

	if ev.Hangup {
		e.closeConnection(conn)
		return
	}

	if conn.phase == PhaseReading && ev.Readable {
		if err := conn.onReadable(); err != nil {
			e.closeConnection(conn)
			return
		}
		if conn.phase == PhaseWriting {
			if err := e.poller.Modify(conn.fd, poller.Writable); err != nil {
				e.closeConnection(conn)
				return
			}
		}
	}

	if conn.phase == PhaseWriting && ev.Writable {
		done, err := conn.onWritable()
		if err != nil || done {
			e.closeConnection(conn)
		}
	}
}

// closeConnection is the only way a connection leaves the table
func (e *Engine) closeConnection(conn *Connection) {
	// 1. Stop receiving events
	e.poller.Remove(conn.fd)
	delete(e.fds, conn.fd)

	e.monitor.ConnectionClosed(conn.done, time.Since(conn.opened))

	// 2. Close the socket and file, return buffers, free the slot
	e.slots.Release(conn.slot)
}

// shutdown closes every connection without flushing pending writes
func (e *Engine) shutdown() {
	e.slots.Range(func(_ int, conn *Connection) {
		e.closeConnection(conn)
	})

	e.poller.Close()
	unix.Close(e.lfd)
	e.poller = nil
	e.lfd = -1

	s := e.Stats()
	log.Printf("Server stopped: %d accepted, %d rejected, %d bytes sent, %d buffer allocations",
		s.Accepted, s.Rejected, s.BytesSent, s.BufferAllocs)
}
