package core

import (
	"errors"
	"io"
	"os"
	"time"

	"golang.org/x/sys/unix"

	"github.com/searchktools/fast-static/core/http"
	"github.com/searchktools/fast-static/core/observability"
	"github.com/searchktools/fast-static/core/pools"
	"github.com/searchktools/fast-static/core/resolver"
)

// Phase is the connection state
type Phase uint8

const (
	PhaseReading Phase = iota
	PhaseWriting
)

func (p Phase) String() string {
	if p == PhaseWriting {
		return "writing"
	}
	return "reading"
}

// connEnv is the state shared by every connection of one engine
type connEnv struct {
	resolver  *resolver.Resolver
	maxHeader int
	buffers   *pools.BytePool
	monitor   *observability.Monitor
}

// Connection is the per-slot state of one client socket. It is either idle
// (fd -1, no buffers) or fully initialised by open; Reset returns it to idle
// and releases everything it holds.
type Connection struct {
	env  *connEnv
	slot int

	fd     int
	phase  Phase
	opened time.Time

	// request accumulator, len(reqBuf) is the header limit
	reqBuf []byte
	reqLen int

	hdrBuf  [http.MaxResponseHeader]byte
	hdrLen  int
	hdrSent int

	// exactly one of memoryBody or fileBody once a response is prepared
	body     responseBody
	headOnly bool
	status   int
	done     bool

	errPage [http.MaxErrorBody]byte
}

func newConnection(env *connEnv, slot int) *Connection {
	return &Connection{env: env, slot: slot, fd: -1}
}

// open binds an accepted socket to the idle connection
func (c *Connection) open(fd int) {
	c.fd = fd
	c.phase = PhaseReading
	c.opened = time.Now()
	// pooled buffers carry the previous connection's bytes
	c.reqBuf = c.env.buffers.Get(c.env.maxHeader)
	clear(c.reqBuf)
	c.reqLen = 0
}

// Reset implements pools.Slot: it closes the socket and any open file and
// returns buffers to the pool
func (c *Connection) Reset() {
	if c.fd >= 0 {
		unix.Close(c.fd)
	}
	if c.body != nil {
		c.body.release(c.env.buffers)
	}
	if c.reqBuf != nil {
		c.env.buffers.Put(c.reqBuf)
	}

	c.fd = -1
	c.phase = PhaseReading
	c.opened = time.Time{}
	c.reqBuf = nil
	c.reqLen = 0
	c.hdrLen = 0
	c.hdrSent = 0
	c.body = nil
	c.headOnly = false
	c.status = 0
	c.done = false
}

// Fd returns the client socket, -1 when idle
func (c *Connection) Fd() int { return c.fd }

// Phase returns the current state
func (c *Connection) Phase() Phase { return c.phase }

// Status returns the status of the prepared response, 0 while reading
func (c *Connection) Status() int { return c.status }

// onReadable drains the socket into the request accumulator. Once a complete
// header block is buffered, or the limit is hit, the response is prepared and
// the connection moves to PhaseWriting. A non-nil error means the connection
// must be closed without a response.
func (c *Connection) onReadable() error {
	for {
		n, err := unix.Read(c.fd, c.reqBuf[c.reqLen:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if isWouldBlock(err) {
				return nil
			}
			return err
		}
		if n == 0 {
			return errPeerClosed
		}

		prev := c.reqLen
		c.reqLen += n

		if http.HeaderEnd(c.reqBuf[:c.reqLen], prev) >= 0 {
			return c.prepare()
		}
		if c.reqLen >= len(c.reqBuf) {
			return c.prepareError(http.StatusBadRequest, false, false)
		}
	}
}

// prepare turns the buffered request into a response
func (c *Connection) prepare() error {
	req, err := http.ParseRequest(c.reqBuf[:c.reqLen])
	if err != nil {
		return c.prepareError(http.StatusOf(err), false, errors.Is(err, http.ErrMethodNotAllowed))
	}
	headOnly := req.HeadOnly()

	path, err := c.env.resolver.Resolve(req.Target)
	if err != nil {
		return c.prepareError(http.StatusOf(err), headOnly, false)
	}

	fi, err := os.Stat(path)
	if err != nil {
		return c.prepareError(http.StatusOf(resolver.Classify(err)), headOnly, false)
	}

	n, err := http.BuildHeader(c.hdrBuf[:], http.Header{
		Status:        http.StatusOK,
		ContentType:   http.ContentType(path),
		ContentLength: fi.Size(),
	})
	if err != nil {
		return c.prepareError(http.StatusOf(err), headOnly, false)
	}

	if !headOnly {
		f, err := os.Open(path)
		if err != nil {
			return c.prepareError(http.StatusOf(resolver.Classify(err)), headOnly, false)
		}
		c.body = &fileBody{
			file:  f,
			size:  fi.Size(),
			chunk: c.env.buffers.Get(FileChunkSize),
		}
	}

	c.hdrLen = n
	c.headOnly = headOnly
	c.startWriting(http.StatusOK)
	return nil
}

// prepareError sets up a generated error page
func (c *Connection) prepareError(status int, headOnly, allow bool) error {
	page := http.AppendErrorPage(c.errPage[:0], status)

	n, err := http.BuildHeader(c.hdrBuf[:], http.Header{
		Status:        status,
		ContentType:   http.ErrorContentType,
		ContentLength: int64(len(page)),
		Allow:         allow,
	})
	if err != nil {
		return err
	}

	c.hdrLen = n
	c.headOnly = headOnly
	c.body = &memoryBody{data: page}
	c.startWriting(status)
	return nil
}

func (c *Connection) startWriting(status int) {
	c.hdrSent = 0
	c.status = status
	c.phase = PhaseWriting
	c.env.monitor.ResponsePrepared(status)
}

// onWritable sends headers, then the body unless the request was HEAD.
// done reports that the response is complete; a would-block leaves every
// cursor in place for the next notification.
func (c *Connection) onWritable() (done bool, err error) {
	n, done, err := sendBuffer(c.fd, c.hdrBuf[:c.hdrLen], &c.hdrSent)
	c.env.monitor.BytesSent(n)
	if err != nil || !done {
		return false, err
	}

	if !c.headOnly && c.body != nil {
		n, done, err = c.body.flush(c.fd)
		c.env.monitor.BytesSent(n)
		if err != nil || !done {
			return false, err
		}
	}

	c.done = true
	return true, nil
}

// responseBody is the body of a prepared response
type responseBody interface {
	// flush writes as much as the socket accepts
	flush(fd int) (written int, done bool, err error)
	release(buffers *pools.BytePool)
}

// memoryBody is a generated error page
type memoryBody struct {
	data []byte
	sent int
}

func (b *memoryBody) flush(fd int) (int, bool, error) {
	return sendBuffer(fd, b.data, &b.sent)
}

func (b *memoryBody) release(*pools.BytePool) {}

// fileBody streams an open file through a bounded chunk buffer
type fileBody struct {
	file *os.File
	size int64
	sent int64

	chunk     []byte
	chunkLen  int
	chunkSent int
}

func (b *fileBody) flush(fd int) (int, bool, error) {
	written := 0
	for {
		if b.chunkSent == b.chunkLen {
			// never send more than the advertised Content-Length
			remaining := b.size - b.sent
			if remaining <= 0 {
				return written, true, nil
			}
			buf := b.chunk
			if int64(len(buf)) > remaining {
				buf = buf[:remaining]
			}

			r, err := b.file.Read(buf)
			if r == 0 {
				if err == nil || err == io.EOF {
					return written, true, nil
				}
				return written, false, err
			}
			b.chunkLen = r
			b.chunkSent = 0
		}

		n, done, err := sendBuffer(fd, b.chunk[:b.chunkLen], &b.chunkSent)
		written += n
		b.sent += int64(n)
		if err != nil || !done {
			return written, false, err
		}
	}
}

func (b *fileBody) release(buffers *pools.BytePool) {
	b.file.Close()
	buffers.Put(b.chunk)
	b.chunk = nil
}

// sendBuffer writes buf[*sent:] until done or the socket would block
func sendBuffer(fd int, buf []byte, sent *int) (written int, done bool, err error) {
	for *sent < len(buf) {
		n, err := unix.Write(fd, buf[*sent:])
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			if isWouldBlock(err) {
				return written, false, nil
			}
			return written, false, err
		}
		if n <= 0 {
			return written, false, io.ErrShortWrite
		}
		*sent += n
		written += n
	}
	return written, true, nil
}
