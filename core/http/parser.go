package http

import (
	"bytes"
	"fmt"
)

// Request line limits
const (
	MaxRequestLine = 2048
	MaxMethodLen   = 15
	MaxTargetLen   = 4095
	MaxProtoLen    = 15
)

var crlf = []byte("\r\n")

// ParseRequest parses the request line at the start of data.
//
// On success it returns the request and a nil error. A well-formed request
// line naming a method other than GET or HEAD returns the populated request
// together with an error wrapping ErrMethodNotAllowed, so the caller can still
// answer with an Allow header. Every other failure wraps ErrBadRequest and
// returns a nil request.
func ParseRequest(data []byte) (*Request, error) {
	lineEnd := bytes.Index(data, crlf)
	if lineEnd <= 0 || lineEnd >= MaxRequestLine {
		return nil, fmt.Errorf("%w: no request line within %d bytes", ErrBadRequest, MaxRequestLine)
	}

	// METHOD SP TARGET SP VERSION, any ASCII whitespace run separates tokens
	fields := bytes.FieldsFunc(data[:lineEnd], isSpace)
	if len(fields) != 3 {
		return nil, fmt.Errorf("%w: request line has %d tokens", ErrBadRequest, len(fields))
	}
	method, target, proto := fields[0], fields[1], fields[2]

	if len(method) > MaxMethodLen || len(target) > MaxTargetLen || len(proto) > MaxProtoLen {
		return nil, fmt.Errorf("%w: request line token too long", ErrBadRequest)
	}

	if !bytes.Equal(proto, []byte("HTTP/1.1")) && !bytes.Equal(proto, []byte("HTTP/1.0")) {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrBadRequest, proto)
	}

	if target[0] != '/' {
		return nil, fmt.Errorf("%w: target must start with '/'", ErrBadRequest)
	}
	for _, c := range target {
		if isControl(c) {
			return nil, fmt.Errorf("%w: control character in target", ErrBadRequest)
		}
	}

	req := &Request{
		Method: lookupMethod(string(method)),
		Target: string(target),
		Proto:  string(proto),
	}
	if req.Method == MethodUnsupported {
		return req, fmt.Errorf("%w: %q", ErrMethodNotAllowed, method)
	}

	return req, nil
}

// HeaderEnd returns the offset just past the first CRLF CRLF in buf, or -1.
// Searching starts at from-3 so a caller appending to buf can rescan only the
// new bytes plus the three that may begin a split terminator.
func HeaderEnd(buf []byte, from int) int {
	from -= 3
	if from < 0 {
		from = 0
	}
	if from >= len(buf) {
		return -1
	}
	i := bytes.Index(buf[from:], headerTerminator)
	if i < 0 {
		return -1
	}
	return from + i + len(headerTerminator)
}

var headerTerminator = []byte("\r\n\r\n")

func isSpace(r rune) bool {
	switch r {
	case ' ', '\t', '\n', '\v', '\f', '\r':
		return true
	}
	return false
}

func isControl(c byte) bool {
	return c < 0x20 || c == 0x7f
}
