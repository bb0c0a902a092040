package http

import (
	"strconv"
	"time"
)

// Status codes the server produces
const (
	StatusOK                  = 200
	StatusBadRequest          = 400
	StatusForbidden           = 403
	StatusNotFound            = 404
	StatusMethodNotAllowed    = 405
	StatusInternalServerError = 500

	// StatusServiceUnavailable is only sent by the overload policy and is
	// not part of the reason phrase table
	StatusServiceUnavailable = 503
)

const (
	// ServerName is sent in every Server header
	ServerName = "fast-static/1.0"

	// TimeFormat is the RFC 1123 layout with a literal GMT zone
	TimeFormat = "Mon, 02 Jan 2006 15:04:05 GMT"

	// MaxResponseHeader is the capacity of a connection's header buffer
	MaxResponseHeader = 2048

	// MaxErrorBody is the capacity of a connection's error page buffer
	MaxErrorBody = 512

	// ErrorContentType is the content type of generated error pages
	ErrorContentType = "text/html; charset=utf-8"
)

// ReasonPhrase returns the reason phrase for a status code.
// Codes outside the server's table get the 500 phrase.
func ReasonPhrase(code int) string {
	switch code {
	case StatusOK:
		return "OK"
	case StatusBadRequest:
		return "Bad Request"
	case StatusForbidden:
		return "Forbidden"
	case StatusNotFound:
		return "Not Found"
	case StatusMethodNotAllowed:
		return "Method Not Allowed"
	default:
		return "Internal Server Error"
	}
}

// FormatDate formats t as an HTTP date in UTC
func FormatDate(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// AppendDate appends the HTTP date form of t to b
func AppendDate(b []byte, t time.Time) []byte {
	return t.UTC().AppendFormat(b, TimeFormat)
}

// Header describes the header block of one response
type Header struct {
	Status        int
	ContentType   string
	ContentLength int64
	Allow         bool
	Date          time.Time
}

// AppendHeader renders h onto b and returns the extended slice
func AppendHeader(b []byte, h Header) []byte {
	b = append(b, "HTTP/1.1 "...)
	b = strconv.AppendInt(b, int64(h.Status), 10)
	b = append(b, ' ')
	b = append(b, ReasonPhrase(h.Status)...)
	b = append(b, "\r\nDate: "...)
	b = AppendDate(b, h.Date)
	b = append(b, "\r\nServer: "...)
	b = append(b, ServerName...)
	b = append(b, "\r\nConnection: close\r\nContent-Type: "...)
	b = append(b, h.ContentType...)
	b = append(b, "\r\nContent-Length: "...)
	b = strconv.AppendInt(b, h.ContentLength, 10)
	b = append(b, "\r\n"...)
	if h.Allow {
		b = append(b, "Allow: GET, HEAD\r\n"...)
	}
	return append(b, "\r\n"...)
}

// BuildHeader renders h into dst without growing it.
// It returns the number of bytes written, or ErrHeaderTruncated and 0 when the
// block does not fit; in that case the contents of dst must not be sent.
func BuildHeader(dst []byte, h Header) (int, error) {
	if h.Date.IsZero() {
		h.Date = time.Now()
	}
	out := AppendHeader(dst[:0], h)
	if len(out) > len(dst) {
		return 0, ErrHeaderTruncated
	}
	return len(out), nil
}

// AppendErrorPage appends the minimal HTML body sent with an error status
func AppendErrorPage(b []byte, status int) []byte {
	b = append(b, "<html><body><h1>"...)
	b = strconv.AppendInt(b, int64(status), 10)
	b = append(b, ' ')
	b = append(b, ReasonPhrase(status)...)
	return append(b, "</h1></body></html>\n"...)
}

// AppendServiceUnavailable appends a complete 503 response, body included,
// for connections turned away before a slot was assigned
func AppendServiceUnavailable(b []byte, now time.Time) []byte {
	const page = "<html><body><h1>503 Service Unavailable</h1></body></html>\n"
	b = append(b, "HTTP/1.1 503 Service Unavailable\r\nDate: "...)
	b = AppendDate(b, now)
	b = append(b, "\r\nServer: "...)
	b = append(b, ServerName...)
	b = append(b, "\r\nConnection: close\r\nContent-Type: "...)
	b = append(b, ErrorContentType...)
	b = append(b, "\r\nContent-Length: "...)
	b = strconv.AppendInt(b, int64(len(page)), 10)
	b = append(b, "\r\n\r\n"...)
	return append(b, page...)
}
