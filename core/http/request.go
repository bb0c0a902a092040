package http

import "strings"

// Method is the request method as far as the server cares about it
type Method uint8

const (
	MethodGet Method = iota
	MethodHead
	MethodUnsupported
)

// String returns the canonical method name
func (m Method) String() string {
	switch m {
	case MethodGet:
		return "GET"
	case MethodHead:
		return "HEAD"
	default:
		return "UNSUPPORTED"
	}
}

// Request is the parsed request line. Header lines are not retained.
type Request struct {
	Method Method
	Target string
	Proto  string
}

// HeadOnly reports whether the response body must be suppressed
func (r *Request) HeadOnly() bool {
	return r.Method == MethodHead
}

func lookupMethod(name string) Method {
	switch {
	case strings.EqualFold(name, "GET"):
		return MethodGet
	case strings.EqualFold(name, "HEAD"):
		return MethodHead
	default:
		return MethodUnsupported
	}
}
