package http

import "errors"

// Classified request failures. Every error produced while parsing a request,
// resolving its target, or rendering its headers wraps exactly one of these.
var (
	ErrBadRequest       = errors.New("bad request")
	ErrForbidden        = errors.New("forbidden")
	ErrNotFound         = errors.New("not found")
	ErrMethodNotAllowed = errors.New("method not supported")
	ErrInternal         = errors.New("internal error")
)

// ErrHeaderTruncated reports a header block that did not fit its buffer.
var ErrHeaderTruncated = wrapInternal("response header truncated")

func wrapInternal(msg string) error {
	return &classified{kind: ErrInternal, msg: msg}
}

type classified struct {
	kind error
	msg  string
}

func (e *classified) Error() string { return e.kind.Error() + ": " + e.msg }
func (e *classified) Unwrap() error { return e.kind }

// StatusOf maps an error to the status code of the response it produces.
// A nil error is 200; anything unclassified is 500.
func StatusOf(err error) int {
	switch {
	case err == nil:
		return StatusOK
	case errors.Is(err, ErrBadRequest):
		return StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return StatusForbidden
	case errors.Is(err, ErrNotFound):
		return StatusNotFound
	case errors.Is(err, ErrMethodNotAllowed):
		return StatusMethodNotAllowed
	default:
		return StatusInternalServerError
	}
}
