package core

import (
	"errors"
	"time"
)

// Defaults and hard limits
const (
	DefaultMaxConnections = 1024
	DefaultMaxHeaderBytes = 8192
	MaxHeaderBytesLimit   = 16384
	DefaultBacklog        = 128
	DefaultPollTimeout    = time.Second

	// FileChunkSize is the read-ahead buffer used when streaming a file
	FileChunkSize = 8192
)

// Error definitions
var (
	ErrNotListening = errors.New("engine is not listening")
	ErrNoDocRoot    = errors.New("document root is required")
	errPeerClosed   = errors.New("peer closed connection")
)
