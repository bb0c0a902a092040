package core

import (
	"fmt"
	"time"
)

// RejectPolicy decides what happens to a connection accepted while every
// slot is in use
type RejectPolicy uint8

const (
	// RejectDrop closes the socket without writing anything
	RejectDrop RejectPolicy = iota
	// RejectServiceUnavailable writes a best-effort 503 before closing
	RejectServiceUnavailable
)

// String returns the policy name used in configuration
func (p RejectPolicy) String() string {
	if p == RejectServiceUnavailable {
		return "503"
	}
	return "drop"
}

// ParseRejectPolicy parses "drop" or "503"
func ParseRejectPolicy(s string) (RejectPolicy, error) {
	switch s {
	case "", "drop":
		return RejectDrop, nil
	case "503":
		return RejectServiceUnavailable, nil
	}
	return RejectDrop, fmt.Errorf("unknown reject policy %q", s)
}

// ServerConfig is everything the event loop needs. DocumentRoot must already
// be canonical and name an existing directory.
type ServerConfig struct {
	BindAddress    string
	Port           int
	DocumentRoot   string
	MaxHeaderBytes int
	Backlog        int

	MaxConnections int
	PollTimeout    time.Duration
	RejectPolicy   RejectPolicy
}

// withDefaults fills zero fields and clamps the header limit
func (c ServerConfig) withDefaults() ServerConfig {
	if c.BindAddress == "" {
		c.BindAddress = "0.0.0.0"
	}
	if c.MaxHeaderBytes <= 0 || c.MaxHeaderBytes > MaxHeaderBytesLimit {
		c.MaxHeaderBytes = DefaultMaxHeaderBytes
	}
	if c.Backlog <= 0 {
		c.Backlog = DefaultBacklog
	}
	if c.MaxConnections <= 0 {
		c.MaxConnections = DefaultMaxConnections
	}
	if c.PollTimeout <= 0 {
		c.PollTimeout = DefaultPollTimeout
	}
	return c
}
