/*
Package faststatic is a single-threaded static file server for HTTP/1.0 and HTTP/1.1.

One goroutine drives every socket through epoll (Linux) or kqueue (BSD/macOS).
Each connection lives in a fixed slot, reads its request header, resolves the
target under a canonical document root and streams the file back in chunks,
resuming partial reads and writes on the next readiness event. Every response
carries Connection: close.

Features

  - GET and HEAD; other methods receive 405 with an Allow header
  - Path traversal and symlink escapes are refused with 403
  - Fixed connection table with a drop or 503 policy when full
  - Non-blocking sockets with bounded header buffers
  - Counters with a protobuf or JSON statistics snapshot

Quick Start

	fast-static 127.0.0.1 8080 ./public

or with flags, a JSON file, or FAST_STATIC_* environment variables:

	fast-static -bind ::1 -port 8080 -root ./public -max-conns 256 -reject 503

Embedding the engine:

	package main

	import (
	    "log"

	    "github.com/searchktools/fast-static/core"
	)

	func main() {
	    engine, err := core.NewEngine(core.ServerConfig{
	        BindAddress:  "127.0.0.1",
	        Port:         8080,
	        DocumentRoot: "/srv/www",
	    })
	    if err != nil {
	        log.Fatal(err)
	    }
	    log.Fatal(engine.Run())
	}

Modules

  - app: Application lifecycle and signal handling
  - config: Configuration loading and validation
  - core: Event loop and connection state machine
  - core/http: Request parsing, response headers, MIME types
  - core/resolver: URL to filesystem path resolution
  - core/poller: I/O multiplexing (epoll/kqueue)
  - core/pools: Byte buffers, connection slots, GC tuning
  - core/observability: Counters and snapshots
*/
package faststatic
