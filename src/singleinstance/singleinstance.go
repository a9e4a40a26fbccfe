package singleinstance

// Single-instance ownership and capture delegation over TCP loopback.
//
// Wire protocol, one request per connection:
//   PING\n                  -> PONG\n
//   CAPTURE[ <token>]\n     -> SUCCESS\n<message> | ERROR\n<message>

import (
	"context"
)

// Server owns the TCP endpoint and answers capture requests.
type Server interface {
	// Start binds the first port of the configured range.
	Start(ctx context.Context) error
	// Port returns the bound TCP port, or 0 if not started.
	Port() int
	// Next returns the next accepted capture request, or ctx error.
	Next(ctx context.Context) (Conn, error)
	Close() error
}

// Conn is one delegated capture request awaiting its reply.
type Conn interface {
	Request() Request
	RespondSuccess(msg string) error
	RespondError(msg string) error
	Close() error
}

// Request is a parsed capture request. An empty Token means the resident
// should use its own.
type Request struct {
	Token string
}

// Client delegates a capture to a running resident.
type Client interface {
	// TryCapture scans the port range and delegates to the resident. If no
	// resident answers, it returns delegated=false and a nil error.
	TryCapture(ctx context.Context, token string) (delegated bool, msg string, err error)
}

func NewServer() Server { return newTcpServer() }

func NewClient() Client { return newTcpClient() }
