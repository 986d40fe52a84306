package talespin

import (
	"context"
	"net/url"
)

type (
	CloseChan chan struct{}

	// Connection is one transport handle. A handle is opened at most once; once its
	// CloseChan fires it is discarded and a fresh handle is built in its place.
	Connection interface {
		// Open dials the server. It blocks until the handshake succeeds or fails.
		Open(ctx context.Context) error
		// Write returns once f is on the wire or known not to be. A nil error means it
		// was written; after Close it fails with ErrConnectionClosed.
		Write(f Frame) error
		Close()
		CloseErr() error
		CloseChan() CloseChan
		// URL is the endpoint the handle dialed, zero before Open.
		URL() url.URL
	}

	// ConnectionFactory builds a new, unopened handle that delivers inbound frames to recv.
	ConnectionFactory func(ctx context.Context, recv chan<- Frame) Connection
)
