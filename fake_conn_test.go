package talespin

import (
	"context"
	"net/url"
	"sync"
)

// fakeConn is an in-memory transport handle. Open blocks on gate when set, so tests
// can observe the CONNECTING state and send while offline.
type fakeConn struct {
	id      int
	recv    chan<- Frame
	gate    chan struct{}
	openErr error

	WriteFunc func(f Frame) error

	mu        sync.Mutex
	written   []Frame
	closeC    CloseChan
	closeOnce sync.Once
}

func newFakeConn(id int, recv chan<- Frame) *fakeConn {
	return &fakeConn{
		id:     id,
		recv:   recv,
		closeC: make(CloseChan),
	}
}

func (c *fakeConn) Open(ctx context.Context) error {
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-c.closeC:
			return ErrTerminated
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if c.openErr != nil {
		c.Close()
		return c.openErr
	}
	return nil
}

func (c *fakeConn) Write(f Frame) error {
	select {
	case <-c.closeC:
		return ErrConnectionClosed
	default:
	}
	if c.WriteFunc != nil {
		if err := c.WriteFunc(f); err != nil {
			return err
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, f)
	return nil
}

func (c *fakeConn) Close() {
	c.closeOnce.Do(func() {
		close(c.closeC)
	})
}

func (c *fakeConn) CloseErr() error {
	select {
	case <-c.closeC:
		if c.openErr != nil {
			return c.openErr
		}
		return ErrConnectionClosed
	default:
		return nil
	}
}

func (c *fakeConn) CloseChan() CloseChan {
	return c.closeC
}

func (c *fakeConn) URL() url.URL {
	return url.URL{Scheme: "ws", Host: "fake", Path: websocketPath}
}

// release lets a gated Open proceed.
func (c *fakeConn) release() {
	close(c.gate)
}

// push simulates an inbound text frame from the server.
func (c *fakeConn) push(data string) {
	c.recv <- NewTextFrame([]byte(data))
}

func (c *fakeConn) pushFrame(f Frame) {
	c.recv <- f
}

// texts returns the payload of every text frame written so far.
func (c *fakeConn) texts() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, 0, len(c.written))
	for _, f := range c.written {
		if f.Type == TextFrame {
			out = append(out, string(f.Data))
		}
	}
	return out
}

func (c *fakeConn) frames() []Frame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Frame(nil), c.written...)
}

// fakeDialer hands out fakeConns and remembers them in creation order. configure, when
// set, runs on each new handle before the session sees it.
type fakeDialer struct {
	configure func(n int, c *fakeConn)

	mu      sync.Mutex
	conns   []*fakeConn
	created chan *fakeConn
}

func newFakeDialer(configure func(n int, c *fakeConn)) *fakeDialer {
	return &fakeDialer{
		configure: configure,
		created:   make(chan *fakeConn, 64),
	}
}

func (d *fakeDialer) factory(_ context.Context, recv chan<- Frame) Connection {
	d.mu.Lock()
	n := len(d.conns) + 1
	c := newFakeConn(n, recv)
	if d.configure != nil {
		d.configure(n, c)
	}
	d.conns = append(d.conns, c)
	d.mu.Unlock()

	select {
	case d.created <- c:
	default:
	}
	return c
}

func (d *fakeDialer) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(n int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if n < 1 || n > len(d.conns) {
		return nil
	}
	return d.conns[n-1]
}
