package talespin

import (
	"context"
	"io"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/pkg/errors"
)

const writeWait = time.Second

type (
	paramsSource interface {
		Get(ctx context.Context) (OpenConnectionParams, error)
	}

	// DialErrorAdapter maps a failed handshake to the error reported by Open.
	DialErrorAdapter func(*websocket.Conn, *http.Response, error) error

	ErrorAdapters struct {
		OnDial DialErrorAdapter
	}

	writeRequest struct {
		frame  Frame
		result chan error
	}

	// WsConnection is one transport handle over a single websocket. It is opened once,
	// delivers every inbound frame to recv and is never reused after it closes.
	WsConnection struct {
		dialer   *websocket.Dialer
		params   paramsSource
		adapters ErrorAdapters
		logger   Logger

		mu   sync.RWMutex
		ws   *websocket.Conn
		dest url.URL

		recv chan<- Frame
		out  chan writeRequest

		done       CloseChan
		doneOnce   sync.Once
		reason     error
		reasonOnce sync.Once
	}
)

func NewWebsocketConnection(
	dialer *websocket.Dialer,
	params OpenConnectionParamsRepo,
	logger Logger,
	recv chan<- Frame,
	adapters ErrorAdapters,
) *WsConnection {
	return &WsConnection{
		dialer:   dialer,
		params:   params,
		adapters: adapters,
		logger:   logger.WithField("net", "ws_connection"),
		recv:     recv,
		out:      make(chan writeRequest),
		done:     make(CloseChan),
	}
}

// NewWebsocketFactory builds a ConnectionFactory handing out fresh WsConnections.
// A nil dialer means websocket.DefaultDialer.
func NewWebsocketFactory(
	logger Logger,
	dialer *websocket.Dialer,
	params OpenConnectionParamsRepo,
	adapters ErrorAdapters,
) ConnectionFactory {
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	return func(_ context.Context, recv chan<- Frame) Connection {
		return NewWebsocketConnection(dialer, params, logger, recv, adapters)
	}
}

// Open resolves the endpoint, performs the handshake and starts the reader and writer.
func (w *WsConnection) Open(ctx context.Context) error {
	p, err := w.params.Get(ctx)
	if err != nil {
		return w.fail(errors.Wrap(ErrCannotConnect, err.Error()))
	}

	w.mu.Lock()
	w.dest = p.URL
	w.mu.Unlock()

	ws, resp, err := w.dialer.DialContext(ctx, p.URL.String(), p.Header)
	if err = w.dialError(ws, resp, err); err != nil {
		w.logger.Errorf("dial %s: %s", p.URL.String(), err)
		return w.fail(err)
	}

	w.mu.Lock()
	w.ws = ws
	w.mu.Unlock()

	if w.isDone() {
		// Close won the race against the handshake
		_ = ws.Close()
		return ErrTerminated
	}
	w.logger.Debugf("connected to %s", p.URL.String())

	w.installControlHandlers(ws)
	go w.readLoop(ctx, ws)
	go w.writeLoop(ctx, ws)
	return nil
}

// Write waits for the writer goroutine to put f on the wire. When the handle closes
// first, f counts as unsent even if part of it may have gone out.
func (w *WsConnection) Write(f Frame) error {
	req := writeRequest{frame: f, result: make(chan error, 1)}
	select {
	case <-w.done:
		return ErrConnectionClosed
	case w.out <- req:
	}

	select {
	case err := <-req.result:
		return err
	case <-w.done:
		return ErrConnectionClosed
	}
}

func (w *WsConnection) Close() {
	w.shutdown(ErrTerminated)
}

func (w *WsConnection) CloseChan() CloseChan {
	return w.done
}

// CloseErr explains why the handle closed, nil while it is still usable.
func (w *WsConnection) CloseErr() error {
	if !w.isDone() {
		return nil
	}
	return w.reason
}

func (w *WsConnection) URL() url.URL {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.dest
}

func (w *WsConnection) isDone() bool {
	select {
	case <-w.done:
		return true
	default:
		return false
	}
}

func (w *WsConnection) fail(err error) error {
	w.shutdown(err)
	return err
}

// shutdown records reason (first one wins) and tears the handle down exactly once.
func (w *WsConnection) shutdown(reason error) {
	w.reasonOnce.Do(func() { w.reason = reason })
	w.doneOnce.Do(func() {
		close(w.done)

		w.mu.RLock()
		ws := w.ws
		w.mu.RUnlock()
		if ws == nil {
			return
		}
		// WriteControl is safe to call concurrently with the writer goroutine
		_ = ws.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(writeWait),
		)
		_ = ws.Close()
	})
}

// installControlHandlers forwards control frames instead of answering them here, so
// the session decides what a ping deserves.
func (w *WsConnection) installControlHandlers(ws *websocket.Conn) {
	ws.SetPingHandler(func(data string) error {
		w.logger.Debugln("<= [PING]")
		w.deliver(NewPingFrame([]byte(data)))
		return nil
	})
	ws.SetPongHandler(func(data string) error {
		w.logger.Debugln("<= [PONG]")
		w.deliver(NewPongFrame([]byte(data)))
		return nil
	})
	ws.SetCloseHandler(func(code int, text string) error {
		w.logger.Debugf("<= [CLOSE] %d %s", code, text)
		w.deliver(NewCloseFrame(code, []byte(text)))
		return nil
	})
}

func (w *WsConnection) deliver(f Frame) {
	select {
	case w.recv <- f:
	case <-w.done:
	}
}

func (w *WsConnection) readLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		if ctx.Err() != nil {
			w.shutdown(ErrTerminated)
			return
		}

		kind, data, err := ws.ReadMessage()
		if err != nil {
			if w.isDone() {
				return
			}
			w.logger.Infof("read stopped: %s", err)
			w.shutdown(errors.Wrap(ErrConnectionClosed, "read: "+err.Error()))
			return
		}

		if kind == websocket.BinaryMessage {
			w.logger.Debugln("<= [BIN]")
			w.deliver(Frame{Type: BinaryFrame, Data: data})
			continue
		}
		w.logger.Debugf("<= %s", data)
		w.deliver(NewTextFrame(data))
	}
}

func (w *WsConnection) writeLoop(ctx context.Context, ws *websocket.Conn) {
	for {
		select {
		case <-w.done:
			return
		case <-ctx.Done():
			w.shutdown(ErrTerminated)
			return
		case req := <-w.out:
			if err := w.writeFrame(ws, req.frame); err != nil {
				err = writeError(err)
				req.result <- err
				w.shutdown(err)
				return
			}
			req.result <- nil
		}
	}
}

func (w *WsConnection) writeFrame(ws *websocket.Conn, f Frame) error {
	deadline := time.Now().Add(writeWait)
	_ = ws.SetWriteDeadline(deadline)

	switch f.Type {
	case PingFrame, PongFrame:
		w.logger.Debugf("=> [%s]", f.Type)
		opcode := websocket.PingMessage
		if f.Type == PongFrame {
			opcode = websocket.PongMessage
		}
		err := ws.WriteControl(opcode, f.Data, deadline)
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			// a late heartbeat is not worth a reconnect
			return nil
		}
		return err
	case BinaryFrame:
		w.logger.Debugln("=> [BIN]")
		return ws.WriteMessage(websocket.BinaryMessage, f.Data)
	default:
		w.logger.Debugf("=> %s", f.Data)
		return ws.WriteMessage(websocket.TextMessage, f.Data)
	}
}

func writeError(err error) error {
	if websocket.IsCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
		return ErrConnectionClosed
	}
	return errors.Wrap(ErrConnectionClosed, "write: "+err.Error())
}

// dialError turns a handshake outcome into nil or the error Open reports. A 429 answer
// becomes ErrRateLimit; anything else that failed is ErrCannotConnect.
func (w *WsConnection) dialError(ws *websocket.Conn, resp *http.Response, err error) error {
	if w.adapters.OnDial != nil {
		return w.adapters.OnDial(ws, resp, err)
	}

	if resp != nil && resp.StatusCode == http.StatusTooManyRequests {
		var body []byte
		if resp.Body != nil {
			body, _ = io.ReadAll(resp.Body)
			_ = resp.Body.Close()
		}
		if ws != nil {
			_ = ws.Close()
		}
		return errors.Wrap(ErrRateLimit, string(body))
	}

	if err != nil {
		return errors.Wrap(ErrCannotConnect, err.Error())
	}
	return nil
}
