package talespin

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/valyala/fasthttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	defaultLobbyTimeout = 10 * time.Second
	lobbyTracerName     = "github.com/sonirico/talespin/lobby"
)

// RoomStats is one entry of the server's /stats report.
type RoomStats struct {
	ActivePlayers int
	LastAccess    time.Time
}

// UnmarshalJSON reads the server's [active_players, last_access_unix_seconds] pair.
func (r *RoomStats) UnmarshalJSON(data []byte) error {
	var pair [2]int64
	if err := json.Unmarshal(data, &pair); err != nil {
		return err
	}
	r.ActivePlayers = int(pair[0])
	r.LastAccess = time.Unix(pair[1], 0).UTC()
	return nil
}

// LobbyClient runs the request/response queries that happen before a Session exists:
// creating a room and checking whether one exists.
type LobbyClient struct {
	endpoints Endpoints
	client    *fasthttp.Client
	timeout   time.Duration
	logger    Logger
	tracer    trace.Tracer
}

// NewLobbyClient targets the HTTP endpoints of e. A zero timeout means 10s.
func NewLobbyClient(e Endpoints, timeout time.Duration, logger Logger) *LobbyClient {
	if timeout <= 0 {
		timeout = defaultLobbyTimeout
	}
	if logger == nil {
		logger = NopLogger()
	}
	return &LobbyClient{
		endpoints: e,
		client:    &fasthttp.Client{Name: "talespin"},
		timeout:   timeout,
		logger:    logger.WithField("component", "lobby"),
		tracer:    otel.Tracer(lobbyTracerName),
	}
}

// CreateRoom asks the server for a fresh room and returns its initial state.
func (c *LobbyClient) CreateRoom(ctx context.Context) (*RoomState, error) {
	body, err := c.do(ctx, fasthttp.MethodPost, createPath, nil)
	if err != nil {
		return nil, err
	}

	ev, err := DecodeEvent(body)
	if err != nil {
		return nil, errors.Wrap(err, "create room")
	}

	switch e := ev.(type) {
	case RoomState:
		c.logger.Infof("created room %s", e.RoomID)
		return &e, nil
	case ErrorMsg:
		return nil, ServerError{Message: e.Message}
	default:
		return nil, errors.Wrapf(ErrUnknownEvent, "create room answered with %s", ev.Kind())
	}
}

// RoomExists reports whether roomID names a live room.
func (c *LobbyClient) RoomExists(ctx context.Context, roomID string) (bool, error) {
	payload, err := json.Marshal(strings.ToLower(strings.TrimSpace(roomID)))
	if err != nil {
		return false, err
	}

	body, err := c.do(ctx, fasthttp.MethodPost, existsPath, payload)
	if err != nil {
		return false, err
	}

	switch string(bytes.TrimSpace(body)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	default:
		return false, errors.Wrapf(ErrMalformedFrame, "exists answered %q", body)
	}
}

// Stats returns per-room activity as reported by the server.
func (c *LobbyClient) Stats(ctx context.Context) (map[string]RoomStats, error) {
	body, err := c.do(ctx, fasthttp.MethodGet, statsPath, nil)
	if err != nil {
		return nil, err
	}

	out := make(map[string]RoomStats)
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, errors.Wrap(ErrMalformedFrame, err.Error())
	}
	return out, nil
}

func (c *LobbyClient) do(ctx context.Context, method, path string, payload []byte) (body []byte, err error) {
	u := c.endpoints.HTTPURL(path)

	ctx, span := c.tracer.Start(ctx, "lobby "+path, trace.WithSpanKind(trace.SpanKindClient))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()
	span.SetAttributes(
		attribute.String("http.method", method),
		attribute.String("http.url", u.String()),
	)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(u.String())
	req.Header.SetMethod(method)
	if payload != nil {
		req.Header.SetContentType("application/json")
		req.SetBody(payload)
	}

	if deadline, ok := ctx.Deadline(); ok {
		err = c.client.DoDeadline(req, resp, deadline)
	} else {
		err = c.client.DoTimeout(req, resp, c.timeout)
	}
	if err != nil {
		c.logger.Errorf("%s %s failed: %s", method, u.String(), err)
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}

	status := resp.StatusCode()
	span.SetAttributes(attribute.Int("http.status_code", status))

	// resp is recycled on return
	body = append([]byte(nil), resp.Body()...)
	if status >= 300 {
		return nil, errors.Errorf("%s %s: %d %s", method, path, status, body)
	}
	return body, nil
}
