package talespin

import (
	"context"
	"net/http"
	"net/url"
	"strings"
)

type (
	OpenConnectionParams struct {
		URL    url.URL
		Header http.Header
	}

	OpenConnectionParamsGetter func(ctx context.Context) (OpenConnectionParams, error)

	OpenConnectionParamsRepo struct {
		logger Logger
		getter OpenConnectionParamsGetter
	}

	// Endpoints derives every server URL from one configured host.
	Endpoints struct {
		Host   string
		Secure bool
	}
)

const (
	websocketPath = "/ws"
	createPath    = "/create"
	existsPath    = "/exists"
	statsPath     = "/stats"
)

func (r OpenConnectionParamsRepo) Get(
	ctx context.Context,
) (params OpenConnectionParams, err error) {
	params, err = r.getter(ctx)
	if err != nil {
		r.logger.Errorf("cannot fetch open connection params: %s", err)
	}
	return
}

func NewOpenConnectionParamsRepo(
	logger Logger,
	getter OpenConnectionParamsGetter,
) OpenConnectionParamsRepo {
	return OpenConnectionParamsRepo{getter: getter, logger: logger}
}

// StaticOpenConnectionParams always dials the websocket endpoint of e with header.
func StaticOpenConnectionParams(e Endpoints, header http.Header) OpenConnectionParamsGetter {
	return func(context.Context) (OpenConnectionParams, error) {
		return OpenConnectionParams{URL: e.WebsocketURL(), Header: header.Clone()}, nil
	}
}

func (e Endpoints) host() string {
	h := strings.TrimSpace(e.Host)
	for _, prefix := range []string{"https://", "http://", "wss://", "ws://"} {
		h = strings.TrimPrefix(h, prefix)
	}
	return strings.TrimRight(h, "/")
}

func (e Endpoints) WebsocketURL() url.URL {
	scheme := "ws"
	if e.Secure {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: e.host(), Path: websocketPath}
}

func (e Endpoints) HTTPURL(path string) url.URL {
	scheme := "http"
	if e.Secure {
		scheme = "https"
	}
	return url.URL{Scheme: scheme, Host: e.host(), Path: path}
}
