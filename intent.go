package talespin

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// IntentKind is the top-level tag that selects an outbound variant on the wire.
type IntentKind string

const (
	IntentCreateRoom             IntentKind = "CreateRoom"
	IntentJoinRoom               IntentKind = "JoinRoom"
	IntentReady                  IntentKind = "Ready"
	IntentActivePlayerChooseCard IntentKind = "ActivePlayerChooseCard"
	IntentPlayerChooseCard       IntentKind = "PlayerChooseCard"
	IntentVote                   IntentKind = "Vote"
	IntentPing                   IntentKind = "Ping"
)

// Intent is a caller-issued action destined for the server. The set of
// implementations is closed to this package.
type Intent interface {
	Kind() IntentKind
	isIntent()
}

type (
	CreateRoom struct {
		Name string `json:"name"`
	}

	JoinRoom struct {
		Name   string `json:"name"`
		RoomID string `json:"room_id"`
	}

	Ready struct{}

	ActivePlayerChooseCard struct {
		Card        string `json:"card"`
		Description string `json:"description"`
	}

	PlayerChooseCard struct {
		Card string `json:"card"`
	}

	Vote struct {
		Card string `json:"card"`
	}

	// Ping keeps an idle connection from being reaped by proxies.
	Ping struct{}
)

func (CreateRoom) Kind() IntentKind             { return IntentCreateRoom }
func (JoinRoom) Kind() IntentKind               { return IntentJoinRoom }
func (Ready) Kind() IntentKind                  { return IntentReady }
func (ActivePlayerChooseCard) Kind() IntentKind { return IntentActivePlayerChooseCard }
func (PlayerChooseCard) Kind() IntentKind       { return IntentPlayerChooseCard }
func (Vote) Kind() IntentKind                   { return IntentVote }
func (Ping) Kind() IntentKind                   { return IntentPing }

func (CreateRoom) isIntent()             {}
func (JoinRoom) isIntent()               {}
func (Ready) isIntent()                  {}
func (ActivePlayerChooseCard) isIntent() {}
func (PlayerChooseCard) isIntent()       {}
func (Vote) isIntent()                   {}
func (Ping) isIntent()                   {}

// EncodeIntent renders i as a single-key tagged object, e.g. {"Vote":{"card":"a.jpg"}}.
// The returned slice is owned by the caller and never aliased by the intent.
func EncodeIntent(i Intent) ([]byte, error) {
	if i == nil {
		return nil, errors.Wrap(ErrUnknownIntent, "nil intent")
	}

	bts, err := json.Marshal(map[IntentKind]Intent{i.Kind(): i})
	if err != nil {
		return nil, errors.Wrapf(err, "cannot encode %s", i.Kind())
	}
	return bts, nil
}
