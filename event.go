package talespin

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// EventKind is the top-level tag that selects an inbound variant on the wire.
type EventKind string

const (
	KindRoomState     EventKind = "RoomState"
	KindStartRound    EventKind = "StartRound"
	KindPlayersChoose EventKind = "PlayersChoose"
	KindBeginVoting   EventKind = "BeginVoting"
	KindResults       EventKind = "Results"
	KindErrorMsg      EventKind = "ErrorMsg"
	KindInvalidRoomId EventKind = "InvalidRoomId"

	// older servers tag application errors as "Error"
	legacyErrorTag = "Error"
)

// Stage is the server-side phase of a room.
type Stage string

const (
	StageJoining       Stage = "Joining"
	StageActiveChooses Stage = "ActiveChooses"
	StagePlayersChoose Stage = "PlayersChoose"
	StageVoting        Stage = "Voting"
	StageResults       Stage = "Results"
	StageEnd           Stage = "End"
)

// Event is a server-issued update. The set of implementations is closed to this package.
type Event interface {
	Kind() EventKind
	isEvent()
}

type (
	PlayerInfo struct {
		Active bool `json:"active"`
		Points int  `json:"points"`
		Ready  bool `json:"ready"`
	}

	RoomState struct {
		RoomID       string                `json:"room_id,omitempty"`
		Players      map[string]PlayerInfo `json:"players"`
		Stage        Stage                 `json:"stage"`
		ActivePlayer *string               `json:"active_player,omitempty"`
		PlayerOrder  []string              `json:"player_order,omitempty"`
		Round        *int                  `json:"round,omitempty"`
	}

	StartRound struct {
		Hand []string `json:"hand"`
	}

	PlayersChoose struct {
		Hand        []string `json:"hand"`
		Description string   `json:"description"`
	}

	BeginVoting struct {
		CenterCards []string `json:"center_cards"`
		Description string   `json:"description"`
	}

	Results struct {
		PlayerToCurrentCard map[string]string `json:"player_to_current_card"`
		PlayerToVote        map[string]string `json:"player_to_vote"`
		ActiveCard          string            `json:"active_card"`
		PointChange         map[string]int    `json:"point_change,omitempty"`
	}

	// ErrorMsg is an application error reported by the server, meant for display.
	ErrorMsg struct {
		Message string
	}

	// InvalidRoomId tells the caller the room it tried to join does not exist.
	InvalidRoomId struct{}
)

func (RoomState) Kind() EventKind     { return KindRoomState }
func (StartRound) Kind() EventKind    { return KindStartRound }
func (PlayersChoose) Kind() EventKind { return KindPlayersChoose }
func (BeginVoting) Kind() EventKind   { return KindBeginVoting }
func (Results) Kind() EventKind       { return KindResults }
func (ErrorMsg) Kind() EventKind      { return KindErrorMsg }
func (InvalidRoomId) Kind() EventKind { return KindInvalidRoomId }

func (RoomState) isEvent()     {}
func (StartRound) isEvent()    {}
func (PlayersChoose) isEvent() {}
func (BeginVoting) isEvent()   {}
func (Results) isEvent()       {}
func (ErrorMsg) isEvent()      {}
func (InvalidRoomId) isEvent() {}

func (e ErrorMsg) Error() string { return e.Message }

// MarshalJSON keeps the newtype shape used on the wire: {"ErrorMsg":"text"}.
func (e ErrorMsg) MarshalJSON() ([]byte, error) {
	return json.Marshal(e.Message)
}

func (e *ErrorMsg) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &e.Message)
}

// IsActive reports whether name is the storyteller of the current round.
func (r RoomState) IsActive(name string) bool {
	return r.ActivePlayer != nil && *r.ActivePlayer == name
}

// DecodeEvent parses one inbound text frame. Frames that are not a single-key tagged
// object yield ErrMalformedFrame; unrecognised tags yield ErrUnknownEvent.
func DecodeEvent(data []byte) (Event, error) {
	trimmed := bytes.TrimSpace(data)

	// unit variants may arrive as a bare string tag
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var tag string
		if err := json.Unmarshal(trimmed, &tag); err != nil {
			return nil, errors.Wrap(ErrMalformedFrame, err.Error())
		}
		return decodeVariant(tag, nil)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &envelope); err != nil {
		return nil, errors.Wrap(ErrMalformedFrame, err.Error())
	}
	if len(envelope) != 1 {
		return nil, errors.Wrapf(ErrMalformedFrame, "expected exactly one variant tag, got %d", len(envelope))
	}

	for tag, body := range envelope {
		return decodeVariant(tag, body)
	}
	return nil, ErrMalformedFrame
}

func decodeVariant(tag string, body json.RawMessage) (Event, error) {
	switch EventKind(tag) {
	case KindRoomState:
		return decodeBody[RoomState](tag, body)
	case KindStartRound:
		return decodeBody[StartRound](tag, body)
	case KindPlayersChoose:
		return decodeBody[PlayersChoose](tag, body)
	case KindBeginVoting:
		return decodeBody[BeginVoting](tag, body)
	case KindResults:
		return decodeBody[Results](tag, body)
	case KindErrorMsg, legacyErrorTag:
		return decodeBody[ErrorMsg](tag, body)
	case KindInvalidRoomId:
		return InvalidRoomId{}, nil
	default:
		return nil, errors.Wrapf(ErrUnknownEvent, "tag %q", tag)
	}
}

func decodeBody[T Event](tag string, body json.RawMessage) (Event, error) {
	var ev T
	if len(body) == 0 {
		return nil, errors.Wrapf(ErrMalformedFrame, "%s without body", tag)
	}
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, errors.Wrapf(ErrMalformedFrame, "%s: %s", tag, err)
	}
	return ev, nil
}
