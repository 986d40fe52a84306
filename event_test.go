package talespin

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEvent_RoomState(t *testing.T) {
	ev, err := DecodeEvent([]byte(`{"RoomState":{
		"room_id":"ab12",
		"players":{"Ann":{"active":true,"points":3,"ready":true},"Bob":{"active":false,"points":0,"ready":false}},
		"stage":"ActiveChooses",
		"active_player":"Ann",
		"player_order":["Ann","Bob"],
		"round":2
	}}`))
	require.NoError(t, err)

	state, ok := ev.(RoomState)
	require.True(t, ok, "got %T", ev)
	assert.Equal(t, KindRoomState, state.Kind())
	assert.Equal(t, "ab12", state.RoomID)
	assert.Equal(t, StageActiveChooses, state.Stage)
	assert.Equal(t, PlayerInfo{Active: true, Points: 3, Ready: true}, state.Players["Ann"])
	assert.Equal(t, []string{"Ann", "Bob"}, state.PlayerOrder)
	require.NotNil(t, state.Round)
	assert.Equal(t, 2, *state.Round)
	assert.True(t, state.IsActive("Ann"))
	assert.False(t, state.IsActive("Bob"))
}

func TestDecodeEvent_RoundVariants(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  Event
	}{
		{
			name:  "start round",
			frame: `{"StartRound":{"hand":["a.jpg","b.jpg"]}}`,
			want:  StartRound{Hand: []string{"a.jpg", "b.jpg"}},
		},
		{
			name:  "players choose",
			frame: `{"PlayersChoose":{"hand":["a.jpg"],"description":"a lighthouse"}}`,
			want:  PlayersChoose{Hand: []string{"a.jpg"}, Description: "a lighthouse"},
		},
		{
			name:  "begin voting",
			frame: `{"BeginVoting":{"center_cards":["a.jpg","c.jpg"],"description":"a lighthouse"}}`,
			want:  BeginVoting{CenterCards: []string{"a.jpg", "c.jpg"}, Description: "a lighthouse"},
		},
		{
			name: "results",
			frame: `{"Results":{"player_to_current_card":{"Ann":"a.jpg","Bob":"c.jpg"},` +
				`"player_to_vote":{"Bob":"a.jpg"},"active_card":"a.jpg","point_change":{"Ann":3,"Bob":3}}}`,
			want: Results{
				PlayerToCurrentCard: map[string]string{"Ann": "a.jpg", "Bob": "c.jpg"},
				PlayerToVote:        map[string]string{"Bob": "a.jpg"},
				ActiveCard:          "a.jpg",
				PointChange:         map[string]int{"Ann": 3, "Bob": 3},
			},
		},
		{
			name:  "error message",
			frame: `{"ErrorMsg":"Name already taken"}`,
			want:  ErrorMsg{Message: "Name already taken"},
		},
		{
			name:  "legacy error tag",
			frame: `{"Error":"Room is full"}`,
			want:  ErrorMsg{Message: "Room is full"},
		},
		{
			name:  "invalid room as object",
			frame: `{"InvalidRoomId":{}}`,
			want:  InvalidRoomId{},
		},
		{
			name:  "invalid room as bare tag",
			frame: `"InvalidRoomId"`,
			want:  InvalidRoomId{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tc.frame))
			require.NoError(t, err)
			assert.Equal(t, tc.want, ev)
		})
	}
}

func TestDecodeEvent_Rejects(t *testing.T) {
	cases := []struct {
		name  string
		frame string
		want  error
	}{
		{"not json", `hello`, ErrMalformedFrame},
		{"empty", ``, ErrMalformedFrame},
		{"array", `[1,2]`, ErrMalformedFrame},
		{"no tag", `{}`, ErrMalformedFrame},
		{"two tags", `{"StartRound":{"hand":[]},"Vote":{}}`, ErrMalformedFrame},
		{"wrong body type", `{"StartRound":{"hand":"a.jpg"}}`, ErrMalformedFrame},
		{"missing body", `"StartRound"`, ErrMalformedFrame},
		{"unknown tag", `{"Shuffle":{}}`, ErrUnknownEvent},
		{"unknown bare tag", `"Shuffle"`, ErrUnknownEvent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ev, err := DecodeEvent([]byte(tc.frame))
			assert.Nil(t, ev)
			assert.True(t, errors.Is(err, tc.want), "expected %v, got %v", tc.want, err)
		})
	}
}

func TestErrorMsg_IsAnError(t *testing.T) {
	var err error = ErrorMsg{Message: "Name already taken"}
	assert.EqualError(t, err, "Name already taken")
}
