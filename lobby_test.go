package talespin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonirico/talespin/internal/fakeserver"
)

func newTestLobby(t *testing.T, h http.Handler) *LobbyClient {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewLobbyClient(Endpoints{Host: srv.URL}, time.Second, nil)
}

func TestLobbyClient_CreateAndExists(t *testing.T) {
	game := fakeserver.New()
	lobby := newTestLobby(t, game)
	ctx := context.Background()

	state, err := lobby.CreateRoom(ctx)
	require.NoError(t, err)
	require.Len(t, state.RoomID, 4)
	assert.Equal(t, StageJoining, state.Stage)

	ok, err := lobby.RoomExists(ctx, strings.ToUpper(state.RoomID))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = lobby.RoomExists(ctx, "nope")
	require.NoError(t, err)
	assert.False(t, ok)

	stats, err := lobby.Stats(ctx)
	require.NoError(t, err)
	require.Contains(t, stats, state.RoomID)
	assert.Zero(t, stats[state.RoomID].ActivePlayers)
	assert.False(t, stats[state.RoomID].LastAccess.IsZero())
}

func TestLobbyClient_ServerErrorMessage(t *testing.T) {
	lobby := newTestLobby(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"ErrorMsg":"too many rooms"}`))
	}))

	_, err := lobby.CreateRoom(context.Background())
	var serverErr ServerError
	require.True(t, errors.As(err, &serverErr), "got %v", err)
	assert.Equal(t, "too many rooms", serverErr.Message)
}

func TestLobbyClient_BadStatus(t *testing.T) {
	lobby := newTestLobby(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))

	_, err := lobby.Stats(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "boom")
}

func TestLobbyClient_MalformedExistsAnswer(t *testing.T) {
	lobby := newTestLobby(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`maybe`))
	}))

	_, err := lobby.RoomExists(context.Background(), "ab12")
	assert.True(t, errors.Is(err, ErrMalformedFrame), "got %v", err)
}

func TestLobbyClient_CancelledContext(t *testing.T) {
	lobby := newTestLobby(t, fakeserver.New())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := lobby.CreateRoom(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRoomStats_UnmarshalJSON(t *testing.T) {
	var s RoomStats
	require.NoError(t, s.UnmarshalJSON([]byte(`[3, 1700000000]`)))
	assert.Equal(t, 3, s.ActivePlayers)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), s.LastAccess)

	assert.Error(t, s.UnmarshalJSON([]byte(`{"a":1}`)))
}
