package talespin

import (
	"strings"
	"sync"
)

// MaxNameLength is the longest display name the server accepts, in bytes.
const MaxNameLength = 30

// RejoinCoordinator re-attaches a Client to its room after every reconnect by sending
// JoinRoom again with the same room id and name. It owns the room identity so the
// session underneath can stay ignorant of game semantics.
//
// An InvalidRoomId event means there is nothing to rejoin: the coordinator stops,
// closes the client and signals Abandoned.
type RejoinCoordinator struct {
	client Client
	logger Logger
	roomID string
	name   string

	mu        sync.Mutex
	stopped   bool
	rejoins   int
	sub       Subscription
	abandoned chan struct{}
	once      sync.Once
}

// NewRejoinCoordinator validates the name and normalises the room id. Room ids are
// matched case-insensitively by the server, so they are lower-cased here.
func NewRejoinCoordinator(client Client, roomID, name string, logger Logger) (*RejoinCoordinator, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNameEmpty
	}
	if len(name) > MaxNameLength {
		return nil, ErrNameTooLong
	}
	if logger == nil {
		logger = NopLogger()
	}

	roomID = strings.ToLower(strings.TrimSpace(roomID))
	return &RejoinCoordinator{
		client:    client,
		logger:    logger.WithField("component", "rejoin").WithField("room", roomID),
		roomID:    roomID,
		name:      name,
		abandoned: make(chan struct{}),
	}, nil
}

// Start installs the coordinator on the client and sends the first JoinRoom.
func (r *RejoinCoordinator) Start() {
	sub := r.client.AddHandler(r.handle)

	r.mu.Lock()
	r.sub = sub
	r.mu.Unlock()

	r.client.OnDisconnect(r.rejoin)
	r.client.Send(JoinRoom{Name: r.name, RoomID: r.roomID})
}

// Stop detaches the coordinator without closing the client.
func (r *RejoinCoordinator) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	sub := r.sub
	r.mu.Unlock()

	sub.Unsubscribe()
	r.client.OnDisconnect(nil)
}

// Abandoned is closed once the server reported the room as invalid.
func (r *RejoinCoordinator) Abandoned() <-chan struct{} {
	return r.abandoned
}

// Rejoins returns how many times JoinRoom was re-sent after a reconnect.
func (r *RejoinCoordinator) Rejoins() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rejoins
}

func (r *RejoinCoordinator) RoomID() string { return r.roomID }

func (r *RejoinCoordinator) Name() string { return r.name }

func (r *RejoinCoordinator) rejoin() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.rejoins++
	r.mu.Unlock()

	r.logger.Infof("reconnected, rejoining as %s", r.name)
	r.client.Send(JoinRoom{Name: r.name, RoomID: r.roomID})
}

func (r *RejoinCoordinator) handle(ev Event) {
	if _, ok := ev.(InvalidRoomId); !ok {
		return
	}
	r.once.Do(func() {
		r.logger.Warnln("server reports invalid room, abandoning")
		r.Stop()
		close(r.abandoned)
		r.client.Close()
	})
}
