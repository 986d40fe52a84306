// Package fakeserver is a small in-process stand-in for the game server. It speaks the
// same wire protocol (tagged JSON frames on /ws, /create, /exists, /stats) but keeps no
// game rules: it records every frame it receives, answers JoinRoom with a RoomState
// snapshot or InvalidRoomId, and lets the caller drop connections at will.
package fakeserver

import (
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fasthttp/websocket"
	"github.com/go-chi/chi/v5"
)

const roomIDLength = 4

type player struct {
	Active bool `json:"active"`
	Points int  `json:"points"`
	Ready  bool `json:"ready"`
}

type room struct {
	id         string
	players    map[string]*player
	order      []string
	lastAccess time.Time
}

// Server records inbound frames and tracks live websocket connections.
type Server struct {
	upgrader websocket.Upgrader
	router   chi.Router

	mu       sync.Mutex
	rooms    map[string]*room
	conns    map[*websocket.Conn]string // conn -> player name, empty until joined
	received []string
	accepted int
	rng      *rand.Rand
}

func New() *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(*http.Request) bool { return true },
		},
		rooms: make(map[string]*room),
		conns: make(map[*websocket.Conn]string),
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}

	r := chi.NewRouter()
	r.Get("/ws", s.handleWS)
	r.Post("/create", s.handleCreate)
	r.Post("/exists", s.handleExists)
	r.Get("/stats", s.handleStats)
	s.router = r
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// AddRoom registers a room so JoinRoom for id succeeds.
func (s *Server) AddRoom(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addRoomLocked(strings.ToLower(id))
}

// Received returns every text frame received so far, across all connections, in order.
func (s *Server) Received() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.received...)
}

// Accepted returns how many websocket connections were upgraded so far.
func (s *Server) Accepted() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Live returns how many websocket connections are currently open.
func (s *Server) Live() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// DropAll closes every live connection without a close handshake.
func (s *Server) DropAll() {
	s.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	for _, c := range conns {
		_ = c.Close()
	}
}

// Broadcast writes frame verbatim to every live connection.
func (s *Server) Broadcast(frame string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for c := range s.conns {
		_ = c.WriteMessage(websocket.TextMessage, []byte(frame))
	}
}

func (s *Server) addRoomLocked(id string) *room {
	r := &room{id: id, players: make(map[string]*player), lastAccess: time.Now()}
	s.rooms[id] = r
	return r
}

func (s *Server) newRoomIDLocked() string {
	for {
		b := make([]byte, roomIDLength)
		for i := range b {
			b[i] = byte('a' + s.rng.Intn(26))
		}
		if _, taken := s.rooms[string(b)]; !taken {
			return string(b)
		}
	}
}

func (s *Server) handleCreate(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	r := s.addRoomLocked(s.newRoomIDLocked())
	frame := roomStateFrame(r)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(frame)
}

func (s *Server) handleExists(w http.ResponseWriter, r *http.Request) {
	var id string
	body, err := io.ReadAll(r.Body)
	if err == nil {
		err = json.Unmarshal(body, &id)
	}
	if err != nil {
		http.Error(w, "expected a JSON string", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	_, ok := s.rooms[strings.ToLower(id)]
	s.mu.Unlock()

	fmt.Fprint(w, ok)
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	out := make(map[string][2]int64, len(s.rooms))
	for id, r := range s.rooms {
		active := 0
		for _, p := range r.players {
			if p.Active {
				active++
			}
		}
		out[id] = [2]int64{int64(active), r.lastAccess.Unix()}
	}
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	s.mu.Lock()
	s.conns[conn] = ""
	s.accepted++
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		if name, ok := s.conns[conn]; ok && name != "" {
			for _, rm := range s.rooms {
				if p, ok := rm.players[name]; ok {
					p.Active = false
				}
			}
		}
		delete(s.conns, conn)
		s.mu.Unlock()
		_ = conn.Close()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		s.handleFrame(conn, data)
	}
}

func (s *Server) handleFrame(conn *websocket.Conn, data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.received = append(s.received, string(data))

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return
	}
	body, ok := envelope["JoinRoom"]
	if !ok {
		return
	}

	var join struct {
		Name   string `json:"name"`
		RoomID string `json:"room_id"`
	}
	if err := json.Unmarshal(body, &join); err != nil {
		return
	}

	r, ok := s.rooms[strings.ToLower(join.RoomID)]
	if !ok {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"InvalidRoomId":{}}`))
		return
	}

	p, ok := r.players[join.Name]
	if !ok {
		p = &player{}
		r.players[join.Name] = p
		r.order = append(r.order, join.Name)
	}
	p.Active = true
	r.lastAccess = time.Now()
	s.conns[conn] = join.Name

	_ = conn.WriteMessage(websocket.TextMessage, roomStateFrame(r))
}

func roomStateFrame(r *room) []byte {
	players := make(map[string]player, len(r.players))
	for name, p := range r.players {
		players[name] = *p
	}
	order := append([]string(nil), r.order...)
	sort.Strings(order)

	frame, _ := json.Marshal(map[string]any{
		"RoomState": map[string]any{
			"room_id":      r.id,
			"players":      players,
			"stage":        "Joining",
			"player_order": order,
		},
	})
	return frame
}
