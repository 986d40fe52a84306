package talespin

// State is the lifecycle state of the current transport handle.
type State int32

const (
	StateConnecting State = iota
	StateOpen
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// LifecycleEvent is emitted on transport state transitions.
type LifecycleEvent int

const (
	// EventConnect fires when a handle reaches OPEN and the outbox has been flushed.
	EventConnect LifecycleEvent = iota
	// EventClose fires when a handle closes, deliberately or not.
	EventClose
	// EventReconnect fires when a closed handle has been replaced by a new one.
	EventReconnect
	// EventGiveUp fires when the reconnect strategy stops the session.
	EventGiveUp
)

func (e LifecycleEvent) String() string {
	switch e {
	case EventConnect:
		return "connect"
	case EventClose:
		return "close"
	case EventReconnect:
		return "reconnect"
	case EventGiveUp:
		return "give_up"
	default:
		return "unknown"
	}
}
