package talespin

import "fmt"

// FrameType mirrors the websocket opcode of a frame travelling through a transport handle.
type FrameType byte

const (
	TextFrame   FrameType = 1
	BinaryFrame FrameType = 2
	CloseFrame  FrameType = 8
	PingFrame   FrameType = 9
	PongFrame   FrameType = 10
)

func (t FrameType) String() string {
	switch t {
	case TextFrame:
		return "TEXT"
	case BinaryFrame:
		return "BIN"
	case CloseFrame:
		return "CLOSE"
	case PingFrame:
		return "PING"
	case PongFrame:
		return "PONG"
	default:
		return fmt.Sprintf("OP(%d)", byte(t))
	}
}

// IsData reports whether the frame carries application payload.
func (t FrameType) IsData() bool {
	return t == TextFrame || t == BinaryFrame
}

// Frame is one unit read from or written to a transport handle. Data frames carry
// protocol JSON; control frames carry websocket application data.
type Frame struct {
	Type FrameType
	Data []byte
	// Code is only set on close frames.
	Code int
}

func (f Frame) String() string {
	if f.Type == CloseFrame {
		return fmt.Sprintf("Frame{type=%s,code=%d,data=%s}", f.Type, f.Code, f.Data)
	}
	return fmt.Sprintf("Frame{type=%s,data=%s}", f.Type, f.Data)
}

func NewTextFrame(data []byte) Frame {
	return Frame{Type: TextFrame, Data: data}
}

func NewPingFrame(data []byte) Frame {
	return Frame{Type: PingFrame, Data: data}
}

func NewPongFrame(data []byte) Frame {
	return Frame{Type: PongFrame, Data: data}
}

func NewCloseFrame(code int, data []byte) Frame {
	return Frame{Type: CloseFrame, Code: code, Data: data}
}
