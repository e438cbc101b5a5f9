package log

import (
	"time"

	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Event represents a protocol log event captured at any layer.
// CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID identifies one participant session (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Layer where the event was captured.
	Layer Layer `cbor:"4,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"5,keyasint"`

	// LocalRole indicates whether the event was captured by the client or
	// by an engine.
	LocalRole Role `cbor:"6,keyasint,omitempty"`

	// BuildID is the participant's identity fingerprint.
	BuildID string `cbor:"7,keyasint,omitempty"`

	// BuildRoot is the participant's canonical root directory.
	BuildRoot string `cbor:"8,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Frame       *FrameEvent       `cbor:"10,keyasint,omitempty"`
	Message     *MessageEvent     `cbor:"11,keyasint,omitempty"`
	StateChange *StateChangeEvent `cbor:"12,keyasint,omitempty"`
	Error       *ErrorEventData   `cbor:"13,keyasint,omitempty"`
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Layer indicates which protocol layer captured the event.
type Layer uint8

const (
	// LayerTransport is the framing layer (raw bytes).
	LayerTransport Layer = 0
	// LayerWire is the message encoding layer (decoded CBOR).
	LayerWire Layer = 1
	// LayerSession is the per-participant session layer.
	LayerSession Layer = 2
)

// String returns the layer name.
func (l Layer) String() string {
	switch l {
	case LayerTransport:
		return "TRANSPORT"
	case LayerWire:
		return "WIRE"
	case LayerSession:
		return "SESSION"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	CategoryMessage Category = 0
	CategoryState   Category = 1
	CategoryError   Category = 2
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryMessage:
		return "MESSAGE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// Role indicates which side of the exchange captured the event.
type Role uint8

const (
	RoleClient Role = 0
	RoleEngine Role = 1
)

// String returns the role name.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleEngine:
		return "ENGINE"
	default:
		return "UNKNOWN"
	}
}

// FrameEvent captures raw frame data at the transport layer.
type FrameEvent struct {
	// Size is the frame size in bytes (including length prefix).
	Size int `cbor:"1,keyasint"`

	// Data is the raw frame bytes (may be truncated for large frames).
	Data []byte `cbor:"2,keyasint,omitempty"`

	// Truncated indicates if Data was truncated.
	Truncated bool `cbor:"3,keyasint,omitempty"`
}

// MessageEvent captures a decoded protocol message at the wire layer.
type MessageEvent struct {
	Type      wire.MessageType `cbor:"1,keyasint"`
	MessageID uint32           `cbor:"2,keyasint,omitempty"`

	// ModelCategory is set for model requests and responses.
	ModelCategory string `cbor:"3,keyasint,omitempty"`

	// Status is set for replies.
	Status *wire.Status `cbor:"4,keyasint,omitempty"`

	// EngineVersion is set for handshake replies.
	EngineVersion string `cbor:"5,keyasint,omitempty"`

	// ProcessingTime is the round trip from request to response (response
	// only). Stored as nanoseconds.
	ProcessingTime *time.Duration `cbor:"6,keyasint,omitempty"`
}

// NewMessageEvent summarizes a wire message for capture.
func NewMessageEvent(msg *wire.Message) *MessageEvent {
	me := &MessageEvent{Type: msg.Type, MessageID: msg.ID}
	switch {
	case msg.Request != nil:
		me.ModelCategory = msg.Request.Category
	case msg.Response != nil:
		me.ModelCategory = msg.Response.Category
		st := msg.Response.Status
		me.Status = &st
	case msg.HelloReply != nil:
		st := msg.HelloReply.Status
		me.Status = &st
		me.EngineVersion = msg.HelloReply.EngineVersion
	}
	return me
}

// StateChangeEvent captures session lifecycle events.
type StateChangeEvent struct {
	// OldState is the previous state (may be empty).
	OldState string `cbor:"1,keyasint,omitempty"`

	// NewState is the new state.
	NewState string `cbor:"2,keyasint"`

	// Reason for the change (if available).
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures errors at any layer.
type ErrorEventData struct {
	Layer   Layer  `cbor:"1,keyasint"`
	Message string `cbor:"2,keyasint"`

	// Context describes what operation was being performed.
	Context string `cbor:"3,keyasint,omitempty"`
}
