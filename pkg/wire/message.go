package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// MessageType tags which body a Message carries.
type MessageType uint8

const (
	MessageTypeUnknown MessageType = iota
	MessageTypeHello
	MessageTypeHelloReply
	MessageTypeModelRequest
	MessageTypeModelResponse
	MessageTypeClose
)

// String returns the message type name.
func (t MessageType) String() string {
	switch t {
	case MessageTypeHello:
		return "HELLO"
	case MessageTypeHelloReply:
		return "HELLO_REPLY"
	case MessageTypeModelRequest:
		return "MODEL_REQUEST"
	case MessageTypeModelResponse:
		return "MODEL_RESPONSE"
	case MessageTypeClose:
		return "CLOSE"
	default:
		return "UNKNOWN"
	}
}

// Message is the envelope carried by every frame.
//
// CBOR encoding:
//
//	{
//	  1: type,        // uint8
//	  2: messageId,   // uint32, correlates request/response (0 otherwise)
//	  3..7: body      // exactly one, matching type
//	}
type Message struct {
	Type       MessageType    `cbor:"1,keyasint"`
	ID         uint32         `cbor:"2,keyasint,omitempty"`
	Hello      *Hello         `cbor:"3,keyasint,omitempty"`
	HelloReply *HelloReply    `cbor:"4,keyasint,omitempty"`
	Request    *ModelRequest  `cbor:"5,keyasint,omitempty"`
	Response   *ModelResponse `cbor:"6,keyasint,omitempty"`
	Close      *Close         `cbor:"7,keyasint,omitempty"`
}

// Hello opens a session. Sent once by the client.
type Hello struct {
	ProtocolVersion string `cbor:"1,keyasint"`
	Client          string `cbor:"2,keyasint,omitempty"`
	RootDir         string `cbor:"3,keyasint"`
}

// HelloReply answers Hello with the engine's identity.
type HelloReply struct {
	ProtocolVersion string `cbor:"1,keyasint"`
	Status          Status `cbor:"2,keyasint"`
	EngineVersion   string `cbor:"3,keyasint,omitempty"`
	Product         string `cbor:"4,keyasint,omitempty"`
	Message         string `cbor:"5,keyasint,omitempty"`
}

// ModelRequest asks the engine for one model of the given category.
type ModelRequest struct {
	Category string `cbor:"1,keyasint"`
}

// ModelResponse carries the model (on success) or the reason it is missing.
type ModelResponse struct {
	Status   Status          `cbor:"1,keyasint"`
	Category string          `cbor:"2,keyasint,omitempty"`
	Model    cbor.RawMessage `cbor:"3,keyasint,omitempty"`
	Message  string          `cbor:"4,keyasint,omitempty"`
}

// CloseReason explains why a session ends.
type CloseReason uint8

const (
	CloseReasonNormal CloseReason = iota
	CloseReasonShutdown
	CloseReasonProtocolError
)

// Close ends a session.
type Close struct {
	Reason CloseReason `cbor:"1,keyasint"`
}

// NewHello builds a Hello message.
func NewHello(protocolVersion, client, rootDir string) *Message {
	return &Message{
		Type:  MessageTypeHello,
		Hello: &Hello{ProtocolVersion: protocolVersion, Client: client, RootDir: rootDir},
	}
}

// NewHelloReply builds a HelloReply message.
func NewHelloReply(reply HelloReply) *Message {
	return &Message{Type: MessageTypeHelloReply, HelloReply: &reply}
}

// NewModelRequest builds a ModelRequest message.
func NewModelRequest(id uint32, category string) *Message {
	return &Message{
		Type:    MessageTypeModelRequest,
		ID:      id,
		Request: &ModelRequest{Category: category},
	}
}

// NewModelResponse builds a ModelResponse message.
func NewModelResponse(id uint32, resp ModelResponse) *Message {
	return &Message{Type: MessageTypeModelResponse, ID: id, Response: &resp}
}

// NewClose builds a Close message.
func NewClose(reason CloseReason) *Message {
	return &Message{Type: MessageTypeClose, Close: &Close{Reason: reason}}
}

// Validate checks that the message carries exactly the body its type names.
func (m *Message) Validate() error {
	bodies := 0
	for _, present := range []bool{
		m.Hello != nil, m.HelloReply != nil, m.Request != nil, m.Response != nil, m.Close != nil,
	} {
		if present {
			bodies++
		}
	}
	if bodies != 1 {
		return fmt.Errorf("message %s carries %d bodies, want 1", m.Type, bodies)
	}

	var ok bool
	switch m.Type {
	case MessageTypeHello:
		ok = m.Hello != nil
	case MessageTypeHelloReply:
		ok = m.HelloReply != nil
	case MessageTypeModelRequest:
		ok = m.Request != nil
		if ok && m.ID == 0 {
			return fmt.Errorf("model request requires a non-zero message id")
		}
		if ok && m.Request.Category == "" {
			return fmt.Errorf("model request requires a category")
		}
	case MessageTypeModelResponse:
		ok = m.Response != nil
		if ok && m.ID == 0 {
			return fmt.Errorf("model response requires a non-zero message id")
		}
	case MessageTypeClose:
		ok = m.Close != nil
	default:
		return fmt.Errorf("invalid message type: %d", m.Type)
	}
	if !ok {
		return fmt.Errorf("message type %s does not match its body", m.Type)
	}
	return nil
}
