package wire

import (
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// encMode is the CBOR encoder mode for protocol messages.
// Configured for deterministic encoding with integer keys.
var encMode cbor.EncMode

// decMode is the CBOR decoder mode for protocol messages.
var decMode cbor.DecMode

// modelDecMode decodes model payloads. Untyped maps decode to
// map[string]any so models can be re-encoded as JSON or YAML.
var modelDecMode cbor.DecMode

func init() {
	var err error

	// Configure encoder for deterministic output
	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical, // Deterministic key ordering
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeUnix,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR encoder mode: %v", err))
	}

	// Configure decoder to be lenient for forward compatibility
	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet, // Ignore duplicate keys (last wins)
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR decoder mode: %v", err))
	}

	decOpts.DefaultMapType = reflect.TypeOf(map[string]any(nil))
	modelDecMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("failed to create CBOR model decoder mode: %v", err))
	}
}

// Marshal encodes a value to CBOR bytes.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Unmarshal decodes CBOR bytes into a value.
func Unmarshal(data []byte, v any) error {
	return decMode.Unmarshal(data, v)
}

// Encode validates and encodes a message.
func Encode(msg *Message) ([]byte, error) {
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return Marshal(msg)
}

// Decode decodes and validates a message.
func Decode(data []byte) (*Message, error) {
	var msg Message
	if err := Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("failed to decode message: %w", err)
	}
	if err := msg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid message: %w", err)
	}
	return &msg, nil
}

// EncodeModel encodes a model value for a ModelResponse payload.
func EncodeModel(v any) (cbor.RawMessage, error) {
	data, err := Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode model: %w", err)
	}
	return cbor.RawMessage(data), nil
}

// DecodeModel decodes a ModelResponse payload into v.
func DecodeModel(raw cbor.RawMessage, v any) error {
	if len(raw) == 0 {
		return fmt.Errorf("empty model payload")
	}
	if err := modelDecMode.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("failed to decode model: %w", err)
	}
	return nil
}
