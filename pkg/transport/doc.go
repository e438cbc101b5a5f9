// Package transport carries model exchanges between a client and a build
// engine.
//
// The transport layer handles:
//   - Length-prefixed message framing
//   - The session handshake and request/response exchange
//   - Reaching an engine: launching it on stdio or dialing it over TCP
//
// # Protocol Stack
//
//	┌────────────────────────────────┐
//	│      CBOR Messages             │
//	├────────────────────────────────┤
//	│   Length-Prefix Framing (4B)   │
//	├────────────────────────────────┤
//	│  Process stdio  │     TCP      │
//	└────────────────────────────────┘
//
// # Framing
//
// Messages are prefixed with a 4-byte big-endian length:
//
//	┌────────────────┬─────────────────────────────┐
//	│ Length (4B BE) │ CBOR Payload (Length bytes) │
//	└────────────────┴─────────────────────────────┘
//
// # Installations
//
// A participant's installation location selects the dialer:
//   - tcp://host:port dials a running engine
//   - anything else is a directory holding bin/<engine>, launched per session
//
// # Cancellation
//
// Every blocking Session call takes a context. When the context ends while
// an exchange is in progress the underlying stream is closed, the call
// returns promptly and the session is unusable afterwards.
package transport
