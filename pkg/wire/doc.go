// Package wire defines the CBOR wire format of the model exchange protocol.
//
// Every frame carries one Message. A Message has a type tag and exactly one
// body matching that tag; Validate enforces the pairing.
//
// # Exchange
//
//	client                          engine
//	  | Hello{protocol, root dir}     |
//	  |------------------------------>|
//	  |   HelloReply{protocol, version, product}
//	  |<------------------------------|
//	  | ModelRequest{id, category}    |
//	  |------------------------------>|
//	  |   ModelResponse{id, status, model}
//	  |<------------------------------|
//	  | Close                         |
//	  |------------------------------>|
//
// # CBOR Integer Keys
//
// All maps use integer keys for compactness. Model payloads are carried as
// raw CBOR so the protocol never needs to know their shape.
package wire
