package wire

// Status represents a response status code.
type Status uint8

const (
	// StatusSuccess indicates the operation completed successfully.
	StatusSuccess Status = 0

	// StatusNoBuilder indicates the build registers no builder for the
	// requested category.
	StatusNoBuilder Status = 1

	// StatusBuildFailed indicates a builder exists but failed to produce
	// the model.
	StatusBuildFailed Status = 2

	// StatusBadRequest indicates the request could not be understood.
	StatusBadRequest Status = 3

	// StatusUnsupportedProtocol indicates a protocol version mismatch
	// during the handshake.
	StatusUnsupportedProtocol Status = 4

	// StatusInvalidBuild indicates the requested root directory is not a
	// build the engine can load.
	StatusInvalidBuild Status = 5
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusSuccess:
		return "SUCCESS"
	case StatusNoBuilder:
		return "NO_BUILDER"
	case StatusBuildFailed:
		return "BUILD_FAILED"
	case StatusBadRequest:
		return "BAD_REQUEST"
	case StatusUnsupportedProtocol:
		return "UNSUPPORTED_PROTOCOL"
	case StatusInvalidBuild:
		return "INVALID_BUILD"
	default:
		return "UNKNOWN"
	}
}

// IsSuccess returns true if the status indicates success.
func (s Status) IsSuccess() bool {
	return s == StatusSuccess
}
