package composite

import (
	"errors"
	"fmt"
)

// Usage error causes. A UsageError unwraps to one of these.
var (
	ErrConnectionClosed     = errors.New("connection is closed")
	ErrDuplicateParticipant = errors.New("duplicate participant")
	ErrNoParticipants       = errors.New("no participants")
	ErrInvalidParticipant   = errors.New("invalid participant")
	ErrInvalidCategory      = errors.New("model category is required")
)

// UnsupportedModelVersionError reports an engine that predates the model
// category requested from it.
type UnsupportedModelVersionError struct {
	// Product is the engine product name used in the message.
	Product string

	// Category is the requested model category.
	Category string

	// ConnectedVersion is the participant's engine version.
	ConnectedVersion string

	// MinVersion is the version that added support for the category.
	MinVersion string

	// RequiredVersion is the version this client needs, which may be later
	// than MinVersion for categories that gained composite retrieval later.
	RequiredVersion string
}

func (e *UnsupportedModelVersionError) Error() string {
	return fmt.Sprintf("The version of %s you are using (%s) does not support building a model of type '%s'. "+
		"Support for building '%s' models was added in %s %s and is available in all later versions.",
		e.Product, e.ConnectedVersion, e.Category, e.Category, e.Product, e.MinVersion)
}

// NoModelAvailableError reports a build that has no builder for the
// requested category although its engine supports the category.
type NoModelAvailableError struct {
	Category string
}

func (e *NoModelAvailableError) Error() string {
	return fmt.Sprintf("No model of type '%s' is available in this build.", e.Category)
}

// ModelBuildError reports a builder that exists but failed.
type ModelBuildError struct {
	Category string
	Message  string
}

func (e *ModelBuildError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("Could not build a model of type '%s'.", e.Category)
	}
	return fmt.Sprintf("Could not build a model of type '%s': %s", e.Category, e.Message)
}

// ConnectionError reports a transport or process fault for one
// participant: the engine did not start, the handshake failed, the stream
// dropped or the fetch timed out.
type ConnectionError struct {
	Identity BuildIdentity
	Cause    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("could not fetch model from build %s: %v", e.Identity, e.Cause)
}

func (e *ConnectionError) Unwrap() error { return e.Cause }

// UsageError reports misuse of the client API. It is returned to the
// caller, never folded into a ResultSet.
type UsageError struct {
	// Op is the operation that was misused. It prefixes the message when set.
	Op string

	// Err is one of the Err* causes.
	Err error

	// Detail adds context, such as the offending path.
	Detail string
}

func (e *UsageError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.Detail)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	return msg
}

func (e *UsageError) Unwrap() error { return e.Err }

// MatchError reports a lookup that did not match exactly one result.
type MatchError struct {
	// Query describes what was searched for.
	Query string

	// Count is the number of matches.
	Count int
}

func (e *MatchError) Error() string {
	return fmt.Sprintf("expected exactly one result matching %s, found %d", e.Query, e.Count)
}
