package composite

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/tooling-api/tooling-go/pkg/wire"
)

// Model is a model returned by one participant's engine. The payload stays
// encoded until the caller decodes it into a type of its choosing.
type Model struct {
	category string
	raw      cbor.RawMessage
}

// NewModel wraps an encoded model payload.
func NewModel(category string, raw cbor.RawMessage) *Model {
	return &Model{category: category, raw: raw}
}

// Category returns the model category.
func (m *Model) Category() string { return m.category }

// Raw returns the encoded payload.
func (m *Model) Raw() cbor.RawMessage { return m.raw }

// Decode decodes the payload into v. Maps without a target type decode as
// map[string]any.
func (m *Model) Decode(v any) error {
	return wire.DecodeModel(m.raw, v)
}

// ModelResult is the outcome for one participant: exactly one of a model or
// a failure, tagged with the participant's identity.
type ModelResult struct {
	identity BuildIdentity
	model    *Model
	failure  error
}

// Succeeded returns a success result. It panics if model is nil.
func Succeeded(id BuildIdentity, model *Model) ModelResult {
	if model == nil {
		panic("composite: Succeeded with nil model")
	}
	return ModelResult{identity: id, model: model}
}

// Failed returns a failure result. It panics if err is nil.
func Failed(id BuildIdentity, err error) ModelResult {
	if err == nil {
		panic("composite: Failed with nil error")
	}
	return ModelResult{identity: id, failure: err}
}

// BuildIdentity returns the participant the result belongs to.
func (r ModelResult) BuildIdentity() BuildIdentity { return r.identity }

// Model returns the model of a successful result.
func (r ModelResult) Model() (*Model, bool) { return r.model, r.model != nil }

// Failure returns the error of a failed result.
func (r ModelResult) Failure() (error, bool) { return r.failure, r.failure != nil }

// Outcome names the result's classification, one of the Outcome constants.
func (r ModelResult) Outcome() string {
	if r.failure == nil {
		return OutcomeSuccess
	}
	var (
		unsupported *UnsupportedModelVersionError
		noModel     *NoModelAvailableError
		buildErr    *ModelBuildError
	)
	switch {
	case errors.As(r.failure, &unsupported):
		return OutcomeUnsupportedVersion
	case errors.As(r.failure, &noModel):
		return OutcomeNoModel
	case errors.As(r.failure, &buildErr):
		return OutcomeBuildFailed
	default:
		return OutcomeConnectionError
	}
}

// IsSuccess reports whether the result carries a model.
func (r ModelResult) IsSuccess() bool { return r.model != nil }

// String returns a one-line summary.
func (r ModelResult) String() string {
	if r.model != nil {
		return fmt.Sprintf("%s: %s model", r.identity, r.model.category)
	}
	return fmt.Sprintf("%s: %v", r.identity, r.failure)
}
