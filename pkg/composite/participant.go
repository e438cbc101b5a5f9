package composite

import (
	"fmt"

	"github.com/tooling-api/tooling-go/pkg/version"
)

// Installation names the engine that serves a participant.
type Installation struct {
	// Location is an installation directory or a tcp://host:port address.
	Location string

	// Version, when set, is the engine version of the installation. It
	// lets version-gated categories be rejected without contacting the
	// engine.
	Version string
}

// Participant is one build taking part in a composite retrieval.
// Participants are immutable.
type Participant struct {
	identity     BuildIdentity
	installation Installation
	declared     version.EngineVersion
}

// NewParticipant validates root and inst and returns a participant.
// Invalid input yields a *UsageError wrapping ErrInvalidParticipant.
func NewParticipant(root string, inst Installation) (Participant, error) {
	id, err := NewBuildIdentity(root)
	if err != nil {
		return Participant{}, &UsageError{Op: "NewParticipant", Err: ErrInvalidParticipant, Detail: err.Error()}
	}
	if inst.Location == "" {
		return Participant{}, &UsageError{
			Op:     "NewParticipant",
			Err:    ErrInvalidParticipant,
			Detail: fmt.Sprintf("no engine installation for %s", id),
		}
	}

	p := Participant{identity: id, installation: inst}
	if inst.Version != "" {
		v, err := version.ParseEngine(inst.Version)
		if err != nil {
			return Participant{}, &UsageError{Op: "NewParticipant", Err: ErrInvalidParticipant, Detail: err.Error()}
		}
		p.declared = v
	}
	return p, nil
}

// Identity returns the participant's canonical identity.
func (p Participant) Identity() BuildIdentity { return p.identity }

// Installation returns the engine installation.
func (p Participant) Installation() Installation { return p.installation }

// DeclaredVersion returns the installation version, zero if not declared.
func (p Participant) DeclaredVersion() version.EngineVersion { return p.declared }
