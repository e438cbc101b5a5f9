package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/tooling-api/tooling-go/pkg/composite"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// resultView is the printable form of one participant's result.
type resultView struct {
	Build   string `json:"build" yaml:"build"`
	Root    string `json:"root" yaml:"root"`
	Outcome string `json:"outcome" yaml:"outcome"`
	Model   any    `json:"model,omitempty" yaml:"model,omitempty"`
	Error   string `json:"error,omitempty" yaml:"error,omitempty"`
}

func viewOf(r composite.ModelResult) resultView {
	id := r.BuildIdentity()
	v := resultView{Build: id.Fingerprint(), Root: id.Path(), Outcome: r.Outcome()}
	if m, ok := r.Model(); ok {
		var decoded any
		if err := m.Decode(&decoded); err != nil {
			v.Error = err.Error()
		} else {
			v.Model = decoded
		}
	}
	if err, failed := r.Failure(); failed {
		v.Error = err.Error()
	}
	return v
}

// renderResults writes results in order of the given participants.
func renderResults(w io.Writer, format string, rs *composite.ResultSet, participants []composite.Participant) error {
	views := make([]resultView, 0, rs.Len())
	for _, p := range participants {
		r, err := rs.FindByIdentity(p.Identity())
		if err != nil {
			return err
		}
		views = append(views, viewOf(r))
	}

	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(views)
	case formatYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(views)
	case formatText, "":
		for _, v := range views {
			fmt.Fprintf(w, "%s  %s  %s\n", v.Build, v.Outcome, v.Root)
			if v.Error != "" {
				fmt.Fprintf(w, "    %s\n", v.Error)
				continue
			}
			out, err := yaml.Marshal(v.Model)
			if err != nil {
				return err
			}
			for _, line := range strings.Split(strings.TrimRight(string(out), "\n"), "\n") {
				fmt.Fprintf(w, "    %s\n", line)
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (must be text, json, or yaml)", format)
	}
}
