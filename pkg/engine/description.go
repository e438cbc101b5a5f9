package engine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// DescriptionFile is the build description read from a project directory.
const DescriptionFile = "build-models.yaml"

// Description lists the models a build provides.
//
//	models:
//	  GradleBuild:
//	    rootProject: app
//	failures:
//	  ProjectPublications: publishing plugin not applied
type Description struct {
	// Models maps a category to the model value returned for it.
	Models map[string]any `yaml:"models"`

	// Failures maps a category to the message of a failed build.
	Failures map[string]string `yaml:"failures"`
}

// LoadDescription reads DescriptionFile from rootDir. A missing file yields
// an empty description: the build exists but provides no models.
func LoadDescription(rootDir string) (*Description, error) {
	data, err := os.ReadFile(filepath.Join(rootDir, DescriptionFile))
	if errors.Is(err, os.ErrNotExist) {
		return &Description{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading build description: %w", err)
	}
	return ParseDescription(data)
}

// ParseDescription decodes a build description.
func ParseDescription(data []byte) (*Description, error) {
	var d Description
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("parsing build description: %w", err)
	}
	for category := range d.Failures {
		if _, dup := d.Models[category]; dup {
			return nil, fmt.Errorf("build description: %s is listed as both a model and a failure", category)
		}
	}
	return &d, nil
}

// Categories returns every category the description mentions, sorted.
func (d *Description) Categories() []string {
	out := make([]string, 0, len(d.Models)+len(d.Failures))
	for c := range d.Models {
		out = append(out, c)
	}
	for c := range d.Failures {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Registry returns a registry serving the described models and failures.
func (d *Description) Registry() *Registry {
	r := NewRegistry()
	for category, model := range d.Models {
		r.Register(category, StaticBuilder(model))
	}
	for category, message := range d.Failures {
		r.Register(category, FailingBuilder(message))
	}
	return r
}
