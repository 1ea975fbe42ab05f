package labels

import (
	_ "embed"
	"sync"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

//go:embed guidance.yaml
var guidanceYAML []byte

// Guidance is the treatment advice attached to a class label
type Guidance struct {
	Description string   `yaml:"description"`
	Suggestions []string `yaml:"suggestions"`
}

// DefaultGuidance is returned for labels without an entry
var DefaultGuidance = Guidance{
	Description: "No description available.",
	Suggestions: []string{"Consult agronomy resources for treatment."},
}

var (
	guidanceOnce  sync.Once
	guidanceTable map[string]Guidance
	guidanceErr   error
)

// ParseGuidance decodes a label -> guidance YAML document
func ParseGuidance(data []byte) (map[string]Guidance, error) {
	table := make(map[string]Guidance)
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, errors.Wrap(err, "could not parse guidance table")
	}
	return table, nil
}

// GuidanceFor returns the embedded guidance for label, falling back to
// DefaultGuidance for unknown labels.
func GuidanceFor(label string) (Guidance, error) {
	guidanceOnce.Do(func() {
		guidanceTable, guidanceErr = ParseGuidance(guidanceYAML)
	})
	if guidanceErr != nil {
		return Guidance{}, guidanceErr
	}
	if g, ok := guidanceTable[label]; ok {
		return g, nil
	}
	return DefaultGuidance, nil
}
