// Package harness runs citation scenarios: YAML files describing a
// reference set and a sequence of citation steps, executed against a full
// in-memory session and compared against golden document snapshots.
//
// Scenarios exist so end-to-end rendering behavior (preview, reprocessing,
// bibliography assembly) is pinned as data rather than re-asserted
// piecemeal in every test.
package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines one end-to-end citation scenario.
type Scenario struct {
	// Name uniquely identifies the scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario pins down.
	Description string `yaml:"description"`

	// Style and Locale select the session's resources. Defaults: apa, en-US.
	Style  string `yaml:"style,omitempty"`
	Locale string `yaml:"locale,omitempty"`

	// Link enables citation linking.
	Link bool `yaml:"link,omitempty"`

	// References is the inline reference YAML fed to the session importer.
	References string `yaml:"references"`

	// Steps is the citation sequence.
	Steps []Step `yaml:"steps"`

	// ShowAll renders the bibliography over every known reference.
	ShowAll bool `yaml:"show_all,omitempty"`
}

// Step is one citation. Exactly one of Cite or Composite must be set;
// Prefix attaches free text to the first cited item.
type Step struct {
	Cite      []string `yaml:"cite,omitempty"`
	Composite []string `yaml:"composite,omitempty"`
	Prefix    string   `yaml:"prefix,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected so typos fail loudly instead of silently skipping steps.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if s.References == "" {
		return fmt.Errorf("references is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i, step := range s.Steps {
		switch {
		case len(step.Cite) > 0 && len(step.Composite) > 0:
			return fmt.Errorf("steps[%d]: cite and composite are mutually exclusive", i)
		case len(step.Cite) == 0 && len(step.Composite) == 0:
			return fmt.Errorf("steps[%d]: one of cite or composite is required", i)
		case step.Prefix != "" && len(step.Cite) == 0:
			return fmt.Errorf("steps[%d]: prefix requires cite", i)
		}
	}
	return nil
}
