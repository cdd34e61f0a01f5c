package refstore

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// YAMLImporter parses a YAML document of the form:
//
//	smith2020:
//	  title: "A Simple Test"
//	  authors:
//	    - family: Smith
//	      given: Jane
//	  year: 2020
//
// It is the default importer. Hosts with BibTeX or CSL-JSON sources plug in
// their own Importer at session creation.
type YAMLImporter struct{}

// Parse implements Importer.
func (YAMLImporter) Parse(raw []byte) (map[string]Entry, error) {
	var entries map[string]Entry
	if err := yaml.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode reference YAML: %w", err)
	}
	if len(entries) == 0 {
		// An empty reference set is legal (the renderer has a sentinel for
		// it); nil maps just normalize to empty.
		return map[string]Entry{}, nil
	}
	return entries, nil
}
