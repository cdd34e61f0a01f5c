package styleengine

import (
	"fmt"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

// Locale holds the localized terms a style interpolates into rendered
// output. Definitions are YAML documents of the form:
//
//	terms:
//	  and: and
//	  et-al: et al.
//	  no-date: n.d.
type Locale struct {
	Tag   language.Tag      `yaml:"-"`
	Terms map[string]string `yaml:"terms"`
}

// ParseLocale decodes a locale definition and validates its BCP-47 name.
func ParseLocale(name, definition string) (*Locale, error) {
	tag, err := language.Parse(name)
	if err != nil {
		return nil, fmt.Errorf("invalid locale tag %q: %w", name, err)
	}

	loc := &Locale{Tag: tag}
	if err := yaml.Unmarshal([]byte(definition), loc); err != nil {
		return nil, fmt.Errorf("decode locale %q: %w", name, err)
	}
	if loc.Terms == nil {
		loc.Terms = map[string]string{}
	}
	return loc, nil
}

// Term returns a localized term, falling back when the locale omits it.
func (l *Locale) Term(name, fallback string) string {
	if v, ok := l.Terms[name]; ok {
		return v
	}
	return fallback
}
