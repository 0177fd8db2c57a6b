package rules

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Condition is one node of a rule's boolean tree. Exactly one field may be
// set per node: an operator (all/any/not), a token-attribute test, a tree
// relation, or a sentence-position test. Conditions are read-only once
// loaded.
type Condition struct {
	All []*Condition `yaml:"all,omitempty"`
	Any []*Condition `yaml:"any,omitempty"`
	Not *Condition   `yaml:"not,omitempty"`

	Form    *TextMatch    `yaml:"form,omitempty"`
	Lemma   *TextMatch    `yaml:"lemma,omitempty"`
	POS     *TextMatch    `yaml:"pos,omitempty"`
	Rel     *TextMatch    `yaml:"rel,omitempty"`
	Feature *FeatureMatch `yaml:"feature,omitempty"`

	Child      *Relation `yaml:"child,omitempty"`
	Head       *Relation `yaml:"head,omitempty"`
	Ancestor   *Relation `yaml:"ancestor,omitempty"`
	Descendant *Relation `yaml:"descendant,omitempty"`
	Sibling    *Relation `yaml:"sibling,omitempty"`

	Position string `yaml:"position,omitempty"` // first|last|before-anchor|after-anchor
}

// TextMatch tests a token attribute against a literal, a list, a regular
// expression, or a named lexicon from the rule file. In YAML a bare scalar
// means an exact match and a sequence means one-of.
type TextMatch struct {
	Exact   string
	In      []string
	Pattern string
	Lexicon string
}

type textMatchSpec struct {
	In      []string `yaml:"in,omitempty"`
	Pattern string   `yaml:"pattern,omitempty"`
	Lexicon string   `yaml:"lexicon,omitempty"`
}

// UnmarshalYAML accepts the scalar, sequence and mapping forms.
func (m *TextMatch) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		return value.Decode(&m.Exact)
	case yaml.SequenceNode:
		return value.Decode(&m.In)
	case yaml.MappingNode:
		var spec textMatchSpec
		if err := value.Decode(&spec); err != nil {
			return err
		}
		m.In = spec.In
		m.Pattern = spec.Pattern
		m.Lexicon = spec.Lexicon
		return nil
	}
	return fmt.Errorf("line %d: unsupported value for text match", value.Line)
}

// values returns the literal values the match references, if any.
func (m *TextMatch) values() []string {
	if m.Exact != "" {
		return []string{m.Exact}
	}
	return m.In
}

// FeatureMatch tests a morphological feature, optionally against a value.
type FeatureMatch struct {
	Name  string `yaml:"name"`
	Value string `yaml:"value,omitempty"`
}

// Relation tests for a related token (child, head, ancestor, descendant or
// sibling of the current token) whose edge label matches Rel and which
// satisfies the nested Match condition. The first such token, in the
// relation's canonical order, is bound under As.
type Relation struct {
	As    string     `yaml:"as,omitempty"`
	Rel   *TextMatch `yaml:"rel,omitempty"`
	Depth int        `yaml:"depth,omitempty"` // max traversal distance; 0 = relation default
	Match *Condition `yaml:"match,omitempty"`
}

// Action describes the span(s) a matched rule emits, relative to the
// anchor and to names bound during matching.
type Action struct {
	Span       *SpanSpec `yaml:"span,omitempty"`
	Type       string    `yaml:"type,omitempty"` // direct|indirect|mixed|auto
	Actor      string    `yaml:"actor,omitempty"`
	OpenEnded  bool      `yaml:"open-ended,omitempty"`
	DashExtend bool      `yaml:"dash-extend,omitempty"`
}

// SpanSpec names how the emitted span is computed. Exactly one field may
// be set; each references a bound name or the literal "anchor".
type SpanSpec struct {
	Subtree   string `yaml:"subtree,omitempty"`    // subtree extent of the node
	Token     string `yaml:"token,omitempty"`      // the single token
	QuotePair string `yaml:"quote-pair,omitempty"` // opening mark to its matching partner
}
