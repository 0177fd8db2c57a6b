package rules

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// Kind partitions rules by what they detect.
type Kind string

const (
	KindQuote Kind = "quote"
	KindActor Kind = "actor"
)

// defaultPriority applies when a rule omits an explicit priority. Lower
// wins; equal priorities tie-break on declaration order.
const defaultPriority = 100

// InvalidRuleError reports a rule that failed semantic validation. It is
// fatal: the whole rule set is rejected, since running a partial policy
// would silently misclassify quotes.
type InvalidRuleError struct {
	RuleID string
	Reason string
}

func (e *InvalidRuleError) Error() string {
	return fmt.Sprintf("invalid rule %q: %s", e.RuleID, e.Reason)
}

// Rule is one declarative detection rule: a condition tree evaluated
// against an anchor token plus an action computing the emitted span(s).
type Rule struct {
	ID       string     `yaml:"id"`
	Kind     Kind       `yaml:"kind"`
	Priority *int       `yaml:"priority,omitempty"`
	Match    *Condition `yaml:"match"`
	Action   Action     `yaml:"action"`

	priority int
	order    int // declaration index in the rule file
}

// EffectivePriority returns the explicit priority, or the default when the
// rule omits one.
func (r *Rule) EffectivePriority() int { return r.priority }

// Order returns the rule's declaration index in the source file.
func (r *Rule) Order() int { return r.order }

// Before reports whether r takes precedence over other: lower priority
// number first, declaration order as tie-break.
func (r *Rule) Before(other *Rule) bool {
	if r.priority != other.priority {
		return r.priority < other.priority
	}
	return r.order < other.order
}

// RuleSet is the loaded, validated rule collection, partitioned by kind
// and ordered by precedence. Immutable after Load; safe for concurrent
// read-only use across parallel document processing.
type RuleSet struct {
	Quote []*Rule
	Actor []*Rule

	lexicon map[string]map[string]bool
}

// InLexicon reports whether the value belongs to the named lexicon list.
func (rs *RuleSet) InLexicon(name, value string) bool {
	return rs.lexicon[name][value]
}

// HasLexicon reports whether the rule file defines the named lexicon list.
func (rs *RuleSet) HasLexicon(name string) bool {
	_, ok := rs.lexicon[name]
	return ok
}

type ruleFile struct {
	Lexicon map[string][]string `yaml:"lexicon,omitempty"`
	Rules   []*Rule             `yaml:"rules"`
}

// Load reads and validates a YAML rule file.
func Load(path string) (*RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules: %w", err)
	}
	return Parse(data)
}

// Parse parses and validates rule source. The first invalid rule aborts
// the whole load.
func Parse(data []byte) (*RuleSet, error) {
	var file ruleFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(file.Rules) == 0 {
		return nil, fmt.Errorf("parse rules: no rules defined")
	}

	rs := &RuleSet{lexicon: make(map[string]map[string]bool, len(file.Lexicon))}
	for name, values := range file.Lexicon {
		set := make(map[string]bool, len(values))
		for _, v := range values {
			set[v] = true
		}
		rs.lexicon[name] = set
	}

	seen := make(map[string]bool, len(file.Rules))
	for i, r := range file.Rules {
		r.order = i
		r.priority = defaultPriority
		if r.Priority != nil {
			r.priority = *r.Priority
		}
		if err := rs.validate(r, seen); err != nil {
			return nil, err
		}
		seen[r.ID] = true
		switch r.Kind {
		case KindQuote:
			rs.Quote = append(rs.Quote, r)
		case KindActor:
			rs.Actor = append(rs.Actor, r)
		}
	}

	sort.SliceStable(rs.Quote, func(i, j int) bool { return rs.Quote[i].Before(rs.Quote[j]) })
	sort.SliceStable(rs.Actor, func(i, j int) bool { return rs.Actor[i].Before(rs.Actor[j]) })
	return rs, nil
}

func (rs *RuleSet) validate(r *Rule, seen map[string]bool) error {
	fail := func(format string, args ...interface{}) error {
		return &InvalidRuleError{RuleID: r.ID, Reason: fmt.Sprintf(format, args...)}
	}

	if r.ID == "" {
		return fail("missing id")
	}
	if seen[r.ID] {
		return fail("duplicate id")
	}
	if r.Kind != KindQuote && r.Kind != KindActor {
		return fail("unknown kind %q", r.Kind)
	}
	if r.Match == nil {
		return fail("missing match condition")
	}

	bound := map[string]bool{"anchor": true}
	if err := rs.validateCondition(r, r.Match, bound, false); err != nil {
		return err
	}

	switch r.Kind {
	case KindQuote:
		if r.Action.Span == nil {
			return fail("quote rule needs an action span")
		}
		target, n := "", 0
		for _, t := range []string{r.Action.Span.Subtree, r.Action.Span.Token, r.Action.Span.QuotePair} {
			if t != "" {
				target = t
				n++
			}
		}
		if n != 1 {
			return fail("action span must set exactly one of subtree, token, quote-pair")
		}
		if !bound[target] {
			return fail("action span references unbound name %q", target)
		}
		switch r.Action.Type {
		case "", "auto", "direct", "indirect", "mixed":
		default:
			return fail("unknown quote type %q", r.Action.Type)
		}
		if r.Action.Actor != "" && !bound[r.Action.Actor] {
			return fail("action actor references unbound name %q", r.Action.Actor)
		}
	case KindActor:
		if r.Action.Actor == "" {
			return fail("actor rule needs an action actor")
		}
		if !bound[r.Action.Actor] {
			return fail("action actor references unbound name %q", r.Action.Actor)
		}
		if r.Action.Span != nil {
			return fail("actor rules do not emit quote spans")
		}
		if r.Action.OpenEnded || r.Action.DashExtend {
			return fail("open-ended and dash-extend apply to quote rules only")
		}
	}
	return nil
}

// validateCondition checks one condition node and records names bound
// outside negation. Names bound only under NOT never survive a match, so
// an action may not reference them.
func (rs *RuleSet) validateCondition(r *Rule, c *Condition, bound map[string]bool, negated bool) error {
	fail := func(format string, args ...interface{}) error {
		return &InvalidRuleError{RuleID: r.ID, Reason: fmt.Sprintf(format, args...)}
	}

	set := 0
	for _, present := range []bool{
		c.All != nil, c.Any != nil, c.Not != nil,
		c.Form != nil, c.Lemma != nil, c.POS != nil, c.Rel != nil, c.Feature != nil,
		c.Child != nil, c.Head != nil, c.Ancestor != nil, c.Descendant != nil, c.Sibling != nil,
		c.Position != "",
	} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fail("condition node must set exactly one predicate, got %d", set)
	}

	switch {
	case c.All != nil:
		if len(c.All) == 0 {
			return fail("empty all")
		}
		for _, sub := range c.All {
			if err := rs.validateCondition(r, sub, bound, negated); err != nil {
				return err
			}
		}
	case c.Any != nil:
		if len(c.Any) == 0 {
			return fail("empty any")
		}
		for _, sub := range c.Any {
			if err := rs.validateCondition(r, sub, bound, negated); err != nil {
				return err
			}
		}
	case c.Not != nil:
		return rs.validateCondition(r, c.Not, bound, true)

	case c.Form != nil:
		return rs.validateText(r, "form", c.Form, nil)
	case c.Lemma != nil:
		return rs.validateText(r, "lemma", c.Lemma, nil)
	case c.POS != nil:
		return rs.validateText(r, "pos", c.POS, ValidPOS)
	case c.Rel != nil:
		return rs.validateText(r, "rel", c.Rel, ValidRelation)
	case c.Feature != nil:
		if c.Feature.Name == "" {
			return fail("feature test missing name")
		}
		if !ValidFeature(c.Feature.Name) {
			return fail("unknown feature %q", c.Feature.Name)
		}

	case c.Position != "":
		switch c.Position {
		case "first", "last", "before-anchor", "after-anchor":
		default:
			return fail("unknown position %q", c.Position)
		}

	default:
		rel := c.Child
		if rel == nil {
			rel = c.Head
		}
		if rel == nil {
			rel = c.Ancestor
		}
		if rel == nil {
			rel = c.Descendant
		}
		if rel == nil {
			rel = c.Sibling
		}
		if rel.Depth < 0 {
			return fail("negative traversal depth")
		}
		if rel.Rel != nil {
			if err := rs.validateText(r, "rel", rel.Rel, ValidRelation); err != nil {
				return err
			}
		}
		if rel.As != "" {
			if rel.As == "anchor" {
				return fail("bind name %q is reserved", rel.As)
			}
			if bound[rel.As] {
				return fail("duplicate bind name %q", rel.As)
			}
			if !negated {
				bound[rel.As] = true
			}
		}
		if rel.Match != nil {
			return rs.validateCondition(r, rel.Match, bound, negated)
		}
	}
	return nil
}

func (rs *RuleSet) validateText(r *Rule, field string, m *TextMatch, valid func(string) bool) error {
	fail := func(format string, args ...interface{}) error {
		return &InvalidRuleError{RuleID: r.ID, Reason: fmt.Sprintf(format, args...)}
	}

	set := 0
	if m.Exact != "" {
		set++
	}
	if len(m.In) > 0 {
		set++
	}
	if m.Pattern != "" {
		set++
	}
	if m.Lexicon != "" {
		set++
	}
	if set != 1 {
		return fail("%s test must set exactly one of a literal, in, pattern, lexicon", field)
	}

	if m.Pattern != "" {
		if _, err := regexp.Compile(m.Pattern); err != nil {
			return fail("%s pattern: %v", field, err)
		}
	}
	if m.Lexicon != "" {
		if field != "form" && field != "lemma" {
			return fail("lexicon tests apply to form and lemma only")
		}
		if !rs.HasLexicon(m.Lexicon) {
			return fail("unknown lexicon %q", m.Lexicon)
		}
	}
	if valid != nil {
		for _, v := range m.values() {
			if !valid(v) {
				return fail("unknown %s value %q", field, v)
			}
		}
	}
	return nil
}
