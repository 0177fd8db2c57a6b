// Package match evaluates rule condition trees against anchor tokens.
// Matching is pure: the same rule, sentence and anchor always yield the
// same result, and the sentence is never mutated.
package match

import (
	"regexp"

	gocache "github.com/patrickmn/go-cache"

	"github.com/flopo/quotedetect/internal/model"
	"github.com/flopo/quotedetect/internal/rules"
)

// Bindings maps names bound during matching to token ids. Every binding
// set always contains "anchor".
type Bindings map[string]int

func (b Bindings) clone() Bindings {
	c := make(Bindings, len(b))
	for k, v := range b {
		c[k] = v
	}
	return c
}

// regexCache memoizes compiled patterns process-wide. The rule set is
// shared read-only across parallel document workers, so the cache sees
// the same small pattern population from every goroutine.
var regexCache = gocache.New(gocache.NoExpiration, 0)

func compilePattern(pattern string) (*regexp.Regexp, error) {
	if v, ok := regexCache.Get(pattern); ok {
		return v.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(`\A(?:` + pattern + `)\z`)
	if err != nil {
		return nil, err
	}
	regexCache.Set(pattern, re, gocache.NoExpiration)
	return re, nil
}

// Matcher evaluates conditions from one rule set. It carries no per-match
// state and is safe for concurrent use.
type Matcher struct {
	rs *rules.RuleSet
}

// NewMatcher creates a matcher over the loaded rule set (needed for
// lexicon lookups in text predicates).
func NewMatcher(rs *rules.RuleSet) *Matcher {
	return &Matcher{rs: rs}
}

// Match evaluates the rule's condition tree at the anchor token. On
// success it returns the bindings collected along the way, always
// including "anchor".
func (m *Matcher) Match(rule *rules.Rule, s *model.Sentence, anchor int) (Bindings, bool) {
	if _, ok := s.Token(anchor); !ok {
		return nil, false
	}
	binds := Bindings{"anchor": anchor}
	if !m.eval(rule.Match, s, anchor, anchor, binds) {
		return nil, false
	}
	return binds, true
}

func (m *Matcher) eval(c *rules.Condition, s *model.Sentence, tok, anchor int, binds Bindings) bool {
	switch {
	case c.All != nil:
		for _, sub := range c.All {
			if !m.eval(sub, s, tok, anchor, binds) {
				return false
			}
		}
		return true

	case c.Any != nil:
		// The first matching branch wins and only its bindings survive.
		for _, sub := range c.Any {
			scratch := binds.clone()
			if m.eval(sub, s, tok, anchor, scratch) {
				for k, v := range scratch {
					binds[k] = v
				}
				return true
			}
		}
		return false

	case c.Not != nil:
		// Negation discards its child's bindings.
		return !m.eval(c.Not, s, tok, anchor, binds.clone())

	case c.Form != nil:
		t, _ := s.Token(tok)
		return m.evalText(c.Form, t.Form)
	case c.Lemma != nil:
		t, _ := s.Token(tok)
		return m.evalText(c.Lemma, t.Lemma)
	case c.POS != nil:
		t, _ := s.Token(tok)
		return m.evalText(c.POS, t.POS)
	case c.Rel != nil:
		t, _ := s.Token(tok)
		return m.evalText(c.Rel, t.Rel)
	case c.Feature != nil:
		t, _ := s.Token(tok)
		return t.Feats.Has(c.Feature.Name, c.Feature.Value)

	case c.Child != nil:
		return m.evalRelation(c.Child, s, tok, anchor, binds, m.childEdges(s, tok))
	case c.Head != nil:
		return m.evalRelation(c.Head, s, tok, anchor, binds, m.headEdge(s, tok))
	case c.Ancestor != nil:
		return m.evalRelation(c.Ancestor, s, tok, anchor, binds, m.ancestorEdges(s, tok, c.Ancestor.Depth))
	case c.Descendant != nil:
		return m.evalRelation(c.Descendant, s, tok, anchor, binds, m.descendantEdges(s, tok, c.Descendant.Depth))
	case c.Sibling != nil:
		return m.evalRelation(c.Sibling, s, tok, anchor, binds, m.siblingEdges(s, tok))

	case c.Position != "":
		switch c.Position {
		case "first":
			return tok == 1
		case "last":
			return tok == s.Len()
		case "before-anchor":
			return tok < anchor
		case "after-anchor":
			return tok > anchor
		}
		return false
	}
	return false
}

// edge is one candidate for a relation predicate: the related token plus
// the label of the dependency edge connecting it towards the current token.
type edge struct {
	id    int
	label string
}

// evalRelation tests the candidates in order; the first one whose edge
// label and nested condition both hold is bound under the relation's name.
func (m *Matcher) evalRelation(rel *rules.Relation, s *model.Sentence, tok, anchor int, binds Bindings, candidates []edge) bool {
	for _, cand := range candidates {
		if rel.Rel != nil && !m.evalText(rel.Rel, cand.label) {
			continue
		}
		scratch := binds.clone()
		if rel.Match != nil && !m.eval(rel.Match, s, cand.id, anchor, scratch) {
			continue
		}
		for k, v := range scratch {
			binds[k] = v
		}
		if rel.As != "" {
			binds[rel.As] = cand.id
		}
		return true
	}
	return false
}

func (m *Matcher) childEdges(s *model.Sentence, tok int) []edge {
	var out []edge
	for _, c := range s.Children(tok) {
		t, _ := s.Token(c)
		out = append(out, edge{id: c, label: t.Rel})
	}
	return out
}

func (m *Matcher) headEdge(s *model.Sentence, tok int) []edge {
	t, ok := s.Token(tok)
	if !ok || t.Head == 0 {
		return nil
	}
	return []edge{{id: t.Head, label: t.Rel}}
}

// ancestorEdges walks towards the root, at most depth steps (0 = to the
// root). Each ancestor's edge label is the relation of the path node
// directly below it.
func (m *Matcher) ancestorEdges(s *model.Sentence, tok, depth int) []edge {
	if depth <= 0 || depth > s.Len() {
		depth = s.Len()
	}
	var out []edge
	prev := tok
	for len(out) < depth {
		t, ok := s.Token(prev)
		if !ok || t.Head == 0 {
			break
		}
		out = append(out, edge{id: t.Head, label: t.Rel})
		prev = t.Head
	}
	return out
}

func (m *Matcher) descendantEdges(s *model.Sentence, tok, depth int) []edge {
	var out []edge
	for _, d := range s.Descendants(tok, depth) {
		t, _ := s.Token(d)
		out = append(out, edge{id: d, label: t.Rel})
	}
	return out
}

func (m *Matcher) siblingEdges(s *model.Sentence, tok int) []edge {
	var out []edge
	for _, sib := range s.Siblings(tok) {
		t, _ := s.Token(sib)
		out = append(out, edge{id: sib, label: t.Rel})
	}
	return out
}

func (m *Matcher) evalText(tm *rules.TextMatch, value string) bool {
	switch {
	case tm.Exact != "":
		return value == tm.Exact
	case len(tm.In) > 0:
		for _, v := range tm.In {
			if value == v {
				return true
			}
		}
		return false
	case tm.Pattern != "":
		re, err := compilePattern(tm.Pattern)
		if err != nil {
			return false // rejected at load time; unreachable for loaded rules
		}
		return re.MatchString(value)
	case tm.Lexicon != "":
		return m.rs.InLexicon(tm.Lexicon, value)
	}
	return false
}
