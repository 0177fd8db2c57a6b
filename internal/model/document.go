package model

import "fmt"

// MalformedTreeError reports a sentence whose head references do not form
// a single rooted tree. It is recoverable: the reader skips the sentence
// and the rest of the document is still processed.
type MalformedTreeError struct {
	ArticleID  string
	SentenceID int
	Reason     string
}

func (e *MalformedTreeError) Error() string {
	return fmt.Sprintf("malformed tree: articleId=%s sentenceId=%d: %s",
		e.ArticleID, e.SentenceID, e.Reason)
}

// Sentence is an ordered sequence of tokens plus the derived child index.
// Immutable once built.
type Sentence struct {
	ID     int
	tokens []Token

	children [][]int // children[id] = ordered child token ids, index 0 unused
	root     int
}

// NewSentence validates the token list and builds the child index in O(n).
// Token ids must be contiguous starting at 1; heads must form a single
// rooted acyclic tree.
func NewSentence(articleID string, sentenceID int, tokens []Token) (*Sentence, error) {
	fail := func(format string, args ...interface{}) error {
		return &MalformedTreeError{
			ArticleID:  articleID,
			SentenceID: sentenceID,
			Reason:     fmt.Sprintf(format, args...),
		}
	}

	n := len(tokens)
	if n == 0 {
		return nil, fail("empty sentence")
	}

	s := &Sentence{
		ID:       sentenceID,
		tokens:   tokens,
		children: make([][]int, n+1),
	}

	root := 0
	for i, t := range tokens {
		if t.ID != i+1 {
			return nil, fail("token ids not contiguous: got %d at position %d", t.ID, i+1)
		}
		if t.Head < 0 || t.Head > n {
			return nil, fail("token %d: head %d out of range", t.ID, t.Head)
		}
		if t.Head == t.ID {
			return nil, fail("token %d is its own head", t.ID)
		}
		if t.Head == 0 {
			if root != 0 {
				return nil, fail("multiple roots: %d and %d", root, t.ID)
			}
			root = t.ID
		} else {
			s.children[t.Head] = append(s.children[t.Head], t.ID)
		}
	}
	if root == 0 {
		return nil, fail("no root token")
	}
	s.root = root

	// A cycle cannot contain the root, so any token that fails to reach
	// the root within n steps sits on one.
	for _, t := range tokens {
		steps := 0
		for id := t.ID; id != root; id = s.tokens[id-1].Head {
			steps++
			if steps > n {
				return nil, fail("cycle through token %d", t.ID)
			}
		}
	}

	return s, nil
}

// Len returns the number of tokens.
func (s *Sentence) Len() int { return len(s.tokens) }

// Root returns the id of the root token.
func (s *Sentence) Root() int { return s.root }

// Token returns the token with the given 1-based id.
func (s *Sentence) Token(id int) (Token, bool) {
	if id < 1 || id > len(s.tokens) {
		return Token{}, false
	}
	return s.tokens[id-1], true
}

// Tokens returns the tokens in surface order. The caller must not mutate
// the returned slice.
func (s *Sentence) Tokens() []Token { return s.tokens }

// Children returns the ordered child ids of a token.
func (s *Sentence) Children(id int) []int {
	if id < 1 || id >= len(s.children) {
		return nil
	}
	return s.children[id]
}

// Head returns the head id of a token (0 for the root).
func (s *Sentence) Head(id int) int {
	t, ok := s.Token(id)
	if !ok {
		return 0
	}
	return t.Head
}

// Ancestors returns the chain of head ids from the token towards the root,
// at most maxDepth long (maxDepth <= 0 means up to the root). The walk is
// iterative and additionally capped at sentence length, so it terminates
// even on inputs that slipped past tree validation.
func (s *Sentence) Ancestors(id, maxDepth int) []int {
	if maxDepth <= 0 || maxDepth > len(s.tokens) {
		maxDepth = len(s.tokens)
	}
	var out []int
	cur := s.Head(id)
	for cur != 0 && len(out) < maxDepth {
		out = append(out, cur)
		cur = s.Head(cur)
	}
	return out
}

// Siblings returns the ids of tokens sharing the token's head, in surface
// order, excluding the token itself. The root has no siblings.
func (s *Sentence) Siblings(id int) []int {
	t, ok := s.Token(id)
	if !ok || t.Head == 0 {
		return nil
	}
	var out []int
	for _, c := range s.Children(t.Head) {
		if c != id {
			out = append(out, c)
		}
	}
	return out
}

// Descendants returns all ids in the subtree below the token (excluding
// the token), breadth-first, at most maxDepth levels deep (maxDepth <= 0
// means the whole subtree). The walk keeps a visited set so it terminates
// on any input.
func (s *Sentence) Descendants(id, maxDepth int) []int {
	if maxDepth <= 0 || maxDepth > len(s.tokens) {
		maxDepth = len(s.tokens)
	}
	var out []int
	visited := make(map[int]bool, len(s.tokens))
	visited[id] = true
	frontier := []int{id}
	for depth := 0; depth < maxDepth && len(frontier) > 0; depth++ {
		var next []int
		for _, cur := range frontier {
			for _, c := range s.Children(cur) {
				if !visited[c] {
					visited[c] = true
					out = append(out, c)
					next = append(next, c)
				}
			}
		}
		frontier = next
	}
	return out
}

// SubtreeExtent returns the surface extent (min and max token id) of the
// subtree rooted at the token, including the token itself.
func (s *Sentence) SubtreeExtent(id int) Span {
	start, end := id, id
	for _, d := range s.Descendants(id, 0) {
		if d < start {
			start = d
		}
		if d > end {
			end = d
		}
	}
	return Span{Start: start, End: end}
}

// Document is an ordered sequence of sentences from one source article.
type Document struct {
	ArticleID string
	Sentences []*Sentence
}

// Sentence returns the sentence with the given id, if present.
func (d *Document) Sentence(id int) (*Sentence, bool) {
	for _, s := range d.Sentences {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}
