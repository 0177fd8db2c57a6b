package pipeline

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/flopo/quotedetect/internal/model"
)

// Reader reads dependency-parsed documents from the CoNLL-CSV token table
// format: one row per token with columns articleId, paragraphId,
// sentenceId, wordId, word, lemma, upos, feats, head, deprel, misc.
// Rows are expected grouped by article and ordered by sentence and word.
type Reader struct {
	log *zap.Logger
}

// NewReader creates a reader. A nil logger disables diagnostics.
func NewReader(log *zap.Logger) *Reader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Reader{log: log}
}

// ReadFile reads all documents from a token-table file.
func (r *Reader) ReadFile(path string) ([]*model.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	defer f.Close()
	return r.Read(f)
}

var requiredColumns = []string{
	"articleId", "paragraphId", "sentenceId", "wordId",
	"word", "lemma", "upos", "feats", "head", "deprel",
}

// Read reads all documents from CSV input. Malformed sentences are logged
// and skipped; only unreadable input or a missing column is fatal.
func (r *Reader) Read(src io.Reader) ([]*model.Document, error) {
	cr := csv.NewReader(src)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("missing column %q in token table", name)
		}
	}
	field := func(rec []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	var (
		docs      []*model.Document
		doc       *model.Document
		sentID    int
		offset    int // running character offset within the article
		tokens    []model.Token
		sentBad   string // first structural problem seen in the pending sentence
		rowNumber int
	)

	flushSentence := func() {
		if doc == nil || (len(tokens) == 0 && sentBad == "") {
			tokens, sentBad = nil, ""
			return
		}
		if sentBad != "" {
			r.log.Warn("skipping malformed sentence",
				zap.String("articleId", doc.ArticleID),
				zap.Int("sentenceId", sentID),
				zap.String("reason", sentBad))
			tokens, sentBad = nil, ""
			return
		}
		s, err := model.NewSentence(doc.ArticleID, sentID, tokens)
		if err != nil {
			r.log.Warn("skipping malformed sentence", zap.Error(err))
		} else {
			doc.Sentences = append(doc.Sentences, s)
		}
		tokens, sentBad = nil, ""
	}
	flushDocument := func() {
		flushSentence()
		if doc != nil && len(doc.Sentences) > 0 {
			docs = append(docs, doc)
		}
		doc = nil
	}

	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read row: %w", err)
		}
		rowNumber++

		articleID := field(rec, "articleId")
		if doc == nil || articleID != doc.ArticleID {
			flushDocument()
			doc = &model.Document{ArticleID: articleID}
			offset = 0
		}

		rowSentID, err1 := strconv.Atoi(field(rec, "sentenceId"))
		wordID, err2 := strconv.Atoi(field(rec, "wordId"))
		if err1 != nil || err2 != nil {
			r.log.Warn("skipping row with non-numeric ids",
				zap.String("articleId", articleID), zap.Int("row", rowNumber))
			continue
		}
		if len(tokens) == 0 && sentBad == "" {
			sentID = rowSentID
		} else if rowSentID != sentID {
			flushSentence()
			sentID = rowSentID
		}

		form := field(rec, "word")
		if form == "" {
			// The upstream parser occasionally emits empty tokens; they
			// carry no structure worth keeping.
			r.log.Warn("ignoring empty token",
				zap.String("articleId", articleID),
				zap.Int("sentenceId", rowSentID),
				zap.Int("wordId", wordID))
			continue
		}

		head, err := strconv.Atoi(field(rec, "head"))
		if err != nil {
			sentBad = fmt.Sprintf("non-numeric head for word %d", wordID)
			continue
		}
		parID, _ := strconv.Atoi(field(rec, "paragraphId"))
		spaceAfter := !strings.Contains(field(rec, "misc"), "SpaceAfter=No")

		start := offset
		offset += len(form)
		tok := model.Token{
			ID:          wordID,
			Form:        form,
			Lemma:       field(rec, "lemma"),
			POS:         field(rec, "upos"),
			Feats:       model.ParseFeatures(field(rec, "feats")),
			Head:        head,
			Rel:         field(rec, "deprel"),
			ParagraphID: parID,
			StartChar:   start,
			EndChar:     offset,
			SpaceAfter:  spaceAfter,
		}
		if spaceAfter {
			offset++
		}
		tokens = append(tokens, tok)
	}
	flushDocument()

	return docs, nil
}
