// Package catalog provides a deterministic, concurrency-safe in-memory index
// over the company's equipment price list. The list is read from a Markdown
// table and is used to ground the assistant's suggestions; it is never the
// source of truth for a quoted price.
//
//   - No logging in the library (callers decide how/what to log)
//   - Accent-insensitive tokenization with Portuguese stop words
//   - Immutable after construction (safe for concurrent use)
//   - Deterministic scoring and ordering (stable order for ties)
//
// Scoring uses Jaccard similarity between the query token set and each
// entry's token set: score = |Q ∩ E| / |Q ∪ E|.
package catalog

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/tbourn/go-orcamento-backend/internal/proposal"
	"github.com/tbourn/go-orcamento-backend/internal/utils"
)

// Entry is one row of the price list.
type Entry struct {
	Code         string
	Name         string
	Category     string
	Monthly      proposal.Money
	Installation proposal.Money
}

// Line renders the entry for a prompt. Unknown prices read "sob consulta".
func (e Entry) Line() string {
	price := func(m proposal.Money) string {
		if !m.Known {
			return "sob consulta"
		}
		return proposal.FormatBRL(m.Amount)
	}
	var b strings.Builder
	if e.Code != "" {
		b.WriteString("[" + e.Code + "] ")
	}
	b.WriteString(e.Name)
	if e.Category != "" {
		b.WriteString(" (" + e.Category + ")")
	}
	fmt.Fprintf(&b, " | mensal: %s | instalação: %s", price(e.Monthly), price(e.Installation))
	return b.String()
}

// Result is a ranked entry with its similarity score.
type Result struct {
	Entry Entry
	Score float64
}

// Index is the read interface over a loaded price list.
type Index interface {
	TopK(query string, k int) []Result
	Len() int
}

// ----------------------------------------------------------------------------
// Options

type Option func(*config)

type config struct {
	stopwords  map[string]struct{}
	maxEntries int
}

var defaultStopwords = []string{
	"a", "o", "as", "os", "de", "da", "do", "das", "dos", "e", "em", "na", "no",
	"nas", "nos", "para", "por", "com", "um", "uma", "que", "se", "ao",
}

func defaultConfig() config {
	c := config{}
	WithStopwords(defaultStopwords)(&c)
	return c
}

// WithStopwords replaces the stop-word list. An empty list keeps the current one.
func WithStopwords(words []string) Option {
	return func(c *config) {
		m := make(map[string]struct{}, len(words))
		for _, w := range words {
			w = utils.Fold(w)
			if w != "" {
				m[w] = struct{}{}
			}
		}
		if len(m) > 0 {
			c.stopwords = m
		}
	}
}

// WithMaxEntries caps how many rows are indexed.
func WithMaxEntries(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.maxEntries = n
		}
	}
}

// ----------------------------------------------------------------------------
// Implementation

type doc struct {
	entry  Entry
	tokens map[string]struct{}
	key    string
}

type index struct {
	cfg  config
	docs []doc
}

// LoadMarkdown builds an Index from the Markdown price table at path. On a
// read error it returns an empty, usable index together with the error.
func LoadMarkdown(path string, opts ...Option) (Index, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return &index{cfg: defaultConfig()}, err
	}
	return NewFromReader(bytes.NewReader(b), opts...)
}

// NewFromReader builds an Index from Markdown read from r.
func NewFromReader(r io.Reader, opts ...Option) (Index, error) {
	entries, err := ParseMarkdown(r)
	if err != nil {
		cfg := defaultConfig()
		return &index{cfg: cfg}, err
	}
	return NewFromEntries(entries, opts...), nil
}

// NewFromEntries builds an Index directly from entries.
func NewFromEntries(entries []Entry, opts ...Option) Index {
	cfg := defaultConfig()
	for _, o := range opts {
		o(&cfg)
	}
	docs := make([]doc, 0, len(entries))
	for _, e := range entries {
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			continue
		}
		toks := tokenize(e.Name+" "+e.Code+" "+e.Category, cfg.stopwords)
		if len(toks) == 0 {
			continue
		}
		docs = append(docs, doc{entry: e, tokens: toks, key: utils.Fold(e.Name)})
		if cfg.maxEntries > 0 && len(docs) >= cfg.maxEntries {
			break
		}
	}
	return &index{cfg: cfg, docs: docs}
}

func (i *index) Len() int { return len(i.docs) }

// TopK returns up to k entries ranked by Jaccard similarity to query.
// Ties are broken by shorter name, then alphabetically.
func (i *index) TopK(query string, k int) []Result {
	if len(i.docs) == 0 || strings.TrimSpace(query) == "" {
		return nil
	}
	if k <= 0 {
		k = 5
	}
	q := tokenize(query, i.cfg.stopwords)
	if len(q) == 0 {
		return nil
	}

	type scored struct {
		d     *doc
		score float64
	}
	buf := make([]scored, 0, min(k*4, len(i.docs)))
	for n := range i.docs {
		d := &i.docs[n]
		over := overlap(q, d.tokens)
		if over == 0 {
			continue
		}
		union := float64(len(q) + len(d.tokens) - over)
		buf = append(buf, scored{d: d, score: float64(over) / union})
	}
	if len(buf) == 0 {
		return nil
	}

	sort.SliceStable(buf, func(a, b int) bool {
		if buf[a].score != buf[b].score {
			return buf[a].score > buf[b].score
		}
		if la, lb := len(buf[a].d.key), len(buf[b].d.key); la != lb {
			return la < lb
		}
		return buf[a].d.key < buf[b].d.key
	})

	if k > len(buf) {
		k = len(buf)
	}
	out := make([]Result, k)
	for n := 0; n < k; n++ {
		out[n] = Result{Entry: buf[n].d.entry, Score: buf[n].score}
	}
	return out
}

// ----------------------------------------------------------------------------
// Helpers

var wordRE = regexp.MustCompile(`\p{L}+\p{N}*|\p{N}+\p{L}+`)

// tokenize folds accents and case and trims a plural "s" so that "câmeras"
// matches "Câmera".
func tokenize(s string, stop map[string]struct{}) map[string]struct{} {
	words := wordRE.FindAllString(utils.Fold(s), -1)
	if len(words) == 0 {
		return nil
	}
	out := make(map[string]struct{}, len(words))
	for _, w := range words {
		if _, skip := stop[w]; skip {
			continue
		}
		if len(w) > 3 && strings.HasSuffix(w, "s") {
			w = strings.TrimSuffix(w, "s")
		}
		out[w] = struct{}{}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func overlap(a, b map[string]struct{}) int {
	if len(a) > len(b) {
		a, b = b, a
	}
	n := 0
	for k := range a {
		if _, ok := b[k]; ok {
			n++
		}
	}
	return n
}
