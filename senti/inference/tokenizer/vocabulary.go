package tokenizer

import (
	"fmt"

	"github.com/armon/go-radix"
)

// Vocabulary is an immutable token -> index mapping backed by a radix tree.
// Index 0 is reserved for unknown tokens and padding.
type Vocabulary struct {
	tree     *radix.Tree
	maxIndex int64
}

// NewVocabulary copies entries into a new Vocabulary. Negative indices are rejected.
func NewVocabulary(entries map[string]int64) (*Vocabulary, error) {
	tree := radix.New()
	var maxIndex int64
	for tok, id := range entries {
		if id < 0 {
			return nil, fmt.Errorf("token %q has negative index %d", tok, id)
		}
		tree.Insert(tok, id)
		if id > maxIndex {
			maxIndex = id
		}
	}
	return &Vocabulary{tree: tree, maxIndex: maxIndex}, nil
}

// Lookup returns the index of token and whether it is present
func (v *Vocabulary) Lookup(token string) (int64, bool) {
	if v == nil || v.tree == nil {
		return 0, false
	}
	raw, ok := v.tree.Get(token)
	if !ok {
		return 0, false
	}
	return raw.(int64), true
}

func (v *Vocabulary) Len() int {
	if v == nil || v.tree == nil {
		return 0
	}
	return v.tree.Len()
}

// MaxIndex is the largest index in the vocabulary
func (v *Vocabulary) MaxIndex() int64 {
	if v == nil {
		return 0
	}
	return v.maxIndex
}

// WalkPrefix visits entries whose token starts with prefix in lexical order.
// Returning false from fn stops the walk.
func (v *Vocabulary) WalkPrefix(prefix string, fn func(token string, id int64) bool) {
	if v == nil || v.tree == nil {
		return
	}
	v.tree.WalkPrefix(prefix, func(s string, raw interface{}) bool {
		return !fn(s, raw.(int64))
	})
}
