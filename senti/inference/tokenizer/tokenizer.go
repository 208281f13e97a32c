package tokenizer

import (
	"fmt"
)

// Tokenizer converts raw text into a fixed-length sequence of vocabulary ids
type Tokenizer interface {
	Tokenize(text string) Encoding
	MaxSeqLen() int
}

// Encoding is the result of tokenizing a single text.
// Unknown lists out-of-vocabulary tokens for diagnostics; those tokens are
// still encoded as 0 in IDs, exactly like padding.
type Encoding struct {
	Tokens  []string
	IDs     []int64
	Unknown []string
}

// ErrInvalidLength indicates a non-positive sequence length
var ErrInvalidLength = fmt.Errorf("sequence length must be positive")

// SequenceTokenizer normalizes text and encodes it against a vocabulary
type SequenceTokenizer struct {
	vocab     Lookup
	maxSeqLen int
}

// NewSequenceTokenizer binds a vocabulary to a fixed output length
func NewSequenceTokenizer(vocab Lookup, maxSeqLen int) (*SequenceTokenizer, error) {
	if vocab == nil {
		return nil, fmt.Errorf("vocabulary is required")
	}
	if maxSeqLen <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLength, maxSeqLen)
	}
	return &SequenceTokenizer{vocab: vocab, maxSeqLen: maxSeqLen}, nil
}

func (s *SequenceTokenizer) MaxSeqLen() int { return s.maxSeqLen }

func (s *SequenceTokenizer) Tokenize(text string) Encoding {
	tokens := Normalize(text)
	var unknown []string
	for _, tok := range tokens {
		if _, ok := s.vocab.Lookup(tok); !ok {
			unknown = append(unknown, tok)
		}
	}
	return Encoding{
		Tokens:  tokens,
		IDs:     Encode(tokens, s.vocab, s.maxSeqLen),
		Unknown: unknown,
	}
}
