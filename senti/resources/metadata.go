package resources

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference/tokenizer"
)

// Metadata is the optional sidecar describing the exported model
type Metadata struct {
	// MaxSequenceLength is zero when the sidecar is absent or the value unusable
	MaxSequenceLength int            `json:"max_sequence_length,omitempty"`
	Raw               map[string]any `json:"-"`
}

// ParseMetadata decodes the metadata document. Only max_sequence_length is
// interpreted; a value that is not a positive integer is left at zero.
func ParseMetadata(data []byte) (Metadata, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Metadata{}, fmt.Errorf("decode metadata: %w", err)
	}
	if raw == nil {
		return Metadata{}, fmt.Errorf("decode metadata: expected an object")
	}
	meta := Metadata{Raw: raw}
	if v, ok := raw["max_sequence_length"].(float64); ok && v > 0 && v == math.Trunc(v) && v <= math.MaxInt32 {
		meta.MaxSequenceLength = int(v)
	}
	return meta, nil
}

// ParseVocabulary decodes a word→index JSON object into a Vocabulary
func ParseVocabulary(data []byte) (*tokenizer.Vocabulary, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]json.Number
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode vocabulary: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode vocabulary: expected an object")
	}
	entries := make(map[string]int64, len(raw))
	for word, n := range raw {
		id, err := n.Int64()
		if err != nil {
			return nil, fmt.Errorf("vocabulary entry %q: index %s is not an integer", word, n)
		}
		entries[word] = id
	}
	return tokenizer.NewVocabulary(entries)
}
