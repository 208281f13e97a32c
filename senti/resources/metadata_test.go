package resources

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		doc  string
		want int
	}{
		{`{"max_sequence_length": 9}`, 9},
		{`{"max_sequence_length": 120, "vocab_size": 10000}`, 120},
		{`{"max_sequence_length": 0}`, 0},
		{`{"max_sequence_length": null}`, 0},
		{`{"max_sequence_length": 7.5}`, 0},
		{`{"other": 3}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.doc, func(t *testing.T) {
			meta, err := ParseMetadata([]byte(tt.doc))
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.MaxSequenceLength)
			assert.NotNil(t, meta.Raw)
		})
	}
}

func TestParseMetadataRejectsNonObject(t *testing.T) {
	for _, doc := range []string{``, `null`, `[1]`, `{`} {
		_, err := ParseMetadata([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestParseVocabulary(t *testing.T) {
	vocab, err := ParseVocabulary([]byte(`{"<OOV>": 1, "the": 2, "movie": 14}`))
	require.NoError(t, err)
	assert.Equal(t, 3, vocab.Len())
	assert.Equal(t, int64(14), vocab.MaxIndex())

	_, err = ParseVocabulary([]byte(`{"the": "two"}`))
	assert.Error(t, err)
	_, err = ParseVocabulary([]byte(`null`))
	assert.Error(t, err)
}
