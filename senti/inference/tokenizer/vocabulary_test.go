package tokenizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVocabularyLookup(t *testing.T) {
	v, err := NewVocabulary(map[string]int64{"good": 4, "great": 12, "bad": 7})
	require.NoError(t, err)

	id, ok := v.Lookup("great")
	assert.True(t, ok)
	assert.Equal(t, int64(12), id)

	_, ok = v.Lookup("grea")
	assert.False(t, ok)

	assert.Equal(t, 3, v.Len())
	assert.Equal(t, int64(12), v.MaxIndex())
}

func TestVocabularyRejectsNegative(t *testing.T) {
	_, err := NewVocabulary(map[string]int64{"ok": 1, "broken": -3})
	assert.Error(t, err)
}

func TestVocabularyZeroIndexEncodesAsUnknown(t *testing.T) {
	v, err := NewVocabulary(map[string]int64{"<pad>": 0, "good": 1})
	require.NoError(t, err)

	id, ok := v.Lookup("<pad>")
	assert.True(t, ok)
	assert.Zero(t, id)
	assert.Equal(t, []int64{0, 0, 1}, Encode([]string{"<pad>", "good"}, v, 3))
	assert.Equal(t, Encode([]string{"<pad>", "good"}, v, 3), Encode([]string{"missing", "good"}, v, 3))
}

func TestVocabularyWalkPrefix(t *testing.T) {
	v, err := NewVocabulary(map[string]int64{"good": 4, "goodness": 30, "great": 12, "bad": 7})
	require.NoError(t, err)

	var got []string
	v.WalkPrefix("goo", func(tok string, id int64) bool {
		got = append(got, tok)
		return true
	})
	assert.Equal(t, []string{"good", "goodness"}, got)

	got = nil
	v.WalkPrefix("", func(tok string, id int64) bool {
		got = append(got, tok)
		return len(got) < 2
	})
	assert.Equal(t, []string{"bad", "good"}, got)
}

func TestNilVocabulary(t *testing.T) {
	var v *Vocabulary
	_, ok := v.Lookup("x")
	assert.False(t, ok)
	assert.Equal(t, 0, v.Len())
}
