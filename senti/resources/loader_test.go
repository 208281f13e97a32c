package resources

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/resources/resourcestest"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixtureOptions() Options {
	return Options{
		Backend:                  inference.BackendTFJS,
		ModelPath:                resourcestest.ModelPath,
		MetadataPath:             resourcestest.MetadataPath,
		VocabPath:                resourcestest.VocabPath,
		DefaultMaxSequenceLength: 9,
	}
}

func newFixtureLoader(t *testing.T, fs afero.Fs) *Loader {
	t.Helper()
	src, err := NewSource("/models", fs, nil)
	require.NoError(t, err)
	return NewLoader(src, fixtureOptions(), zerolog.Nop())
}

func TestLoadFromDirectory(t *testing.T) {
	bundle, err := newFixtureLoader(t, resourcestest.MemFs("/models")).Load(context.Background())
	require.NoError(t, err)
	defer bundle.Model.Close()

	assert.Equal(t, resourcestest.SequenceLength, bundle.MaxSequenceLength)
	assert.Equal(t, resourcestest.SequenceLength, bundle.Metadata.MaxSequenceLength)
	assert.Equal(t, len(resourcestest.Vocabulary), bundle.Vocabulary.Len())

	id, ok := bundle.Vocabulary.Lookup("good")
	assert.True(t, ok)
	assert.Equal(t, int64(1), id)
}

func TestLoadMissingMetadataUsesDefault(t *testing.T) {
	fs := resourcestest.MemFs("/models")
	require.NoError(t, fs.Remove(path.Join("/models", resourcestest.MetadataPath)))

	bundle, err := newFixtureLoader(t, fs).Load(context.Background())
	require.NoError(t, err)
	defer bundle.Model.Close()

	assert.Equal(t, 9, bundle.MaxSequenceLength)
	assert.Zero(t, bundle.Metadata.MaxSequenceLength)
}

func TestLoadMetadataWithoutLengthUsesDefault(t *testing.T) {
	for _, doc := range []string{`{}`, `{"max_sequence_length": 0}`, `{"max_sequence_length": -4}`, `{"max_sequence_length": 2.5}`, `{"max_sequence_length": "12"}`} {
		t.Run(doc, func(t *testing.T) {
			fs := resourcestest.MemFs("/models")
			require.NoError(t, afero.WriteFile(fs, path.Join("/models", resourcestest.MetadataPath), []byte(doc), 0o644))

			bundle, err := newFixtureLoader(t, fs).Load(context.Background())
			require.NoError(t, err)
			defer bundle.Model.Close()
			assert.Equal(t, 9, bundle.MaxSequenceLength)
		})
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(fs afero.Fs)
		missing bool
	}{
		{
			name:    "missing model",
			mutate:  func(fs afero.Fs) { _ = fs.Remove(path.Join("/models", resourcestest.ModelPath)) },
			missing: true,
		},
		{
			name:    "missing vocabulary",
			mutate:  func(fs afero.Fs) { _ = fs.Remove(path.Join("/models", resourcestest.VocabPath)) },
			missing: true,
		},
		{
			name: "malformed vocabulary",
			mutate: func(fs afero.Fs) {
				_ = afero.WriteFile(fs, path.Join("/models", resourcestest.VocabPath), []byte(`["good"]`), 0o644)
			},
		},
		{
			name: "fractional vocabulary index",
			mutate: func(fs afero.Fs) {
				_ = afero.WriteFile(fs, path.Join("/models", resourcestest.VocabPath), []byte(`{"good": 1.5}`), 0o644)
			},
		},
		{
			name: "negative vocabulary index",
			mutate: func(fs afero.Fs) {
				_ = afero.WriteFile(fs, path.Join("/models", resourcestest.VocabPath), []byte(`{"good": -1}`), 0o644)
			},
		},
		{
			name: "malformed metadata",
			mutate: func(fs afero.Fs) {
				_ = afero.WriteFile(fs, path.Join("/models", resourcestest.MetadataPath), []byte(`{not json`), 0o644)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := resourcestest.MemFs("/models")
			tt.mutate(fs)

			bundle, err := newFixtureLoader(t, fs).Load(context.Background())
			require.Error(t, err)
			assert.Nil(t, bundle)
			assert.Equal(t, tt.missing, errors.Is(err, ErrMissingResource))
		})
	}
}

func TestLoadWithoutMetadataPath(t *testing.T) {
	src := NewDirSource(resourcestest.MemFs("/m"), "/m")
	opts := fixtureOptions()
	opts.MetadataPath = ""
	opts.DefaultMaxSequenceLength = 5

	bundle, err := NewLoader(src, opts, zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	defer bundle.Model.Close()
	assert.Equal(t, 5, bundle.MaxSequenceLength)
}

func TestLoadOverHTTP(t *testing.T) {
	files := resourcestest.Files()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, ok := files[strings.TrimPrefix(path.Clean(r.URL.Path), "/assets/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	src, err := NewSource(srv.URL+"/assets", nil, srv.Client())
	require.NoError(t, err)
	assert.IsType(t, &HTTPSource{}, src)

	bundle, err := NewLoader(src, fixtureOptions(), zerolog.Nop()).Load(context.Background())
	require.NoError(t, err)
	defer bundle.Model.Close()
	assert.Equal(t, resourcestest.SequenceLength, bundle.MaxSequenceLength)
}

func TestLoadWarnsAboutIdsBeyondEmbedding(t *testing.T) {
	fs := resourcestest.MemFs("/models")
	require.NoError(t, afero.WriteFile(fs, path.Join("/models", resourcestest.VocabPath),
		[]byte(`{"good": 1, "bad": 2, "movie": 3, "rare": 7}`), 0o644))

	var logs bytes.Buffer
	src := NewDirSource(fs, "/models")
	bundle, err := NewLoader(src, fixtureOptions(), zerolog.New(&logs)).Load(context.Background())
	require.NoError(t, err)
	defer bundle.Model.Close()

	assert.Equal(t, int64(7), bundle.Vocabulary.MaxIndex())
	assert.Contains(t, logs.String(), `"embedding_input_dim":4`)
	assert.Contains(t, logs.String(), "beyond the embedding table")
}
