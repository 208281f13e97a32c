// Package resourcestest writes a small sentiment model bundle for tests.
package resourcestest

import (
	"encoding/binary"
	"encoding/json"
	"math"
	"path"

	"github.com/spf13/afero"
)

const (
	ModelPath    = "model_sentiment_tfjs/model.json"
	MetadataPath = "model_sentiment_tfjs/metadata.json"
	VocabPath    = "word_index.json"

	// SequenceLength is the fixture model's input length and its metadata value
	SequenceLength = 3
)

// Vocabulary of the fixture; "good" pushes the score up and "bad" down
var Vocabulary = map[string]int64{"good": 1, "bad": 2, "movie": 3}

// embeddings holds one scalar per vocabulary index, padding first
var embeddings = []float32{0, 3, -3, 1}

const topology = `{"class_name": "Sequential", "config": {"name": "sentiment", "layers": [
  {"class_name": "Embedding", "config": {"name": "embedding", "batch_input_shape": [null, 3], "input_dim": 4, "output_dim": 1}},
  {"class_name": "GlobalAveragePooling1D", "config": {"name": "pool"}},
  {"class_name": "Dense", "config": {"name": "dense", "units": 1, "activation": "sigmoid"}}
]}}`

// Score is the fixture model's output for an encoded sequence.
// Ids outside the embedding table contribute zero.
func Score(ids []int64) float64 {
	var sum float64
	for _, id := range ids {
		if id >= 0 && id < int64(len(embeddings)) {
			sum += float64(embeddings[id])
		}
	}
	return 1 / (1 + math.Exp(-sum/float64(len(ids))))
}

// Files returns the bundle keyed by slash path
func Files() map[string][]byte {
	values := append(append([]float32(nil), embeddings...), 1, 0)
	var bin []byte
	for _, v := range values {
		bin = binary.LittleEndian.AppendUint32(bin, math.Float32bits(v))
	}
	model, _ := json.Marshal(map[string]any{
		"format":        "layers-model",
		"generatedBy":   "keras v2.15.0",
		"convertedBy":   "TensorFlow.js Converter v4.17.0",
		"modelTopology": json.RawMessage(topology),
		"weightsManifest": []map[string]any{{
			"paths": []string{"group1-shard1of1.bin"},
			"weights": []map[string]any{
				{"name": "embedding/embeddings", "shape": []int{4, 1}, "dtype": "float32"},
				{"name": "dense/kernel", "shape": []int{1, 1}, "dtype": "float32"},
				{"name": "dense/bias", "shape": []int{1}, "dtype": "float32"},
			},
		}},
	})
	meta, _ := json.Marshal(map[string]any{"max_sequence_length": SequenceLength, "vocab_size": len(Vocabulary) + 1})
	vocab, _ := json.Marshal(Vocabulary)
	files := map[string][]byte{
		ModelPath:    model,
		MetadataPath: meta,
		VocabPath:    vocab,
	}
	files[path.Join(path.Dir(ModelPath), "group1-shard1of1.bin")] = bin
	return files
}

// Write stores the bundle below root on fs
func Write(fs afero.Fs, root string) error {
	for p, data := range Files() {
		if err := fs.MkdirAll(path.Dir(path.Join(root, p)), 0o755); err != nil {
			return err
		}
		if err := afero.WriteFile(fs, path.Join(root, p), data, 0o644); err != nil {
			return err
		}
	}
	return nil
}

// MemFs returns an in-memory filesystem holding the bundle below root
func MemFs(root string) afero.Fs {
	fs := afero.NewMemMapFs()
	if err := Write(fs, root); err != nil {
		panic(err)
	}
	return fs
}
