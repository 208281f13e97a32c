// Package layers runs TF.js layers-format models (model.json plus binary
// weight shards) on the CPU.
package layers

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
)

// Fetcher reads a resource by slash-separated path
type Fetcher interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// Model is a loaded layers model. It is immutable and safe for concurrent use.
type Model struct {
	name        string
	inputLength int
	layers      []Layer
}

// Load reads model.json at modelPath and the weight shards it references.
func Load(ctx context.Context, f Fetcher, modelPath string) (*Model, error) {
	raw, err := f.Fetch(ctx, modelPath)
	if err != nil {
		return nil, fmt.Errorf("fetch model %s: %w", modelPath, err)
	}
	var doc modelJSON
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode model %s: %w", modelPath, err)
	}
	if doc.Format != "" && doc.Format != "layers-model" {
		return nil, fmt.Errorf("%w: model format %q", ErrUnsupportedLayer, doc.Format)
	}
	name, specs, err := parseTopology(doc.ModelTopology)
	if err != nil {
		return nil, err
	}
	weights, err := loadWeights(ctx, f, path.Dir(modelPath), doc.WeightsManifest)
	if err != nil {
		return nil, err
	}

	m := &Model{name: name}
	for _, spec := range specs {
		l, cfg, err := buildLayer(spec, weights)
		if err != nil {
			return nil, err
		}
		if m.inputLength == 0 {
			m.inputLength = cfg.sequenceLength()
		}
		if _, skip := l.(*passthrough); skip {
			continue
		}
		m.layers = append(m.layers, l)
	}
	if len(m.layers) == 0 {
		return nil, fmt.Errorf("model %s has no computational layers", modelPath)
	}
	return m, nil
}

func (m *Model) Name() string { return m.name }

// InputLength is the sequence length declared by the first layer, or 0 if unknown
func (m *Model) InputLength() int { return m.inputLength }

// VocabularySize is the input_dim of the first Embedding layer, or 0 without one.
// Ids at or above it embed as zero vectors.
func (m *Model) VocabularySize() int {
	for _, l := range m.layers {
		if e, ok := l.(*embedding); ok {
			return e.inputDim()
		}
	}
	return 0
}

// Layers lists the layer names in execution order
func (m *Model) Layers() []string {
	names := make([]string, len(m.layers))
	for i, l := range m.layers {
		names[i] = l.Name()
	}
	return names
}

// Forward runs every row of batch through the model and returns one flat output row per input row.
func (m *Model) Forward(ctx context.Context, batch [][]float64) ([][]float64, error) {
	out := make([][]float64, len(batch))
	for i, row := range batch {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		v := value{vec: row}
		for _, l := range m.layers {
			var err error
			if v, err = l.Forward(v); err != nil {
				return nil, fmt.Errorf("layer %s: %w", l.Name(), err)
			}
		}
		if v.seq != nil {
			v, _ = (&flatten{}).Forward(v)
		}
		out[i] = v.vec
	}
	return out, nil
}
