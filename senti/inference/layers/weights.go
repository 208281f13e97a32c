package layers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"path"
	"strings"

	"gonum.org/v1/gonum/mat"
)

type manifestGroup struct {
	Paths   []string     `json:"paths"`
	Weights []weightSpec `json:"weights"`
}

type weightSpec struct {
	Name         string          `json:"name"`
	Shape        []int           `json:"shape"`
	DType        string          `json:"dtype"`
	Quantization json.RawMessage `json:"quantization,omitempty"`
}

type weight struct {
	name  string
	shape []int
	data  []float64
}

func (w *weight) size() int {
	n := 1
	for _, d := range w.shape {
		n *= d
	}
	return n
}

// matrix views a rank-2 weight as a rows x cols dense matrix
func (w *weight) matrix() (*mat.Dense, error) {
	if len(w.shape) != 2 || w.shape[0] == 0 || w.shape[1] == 0 {
		return nil, fmt.Errorf("weight %s: expected non-empty rank-2 shape, got %v", w.name, w.shape)
	}
	return mat.NewDense(w.shape[0], w.shape[1], w.data), nil
}

// vector views a rank-1 weight
func (w *weight) vector() (*mat.VecDense, error) {
	if len(w.shape) != 1 || w.shape[0] == 0 {
		return nil, fmt.Errorf("weight %s: expected non-empty rank-1 shape, got %v", w.name, w.shape)
	}
	return mat.NewVecDense(w.shape[0], w.data), nil
}

// weightSet holds every tensor from the manifest in declaration order
type weightSet []*weight

// forLayer returns the weights scoped under the given layer name
func (ws weightSet) forLayer(name string) weightSet {
	var out weightSet
	for _, w := range ws {
		if strings.HasPrefix(w.name, name+"/") || strings.Contains(w.name, "/"+name+"/") {
			out = append(out, w)
		}
	}
	return out
}

// containing returns the weights whose name contains part
func (ws weightSet) containing(part string) weightSet {
	var out weightSet
	for _, w := range ws {
		if strings.Contains(w.name, part) {
			out = append(out, w)
		}
	}
	return out
}

// pick returns the weight whose last path component is leaf
func (ws weightSet) pick(leaf string) (*weight, bool) {
	for _, w := range ws {
		if path.Base(w.name) == leaf {
			return w, true
		}
	}
	return nil, false
}

func (ws weightSet) require(layer, leaf string) (*weight, error) {
	w, ok := ws.pick(leaf)
	if !ok {
		return nil, fmt.Errorf("layer %s: missing weight %q", layer, leaf)
	}
	return w, nil
}

// loadWeights fetches each manifest group's shards relative to baseDir and
// slices them into float tensors.
func loadWeights(ctx context.Context, f Fetcher, baseDir string, groups []manifestGroup) (weightSet, error) {
	var out weightSet
	for gi, group := range groups {
		var buf []byte
		for _, p := range group.Paths {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			data, err := f.Fetch(ctx, path.Join(baseDir, p))
			if err != nil {
				return nil, fmt.Errorf("fetch weight shard %s: %w", p, err)
			}
			buf = append(buf, data...)
		}
		offset := 0
		for _, spec := range group.Weights {
			if len(spec.Quantization) > 0 && string(spec.Quantization) != "null" {
				return nil, fmt.Errorf("weight %s: quantized weights are not supported", spec.Name)
			}
			if spec.DType != "" && spec.DType != "float32" {
				return nil, fmt.Errorf("weight %s: unsupported dtype %q", spec.Name, spec.DType)
			}
			w := &weight{name: spec.Name, shape: spec.Shape}
			n := w.size()
			end := offset + 4*n
			if n < 0 || end > len(buf) {
				return nil, fmt.Errorf("weight %s: group %d holds %d bytes, need %d", spec.Name, gi, len(buf), end)
			}
			w.data = make([]float64, n)
			for i := 0; i < n; i++ {
				bits := binary.LittleEndian.Uint32(buf[offset+4*i:])
				w.data[i] = float64(math.Float32frombits(bits))
			}
			offset = end
			out = append(out, w)
		}
	}
	return out, nil
}
