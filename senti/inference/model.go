package inference

import (
	"context"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference/layers"
)

// Backend names accepted by OpenModel
const (
	BackendTFJS = "tfjs"
	BackendONNX = "onnx"
)

// Tensor is a host-visible numeric buffer owned by a Model.
// Release is idempotent; data must not be read after it.
type Tensor interface {
	Shape() []int64
	Float32s() []float32
	Release()
}

// Model runs a forward pass over a [rows, cols] input
type Model interface {
	NewInput(shape []int64, data []float32) (Tensor, error)
	Run(ctx context.Context, input Tensor) (Tensor, error)
	Close() error
}

// InputLengther is implemented by models that declare a fixed sequence length
type InputLengther interface {
	InputLength() int
}

// VocabularySizer is implemented by models that know how many ids they can embed
type VocabularySizer interface {
	VocabularySize() int
}

// Options carries backend specific settings
type Options struct {
	ExecutionProvider string
	DeviceID          int
	SharedLibraryPath string
}

// OpenModel loads modelPath through f using the named backend.
// "tfjs" runs a layers-model artifact in-process; "onnx" requires the onnx build tag.
func OpenModel(ctx context.Context, backend string, f layers.Fetcher, modelPath string, opts Options) (Model, error) {
	switch name := strings.ToLower(strings.TrimSpace(backend)); name {
	case BackendTFJS, "", "layers":
		m, err := layers.Load(ctx, f, modelPath)
		if err != nil {
			return nil, err
		}
		return newLayersModel(m), nil
	case BackendONNX:
		data, err := f.Fetch(ctx, modelPath)
		if err != nil {
			return nil, fmt.Errorf("fetch onnx model %s: %w", modelPath, err)
		}
		return newONNXModel(data, opts)
	default:
		return nil, fmt.Errorf("unknown model backend %q", backend)
	}
}

func checkShape(shape []int64, n int) error {
	if len(shape) != 2 || shape[0] <= 0 || shape[1] <= 0 {
		return fmt.Errorf("%w: want a non-empty rank-2 shape, got %v", ErrShapeMismatch, shape)
	}
	if shape[0]*shape[1] != int64(n) {
		return fmt.Errorf("%w: shape %v holds %d values, got %d", ErrShapeMismatch, shape, shape[0]*shape[1], n)
	}
	return nil
}
