package inference

import (
	"context"
	"fmt"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference/layers"
)

// layersModel adapts an in-process layers model to the Model contract
type layersModel struct {
	m *layers.Model
}

func newLayersModel(m *layers.Model) *layersModel { return &layersModel{m: m} }

func (lm *layersModel) InputLength() int { return lm.m.InputLength() }

func (lm *layersModel) VocabularySize() int { return lm.m.VocabularySize() }

func (lm *layersModel) NewInput(shape []int64, data []float32) (Tensor, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	return newHostTensor(shape, data), nil
}

func (lm *layersModel) Run(ctx context.Context, input Tensor) (Tensor, error) {
	shape := input.Shape()
	data := input.Float32s()
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	rows, cols := int(shape[0]), int(shape[1])
	batch := make([][]float64, rows)
	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		for c := 0; c < cols; c++ {
			row[c] = float64(data[r*cols+c])
		}
		batch[r] = row
	}
	out, err := lm.m.Forward(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("forward %s: %w", lm.m.Name(), err)
	}
	width := len(out[0])
	flat := make([]float32, 0, rows*width)
	for r, row := range out {
		if len(row) != width {
			return nil, fmt.Errorf("%w: row %d has %d outputs, row 0 has %d", ErrShapeMismatch, r, len(row), width)
		}
		for _, v := range row {
			flat = append(flat, float32(v))
		}
	}
	return newHostTensor([]int64{int64(rows), int64(width)}, flat), nil
}

func (lm *layersModel) Close() error { return nil }
