package inference

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Classifier turns an encoded sequence into a sentiment prediction
type Classifier struct {
	model  Model
	maxLen int
	logger zerolog.Logger
}

func NewClassifier(model Model, maxLen int, logger zerolog.Logger) *Classifier {
	return &Classifier{
		model:  model,
		maxLen: maxLen,
		logger: logger.With().Str("component", "classifier").Logger(),
	}
}

// Score runs the model on a single [1, maxLen] row and returns its first output.
// Input and output tensors are released on every return path.
func (c *Classifier) Score(ctx context.Context, ids []int64) (float64, error) {
	if c == nil || c.model == nil {
		return 0, &ModelNotReadyError{Reason: "no model handle"}
	}
	if len(ids) != c.maxLen {
		return 0, fmt.Errorf("%w: sequence has %d ids, model expects %d", ErrShapeMismatch, len(ids), c.maxLen)
	}

	row := make([]float32, len(ids))
	for i, id := range ids {
		row[i] = float32(id)
	}
	input, err := c.model.NewInput([]int64{1, int64(c.maxLen)}, row)
	if err != nil {
		return 0, fmt.Errorf("build input tensor: %w", err)
	}
	defer input.Release()

	output, err := c.model.Run(ctx, input)
	if err != nil {
		return 0, fmt.Errorf("run model: %w", err)
	}
	defer output.Release()

	values := output.Float32s()
	if len(values) == 0 {
		return 0, ErrNoOutput
	}
	score := float64(values[0])
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return 0, fmt.Errorf("model returned non-finite score %v", score)
	}
	return score, nil
}

// Predict scores ids and derives the label and confidence for text
func (c *Classifier) Predict(ctx context.Context, text string, ids []int64) (*Prediction, error) {
	score, err := c.Score(ctx, ids)
	if err != nil {
		return nil, err
	}
	label, confidence := Classify(score)
	p := &Prediction{
		RequestID:         uuid.NewString(),
		Text:              text,
		Label:             label,
		ConfidencePercent: confidence,
		RawScore:          score,
		Sequence:          append([]int64(nil), ids...),
	}
	c.logger.Debug().
		Str("request_id", p.RequestID).
		Str("label", string(label)).
		Float64("score", score).
		Msg("prediction")
	return p, nil
}
