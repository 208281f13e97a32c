package layers

import (
	"fmt"
	"math"
	"strings"
)

// activationFunc transforms x in place
type activationFunc func(x []float64)

func lookupActivation(name string) (activationFunc, error) {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), "_", "")
	switch key {
	case "", "linear", "none":
		return func([]float64) {}, nil
	case "relu":
		return elementwise(func(v float64) float64 { return math.Max(0, v) }), nil
	case "sigmoid":
		return elementwise(sigmoid), nil
	case "hardsigmoid":
		return elementwise(hardSigmoid), nil
	case "tanh":
		return elementwise(math.Tanh), nil
	case "softplus":
		return elementwise(func(v float64) float64 { return math.Log1p(math.Exp(v)) }), nil
	case "softsign":
		return elementwise(func(v float64) float64 { return v / (1 + math.Abs(v)) }), nil
	case "elu":
		return elementwise(func(v float64) float64 {
			if v > 0 {
				return v
			}
			return math.Exp(v) - 1
		}), nil
	case "softmax":
		return softmax, nil
	default:
		return nil, fmt.Errorf("%w: activation %q", ErrUnsupportedLayer, name)
	}
}

func elementwise(fn func(float64) float64) activationFunc {
	return func(x []float64) {
		for i, v := range x {
			x[i] = fn(v)
		}
	}
}

func sigmoid(v float64) float64 { return 1 / (1 + math.Exp(-v)) }

// hardSigmoid is the piecewise linear 0.2x+0.5 clipped to [0, 1]
func hardSigmoid(v float64) float64 {
	return math.Max(0, math.Min(1, 0.2*v+0.5))
}

func softmax(x []float64) {
	if len(x) == 0 {
		return
	}
	maxV := x[0]
	for _, v := range x[1:] {
		if v > maxV {
			maxV = v
		}
	}
	var sum float64
	for i, v := range x {
		x[i] = math.Exp(v - maxV)
		sum += x[i]
	}
	for i := range x {
		x[i] /= sum
	}
}
