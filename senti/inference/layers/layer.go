package layers

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// ErrUnsupportedLayer is returned for layer classes or settings the interpreter cannot run
var ErrUnsupportedLayer = errors.New("unsupported layer")

// value flows between layers for a single sample. Exactly one of seq and vec is set.
type value struct {
	seq  *mat.Dense // steps x features
	vec  []float64
	mask []bool // per step, nil when unmasked
}

func (v value) steps() int {
	if v.seq == nil {
		return 0
	}
	r, _ := v.seq.Dims()
	return r
}

func (v value) features() int {
	if v.seq == nil {
		return len(v.vec)
	}
	_, c := v.seq.Dims()
	return c
}

// Layer is one stage of a layers model
type Layer interface {
	Name() string
	Forward(in value) (value, error)
}

type builder func(cfg layerConfig, ws weightSet) (Layer, error)

var builders = map[string]builder{
	"InputLayer":             buildPassthrough,
	"Dropout":                buildPassthrough,
	"SpatialDropout1D":       buildPassthrough,
	"GaussianNoise":          buildPassthrough,
	"GaussianDropout":        buildPassthrough,
	"Embedding":              buildEmbedding,
	"Dense":                  buildDense,
	"Activation":             buildActivation,
	"Flatten":                buildFlatten,
	"GlobalAveragePooling1D": buildGlobalPooling(poolMean),
	"GlobalMaxPooling1D":     buildGlobalPooling(poolMax),
	"LSTM":                   buildLSTM,
	"GRU":                    buildGRU,
	"Bidirectional":          buildBidirectional,
}

func buildLayer(spec layerSpec, ws weightSet) (Layer, layerConfig, error) {
	cfg, err := decodeLayerConfig(spec)
	if err != nil {
		return nil, cfg, err
	}
	build, ok := builders[spec.ClassName]
	if !ok {
		return nil, cfg, fmt.Errorf("%w: %s (%s)", ErrUnsupportedLayer, spec.ClassName, cfg.Name)
	}
	l, err := build(cfg, ws.forLayer(cfg.Name))
	if err != nil {
		return nil, cfg, fmt.Errorf("build %s %s: %w", spec.ClassName, cfg.Name, err)
	}
	return l, cfg, nil
}

// passthrough covers layers that are identities at inference time
type passthrough struct{ name string }

func buildPassthrough(cfg layerConfig, _ weightSet) (Layer, error) {
	return &passthrough{name: cfg.Name}, nil
}

func (p *passthrough) Name() string { return p.name }

func (p *passthrough) Forward(in value) (value, error) { return in, nil }
