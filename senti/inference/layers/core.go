package layers

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

type embedding struct {
	name     string
	table    *mat.Dense
	maskZero bool
}

func buildEmbedding(cfg layerConfig, ws weightSet) (Layer, error) {
	w, err := ws.require(cfg.Name, "embeddings")
	if err != nil {
		return nil, err
	}
	table, err := w.matrix()
	if err != nil {
		return nil, err
	}
	rows, cols := table.Dims()
	if cfg.InputDim > 0 && cfg.InputDim != rows {
		return nil, fmt.Errorf("input_dim %d does not match embeddings rows %d", cfg.InputDim, rows)
	}
	if cfg.OutputDim > 0 && cfg.OutputDim != cols {
		return nil, fmt.Errorf("output_dim %d does not match embeddings cols %d", cfg.OutputDim, cols)
	}
	return &embedding{name: cfg.Name, table: table, maskZero: cfg.MaskZero}, nil
}

func (e *embedding) Name() string { return e.name }

func (e *embedding) inputDim() int {
	rows, _ := e.table.Dims()
	return rows
}

func (e *embedding) Forward(in value) (value, error) {
	if in.seq != nil {
		return value{}, fmt.Errorf("%s: expected a flat id sequence", e.name)
	}
	if len(in.vec) == 0 {
		return value{}, fmt.Errorf("%s: empty input", e.name)
	}
	rows, cols := e.table.Dims()
	out := mat.NewDense(len(in.vec), cols, nil)
	var mask []bool
	if e.maskZero {
		mask = make([]bool, len(in.vec))
	}
	for t, raw := range in.vec {
		id := int(raw)
		// out-of-range ids gather a zero row, as the tfjs webgl backend does
		if id >= 0 && id < rows {
			out.SetRow(t, e.table.RawRowView(id))
		}
		if mask != nil {
			mask[t] = id != 0
		}
	}
	return value{seq: out, mask: mask}, nil
}

type dense struct {
	name   string
	kernel *mat.Dense
	bias   *mat.VecDense
	act    activationFunc
}

func buildDense(cfg layerConfig, ws weightSet) (Layer, error) {
	w, err := ws.require(cfg.Name, "kernel")
	if err != nil {
		return nil, err
	}
	kernel, err := w.matrix()
	if err != nil {
		return nil, err
	}
	_, units := kernel.Dims()
	if cfg.Units > 0 && cfg.Units != units {
		return nil, fmt.Errorf("units %d does not match kernel cols %d", cfg.Units, units)
	}
	d := &dense{name: cfg.Name, kernel: kernel}
	if cfg.useBias() {
		b, err := ws.require(cfg.Name, "bias")
		if err != nil {
			return nil, err
		}
		if d.bias, err = b.vector(); err != nil {
			return nil, err
		}
		if d.bias.Len() != units {
			return nil, fmt.Errorf("bias length %d does not match units %d", d.bias.Len(), units)
		}
	}
	if d.act, err = lookupActivation(cfg.activation("linear")); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *dense) Name() string { return d.name }

func (d *dense) apply(x []float64) ([]float64, error) {
	in, units := d.kernel.Dims()
	if len(x) != in {
		return nil, fmt.Errorf("%s: expected %d features, got %d", d.name, in, len(x))
	}
	y := mat.NewVecDense(units, nil)
	y.MulVec(d.kernel.T(), mat.NewVecDense(in, x))
	if d.bias != nil {
		y.AddVec(y, d.bias)
	}
	out := y.RawVector().Data
	d.act(out)
	return out, nil
}

// Forward applies the layer to a flat vector, or to every step of a sequence
func (d *dense) Forward(in value) (value, error) {
	if in.seq == nil {
		out, err := d.apply(in.vec)
		if err != nil {
			return value{}, err
		}
		return value{vec: out}, nil
	}
	_, units := d.kernel.Dims()
	out := mat.NewDense(in.steps(), units, nil)
	for t := 0; t < in.steps(); t++ {
		row, err := d.apply(in.seq.RawRowView(t))
		if err != nil {
			return value{}, err
		}
		out.SetRow(t, row)
	}
	return value{seq: out, mask: in.mask}, nil
}

type activationLayer struct {
	name string
	act  activationFunc
}

func buildActivation(cfg layerConfig, _ weightSet) (Layer, error) {
	act, err := lookupActivation(cfg.activation("linear"))
	if err != nil {
		return nil, err
	}
	return &activationLayer{name: cfg.Name, act: act}, nil
}

func (a *activationLayer) Name() string { return a.name }

func (a *activationLayer) Forward(in value) (value, error) {
	if in.seq == nil {
		out := append([]float64(nil), in.vec...)
		a.act(out)
		return value{vec: out}, nil
	}
	out := mat.DenseCopyOf(in.seq)
	for t := 0; t < in.steps(); t++ {
		a.act(out.RawRowView(t))
	}
	return value{seq: out, mask: in.mask}, nil
}

type flatten struct{ name string }

func buildFlatten(cfg layerConfig, _ weightSet) (Layer, error) {
	return &flatten{name: cfg.Name}, nil
}

func (f *flatten) Name() string { return f.name }

func (f *flatten) Forward(in value) (value, error) {
	if in.seq == nil {
		return value{vec: in.vec}, nil
	}
	out := make([]float64, 0, in.steps()*in.features())
	for t := 0; t < in.steps(); t++ {
		out = append(out, in.seq.RawRowView(t)...)
	}
	return value{vec: out}, nil
}

type poolMode int

const (
	poolMean poolMode = iota
	poolMax
)

// globalPooling reduces the time axis. The mask is not consulted, matching
// the browser runtime the models were exported for.
type globalPooling struct {
	name string
	mode poolMode
}

func buildGlobalPooling(mode poolMode) builder {
	return func(cfg layerConfig, _ weightSet) (Layer, error) {
		return &globalPooling{name: cfg.Name, mode: mode}, nil
	}
}

func (p *globalPooling) Name() string { return p.name }

func (p *globalPooling) Forward(in value) (value, error) {
	if in.seq == nil {
		return value{}, fmt.Errorf("%s: expected a sequence input", p.name)
	}
	steps, feats := in.seq.Dims()
	out := make([]float64, feats)
	for j := 0; j < feats; j++ {
		col := mat.Col(nil, j, in.seq)
		switch p.mode {
		case poolMax:
			m := math.Inf(-1)
			for _, v := range col {
				m = math.Max(m, v)
			}
			out[j] = m
		default:
			var sum float64
			for _, v := range col {
				sum += v
			}
			out[j] = sum / float64(steps)
		}
	}
	return value{vec: out}, nil
}
