package layers

import (
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
)

// cell advances a recurrent state by one step. state[0] is always the output.
type cell interface {
	units() int
	inputSize() int
	zeroState() [][]float64
	step(x []float64, state [][]float64) [][]float64
}

// recurrent runs a cell over the time axis. Masked steps carry the previous
// state and output forward unchanged.
type recurrent struct {
	name            string
	cell            cell
	returnSequences bool
	goBackwards     bool
}

func (r *recurrent) Name() string { return r.name }

func (r *recurrent) Forward(in value) (value, error) {
	if in.seq == nil {
		return value{}, fmt.Errorf("%s: expected a sequence input", r.name)
	}
	steps, feats := in.seq.Dims()
	if feats != r.cell.inputSize() {
		return value{}, fmt.Errorf("%s: expected %d features, got %d", r.name, r.cell.inputSize(), feats)
	}
	units := r.cell.units()
	var outSeq *mat.Dense
	if r.returnSequences {
		outSeq = mat.NewDense(steps, units, nil)
	}
	state := r.cell.zeroState()
	for i := 0; i < steps; i++ {
		t := i
		if r.goBackwards {
			t = steps - 1 - i
		}
		if in.mask == nil || in.mask[t] {
			state = r.cell.step(in.seq.RawRowView(t), state)
		}
		if outSeq != nil {
			outSeq.SetRow(i, state[0])
		}
	}
	if outSeq != nil {
		mask := in.mask
		if r.goBackwards && mask != nil {
			mask = reversed(mask)
		}
		return value{seq: outSeq, mask: mask}, nil
	}
	return value{vec: append([]float64(nil), state[0]...)}, nil
}

func reversed(mask []bool) []bool {
	out := make([]bool, len(mask))
	for i, m := range mask {
		out[len(mask)-1-i] = m
	}
	return out
}

// gateWeights holds the kernel, recurrent kernel and bias shared by LSTM and GRU
type gateWeights struct {
	kernel    *mat.Dense // input x gates*units
	recurrent *mat.Dense // units x gates*units
	bias      *mat.Dense // rows x gates*units, nil without bias
}

func loadGateWeights(layer string, ws weightSet, gates int, useBias bool) (*gateWeights, int, error) {
	kw, err := ws.require(layer, "kernel")
	if err != nil {
		return nil, 0, err
	}
	rw, err := ws.require(layer, "recurrent_kernel")
	if err != nil {
		return nil, 0, err
	}
	g := &gateWeights{}
	if g.kernel, err = kw.matrix(); err != nil {
		return nil, 0, err
	}
	if g.recurrent, err = rw.matrix(); err != nil {
		return nil, 0, err
	}
	units, width := g.recurrent.Dims()
	if width != gates*units {
		return nil, 0, fmt.Errorf("recurrent_kernel shape %v does not hold %d gates", rw.shape, gates)
	}
	if _, kc := g.kernel.Dims(); kc != width {
		return nil, 0, fmt.Errorf("kernel shape %v does not match recurrent_kernel %v", kw.shape, rw.shape)
	}
	if useBias {
		bw, err := ws.require(layer, "bias")
		if err != nil {
			return nil, 0, err
		}
		switch len(bw.shape) {
		case 1:
			g.bias = mat.NewDense(1, bw.shape[0], bw.data)
		case 2:
			g.bias = mat.NewDense(bw.shape[0], bw.shape[1], bw.data)
		default:
			return nil, 0, fmt.Errorf("bias shape %v", bw.shape)
		}
		if _, bc := g.bias.Dims(); bc != width {
			return nil, 0, fmt.Errorf("bias shape %v does not match %d gates of %d units", bw.shape, gates, units)
		}
	}
	return g, units, nil
}

// project computes x·W (+ bias row) as a fresh slice
func project(w *mat.Dense, x []float64, bias *mat.Dense, biasRow int) []float64 {
	rows, cols := w.Dims()
	out := mat.NewVecDense(cols, nil)
	out.MulVec(w.T(), mat.NewVecDense(rows, x))
	data := out.RawVector().Data
	if bias != nil {
		b := bias.RawRowView(biasRow)
		for i := range data {
			data[i] += b[i]
		}
	}
	return data
}

type lstmCell struct {
	n      int
	w      *gateWeights
	act    activationFunc
	recAct activationFunc
}

func (c *lstmCell) units() int { return c.n }

func (c *lstmCell) inputSize() int {
	r, _ := c.w.kernel.Dims()
	return r
}

func (c *lstmCell) zeroState() [][]float64 {
	return [][]float64{make([]float64, c.n), make([]float64, c.n)}
}

// step uses the i, f, c, o gate layout
func (c *lstmCell) step(x []float64, state [][]float64) [][]float64 {
	h, cPrev := state[0], state[1]
	z := project(c.w.kernel, x, c.w.bias, 0)
	rz := project(c.w.recurrent, h, nil, 0)
	for i := range z {
		z[i] += rz[i]
	}
	n := c.n
	in, forget, cand, out := z[0:n], z[n:2*n], z[2*n:3*n], z[3*n:4*n]
	c.recAct(in)
	c.recAct(forget)
	c.act(cand)
	c.recAct(out)

	cNext := make([]float64, n)
	hNext := make([]float64, n)
	for i := 0; i < n; i++ {
		cNext[i] = forget[i]*cPrev[i] + in[i]*cand[i]
	}
	copy(hNext, cNext)
	c.act(hNext)
	for i := 0; i < n; i++ {
		hNext[i] *= out[i]
	}
	return [][]float64{hNext, cNext}
}

func newLSTMCell(cfg layerConfig, ws weightSet) (*lstmCell, error) {
	w, units, err := loadGateWeights(cfg.Name, ws, 4, cfg.useBias())
	if err != nil {
		return nil, err
	}
	if cfg.Units > 0 && cfg.Units != units {
		return nil, fmt.Errorf("units %d does not match weights (%d)", cfg.Units, units)
	}
	act, err := lookupActivation(cfg.activation("tanh"))
	if err != nil {
		return nil, err
	}
	recAct, err := lookupActivation(cfg.recurrentActivation("hard_sigmoid"))
	if err != nil {
		return nil, err
	}
	return &lstmCell{n: units, w: w, act: act, recAct: recAct}, nil
}

func buildLSTM(cfg layerConfig, ws weightSet) (Layer, error) {
	c, err := newLSTMCell(cfg, ws)
	if err != nil {
		return nil, err
	}
	return &recurrent{name: cfg.Name, cell: c, returnSequences: cfg.ReturnSequences, goBackwards: cfg.GoBackwards}, nil
}

// gruCell uses the z, r, h gate layout. A two-row bias means the reset gate
// is applied after the recurrent projection.
type gruCell struct {
	n      int
	w      *gateWeights
	act    activationFunc
	recAct activationFunc
}

func (c *gruCell) units() int { return c.n }

func (c *gruCell) inputSize() int {
	r, _ := c.w.kernel.Dims()
	return r
}

func (c *gruCell) zeroState() [][]float64 {
	return [][]float64{make([]float64, c.n)}
}

func (c *gruCell) resetAfter() bool {
	if c.w.bias == nil {
		return false
	}
	r, _ := c.w.bias.Dims()
	return r == 2
}

func (c *gruCell) step(x []float64, state [][]float64) [][]float64 {
	h := state[0]
	n := c.n
	mx := project(c.w.kernel, x, c.w.bias, 0)

	var hh []float64
	z := make([]float64, n)
	r := make([]float64, n)
	if c.resetAfter() {
		mi := project(c.w.recurrent, h, c.w.bias, 1)
		for i := 0; i < n; i++ {
			z[i] = mx[i] + mi[i]
			r[i] = mx[n+i] + mi[n+i]
		}
		c.recAct(z)
		c.recAct(r)
		hh = make([]float64, n)
		for i := 0; i < n; i++ {
			hh[i] = mx[2*n+i] + r[i]*mi[2*n+i]
		}
	} else {
		zr := c.w.recurrent.Slice(0, n, 0, 2*n).(*mat.Dense)
		mi := project(zr, h, nil, 0)
		for i := 0; i < n; i++ {
			z[i] = mx[i] + mi[i]
			r[i] = mx[n+i] + mi[n+i]
		}
		c.recAct(z)
		c.recAct(r)
		rh := make([]float64, n)
		for i := 0; i < n; i++ {
			rh[i] = r[i] * h[i]
		}
		uh := c.w.recurrent.Slice(0, n, 2*n, 3*n).(*mat.Dense)
		hh = project(uh, rh, nil, 0)
		for i := 0; i < n; i++ {
			hh[i] += mx[2*n+i]
		}
	}
	c.act(hh)

	next := make([]float64, n)
	for i := 0; i < n; i++ {
		next[i] = z[i]*h[i] + (1-z[i])*hh[i]
	}
	return [][]float64{next}
}

func newGRUCell(cfg layerConfig, ws weightSet) (*gruCell, error) {
	w, units, err := loadGateWeights(cfg.Name, ws, 3, cfg.useBias())
	if err != nil {
		return nil, err
	}
	if cfg.Units > 0 && cfg.Units != units {
		return nil, fmt.Errorf("units %d does not match weights (%d)", cfg.Units, units)
	}
	if w.bias != nil {
		if r, _ := w.bias.Dims(); r > 2 {
			return nil, fmt.Errorf("bias has %d rows", r)
		}
	}
	act, err := lookupActivation(cfg.activation("tanh"))
	if err != nil {
		return nil, err
	}
	recAct, err := lookupActivation(cfg.recurrentActivation("hard_sigmoid"))
	if err != nil {
		return nil, err
	}
	return &gruCell{n: units, w: w, act: act, recAct: recAct}, nil
}

func buildGRU(cfg layerConfig, ws weightSet) (Layer, error) {
	c, err := newGRUCell(cfg, ws)
	if err != nil {
		return nil, err
	}
	return &recurrent{name: cfg.Name, cell: c, returnSequences: cfg.ReturnSequences, goBackwards: cfg.GoBackwards}, nil
}

type bidirectional struct {
	name      string
	forward   *recurrent
	backward  *recurrent
	mergeMode string
}

func buildBidirectional(cfg layerConfig, ws weightSet) (Layer, error) {
	if cfg.Layer == nil {
		return nil, fmt.Errorf("missing wrapped layer")
	}
	inner, err := decodeLayerConfig(*cfg.Layer)
	if err != nil {
		return nil, err
	}
	mode := "concat"
	if cfg.MergeMode != nil {
		mode = strings.ToLower(*cfg.MergeMode)
	}
	switch mode {
	case "concat", "sum", "mul", "ave":
	default:
		return nil, fmt.Errorf("%w: merge_mode %q", ErrUnsupportedLayer, mode)
	}

	build := func(part string, backwards bool) (*recurrent, error) {
		dirWeights := ws.containing(part)
		var (
			c   cell
			err error
		)
		switch cfg.Layer.ClassName {
		case "LSTM":
			c, err = newLSTMCell(inner, dirWeights)
		case "GRU":
			c, err = newGRUCell(inner, dirWeights)
		default:
			return nil, fmt.Errorf("%w: Bidirectional(%s)", ErrUnsupportedLayer, cfg.Layer.ClassName)
		}
		if err != nil {
			return nil, fmt.Errorf("%s direction: %w", part, err)
		}
		return &recurrent{
			name:            cfg.Name + "/" + part,
			cell:            c,
			returnSequences: inner.ReturnSequences,
			goBackwards:     inner.GoBackwards != backwards,
		}, nil
	}
	fwd, err := build("forward", false)
	if err != nil {
		return nil, err
	}
	bwd, err := build("backward", true)
	if err != nil {
		return nil, err
	}
	return &bidirectional{name: cfg.Name, forward: fwd, backward: bwd, mergeMode: mode}, nil
}

func (b *bidirectional) Name() string { return b.name }

func (b *bidirectional) Forward(in value) (value, error) {
	f, err := b.forward.Forward(in)
	if err != nil {
		return value{}, err
	}
	r, err := b.backward.Forward(in)
	if err != nil {
		return value{}, err
	}
	if f.seq == nil {
		return value{vec: b.merge(f.vec, r.vec)}, nil
	}
	// align the backward sequence with forward time order
	steps, _ := f.seq.Dims()
	rows := make([][]float64, steps)
	for t := 0; t < steps; t++ {
		rows[t] = b.merge(f.seq.RawRowView(t), r.seq.RawRowView(steps-1-t))
	}
	out := mat.NewDense(steps, len(rows[0]), nil)
	for t, row := range rows {
		out.SetRow(t, row)
	}
	return value{seq: out, mask: in.mask}, nil
}

func (b *bidirectional) merge(f, r []float64) []float64 {
	if b.mergeMode == "concat" {
		out := make([]float64, 0, len(f)+len(r))
		return append(append(out, f...), r...)
	}
	out := make([]float64, len(f))
	for i := range f {
		switch b.mergeMode {
		case "sum":
			out[i] = f[i] + r[i]
		case "mul":
			out[i] = f[i] * r[i]
		case "ave":
			out[i] = (f[i] + r[i]) / 2
		}
	}
	return out
}
