package inference

// hostTensor is a plain Go buffer used by in-process backends
type hostTensor struct {
	shape    []int64
	data     []float32
	released bool
}

func newHostTensor(shape []int64, data []float32) *hostTensor {
	return &hostTensor{shape: append([]int64(nil), shape...), data: data}
}

func (t *hostTensor) Shape() []int64 { return t.shape }

func (t *hostTensor) Float32s() []float32 {
	if t.released {
		return nil
	}
	return t.data
}

func (t *hostTensor) Release() {
	t.released = true
	t.data = nil
}
