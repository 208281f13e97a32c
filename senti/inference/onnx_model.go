//go:build onnx
// +build onnx

package inference

import (
	"context"
	"fmt"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

// onnxModel runs a converted sentiment model through ONNX Runtime.
// It binds the first model input and the first float output.
type onnxModel struct {
	mu          sync.Mutex
	session     *ort.DynamicAdvancedSession
	inputName   string
	outputName  string
	inputType   ort.TensorElementDataType
	inputLength int
}

var ortInit sync.Mutex

func ensureRuntime(opts Options) error {
	ortInit.Lock()
	defer ortInit.Unlock()
	if ort.IsInitialized() {
		return nil
	}
	if opts.SharedLibraryPath != "" {
		ort.SetSharedLibraryPath(opts.SharedLibraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("initialize onnx runtime: %w", err)
	}
	return nil
}

func newONNXModel(data []byte, opts Options) (Model, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("onnx model data is empty")
	}
	if err := ensureRuntime(opts); err != nil {
		return nil, err
	}
	ins, outs, err := ort.GetInputOutputInfoWithONNXData(data)
	if err != nil {
		return nil, fmt.Errorf("get IO info: %w", err)
	}
	if len(ins) == 0 {
		return nil, fmt.Errorf("could not determine ONNX input name")
	}
	m := &onnxModel{inputName: ins[0].Name, inputType: ins[0].DataType}
	switch m.inputType {
	case ort.TensorElementDataTypeFloat, ort.TensorElementDataTypeInt64, ort.TensorElementDataTypeInt32:
	default:
		return nil, fmt.Errorf("unsupported ONNX input type %v for %s", m.inputType, m.inputName)
	}
	if dims := ins[0].Dimensions; len(dims) >= 2 && dims[1] > 0 {
		m.inputLength = int(dims[1])
	}
	for _, oi := range outs {
		if oi.DataType == ort.TensorElementDataTypeFloat {
			m.outputName = oi.Name
			break
		}
	}
	if m.outputName == "" {
		return nil, fmt.Errorf("could not determine ONNX output name")
	}

	// Request the preferred EP; fall back to CPU if the session cannot be created with it
	var sessOpts *ort.SessionOptions
	if ep := opts.executionProvider(); ep != "cpu" {
		if o, e := ort.NewSessionOptions(); e == nil {
			_ = o.SetGraphOptimizationLevel(ort.GraphOptimizationLevelEnableAll)
			_ = appendProvider(o, ep, opts.DeviceID)
			sessOpts = o
		}
	}
	names := []string{m.inputName}
	outNames := []string{m.outputName}
	var s *ort.DynamicAdvancedSession
	if sessOpts != nil {
		s, err = ort.NewDynamicAdvancedSessionWithONNXData(data, names, outNames, sessOpts)
		_ = sessOpts.Destroy()
		if err != nil {
			s, err = ort.NewDynamicAdvancedSessionWithONNXData(data, names, outNames, nil)
		}
	} else {
		s, err = ort.NewDynamicAdvancedSessionWithONNXData(data, names, outNames, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("create onnx session: %w", err)
	}
	m.session = s
	return m, nil
}

// appendProvider requests ep on o; it fails when the runtime build lacks ep
func appendProvider(o *ort.SessionOptions, ep string, deviceID int) error {
	switch ep {
	case "cpu":
		return nil
	case "cuda":
		cu, err := ort.NewCUDAProviderOptions()
		if err != nil {
			return err
		}
		defer cu.Destroy()
		return o.AppendExecutionProviderCUDA(cu)
	case "tensorrt":
		trt, err := ort.NewTensorRTProviderOptions()
		if err != nil {
			return err
		}
		defer trt.Destroy()
		return o.AppendExecutionProviderTensorRT(trt)
	case "coreml":
		return o.AppendExecutionProviderCoreMLV2(map[string]string{})
	case "dml":
		return o.AppendExecutionProviderDirectML(deviceID)
	default:
		return fmt.Errorf("unknown execution provider %q", ep)
	}
}

func (m *onnxModel) InputLength() int { return m.inputLength }

// onnxTensor pairs an ORT value with a float32 view of its contents
type onnxTensor struct {
	value    ort.Value
	shape    []int64
	data     []float32
	released bool
}

func (t *onnxTensor) Shape() []int64 { return t.shape }

func (t *onnxTensor) Float32s() []float32 {
	if t.released {
		return nil
	}
	return t.data
}

func (t *onnxTensor) Release() {
	if t.released {
		return
	}
	t.released = true
	t.data = nil
	if t.value != nil {
		_ = t.value.Destroy()
	}
}

func (m *onnxModel) NewInput(shape []int64, data []float32) (Tensor, error) {
	if err := checkShape(shape, len(data)); err != nil {
		return nil, err
	}
	s := ort.NewShape(shape...)
	var (
		v   ort.Value
		err error
	)
	switch m.inputType {
	case ort.TensorElementDataTypeInt64:
		ids := make([]int64, len(data))
		for i, f := range data {
			ids[i] = int64(f)
		}
		v, err = ort.NewTensor(s, ids)
	case ort.TensorElementDataTypeInt32:
		ids := make([]int32, len(data))
		for i, f := range data {
			ids[i] = int32(f)
		}
		v, err = ort.NewTensor(s, ids)
	default:
		v, err = ort.NewTensor(s, append([]float32(nil), data...))
	}
	if err != nil {
		return nil, fmt.Errorf("input tensor: %w", err)
	}
	return &onnxTensor{value: v, shape: append([]int64(nil), shape...), data: data}, nil
}

func (m *onnxModel) Run(ctx context.Context, input Tensor) (Tensor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	in, ok := input.(*onnxTensor)
	if !ok || in.released {
		return nil, fmt.Errorf("input tensor was not created by this model or was released")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	outs := []ort.Value{nil}
	if err := m.session.Run([]ort.Value{in.value}, outs); err != nil {
		return nil, fmt.Errorf("onnx run: %w", err)
	}
	t, ok := outs[0].(*ort.Tensor[float32])
	if !ok {
		if outs[0] != nil {
			_ = outs[0].Destroy()
		}
		return nil, fmt.Errorf("unexpected output type")
	}
	return &onnxTensor{value: t, shape: []int64(t.GetShape()), data: t.GetData()}, nil
}

func (m *onnxModel) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return nil
	}
	err := m.session.Destroy()
	m.session = nil
	return err
}
