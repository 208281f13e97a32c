//go:build !onnx
// +build !onnx

package inference

import (
	"fmt"
)

func newONNXModel(data []byte, opts Options) (Model, error) {
	return nil, fmt.Errorf("onnx backend not available: build with -tags onnx and provide a supported model")
}
