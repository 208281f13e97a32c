//go:build !onnx
// +build !onnx

package inference

import "fmt"

// DetectExecutionProviders needs the onnx build tag
func DetectExecutionProviders(Options) ([]string, error) {
	return nil, fmt.Errorf("onnx support not built in; rebuild with -tags=onnx to enable")
}
