package inference

import "strings"

// ExecutionProviders lists the ONNX Runtime execution providers the onnx backend can request
var ExecutionProviders = []string{"cpu", "cuda", "tensorrt", "coreml", "dml"}

// executionProvider returns the normalized EP preference, defaulting to cpu
func (o Options) executionProvider() string {
	ep := strings.ToLower(strings.TrimSpace(o.ExecutionProvider))
	for _, known := range ExecutionProviders {
		if ep == known {
			return ep
		}
	}
	return "cpu"
}
