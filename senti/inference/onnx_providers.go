//go:build onnx
// +build onnx

package inference

import (
	"fmt"

	ort "github.com/yalue/onnxruntime_go"
)

// DetectExecutionProviders loads the runtime named by opts and reports which
// entries of ExecutionProviders it accepts. cpu is always usable.
func DetectExecutionProviders(opts Options) ([]string, error) {
	if err := ensureRuntime(opts); err != nil {
		return nil, err
	}
	usable := make([]string, 0, len(ExecutionProviders))
	for _, ep := range ExecutionProviders {
		o, err := ort.NewSessionOptions()
		if err != nil {
			return nil, fmt.Errorf("session options: %w", err)
		}
		if appendProvider(o, ep, opts.DeviceID) == nil {
			usable = append(usable, ep)
		}
		_ = o.Destroy()
	}
	return usable, nil
}
