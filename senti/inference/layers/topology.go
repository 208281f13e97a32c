package layers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// modelJSON is the layers-model artifact written by the TF.js converter
type modelJSON struct {
	Format          string          `json:"format"`
	GeneratedBy     string          `json:"generatedBy"`
	ConvertedBy     string          `json:"convertedBy"`
	ModelTopology   json.RawMessage `json:"modelTopology"`
	WeightsManifest []manifestGroup `json:"weightsManifest"`
}

type topology struct {
	ClassName   string          `json:"class_name"`
	Config      json.RawMessage `json:"config"`
	ModelConfig *topology       `json:"model_config"`
}

type layerSpec struct {
	ClassName string          `json:"class_name"`
	Name      string          `json:"name"`
	Config    json.RawMessage `json:"config"`
}

type graphConfig struct {
	Name   string      `json:"name"`
	Layers []layerSpec `json:"layers"`
}

// activationName accepts both the plain string form and the serialized object form
type activationName string

func (a *activationName) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*a = activationName(s)
		return nil
	}
	var obj struct {
		ClassName string `json:"class_name"`
		Config    struct {
			Name string `json:"name"`
		} `json:"config"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return fmt.Errorf("decode activation: %w", err)
	}
	if obj.Config.Name != "" {
		*a = activationName(obj.Config.Name)
	} else {
		*a = activationName(obj.ClassName)
	}
	return nil
}

type layerConfig struct {
	Name                string          `json:"name"`
	Units               int             `json:"units"`
	Activation          *activationName `json:"activation"`
	RecurrentActivation *activationName `json:"recurrent_activation"`
	UseBias             *bool           `json:"use_bias"`
	InputDim            int             `json:"input_dim"`
	OutputDim           int             `json:"output_dim"`
	MaskZero            bool            `json:"mask_zero"`
	InputLength         *int            `json:"input_length"`
	BatchInputShape     []*int          `json:"batch_input_shape"`
	BatchShape          []*int          `json:"batch_shape"`
	ReturnSequences     bool            `json:"return_sequences"`
	GoBackwards         bool            `json:"go_backwards"`
	MergeMode           *string         `json:"merge_mode"`
	Layer               *layerSpec      `json:"layer"`
}

func (c *layerConfig) activation(def string) string {
	if c.Activation == nil {
		return def
	}
	return string(*c.Activation)
}

func (c *layerConfig) recurrentActivation(def string) string {
	if c.RecurrentActivation == nil {
		return def
	}
	return string(*c.RecurrentActivation)
}

func (c *layerConfig) useBias() bool {
	return c.UseBias == nil || *c.UseBias
}

// sequenceLength reports the fixed time dimension declared by the layer, or 0
func (c *layerConfig) sequenceLength() int {
	if c.InputLength != nil && *c.InputLength > 0 {
		return *c.InputLength
	}
	for _, shape := range [][]*int{c.BatchInputShape, c.BatchShape} {
		if len(shape) >= 2 && shape[1] != nil {
			return *shape[1]
		}
	}
	return 0
}

func decodeLayerConfig(spec layerSpec) (layerConfig, error) {
	var cfg layerConfig
	if len(spec.Config) > 0 {
		if err := json.Unmarshal(spec.Config, &cfg); err != nil {
			return cfg, fmt.Errorf("decode %s config: %w", spec.ClassName, err)
		}
	}
	if cfg.Name == "" {
		cfg.Name = spec.Name
	}
	if cfg.Name == "" {
		cfg.Name = strings.ToLower(spec.ClassName)
	}
	return cfg, nil
}

// parseTopology returns the model name and its layers in execution order.
// Sequential models and linear functional graphs are supported.
func parseTopology(raw json.RawMessage) (string, []layerSpec, error) {
	if len(raw) == 0 {
		return "", nil, fmt.Errorf("model.json has no modelTopology")
	}
	var top topology
	if err := json.Unmarshal(raw, &top); err != nil {
		return "", nil, fmt.Errorf("decode modelTopology: %w", err)
	}
	if top.ClassName == "" && top.ModelConfig != nil {
		top = *top.ModelConfig
	}
	switch top.ClassName {
	case "Sequential", "Functional", "Model":
	default:
		return "", nil, fmt.Errorf("%w: model class %q", ErrUnsupportedLayer, top.ClassName)
	}

	// Older Sequential configs are a bare list of layers
	var list []layerSpec
	if err := json.Unmarshal(top.Config, &list); err == nil {
		return "", list, nil
	}
	var graph graphConfig
	if err := json.Unmarshal(top.Config, &graph); err != nil {
		return "", nil, fmt.Errorf("decode %s config: %w", top.ClassName, err)
	}
	if len(graph.Layers) == 0 {
		return "", nil, fmt.Errorf("%s model has no layers", top.ClassName)
	}
	return graph.Name, graph.Layers, nil
}
