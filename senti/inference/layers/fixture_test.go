package layers

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

type memFetcher map[string][]byte

func (m memFetcher) Fetch(_ context.Context, p string) ([]byte, error) {
	b, ok := m[p]
	if !ok {
		return nil, fmt.Errorf("not found: %s", p)
	}
	return b, nil
}

type fixtureWeight struct {
	name  string
	shape []int
	data  []float32
}

const fixtureModelPath = "tfjs/model.json"

// buildFixture writes a layers-model artifact with a single weight shard
func buildFixture(t *testing.T, topology string, weights []fixtureWeight) memFetcher {
	t.Helper()
	var bin []byte
	specs := make([]map[string]any, 0, len(weights))
	for _, w := range weights {
		for _, v := range w.data {
			bin = binary.LittleEndian.AppendUint32(bin, math.Float32bits(v))
		}
		specs = append(specs, map[string]any{"name": w.name, "shape": w.shape, "dtype": "float32"})
	}
	doc := map[string]any{
		"format":        "layers-model",
		"generatedBy":   "keras v2.15.0",
		"convertedBy":   "TensorFlow.js Converter v4.17.0",
		"modelTopology": json.RawMessage(topology),
		"weightsManifest": []map[string]any{{
			"paths":   []string{"group1-shard1of1.bin"},
			"weights": specs,
		}},
	}
	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	return memFetcher{
		fixtureModelPath:             raw,
		"tfjs/group1-shard1of1.bin": bin,
	}
}

func sigmoidRef(v float64) float64 { return 1 / (1 + math.Exp(-v)) }
