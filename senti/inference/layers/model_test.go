package layers

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const poolingTopology = `{
  "class_name": "Sequential",
  "config": {
    "name": "sequential",
    "layers": [
      {"class_name": "Embedding", "config": {"name": "embedding", "batch_input_shape": [null, 3], "input_dim": 5, "output_dim": 2, "mask_zero": false, "input_length": 3}},
      {"class_name": "GlobalAveragePooling1D", "config": {"name": "global_average_pooling1d"}},
      {"class_name": "Dropout", "config": {"name": "dropout", "rate": 0.5}},
      {"class_name": "Dense", "config": {"name": "dense", "units": 1, "activation": "sigmoid", "use_bias": true}}
    ]
  },
  "keras_version": "2.15.0",
  "backend": "tensorflow"
}`

func poolingWeights() []fixtureWeight {
	return []fixtureWeight{
		{"embedding/embeddings", []int{5, 2}, []float32{0, 0, 1, 0, 0, 1, 1, 1, -1, -1}},
		{"dense/kernel", []int{2, 1}, []float32{2, -1}},
		{"dense/bias", []int{1}, []float32{0.5}},
	}
}

func TestLoadPoolingModel(t *testing.T) {
	f := buildFixture(t, poolingTopology, poolingWeights())

	m, err := Load(context.Background(), f, fixtureModelPath)
	require.NoError(t, err)
	assert.Equal(t, "sequential", m.Name())
	assert.Equal(t, 3, m.InputLength())
	assert.Equal(t, []string{"embedding", "global_average_pooling1d", "dense"}, m.Layers())

	out, err := m.Forward(context.Background(), [][]float64{{0, 1, 3}, {4, 4, 4}})
	require.NoError(t, err)
	require.Len(t, out, 2)
	require.Len(t, out[0], 1)

	// mean([0,0],[1,0],[1,1]) = [2/3, 1/3]; 2*2/3 - 1/3 + 0.5 = 1.5
	assert.InDelta(t, sigmoidRef(1.5), out[0][0], 1e-6)
	// mean = [-1,-1]; -2 + 1 + 0.5 = -0.5
	assert.InDelta(t, sigmoidRef(-0.5), out[1][0], 1e-6)
}

func TestForwardIsDeterministic(t *testing.T) {
	m, err := Load(context.Background(), buildFixture(t, poolingTopology, poolingWeights()), fixtureModelPath)
	require.NoError(t, err)

	a, err := m.Forward(context.Background(), [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	b, err := m.Forward(context.Background(), [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestForwardOutOfRangeIndexEmbedsZero(t *testing.T) {
	m, err := Load(context.Background(), buildFixture(t, poolingTopology, poolingWeights()), fixtureModelPath)
	require.NoError(t, err)
	assert.Equal(t, 5, m.VocabularySize())

	got, err := m.Forward(context.Background(), [][]float64{{0, 5, 1}, {0, 42, 1}})
	require.NoError(t, err)
	want, err := m.Forward(context.Background(), [][]float64{{0, 0, 1}})
	require.NoError(t, err)

	// mean([0,0],[0,0],[1,0]) = [1/3, 0]; 2/3 + 0.5
	assert.InDelta(t, sigmoidRef(2.0/3+0.5), got[0][0], 1e-6)
	assert.Equal(t, want[0], got[0])
	assert.Equal(t, want[0], got[1])
}

func TestForwardHonoursCancellation(t *testing.T) {
	m, err := Load(context.Background(), buildFixture(t, poolingTopology, poolingWeights()), fixtureModelPath)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Forward(ctx, [][]float64{{0, 1, 2}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoadLegacyTopologyForms(t *testing.T) {
	// model_config wrapper around a bare layer list
	legacy := `{
  "model_config": {
    "class_name": "Sequential",
    "config": [
      {"class_name": "Embedding", "config": {"name": "embedding", "batch_input_shape": [null, 3], "input_dim": 5, "output_dim": 2}},
      {"class_name": "Flatten", "config": {"name": "flatten"}},
      {"class_name": "Dense", "config": {"name": "dense", "units": 1, "activation": {"class_name": "Activation", "config": {"name": "linear"}}}}
    ]
  },
  "training_config": {}
}`
	f := buildFixture(t, legacy, []fixtureWeight{
		{"embedding/embeddings", []int{5, 2}, []float32{0, 0, 1, 0, 0, 1, 1, 1, -1, -1}},
		{"dense/kernel", []int{6, 1}, []float32{1, 2, 3, 4, 5, 6}},
		{"dense/bias", []int{1}, []float32{0}},
	})
	m, err := Load(context.Background(), f, fixtureModelPath)
	require.NoError(t, err)
	assert.Equal(t, 3, m.InputLength())

	out, err := m.Forward(context.Background(), [][]float64{{1, 2, 3}})
	require.NoError(t, err)
	// flatten -> [1,0, 0,1, 1,1]
	assert.InDelta(t, 1.0+4.0+5.0+6.0, out[0][0], 1e-9)
}

func TestLoadFunctionalWithInputLayer(t *testing.T) {
	functional := `{
  "class_name": "Functional",
  "config": {
    "name": "model",
    "layers": [
      {"class_name": "InputLayer", "name": "input_1", "config": {"batch_input_shape": [null, 4], "dtype": "float32", "name": "input_1"}, "inbound_nodes": []},
      {"class_name": "Dense", "name": "dense", "config": {"name": "dense", "units": 2, "activation": "relu"}, "inbound_nodes": [[["input_1", 0, 0, {}]]]},
      {"class_name": "Dense", "name": "dense_1", "config": {"name": "dense_1", "units": 2, "activation": "softmax"}, "inbound_nodes": [[["dense", 0, 0, {}]]]}
    ],
    "input_layers": [["input_1", 0, 0]],
    "output_layers": [["dense_1", 0, 0]]
  }
}`
	f := buildFixture(t, functional, []fixtureWeight{
		{"dense/kernel", []int{4, 2}, []float32{1, -1, 1, -1, 1, -1, 1, -1}},
		{"dense/bias", []int{2}, []float32{0, 0}},
		{"dense_1/kernel", []int{2, 2}, []float32{1, 0, 0, 1}},
		{"dense_1/bias", []int{2}, []float32{0, 0}},
	})
	m, err := Load(context.Background(), f, fixtureModelPath)
	require.NoError(t, err)
	assert.Equal(t, 4, m.InputLength())
	assert.Equal(t, []string{"dense", "dense_1"}, m.Layers())

	out, err := m.Forward(context.Background(), [][]float64{{1, 1, 0, 0}})
	require.NoError(t, err)
	// hidden = relu([2, -2]) = [2, 0]; softmax([2, 0])
	e := math.Exp(2)
	assert.InDelta(t, e/(e+1), out[0][0], 1e-9)
	assert.InDelta(t, 1/(e+1), out[0][1], 1e-9)
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("unsupported layer", func(t *testing.T) {
		top := `{"class_name": "Sequential", "config": {"layers": [{"class_name": "Conv1D", "config": {"name": "conv1d"}}]}}`
		_, err := Load(ctx, buildFixture(t, top, nil), fixtureModelPath)
		assert.ErrorIs(t, err, ErrUnsupportedLayer)
	})

	t.Run("unsupported activation", func(t *testing.T) {
		top := `{"class_name": "Sequential", "config": {"layers": [{"class_name": "Dense", "config": {"name": "dense", "units": 1, "activation": "swishy"}}]}}`
		f := buildFixture(t, top, []fixtureWeight{
			{"dense/kernel", []int{1, 1}, []float32{1}},
			{"dense/bias", []int{1}, []float32{0}},
		})
		_, err := Load(ctx, f, fixtureModelPath)
		assert.ErrorIs(t, err, ErrUnsupportedLayer)
	})

	t.Run("missing weight", func(t *testing.T) {
		f := buildFixture(t, poolingTopology, poolingWeights()[:2])
		_, err := Load(ctx, f, fixtureModelPath)
		assert.ErrorContains(t, err, `missing weight "bias"`)
	})

	t.Run("missing shard", func(t *testing.T) {
		f := buildFixture(t, poolingTopology, poolingWeights())
		delete(f, "tfjs/group1-shard1of1.bin")
		_, err := Load(ctx, f, fixtureModelPath)
		assert.ErrorContains(t, err, "fetch weight shard")
	})

	t.Run("truncated shard", func(t *testing.T) {
		f := buildFixture(t, poolingTopology, poolingWeights())
		f["tfjs/group1-shard1of1.bin"] = f["tfjs/group1-shard1of1.bin"][:8]
		_, err := Load(ctx, f, fixtureModelPath)
		assert.ErrorContains(t, err, "bytes")
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := Load(ctx, memFetcher{fixtureModelPath: []byte("{")}, fixtureModelPath)
		assert.Error(t, err)
	})

	t.Run("graph model format", func(t *testing.T) {
		_, err := Load(ctx, memFetcher{fixtureModelPath: []byte(`{"format": "graph-model"}`)}, fixtureModelPath)
		assert.ErrorIs(t, err, ErrUnsupportedLayer)
	})

	t.Run("missing model", func(t *testing.T) {
		_, err := Load(ctx, memFetcher{}, fixtureModelPath)
		assert.ErrorContains(t, err, "fetch model")
	})
}
