package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/resources/resourcestest"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFixture stores the model bundle and a config pointing at it
func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, resourcestest.Write(afero.NewOsFs(), dir))

	cfg := fmt.Sprintf("model:\n  source: %q\n  loadTimeoutSeconds: 5\nlogging:\n  level: error\n", dir)
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return path
}

func run(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetIn(strings.NewReader(stdin))
	err := root.Execute()
	return out.String(), errOut.String(), err
}

func TestPredictArgs(t *testing.T) {
	cfg := writeFixture(t)
	out, errOut, err := run(t, "", "--config", cfg, "predict", "Good", "movie!")
	require.NoError(t, err, errOut)

	assert.Contains(t, out, `Text: "Good movie!"`)
	assert.Contains(t, out, "Sentiment: POSITIVE")
	assert.Contains(t, out, "Confidence: ")
	assert.Contains(t, errOut, "Model loaded. Ready to analyze.")
}

func TestPredictStdinJSON(t *testing.T) {
	cfg := writeFixture(t)
	out, errOut, err := run(t, "good movie\nbad movie\n", "--config", cfg, "predict", "--json")
	require.NoError(t, err, errOut)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)

	var first, second inference.Prediction
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, inference.Positive, first.Label)
	assert.Equal(t, inference.Negative, second.Label)
	assert.Equal(t, []int64{0, 2, 3}, second.Sequence)
}

func TestPredictStdinBlankLine(t *testing.T) {
	cfg := writeFixture(t)
	out, errOut, err := run(t, "good movie\n   \n", "--config", cfg, "predict")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 predictions failed")
	assert.Contains(t, out, "Sentiment: POSITIVE")
	assert.Contains(t, errOut, "please enter a text to analyze")
}

func TestPredictMissingModel(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte(fmt.Sprintf("model:\n  source: %q\nlogging:\n  level: error\n", dir)), 0o644))

	_, errOut, err := run(t, "", "--config", cfg, "predict", "anything")
	require.Error(t, err)
	assert.Contains(t, errOut, "Failed to load model")
}

func TestVocab(t *testing.T) {
	cfg := writeFixture(t)
	out, errOut, err := run(t, "", "--config", cfg, "vocab")
	require.NoError(t, err, errOut)
	assert.Equal(t, "bad\t2\ngood\t1\nmovie\t3\n", out)

	out, _, err = run(t, "", "--config", cfg, "vocab", "--prefix", "go")
	require.NoError(t, err)
	assert.Equal(t, "good\t1\n", out)

	out, _, err = run(t, "", "--config", cfg, "vocab", "--limit", "1")
	require.NoError(t, err)
	assert.Equal(t, "bad\t2\n", out)
}

func TestInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("model:\n  backend: pytorch\n"), 0o644))

	_, _, err := run(t, "", "--config", cfg, "vocab")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config")
}
