package terminal

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOutputAndDiagnosticsSplit(t *testing.T) {
	var out, errOut bytes.Buffer
	term := New(&out, &errOut, false)

	term.Output("Sentiment: POSITIVE")
	term.Warning("metadata missing")
	term.Error("predict", errors.New("boom"))
	term.Error("please enter a text to analyze", nil)

	assert.Equal(t, "Sentiment: POSITIVE\n", out.String())
	assert.Equal(t, "warning: metadata missing\nerror: predict: boom\nerror: please enter a text to analyze\n", errOut.String())
}

func TestSpinnerWithoutAnimation(t *testing.T) {
	var out, errOut bytes.Buffer
	term := New(&out, &errOut, false)

	term.StartSpinner("Loading model...")
	term.StopSpinner(true, "Model loaded")
	term.StartSpinner("Loading model...")
	term.StopSpinner(false, "Failed to load model")

	assert.Equal(t, "Loading model...\n✔ Model loaded\nLoading model...\n✘ Failed to load model\n", errOut.String())
	assert.Empty(t, out.String())
}

func TestAnimatedSpinnerStops(t *testing.T) {
	var out, errOut bytes.Buffer
	term := New(&out, &errOut, true)

	term.StartSpinner("Loading model...")
	term.StartSpinner("ignored while spinning")
	time.Sleep(250 * time.Millisecond)
	term.StopSpinner(true, "Model loaded")

	assert.Contains(t, errOut.String(), "✔ Model loaded")
	assert.Empty(t, out.String())
	assert.Nil(t, term.bar)
}
