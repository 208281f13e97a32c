// Package terminal implements ports.Interactor for an interactive shell.
package terminal

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/ports"
	"github.com/schollz/progressbar/v3"
)

var _ ports.Interactor = (*Terminal)(nil)

// Terminal writes results to out and diagnostics, including the spinner, to errOut
type Terminal struct {
	out    io.Writer
	errOut io.Writer
	// Spin disables the animated spinner when false, e.g. for pipes
	Spin bool

	mu   sync.Mutex
	bar  *progressbar.ProgressBar
	stop chan struct{}
	done chan struct{}
}

func New(out, errOut io.Writer, spin bool) *Terminal {
	return &Terminal{out: out, errOut: errOut, Spin: spin}
}

func (t *Terminal) Output(message string) {
	fmt.Fprintln(t.out, message)
}

func (t *Terminal) Warning(message string) {
	fmt.Fprintf(t.errOut, "warning: %s\n", message)
}

func (t *Terminal) Error(message string, err error) {
	if err != nil {
		fmt.Fprintf(t.errOut, "error: %s: %v\n", message, err)
		return
	}
	fmt.Fprintf(t.errOut, "error: %s\n", message)
}

func (t *Terminal) StartSpinner(message string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bar != nil {
		return
	}
	if !t.Spin {
		fmt.Fprintln(t.errOut, message)
		return
	}

	t.bar = progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(t.errOut),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetDescription("[cyan]"+message+"[reset]"),
		progressbar.OptionClearOnFinish(),
	)
	t.stop = make(chan struct{})
	t.done = make(chan struct{})
	go spin(t.bar, t.stop, t.done)
}

func spin(bar *progressbar.ProgressBar, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = bar.Add(1)
		}
	}
}

func (t *Terminal) StopSpinner(success bool, message string) {
	t.mu.Lock()
	if t.bar != nil {
		close(t.stop)
		<-t.done
		_ = t.bar.Finish()
		t.bar, t.stop, t.done = nil, nil, nil
	}
	t.mu.Unlock()

	mark := "✔"
	if !success {
		mark = "✘"
	}
	fmt.Fprintf(t.errOut, "%s %s\n", mark, message)
}
