package pipeline

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference/tokenizer"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/resources"
	"github.com/rs/zerolog"
)

var (
	// ErrEmptyInput carries the message shown to the user for blank text
	ErrEmptyInput = errors.New("please enter a text to analyze")
	ErrNotReady   = errors.New("pipeline not ready")
	ErrClosed     = errors.New("pipeline closed")
)

// Loader produces the model bundle
type Loader interface {
	Load(ctx context.Context) (*resources.Bundle, error)
}

// Pipeline owns the loaded model and turns text into predictions.
// It is safe for concurrent use once constructed.
type Pipeline struct {
	loader Loader
	logger zerolog.Logger

	once   sync.Once
	result LoadResult

	mu         sync.RWMutex
	status     Status
	bundle     *resources.Bundle
	tokenizer  tokenizer.Tokenizer
	classifier *inference.Classifier
	observers  []func(Status)
}

func New(loader Loader, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		loader: loader,
		logger: logger.With().Str("component", "pipeline").Logger(),
		status: Status{State: StateLoading},
	}
}

// OnStateChange registers fn to receive every status transition
func (p *Pipeline) OnStateChange(fn func(Status)) {
	p.mu.Lock()
	p.observers = append(p.observers, fn)
	p.mu.Unlock()
}

func (p *Pipeline) State() State {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status.State
}

func (p *Pipeline) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.status
}

// Vocabulary is nil until the pipeline is ready
func (p *Pipeline) Vocabulary() *tokenizer.Vocabulary {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.bundle == nil {
		return nil
	}
	return p.bundle.Vocabulary
}

// Init loads the model exactly once. Later calls return the first result.
func (p *Pipeline) Init(ctx context.Context) LoadResult {
	p.once.Do(func() {
		p.result = p.load(ctx)
	})
	return p.result
}

func (p *Pipeline) load(ctx context.Context) LoadResult {
	p.mu.RLock()
	closed := p.status.State == StateClosed
	p.mu.RUnlock()
	if closed {
		return LoadResult{Err: ErrClosed}
	}

	bundle, err := p.loader.Load(ctx)
	if err == nil {
		err = p.bind(bundle)
	}
	if err != nil {
		p.logger.Error().Err(err).Msg("Model loading failed")
		p.transition(Status{State: StateFailed, Error: err.Error()})
		return LoadResult{Err: err}
	}

	p.transition(Status{
		State:             StateReady,
		MaxSequenceLength: bundle.MaxSequenceLength,
		VocabularySize:    bundle.Vocabulary.Len(),
	})
	return LoadResult{
		Ready:             true,
		MaxSequenceLength: bundle.MaxSequenceLength,
		VocabularySize:    bundle.Vocabulary.Len(),
	}
}

func (p *Pipeline) bind(bundle *resources.Bundle) error {
	tok, err := tokenizer.NewSequenceTokenizer(bundle.Vocabulary, bundle.MaxSequenceLength)
	if err != nil {
		_ = closeModel(bundle)
		return fmt.Errorf("build tokenizer: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.status.State == StateClosed {
		_ = closeModel(bundle)
		return ErrClosed
	}
	p.bundle = bundle
	p.tokenizer = tok
	p.classifier = inference.NewClassifier(bundle.Model, bundle.MaxSequenceLength, p.logger)
	return nil
}

func (p *Pipeline) transition(s Status) {
	p.mu.Lock()
	if p.status.State == StateClosed {
		p.mu.Unlock()
		return
	}
	p.status = s
	observers := slices.Clone(p.observers)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(s)
	}
}

// Predict classifies text. Failures never change the pipeline state.
func (p *Pipeline) Predict(ctx context.Context, text string) PredictResult {
	if tokenizer.IsBlank(text) {
		return PredictResult{Err: ErrEmptyInput}
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.status.State != StateReady || p.classifier == nil {
		return PredictResult{Err: fmt.Errorf("%w: %w", ErrNotReady, &inference.ModelNotReadyError{Reason: p.status.State.String()})}
	}

	enc := p.tokenizer.Tokenize(text)
	p.logger.Debug().
		Strs("tokens", enc.Tokens).
		Ints64("sequence", enc.IDs).
		Strs("unknown", enc.Unknown).
		Msg("Encoded input")

	pred, err := p.classifier.Predict(ctx, text, enc.IDs)
	if err != nil {
		p.logger.Error().Err(err).Msg("Prediction failed")
		return PredictResult{Err: fmt.Errorf("predict: %w", err)}
	}
	pred.Unknown = enc.Unknown
	return PredictResult{Prediction: pred}
}

// Close releases the model. The pipeline rejects predictions afterwards.
func (p *Pipeline) Close() error {
	p.mu.Lock()
	if p.status.State == StateClosed {
		p.mu.Unlock()
		return nil
	}
	bundle := p.bundle
	p.bundle, p.tokenizer, p.classifier = nil, nil, nil
	p.status = Status{State: StateClosed}
	observers := slices.Clone(p.observers)
	p.mu.Unlock()

	for _, fn := range observers {
		fn(Status{State: StateClosed})
	}
	return closeModel(bundle)
}

func closeModel(bundle *resources.Bundle) error {
	if bundle == nil || bundle.Model == nil {
		return nil
	}
	return bundle.Model.Close()
}
