package resources

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference/tokenizer"
	"github.com/rs/zerolog"
)

// Bundle is everything the pipeline needs once loading succeeds
type Bundle struct {
	Model             inference.Model
	MaxSequenceLength int
	Vocabulary        *tokenizer.Vocabulary
	Metadata          Metadata
}

// Options names the resources relative to the Source
type Options struct {
	Backend                  string
	ModelPath                string
	MetadataPath             string
	VocabPath                string
	DefaultMaxSequenceLength int
	Model                    inference.Options
}

// Loader fetches model, metadata and vocabulary, in that order
type Loader struct {
	src    Source
	opts   Options
	logger zerolog.Logger
}

func NewLoader(src Source, opts Options, logger zerolog.Logger) *Loader {
	return &Loader{
		src:    src,
		opts:   opts,
		logger: logger.With().Str("component", "resources").Logger(),
	}
}

func (l *Loader) Load(ctx context.Context) (*Bundle, error) {
	start := time.Now()
	l.logger.Info().
		Str("source", l.src.Location()).
		Str("backend", l.opts.Backend).
		Str("model", l.opts.ModelPath).
		Msg("Loading model")

	model, err := inference.OpenModel(ctx, l.opts.Backend, l.src, l.opts.ModelPath, l.opts.Model)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	meta, err := l.loadMetadata(ctx)
	if err != nil {
		_ = model.Close()
		return nil, err
	}
	maxLen := meta.MaxSequenceLength
	if maxLen <= 0 {
		maxLen = l.opts.DefaultMaxSequenceLength
		l.logger.Warn().
			Int("max_sequence_length", maxLen).
			Msg("Metadata has no usable max_sequence_length, using default")
	}

	vocab, err := l.loadVocabulary(ctx)
	if err != nil {
		_ = model.Close()
		return nil, err
	}

	if il, ok := model.(inference.InputLengther); ok {
		if n := il.InputLength(); n > 0 && n != maxLen {
			l.logger.Warn().
				Int("model_input_length", n).
				Int("max_sequence_length", maxLen).
				Msg("Model input length differs from max_sequence_length")
		}
	}

	if vs, ok := model.(inference.VocabularySizer); ok {
		if n := vs.VocabularySize(); n > 0 && vocab.MaxIndex() >= int64(n) {
			l.logger.Warn().
				Int("embedding_input_dim", n).
				Int64("max_index", vocab.MaxIndex()).
				Msg("Vocabulary has ids beyond the embedding table; those words embed as zero vectors")
		}
	}

	l.logger.Info().
		Int("max_sequence_length", maxLen).
		Int("vocabulary_size", vocab.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Model ready")

	return &Bundle{
		Model:             model,
		MaxSequenceLength: maxLen,
		Vocabulary:        vocab,
		Metadata:          meta,
	}, nil
}

func (l *Loader) loadMetadata(ctx context.Context) (Metadata, error) {
	if l.opts.MetadataPath == "" {
		return Metadata{}, nil
	}
	data, err := l.src.Fetch(ctx, l.opts.MetadataPath)
	if errors.Is(err, ErrMissingResource) {
		l.logger.Warn().Str("path", l.opts.MetadataPath).Msg("Metadata not found")
		return Metadata{}, nil
	}
	if err != nil {
		return Metadata{}, fmt.Errorf("load metadata: %w", err)
	}
	return ParseMetadata(data)
}

func (l *Loader) loadVocabulary(ctx context.Context) (*tokenizer.Vocabulary, error) {
	data, err := l.src.Fetch(ctx, l.opts.VocabPath)
	if err != nil {
		return nil, fmt.Errorf("load vocabulary: %w", err)
	}
	vocab, err := ParseVocabulary(data)
	if err != nil {
		return nil, err
	}
	l.logger.Debug().Int("entries", vocab.Len()).Int64("max_index", vocab.MaxIndex()).Msg("Vocabulary loaded")
	return vocab, nil
}
