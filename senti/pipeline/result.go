package pipeline

import "github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"

// LoadResult reports the outcome of Init
type LoadResult struct {
	Ready             bool
	MaxSequenceLength int
	VocabularySize    int
	Err               error
}

func (r LoadResult) OK() bool { return r.Ready && r.Err == nil }

// PredictResult carries either a prediction or the reason there is none
type PredictResult struct {
	Prediction *inference.Prediction
	Err        error
}

func (r PredictResult) OK() bool { return r.Err == nil && r.Prediction != nil }
