package inference

import (
	"fmt"
	"math"
	"strings"
)

// Label is the binary sentiment class
type Label string

const (
	Positive Label = "POSITIVE"
	Negative Label = "NEGATIVE"
)

// DecisionBoundary splits positive from negative scores; a score on it is positive
const DecisionBoundary = 0.5

func (l Label) Emoji() string {
	if l == Positive {
		return "😊"
	}
	return "😞"
}

// Classify derives the label and the confidence percentage, rounded to two decimals
func Classify(score float64) (Label, float64) {
	label, p := Negative, 1-score
	if score >= DecisionBoundary {
		label, p = Positive, score
	}
	return label, math.Round(p*100*100) / 100
}

// Prediction is the outcome of one successful inference
type Prediction struct {
	RequestID         string   `json:"request_id"`
	Text              string   `json:"text"`
	Label             Label    `json:"label"`
	ConfidencePercent float64  `json:"confidence_percent"`
	RawScore          float64  `json:"raw_score"`
	Sequence          []int64  `json:"sequence,omitempty"`
	Unknown           []string `json:"unknown_tokens,omitempty"`
}

// String renders the prediction the way the result panel shows it
func (p *Prediction) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Text: %q\n", p.Text)
	fmt.Fprintf(&b, "Sentiment: %s %s\n", p.Label, p.Label.Emoji())
	fmt.Fprintf(&b, "Confidence: %.2f%%\n", p.ConfidencePercent)
	fmt.Fprintf(&b, "Score: %.4f", p.RawScore)
	return b.String()
}
