package pipeline

// State of the model lifecycle
type State int

const (
	StateLoading State = iota
	StateReady
	StateFailed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Status is a snapshot of the pipeline for status displays
type Status struct {
	State             State  `json:"state"`
	MaxSequenceLength int    `json:"max_sequence_length,omitempty"`
	VocabularySize    int    `json:"vocabulary_size,omitempty"`
	Error             string `json:"error,omitempty"`
}

// Message is the human readable status line
func (s Status) Message() string {
	switch s.State {
	case StateLoading:
		return "Loading model..."
	case StateReady:
		return "Model loaded. Ready to analyze."
	case StateFailed:
		if s.Error != "" {
			return "Failed to load model: " + s.Error
		}
		return "Failed to load model."
	case StateClosed:
		return "Model released."
	default:
		return ""
	}
}
