package internal

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"
)

var (
	// DefaultAppName is used for config lookup paths and env var prefixes
	DefaultAppName        = "senti"
	DefaultAppCMDShortCut = "senti"
	DefaultConfigPath     = filepath.Join(getHomeDir(), ".config", DefaultAppName)
	DefaultEnvPrefix      = strings.ToUpper(DefaultAppName)

	// Default resource layout, relative to the model source
	DefaultModelSource  = "."
	DefaultModelPath    = "model_sentiment_tfjs/model.json"
	DefaultMetadataPath = "model_sentiment_tfjs/metadata.json"
	DefaultVocabPath    = "word_index.json"
	DefaultBackend      = "tfjs"

	// DefaultMaxSequenceLength is used when metadata does not provide one
	DefaultMaxSequenceLength = 9

	DefaultServerAddr = ":8080"
	DefaultLogLevel   = "info"
)

func getHomeDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, cwdErr := os.Getwd()
		if cwdErr != nil {
			log.Printf("Unable to get home or working directory, using /tmp: %v", err)
			return "/tmp"
		}
		log.Printf("Unable to get home directory, using current working directory: %v", err)
		return cwd
	}
	return homeDir
}

// NewLogger builds a logger for the given level name. Unknown levels fall back to info.
// When pretty is set the output is human readable instead of JSON.
func NewLogger(w io.Writer, level string, pretty bool) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	if pretty {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: "15:04:05"}
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	return zerolog.New(w).Level(lvl).With().Timestamp().Logger()
}
