// Package cli wires configuration, logging and the pipeline into cobra commands.
package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	internal "github.com/ZanzyTHEbar/sentiment-pipeline/senti"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/config"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/inference"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/pipeline"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/resources"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// app is the state shared by every subcommand after PersistentPreRunE
type app struct {
	cfgFile  string
	logLevel string
	pretty   bool

	cfg    *config.Config
	logger zerolog.Logger
}

// NewRootCmd builds the senti command tree
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   internal.DefaultAppCMDShortCut,
		Short: "Sentiment analysis with a pre-trained text classifier",
		Long: `senti loads a pre-trained sentiment model together with its vocabulary and
classifies text as POSITIVE or NEGATIVE with a confidence percentage.

Example usage:
  senti predict "what a wonderful movie"   # Classify one text
  echo "terrible plot" | senti predict     # Classify stdin, one text per line
  senti serve --addr :8080                 # Browser UI and JSON API
  senti vocab --prefix mov                 # Inspect the vocabulary`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}
	root.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&a.pretty, "pretty", false, "human readable logs")

	root.AddCommand(newPredictCmd(a), newServeCmd(a), newVocabCmd(a))
	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.LoadConfig(a.cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.pretty {
		cfg.Logging.Pretty = true
	}
	a.cfg = cfg
	a.logger = internal.NewLogger(cmd.ErrOrStderr(), cfg.Logging.Level, cfg.Logging.Pretty)
	return nil
}

func (a *app) source() (resources.Source, error) {
	return resources.NewSource(a.cfg.Model.Source, nil, nil)
}

func (a *app) loadTimeout() time.Duration {
	return time.Duration(a.cfg.Model.LoadTimeoutSeconds) * time.Second
}

func (a *app) newPipeline() (*pipeline.Pipeline, error) {
	src, err := a.source()
	if err != nil {
		return nil, err
	}
	m := a.cfg.Model
	opts := inference.Options{
		ExecutionProvider: m.ExecutionProvider,
		DeviceID:          m.DeviceID,
		SharedLibraryPath: m.SharedLibraryPath,
	}
	if m.Backend == inference.BackendONNX && a.logger.GetLevel() <= zerolog.DebugLevel {
		a.logProviders(opts)
	}
	loader := resources.NewLoader(src, resources.Options{
		Backend:                  m.Backend,
		ModelPath:                m.ModelPath,
		MetadataPath:             m.MetadataPath,
		VocabPath:                m.VocabPath,
		DefaultMaxSequenceLength: m.DefaultMaxSequenceLength,
		Model:                    opts,
	}, a.logger)
	return pipeline.New(loader, a.logger), nil
}

func (a *app) logProviders(opts inference.Options) {
	providers, err := inference.DetectExecutionProviders(opts)
	if err != nil {
		a.logger.Debug().Err(err).Msg("ONNX execution providers unavailable")
		return
	}
	a.logger.Debug().Strs("providers", providers).Msg("ONNX execution providers")
}

// isTerminal reports whether w is an interactive terminal
func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
