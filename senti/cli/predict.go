package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/pipeline"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/ports"
	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/terminal"
	"github.com/spf13/cobra"
)

func newPredictCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "predict [text...]",
		Short: "Classify text given as arguments, or one text per stdin line",
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := terminal.New(cmd.OutOrStdout(), cmd.ErrOrStderr(), isTerminal(cmd.ErrOrStderr()))
			p, err := a.newPipeline()
			if err != nil {
				return err
			}
			defer p.Close()

			if err := initPipeline(cmd.Context(), a, p, ui); err != nil {
				return err
			}

			if len(args) > 0 {
				if !printPrediction(cmd, ui, p.Predict(cmd.Context(), strings.Join(args, " ")), asJSON) {
					return errors.New("prediction failed")
				}
				return nil
			}

			var total, failed int
			scanner := bufio.NewScanner(cmd.InOrStdin())
			scanner.Buffer(make([]byte, 64<<10), 1<<20)
			for scanner.Scan() {
				total++
				if !printPrediction(cmd, ui, p.Predict(cmd.Context(), scanner.Text()), asJSON) {
					failed++
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d predictions failed", failed, total)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print predictions as JSON lines")
	return cmd
}

func initPipeline(ctx context.Context, a *app, p *pipeline.Pipeline, ui ports.Interactor) error {
	if timeout := a.loadTimeout(); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ui.StartSpinner(pipeline.Status{State: pipeline.StateLoading}.Message())
	res := p.Init(ctx)
	st := p.Status()
	ui.StopSpinner(res.OK(), st.Message())
	if !res.OK() {
		return res.Err
	}
	return nil
}

// printPrediction reports res and returns whether it succeeded
func printPrediction(cmd *cobra.Command, ui ports.Interactor, res pipeline.PredictResult, asJSON bool) bool {
	if !res.OK() {
		if errors.Is(res.Err, pipeline.ErrEmptyInput) {
			ui.Warning(res.Err.Error())
		} else {
			ui.Error("prediction failed", res.Err)
		}
		return false
	}
	if asJSON {
		b, err := json.Marshal(res.Prediction)
		if err != nil {
			ui.Error("encode prediction", err)
			return false
		}
		ui.Output(string(b))
		return true
	}
	ui.Output(res.Prediction.String())
	if len(res.Prediction.Unknown) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "unknown words: %s\n", strings.Join(res.Prediction.Unknown, ", "))
	}
	return true
}
