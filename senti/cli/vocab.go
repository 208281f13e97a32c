package cli

import (
	"fmt"

	"github.com/ZanzyTHEbar/sentiment-pipeline/senti/resources"
	"github.com/spf13/cobra"
)

func newVocabCmd(a *app) *cobra.Command {
	var (
		prefix string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List vocabulary entries, optionally by prefix",
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := a.source()
			if err != nil {
				return err
			}
			data, err := src.Fetch(cmd.Context(), a.cfg.Model.VocabPath)
			if err != nil {
				return fmt.Errorf("load vocabulary: %w", err)
			}
			vocab, err := resources.ParseVocabulary(data)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			n := 0
			vocab.WalkPrefix(prefix, func(token string, id int64) bool {
				fmt.Fprintf(out, "%s\t%d\n", token, id)
				n++
				return limit <= 0 || n < limit
			})
			a.logger.Debug().Str("prefix", prefix).Int("listed", n).Int("total", vocab.Len()).Msg("Vocabulary listed")
			return nil
		},
	}
	cmd.Flags().StringVar(&prefix, "prefix", "", "only list words starting with prefix")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of entries, 0 for all")
	return cmd
}
