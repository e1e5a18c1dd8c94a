package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/calder-n/notewise/internal/answer"
	"github.com/calder-n/notewise/internal/budget"
	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/note"
	"github.com/calder-n/notewise/internal/rag"
)

// NewAskCmd constructs the `notewise ask` command: a one-shot question
// answered from the stored notes, printed to stdout.
func NewAskCmd() *cobra.Command {
	var model string
	var topK int
	var threshold float32

	cmd := &cobra.Command{
		Use:   "ask [question]",
		Short: "Ask a question answered from your stored notes",
		Long: `Ask a natural-language question. The most relevant stored notes are
retrieved and handed to the model as context.

Examples:
  notewise ask "when is the dentist appointment?"
  notewise ask --model advanced "summarise everything I know about kubernetes upgrades"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewFromEnv()
			ctx := logging.WithLogger(cmd.Context(), log)

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			defer comps.Close()

			generator, err := buildGenerator(ctx, log)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			question := args[0]
			matches, err := comps.searcher.Search(ctx, question, rag.SearchOptions{
				TopK:      topK,
				Threshold: threshold,
			})
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			ids := make([]string, len(matches))
			for i, m := range matches {
				ids[i] = m.ID
			}
			resolved, err := comps.store.GetMany(ctx, ids)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}
			notes := make([]note.Note, 0, len(matches))
			for _, m := range matches {
				if n, ok := resolved[m.ID]; ok {
					notes = append(notes, n)
				}
			}

			notes = budget.TrimNotes(notes, budget.DefaultMaxContextTokens)

			variant := answer.ResolveVariant(model)
			result, err := generator.Generate(ctx, question, answer.BuildContext(notes), variant)
			if err != nil {
				return fmt.Errorf("ask: %w", err)
			}

			fmt.Fprintln(cmd.OutOrStdout(), result.Text)
			fmt.Fprintf(cmd.ErrOrStderr(), "\n[%d notes used, answered by %s]\n", len(notes), result.Model)
			return nil
		},
	}

	cmd.Flags().StringVarP(&model, "model", "m", "fast", "Model variant: fast or advanced")
	cmd.Flags().IntVarP(&topK, "top-k", "k", 5, "Maximum number of notes to retrieve")
	cmd.Flags().Float32VarP(&threshold, "threshold", "t", 0.7, "Minimum similarity score (0-1)")

	return cmd
}
