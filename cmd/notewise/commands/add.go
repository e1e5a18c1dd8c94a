package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/calder-n/notewise/internal/ingestion"
	"github.com/calder-n/notewise/internal/logging"
)

// NewAddCmd constructs the `notewise add` command, which ingests a note
// from the command line through the same durable pipeline the HTTP
// endpoint uses.
func NewAddCmd() *cobra.Command {
	var metadata []string
	var idempotencyKey string

	cmd := &cobra.Command{
		Use:   "add [text]",
		Short: "Store and index a new note",
		Long: `Store a note and index its embedding so later questions can retrieve it.

Examples:
  notewise add "Pepperoni is the best pizza topping"
  notewise add --meta topic=food "The trattoria on 5th closes on Mondays"
  notewise add --key grocery-2026-08-29 "Buy parmesan"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logging.NewFromEnv()
			ctx := logging.WithLogger(cmd.Context(), log)

			meta := make(map[string]string, len(metadata))
			for _, kv := range metadata {
				k, v, ok := strings.Cut(kv, "=")
				if !ok {
					return fmt.Errorf("add: invalid --meta %q, expected key=value", kv)
				}
				meta[k] = v
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}
			defer comps.Close()

			result, err := comps.pipeline.Ingest(ctx, ingestion.Request{
				Text:           strings.Join(args, " "),
				Metadata:       meta,
				IdempotencyKey: idempotencyKey,
			})
			if err != nil {
				return fmt.Errorf("add: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "stored note %s (workflow %s)\n", result.RecordID, result.WorkflowID)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&metadata, "meta", nil, "Metadata key=value pair (repeatable)")
	cmd.Flags().StringVar(&idempotencyKey, "key", "", "Idempotency key; replaying the same key resumes the original workflow")

	return cmd
}
