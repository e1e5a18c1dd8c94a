package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/cloudwego/eino/callbacks"
	"github.com/spf13/cobra"

	"github.com/calder-n/notewise/internal/logging"
	"github.com/calder-n/notewise/internal/server"
	"github.com/calder-n/notewise/internal/tracing"
)

// NewServeCmd constructs the `notewise serve` command, which starts the
// HTTP server exposing the question, note, and search endpoints.
func NewServeCmd() *cobra.Command {
	var host string
	var port int
	var debug bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the notewise HTTP server",
		Long: `Start the notewise HTTP server on localhost.

The server answers questions from your stored notes (GET /), ingests new
notes (POST /notes), searches without generation (GET /search), and
removes notes (DELETE /notes/{id}).

Examples:
  notewise serve
  notewise serve --port 9090
  MODEL_PROVIDER=openai notewise serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			log := logging.NewFromEnv()
			ctx = logging.WithLogger(ctx, log)

			// Setup Langfuse tracing — opt-in, no-op if keys are absent.
			handler, flush, ok := tracing.Setup()
			if ok {
				callbacks.AppendGlobalHandlers(handler)
				defer flush()
				log.Info("langfuse tracing enabled")
			} else {
				log.Info("langfuse tracing disabled", "reason", "LANGFUSE_PUBLIC_KEY not set")
			}

			comps, err := buildComponents(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}
			defer comps.Close()

			generator, err := buildGenerator(ctx, log)
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			searcher, err := comps.registry.Lookup("")
			if err != nil {
				return fmt.Errorf("serve: %w", err)
			}

			srv, err := server.New(server.Deps{
				Searcher:  searcher,
				Notes:     comps.store,
				Generator: generator,
				Ingestor:  comps.pipeline,
				Deleter:   comps.deleter,
			}, &server.Config{
				Host:   host,
				Port:   port,
				Logger: log,
				Debug:  debug,
				APIKey: os.Getenv("NOTEWISE_API_KEY"),
				Pingers: []server.Pinger{
					server.NewStorePinger(comps.store),
					server.NewVectorPinger(comps.vectors),
					server.NewEmbedderPinger(comps.embedder, getEnvOrDefault("EMBEDDING_PROVIDER", "ollama")),
				},
			})
			if err != nil {
				return fmt.Errorf("serve: failed to create server: %w", err)
			}

			return srv.Start(ctx)
		},
	}

	cmd.Flags().StringVar(&host, "host", "127.0.0.1", "Host address to bind to")
	cmd.Flags().IntVarP(&port, "port", "p", 8080, "TCP port to listen on")
	cmd.Flags().BoolVar(&debug, "debug", false, "Include root-cause detail in JSON error bodies")

	return cmd
}
