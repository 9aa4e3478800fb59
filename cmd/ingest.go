package cmd

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/docdex/docdex/internal/app"
	"github.com/docdex/docdex/internal/auth"
	"github.com/docdex/docdex/internal/config"
	"github.com/docdex/docdex/internal/ingest"
)

var ingestFlags struct {
	files        []string
	dir          string
	urls         []string
	collection   string
	backend      string
	postgresHost string
	postgresPort int
	org          string
	maxDepth     int
	clear        bool
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load documentation files and URLs into the index",
	Long: `Ingest parses YAML documentation (OpenAPI specs, custom API docs,
generic YAML) and crawls documentation URLs, chunks the content and
indexes it for the given organization.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(ingestFlags.files) == 0 && ingestFlags.dir == "" && len(ingestFlags.urls) == 0 {
			return fmt.Errorf("specify --files, --dir or --urls")
		}

		logger := newLogger()

		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		applyIngestOverrides(cfg)
		if err := cfg.Validate(); err != nil {
			return err
		}
		if err := checkRequiredEnv(); err != nil {
			return err
		}

		ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()

		a, err := app.Setup(ctx, cfg, logger)
		if err != nil {
			return fmt.Errorf("initializing application: %w", err)
		}
		defer func() {
			if closeErr := a.Close(); closeErr != nil {
				logger.Warn("shutdown error", "error", closeErr)
			}
		}()

		identity := auth.Identity{
			CredentialID: "ingest-cli",
			OrgID:        ingestFlags.org,
			Permissions:  []auth.Permission{auth.PermRead, auth.PermWrite, auth.PermAdmin},
		}
		pipeline := ingest.New(a.Loader, a.Guard, a.Store, identity, logger)

		sources := ingestFlags.files
		if ingestFlags.dir != "" {
			sources = append(sources, ingestFlags.dir)
		}
		sources = append(sources, ingestFlags.urls...)

		report, err := pipeline.Run(ctx, sources, ingest.Options{
			Clear:    ingestFlags.clear,
			MaxDepth: ingestFlags.maxDepth,
		})
		if err != nil {
			return err
		}
		printReport(cmd, report)

		if info, err := pipeline.Info(ctx); err == nil {
			cmd.Printf("\nCollection: %s\n", info.Collection)
			cmd.Printf("Total documents in store: %d\n", info.Documents)
		} else {
			logger.Warn("could not read collection info", "error", err)
		}

		if report.TotalChunks > 0 {
			cmd.Println("\nTesting search...")
			smoke, err := pipeline.Smoke(ctx)
			if err != nil {
				logger.Warn("smoke queries failed", "error", err)
			}
			for _, res := range smoke {
				cmd.Printf("  %q: %d results", res.Query, res.Results)
				if res.TopSource != "" {
					cmd.Printf(" (top: %s)", res.TopSource)
				}
				cmd.Println()
			}
		}

		if failed := report.Failed(); len(failed) == len(report.Sources) {
			return fmt.Errorf("all %d sources failed", len(failed))
		}
		return nil
	},
}

func applyIngestOverrides(cfg *config.Config) {
	if ingestFlags.collection != "" {
		cfg.Collection = ingestFlags.collection
	}
	if ingestFlags.backend != "" {
		cfg.Backend = ingestFlags.backend
	}
	if ingestFlags.postgresHost != "" {
		cfg.PostgresHost = ingestFlags.postgresHost
	}
	if ingestFlags.postgresPort != 0 {
		cfg.PostgresPort = ingestFlags.postgresPort
	}
	if ingestFlags.maxDepth == 0 {
		ingestFlags.maxDepth = cfg.Crawler.MaxDepth
	}
}

func printReport(cmd *cobra.Command, report *ingest.Report) {
	cmd.Println("\nIngestion summary:")
	for _, src := range report.Sources {
		switch {
		case src.Err != nil && src.Chunks > 0:
			cmd.Printf("  %s: %d chunks (partial, error: %v)\n", src.Source, src.Chunks, src.Err)
		case src.Err != nil:
			cmd.Printf("  %s: failed (%v)\n", src.Source, src.Err)
		case src.Chunks == 0:
			cmd.Printf("  %s: no chunks generated\n", src.Source)
		default:
			cmd.Printf("  %s: %d chunks\n", src.Source, src.Chunks)
		}
	}
	cmd.Printf("Total chunks loaded: %d\n", report.TotalChunks)
}

func init() {
	ingestCmd.Flags().StringSliceVar(&ingestFlags.files, "files", nil, "YAML files to ingest")
	ingestCmd.Flags().StringVar(&ingestFlags.dir, "dir", "", "directory of YAML files to ingest")
	ingestCmd.Flags().StringSliceVar(&ingestFlags.urls, "urls", nil, "documentation URLs to crawl")
	ingestCmd.Flags().StringVar(&ingestFlags.collection, "collection", "", "collection name (default from config)")
	ingestCmd.Flags().StringVar(&ingestFlags.backend, "backend", "", "vector store backend: pgvector or memory")
	ingestCmd.Flags().StringVar(&ingestFlags.postgresHost, "postgres-host", "", "postgres host override")
	ingestCmd.Flags().IntVar(&ingestFlags.postgresPort, "postgres-port", 0, "postgres port override")
	ingestCmd.Flags().StringVar(&ingestFlags.org, "org", "default", "organization to stamp on ingested documents")
	ingestCmd.Flags().IntVar(&ingestFlags.maxDepth, "max-depth", 0, "crawl depth for URL sources (default from config)")
	ingestCmd.Flags().BoolVar(&ingestFlags.clear, "clear", false, "clear the collection before ingesting")
	rootCmd.AddCommand(ingestCmd)
}
