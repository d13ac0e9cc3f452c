package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"carfinder/internal/config"
	"carfinder/internal/ingest"
	"carfinder/internal/loaders"

	"github.com/spf13/cobra"
)

var (
	catalogFile string
	reset       bool
	concurrency int
)

var rootCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load a car catalog into the vector index",
	Long: `Reads a JSON array of catalog cars, canonicalizes color and city,
writes a semantic description for each car with the chat model, embeds it
and upserts the result into the configured retrieval backend.`,
	RunE: runIngest,
}

func init() {
	rootCmd.Flags().StringVarP(&catalogFile, "file", "f", "", "catalog JSON file (default INGEST_FILE)")
	rootCmd.Flags().BoolVar(&reset, "reset", true, "drop and recreate the index before loading")
	rootCmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "parallel description/embedding workers (default INGEST_CONCURRENCY)")
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if catalogFile != "" {
		cfg.Ingest.File = catalogFile
	}
	if concurrency > 0 {
		cfg.Ingest.Concurrency = concurrency
	}

	clients, err := loaders.Load(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize clients: %w", err)
	}
	defer clients.Close()

	svc, err := loaders.NewIngestService(cfg, clients)
	if err != nil {
		return err
	}

	log.Printf("Loading data from '%s'", cfg.Ingest.File)
	catalog, err := ingest.LoadCatalog(cfg.Ingest.File)
	if err != nil {
		return err
	}
	log.Printf("Loaded %d cars", len(catalog))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := svc.Run(ctx, catalog, reset)
	if err != nil {
		return err
	}
	for _, e := range stats.Errors {
		log.Printf("❌ %s", e)
	}
	if stats.Failed > 0 {
		return fmt.Errorf("ingest completed with %d failures", stats.Failed)
	}
	log.Println("Ingestion completed successfully")
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
