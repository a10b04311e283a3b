package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/strrl/logmend/pkg/tracing"
)

var dbPath string

func main() {
	// Load .env file if present (does not override existing env vars)
	_ = godotenv.Load()

	ctx := context.Background()

	flush := tracing.InitLangfuse()
	shutdown, err := tracing.InitOTel(ctx, "logmend")
	if err != nil {
		slog.Error("otel init failed", "error", err)
		os.Exit(1)
	}

	root := &cobra.Command{
		Use:   "logmend",
		Short: "Log template repair pipeline",
		Long:  "Logmend diagnoses failing log templates and repairs them through a verification-gated state machine.",
	}

	root.PersistentFlags().StringVar(&dbPath, "db", "logmend.duckdb", "path to DuckDB database")

	root.AddCommand(ingestCmd())
	root.AddCommand(repairCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(eventsCmd())
	root.AddCommand(logsCmd())
	root.AddCommand(investigateCmd())

	err = root.ExecuteContext(ctx)
	shutdown(ctx)
	flush()

	if err != nil {
		os.Exit(1)
	}
}
