package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/japaniel/songvocab/pkg/ingest"
	"github.com/japaniel/songvocab/pkg/observe"
)

var batchWorkers int

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Process one request per line and print one JSON object per line",
	Long: `batch reads free-text requests ("<title> by <artist>") from a file, one per
line, and runs them concurrently. Use "-" to read from stdin. Blank lines and
lines starting with '#' are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var in io.Reader = cmd.InOrStdin()
		if args[0] != "-" {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			in = f
		}
		reqs, err := ingest.ReadRequests(in)
		if err != nil {
			return err
		}

		a, err := newApp(cmd.Context(), cfg, logger, observe.NopMetrics())
		if err != nil {
			return err
		}
		defer a.Close()

		workers := cfg.Batch.Workers
		if batchWorkers > 0 {
			workers = batchWorkers
		}
		b := &ingest.Batch{Processor: a.agent, Workers: workers, Logger: logger.Named("batch")}
		outcomes := b.Run(cmd.Context(), reqs)

		failed := 0
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetEscapeHTML(false)
		for _, o := range outcomes {
			var v any = o.Result
			if o.Err != nil {
				failed++
				v = errorJSON(o.Err)
			}
			if err := enc.Encode(v); err != nil {
				return err
			}
		}
		logger.Info("batch finished", zap.Int("requests", len(reqs)), zap.Int("failed", failed))
		if failed > 0 {
			return fmt.Errorf("%d of %d requests failed", failed, len(reqs))
		}
		return nil
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or upgrade the database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		conn, err := openDB(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer conn.Close()
		logger.Info("database ready", zap.String("path", cfg.Database.Path))
		return nil
	},
}

func init() {
	batchCmd.Flags().IntVarP(&batchWorkers, "workers", "w", 0, "number of concurrent workers (default batch.workers)")
}
