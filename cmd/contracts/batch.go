package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-extractor/internal/batch"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
	"github.com/joseph-ayodele/contract-extractor/internal/server"
)

// errBatchFailures makes the process exit non-zero when any document failed.
var errBatchFailures = errors.New("some documents failed")

var batchCmd = &cobra.Command{
	Use:   "batch (--manifest FILE | --dir DIR)",
	Short: "Extract many documents with retries",
	Long: `Processes a manifest or a directory of parsed documents. Already extracted URLs
are skipped, so an interrupted run can be started again with the same input.`,
	Args: cobra.NoArgs,
	RunE: runBatch,
}

var (
	batchManifest         string
	batchDir              string
	batchMaxAttempts      int
	batchBackoff          string
	batchRateLimitBackoff string
	batchMaxBackoff       string
	batchConcurrency      int
	batchJSON             bool
)

func init() {
	f := batchCmd.Flags()
	f.StringVar(&batchManifest, "manifest", "", "YAML list of {path, url}")
	f.StringVar(&batchDir, "dir", "", "directory of document .json files")
	f.IntVar(&batchMaxAttempts, "max-attempts", 0, "attempts per URL across runs (default batch.max_attempts)")
	f.StringVar(&batchBackoff, "backoff", "", "backoff base, e.g. 2s")
	f.StringVar(&batchRateLimitBackoff, "rate-limit-backoff", "", "backoff base for rate limits, e.g. 30s")
	f.StringVar(&batchMaxBackoff, "max-backoff", "", "backoff cap, e.g. 10m")
	f.IntVar(&batchConcurrency, "concurrency", 0, "documents in flight (default batch.concurrency)")
	f.BoolVar(&batchJSON, "json", false, "print the summary as JSON")
	batchCmd.MarkFlagsMutuallyExclusive("manifest", "dir")
	batchCmd.MarkFlagsOneRequired("manifest", "dir")
	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	if err := applyBatchFlags(cmd, a); err != nil {
		return err
	}
	if err := a.cfg.Validate(true); err != nil {
		return err
	}

	var items []batch.Item
	if batchManifest != "" {
		entries, err := ingest.LoadManifest(batchManifest)
		if err != nil {
			return err
		}
		items = ingest.ManifestItems(entries)
	} else {
		paths, stats, err := ingest.ScanDirectory(batchDir, true, a.logger)
		if err != nil {
			return err
		}
		a.logger.Info("batch.scan.ok", "dir", batchDir, "scanned", stats.Scanned, "matched", stats.Matched)
		items = ingest.ItemsForPaths(paths)
	}

	if err := a.openLedger(ctx); err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	proc, err := server.NewProcessor(a.cfg, textService, a.logger)
	if err != nil {
		return err
	}
	runner := server.NewRunner(a.cfg, proc, a.store, a.ledger, a.logger)

	sum, runErr := runner.Run(ctx, items)
	if err := printSummary(cmd.OutOrStdout(), sum, batchJSON); err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}
	if sum.Failed > 0 {
		return errBatchFailures
	}
	return nil
}

func applyBatchFlags(cmd *cobra.Command, a *app) error {
	f := cmd.Flags()
	if f.Changed("max-attempts") {
		a.cfg.Batch.MaxAttempts = batchMaxAttempts
	}
	if f.Changed("concurrency") {
		a.cfg.Batch.Concurrency = batchConcurrency
	}
	for _, d := range []struct {
		flag string
		val  string
		dst  *time.Duration
	}{
		{"backoff", batchBackoff, &a.cfg.Batch.BackoffBase},
		{"rate-limit-backoff", batchRateLimitBackoff, &a.cfg.Batch.RateLimitBackoffBase},
		{"max-backoff", batchMaxBackoff, &a.cfg.Batch.MaxBackoff},
	} {
		if !f.Changed(d.flag) {
			continue
		}
		v, err := time.ParseDuration(d.val)
		if err != nil {
			return fmt.Errorf("--%s: %w", d.flag, err)
		}
		*d.dst = v
	}
	return nil
}

func printSummary(w io.Writer, sum batch.Summary, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(sum)
	}

	fmt.Fprintf(w, "run %s: %d succeeded, %d failed, %d skipped", sum.RunID, sum.Succeeded, sum.Failed, sum.Skipped)
	if n := sum.NotStarted(); n > 0 {
		fmt.Fprintf(w, ", %d not started", n)
	}
	fmt.Fprintln(w)
	if sum.Reconciled.Interrupted > 0 || sum.Reconciled.Repaired > 0 {
		fmt.Fprintf(w, "recovered %d interrupted and %d unrecorded documents\n", sum.Reconciled.Interrupted, sum.Reconciled.Repaired)
	}
	if sum.Reconciled.Unreadable > 0 {
		fmt.Fprintf(w, "warning: %d unreadable rows in the record store were skipped\n", sum.Reconciled.Unreadable)
	}
	if len(sum.Failures) == 0 {
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "URL\tCLASS\tRETRYABLE\tATTEMPTS\tREASON")
	for _, f := range sum.Failures {
		fmt.Fprintf(tw, "%s\t%s\t%t\t%d\t%s\n", f.URL, f.ErrorClass, f.Retryable, f.Attempts, f.Reason)
	}
	return tw.Flush()
}
