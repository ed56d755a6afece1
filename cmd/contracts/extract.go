package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-extractor/constants"
	"github.com/joseph-ayodele/contract-extractor/internal/batch"
	"github.com/joseph-ayodele/contract-extractor/internal/common"
	"github.com/joseph-ayodele/contract-extractor/internal/entity"
	"github.com/joseph-ayodele/contract-extractor/internal/ingest"
	"github.com/joseph-ayodele/contract-extractor/internal/pipeline"
	"github.com/joseph-ayodele/contract-extractor/internal/server"
)

var extractCmd = &cobra.Command{
	Use:   "extract <document.json>",
	Short: "Extract one document",
	Long: `Runs the field groups over one parsed document and appends the record to the store.
Text-service errors are reported as is; use batch for retries.`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var (
	extractDryRun bool
	extractURL    string
)

func init() {
	extractCmd.Flags().BoolVar(&extractDryRun, "dry-run", false, "print the record without touching the store or ledger")
	extractCmd.Flags().StringVar(&extractURL, "url", "", "override the document url")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := newApp(cmd, true)
	if err != nil {
		return err
	}
	defer a.Close()

	doc, err := ingest.LoadDocument(args[0])
	if err != nil {
		return err
	}
	if u := strings.TrimSpace(extractURL); u != "" {
		doc.URL = u
	}

	proc, err := server.NewProcessor(a.cfg, textService, a.logger)
	if err != nil {
		return err
	}

	if extractDryRun {
		res, err := proc.Process(ctx, doc)
		if err != nil {
			return err
		}
		return writeRecord(cmd.OutOrStdout(), res.Record)
	}

	if err := a.openLedger(ctx); err != nil {
		return err
	}
	if err := a.openStore(); err != nil {
		return err
	}
	committer := pipeline.NewCommitter(a.store, a.ledger, a.logger)
	if _, err := committer.Reconcile(ctx); err != nil {
		return err
	}

	entry, err := a.ledger.Get(ctx, doc.URL)
	switch {
	case errors.Is(err, common.ErrNotFound):
	case err != nil:
		return err
	case entry.Succeeded():
		fmt.Fprintf(cmd.OutOrStdout(), "%s already extracted as idx %d\n", doc.URL, *entry.Idx)
		return nil
	}

	if _, err := a.ledger.MarkInProgress(ctx, doc.URL); err != nil {
		return err
	}
	rec, err := extractAndCommit(ctx, proc, committer, doc)
	if err != nil {
		if lerr := a.ledger.MarkFailed(context.WithoutCancel(ctx), doc.URL, batch.FailureFor(err)); lerr != nil {
			a.logger.Error("extract.ledger_write_failed", "err", lerr)
		}
		return err
	}
	return writeRecord(cmd.OutOrStdout(), rec)
}

func extractAndCommit(ctx context.Context, proc *pipeline.Processor, c *pipeline.Committer, doc entity.ContractDocument) (entity.ExtractedRecord, error) {
	res, err := proc.Process(ctx, doc)
	if err != nil {
		return entity.ExtractedRecord{}, err
	}
	idx, err := c.Commit(ctx, res.Record)
	if err != nil {
		return entity.ExtractedRecord{}, err
	}
	return res.Record.WithIdx(idx), nil
}

// writeRecord prints the record as one JSON object in column order.
func writeRecord(w io.Writer, rec entity.ExtractedRecord) error {
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, c := range constants.Columns {
		if c == constants.ColumnIdx && rec.Idx < 0 {
			continue
		}
		k, _ := json.Marshal(c)
		var v []byte
		if c == constants.ColumnIdx {
			v, _ = json.Marshal(rec.Idx)
		} else {
			v, _ = json.Marshal(rec.Get(c))
		}
		buf.WriteString("  ")
		buf.Write(k)
		buf.WriteString(": ")
		buf.Write(v)
		if i < len(constants.Columns)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteString("}\n")
	_, err := w.Write(buf.Bytes())
	return err
}
