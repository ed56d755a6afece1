package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/contract-extractor/internal/export"
)

var exportCmd = &cobra.Command{
	Use:   "export --out FILE.xlsx",
	Short: "Write the record store as an XLSX workbook",
	Args:  cobra.NoArgs,
	RunE:  runExport,
}

var (
	exportOut     string
	exportFromIdx int64
	exportToIdx   int64
)

func init() {
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output .xlsx path")
	exportCmd.Flags().Int64Var(&exportFromIdx, "from-idx", 0, "first idx to include")
	exportCmd.Flags().Int64Var(&exportToIdx, "to-idx", 0, "last idx to include")
	_ = exportCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd, false)
	if err != nil {
		return err
	}
	defer a.Close()
	if err := a.openStore(); err != nil {
		return err
	}

	var w export.Window
	if cmd.Flags().Changed("from-idx") {
		w.FromIdx = &exportFromIdx
	}
	if cmd.Flags().Changed("to-idx") {
		w.ToIdx = &exportToIdx
	}

	data, n, err := export.NewService(a.store, a.logger).ExportContractsXLSX(cmd.Context(), w)
	if err != nil {
		return err
	}
	if err := os.WriteFile(exportOut, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", exportOut, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported %d records to %s\n", n, exportOut)
	return nil
}
