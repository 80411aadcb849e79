package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/sheetwatch/internal/core"
	"github.com/JonMunkholm/sheetwatch/internal/export"
	"github.com/JonMunkholm/sheetwatch/internal/source"
)

type options struct {
	format   string
	columns  []string
	sheet    string
	xlsxPath string
	chunk    int
	maxBytes int64
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "sheetdiff [old] [new]",
		Short: "Show cell changes between two sheet exports",
		Long: `sheetdiff reads two CSV or XLSX exports of the same sheet and prints
the cell changes between them, formatted like monitor notifications.`,
		Args:         cobra.ExactArgs(2),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, opts, args[0], args[1])
		},
	}

	cmd.Flags().StringVarP(&opts.format, "format", "f", "detailed", "Output format: detailed or compact")
	cmd.Flags().StringSliceVarP(&opts.columns, "columns", "c", nil, "Only compare these columns, by header name")
	cmd.Flags().StringVar(&opts.sheet, "sheet", "", "Worksheet name for XLSX inputs (default: first sheet)")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Also write the changes to this XLSX file")
	cmd.Flags().IntVar(&opts.chunk, "chunk", 4096, "Maximum characters per printed message")
	cmd.Flags().Int64Var(&opts.maxBytes, "max-bytes", 20<<20, "Maximum input file size")

	return cmd
}

func run(cmd *cobra.Command, opts options, oldPath, newPath string) error {
	mode, err := core.ParseFormat(opts.format)
	if err != nil {
		return fmt.Errorf("invalid format: %s (must be detailed or compact)", opts.format)
	}
	if opts.chunk <= 0 {
		return fmt.Errorf("chunk must be positive, got %d", opts.chunk)
	}

	now := time.Now()
	prev, err := readSnapshot(oldPath, opts.sheet, now, opts.maxBytes)
	if err != nil {
		return err
	}
	cur, err := readSnapshot(newPath, opts.sheet, now, opts.maxBytes)
	if err != nil {
		return err
	}

	changes := core.Diff(prev, cur, core.NewColumnFilter(trimAll(opts.columns)...))

	out := cmd.OutOrStdout()
	if len(changes) == 0 {
		fmt.Fprintln(out, "No changes.")
	} else {
		for _, msg := range core.Format(changes, mode, opts.chunk) {
			fmt.Fprint(out, msg)
		}
	}

	if opts.xlsxPath != "" {
		if err := writeXLSX(opts.xlsxPath, newPath, opts.sheet, now, changes); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.xlsxPath, err)
		}
	}
	return nil
}

func readSnapshot(path, sheet string, at time.Time, maxBytes int64) (*core.Snapshot, error) {
	snap, err := source.ReadFile(path, sheet, at, maxBytes)
	if err != nil {
		return nil, fmt.Errorf("%s: %s", path, core.FormatUserError(err))
	}
	return snap, nil
}

func writeXLSX(path, source, sheet string, at time.Time, changes []core.Change) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	batch := core.ChangeBatch{
		ID:         uuid.New(),
		Locator:    core.Locator{URL: source, Sheet: sheet},
		DetectedAt: at,
		Changes:    changes,
	}
	if err := export.WriteXLSX(f, []core.ChangeBatch{batch}); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}
