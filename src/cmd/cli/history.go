package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"screen-schedule/src/config"
	"screen-schedule/src/history"
)

type historyOptions struct {
	dbPath     string
	limit      int
	xlsxPath   string
	jsonOutput bool
}

type recentLister interface {
	Recent(ctx context.Context, limit int) ([]history.Entry, error)
}

func newHistoryCmd() *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List or export the local capture journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.dbPath
			if path == "" {
				cfg, err := config.Load()
				if err != nil {
					return fmt.Errorf("failed to load configuration: %w", err)
				}
				path = cfg.HistoryDB
			}
			if path == "" {
				return fmt.Errorf("history is disabled (HISTORY_DB is empty)")
			}
			store, err := history.Open(path)
			if err != nil {
				return err
			}
			defer store.Close()
			return runHistory(cmd.Context(), store, *opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "History database (default HISTORY_DB)")
	cmd.Flags().IntVar(&opts.limit, "limit", 20, "Number of most recent captures")
	cmd.Flags().StringVar(&opts.xlsxPath, "xlsx", "", "Write an Excel workbook instead of printing")
	cmd.Flags().BoolVar(&opts.jsonOutput, "json", false, "Output entries as JSON")
	return cmd
}

func runHistory(ctx context.Context, store recentLister, opts historyOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	entries, err := store.Recent(ctx, opts.limit)
	if err != nil {
		return err
	}

	switch {
	case opts.xlsxPath != "":
		data, err := history.ExportXLSX(entries)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.xlsxPath, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.xlsxPath, err)
		}
		_, err = fmt.Fprintf(w, "Exported %d captures to %s\n", len(entries), opts.xlsxPath)
		return err
	case opts.jsonOutput:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(entries)
	}

	for _, e := range entries {
		if _, err := fmt.Fprintf(w, "%s  %-8s %d/%d  %s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Status, e.Saved, e.Total, e.Message); err != nil {
			return err
		}
	}
	return nil
}
