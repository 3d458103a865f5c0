// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdfgrab/internal/batch"
	"github.com/pdiddy/pdfgrab/internal/fetch"
	"github.com/pdiddy/pdfgrab/internal/history"
	"github.com/pdiddy/pdfgrab/internal/urllist"
	"github.com/pdiddy/pdfgrab/pkg/types"
)

var batchCmd = &cobra.Command{
	Use:   "batch [urls...]",
	Short: "Download a list of PDFs with polite delays and retry rounds",
	Long: `Batch downloads every URL given as an argument, listed in --file, or left
failing by the previous run (--from-history). Downloads run one at a time with
--delay between them. URLs that fail are retried in further rounds, waiting
--round-backoff before the first retry and doubling each time, until none
remain or --max-rounds passes have been made.

List files may be plain text (one URL per line), CSV (a "url" column or the
first column), or YAML (a sequence, or a mapping with a "urls" key).`,
	RunE: runBatch,
}

func init() {
	fs := batchCmd.Flags()
	fs.StringP("file", "f", "", "read URLs from a .txt, .csv, or .yaml list")
	fs.Bool("from-history", false, "retry the URLs that failed in the previous run")
	fs.Duration("delay", types.DefaultDelay, "pause between consecutive downloads")
	fs.Int("max-rounds", 5, "maximum passes over the list, counting the first")
	fs.Duration("round-backoff", types.DefaultRoundBackoff, "wait before the first retry round; doubles each round")
	fs.Duration("max-round-backoff", 0, "cap on the wait between rounds (default 2m)")

	bindFlags(fs, map[string]string{
		"delay":             "delay",
		"max_rounds":        "max-rounds",
		"round_backoff":     "round-backoff",
		"max_round_backoff": "max-round-backoff",
	})

	rootCmd.AddCommand(batchCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg := batchConfig()
	w := cmd.OutOrStdout()

	urls, err := collectURLs(ctx, cmd, args, cfg.OutputDir)
	if err != nil {
		return err
	}
	if len(urls) == 0 {
		return fmt.Errorf("provide URLs as arguments, with --file, or with --from-history")
	}

	f := fetch.New(nil, cfg.FetchConfig, w)
	if store := openHistory(ctx, cfg.OutputDir); store != nil {
		defer closeHistory(store)
		f.WithRecorder(store)
	}

	report := batch.RunWithRetry(ctx, f, urls, cfg, w)
	if report.HasFailures() {
		return fmt.Errorf("%d URL(s) still failing", len(report.Failures))
	}
	return nil
}

// collectURLs merges arguments, the list file, and the previous run's
// failures, in that order.
func collectURLs(ctx context.Context, cmd *cobra.Command, args []string, outputDir string) ([]string, error) {
	urls := append([]string(nil), args...)

	if path, _ := cmd.Flags().GetString("file"); path != "" {
		listed, err := urllist.Load(path)
		if err != nil {
			return nil, err
		}
		urls = append(urls, listed...)
	}

	if fromHistory, _ := cmd.Flags().GetBool("from-history"); fromHistory {
		failed, err := previousFailures(ctx, outputDir)
		if err != nil {
			return nil, err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "retrying %d URL(s) from the previous run\n", len(failed))
		urls = append(urls, failed...)
	}
	return urls, nil
}

// previousFailures returns the URLs the last recorded run left failing. A
// missing database means there is nothing to retry.
func previousFailures(ctx context.Context, outputDir string) ([]string, error) {
	path := historyPath(outputDir)
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	store, err := history.Open(path)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	runID, err := store.LastRunID(ctx)
	if errors.Is(err, history.ErrNoRuns) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return store.FailedURLs(ctx, runID)
}
