// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfgrab/internal/history"
	"github.com/pdiddy/pdfgrab/pkg/types"
)

// bindFlags binds each viper key to the named flag so values can come from
// flags, PDFGRAB_* environment variables, or the config file.
func bindFlags(fs *pflag.FlagSet, keys map[string]string) {
	for key, flag := range keys {
		if err := viper.BindPFlag(key, fs.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}

// fetchConfig assembles the fetcher settings from viper.
func fetchConfig() types.FetchConfig {
	return types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			Timeout:    viper.GetDuration("timeout"),
			UserAgent:  viper.GetString("user_agent"),
			MaxRetries: viper.GetInt("max_retries"),
			Headers:    requestHeaders,
		},
		OutputDir: viper.GetString("output_dir"),
	}.Normalize()
}

// batchConfig assembles the batch settings from viper.
func batchConfig() types.BatchConfig {
	return types.BatchConfig{
		FetchConfig:     fetchConfig(),
		Delay:           viper.GetDuration("delay"),
		MaxRounds:       viper.GetInt("max_rounds"),
		RoundBackoff:    viper.GetDuration("round_backoff"),
		MaxRoundBackoff: viper.GetDuration("max_round_backoff"),
	}.Normalize()
}

// historyPath returns the configured database path, defaulting to a file
// under the output directory.
func historyPath(outputDir string) string {
	if p := viper.GetString("history_db"); p != "" {
		return p
	}
	return filepath.Join(outputDir, history.DefaultPath)
}

// openHistory opens the history store and starts a run. It returns nil
// when history is disabled; a store that cannot be opened is reported
// and downloads proceed without it.
func openHistory(ctx context.Context, outputDir string) *history.Store {
	if viper.GetBool("no_history") {
		return nil
	}
	store, err := history.Open(historyPath(outputDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		return nil
	}
	if _, err := store.BeginRun(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: history disabled: %v\n", err)
		store.Close()
		return nil
	}
	return store
}

// closeHistory finishes the current run and prints its totals.
func closeHistory(store *history.Store) {
	if store == nil {
		return
	}
	defer store.Close()
	run, err := store.FinishRun(context.Background())
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: finishing history run: %v\n", err)
		return
	}
	fmt.Fprintf(os.Stderr, "run %s: %d succeeded, %d failed\n", run.ID, run.Succeeded, run.Failed)
}
