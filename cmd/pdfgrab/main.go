// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pdfgrab CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfgrab/internal/secrets"
)

// version is set at build time via ldflags.
var version = "dev"

// requestHeaders holds headers derived from .secrets/ at startup.
var requestHeaders map[string]string

// rootCmd is the base command for the pdfgrab CLI.
var rootCmd = &cobra.Command{
	Use:   "pdfgrab",
	Short: "Download PDF documents from lists of URLs",
	Long: `pdfgrab downloads PDF documents over HTTP into a local directory.

Use fetch for a single URL and batch for a list. Batches run one download at
a time with a pause between requests, then retry the failures in a bounded
number of rounds. Every outcome is recorded in a local history database that
the history command can query.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		s, err := secrets.Load(viper.GetString("secrets_dir"), os.Stderr)
		if err != nil {
			return err
		}
		requestHeaders = secrets.Headers(s)
		if len(requestHeaders) > 0 {
			names := make([]string, 0, len(requestHeaders))
			for k := range requestHeaders {
				names = append(names, k)
			}
			sort.Strings(names)
			fmt.Fprintf(os.Stderr, "Using request headers from secrets: %v\n", names)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pdfgrab.yaml or ~/.config/pdfgrab/pdfgrab.yaml)")
	pf.StringP("output-dir", "o", "downloaded_pdfs", "directory PDFs are written to")
	pf.Duration("timeout", 0, "HTTP request timeout (default 30s)")
	pf.String("user-agent", "", "User-Agent header (default: a desktop browser string)")
	pf.Int("max-retries", 3, "retries for HTTP 429/503 responses within one download")
	pf.String("secrets-dir", ".secrets", "directory holding http-cookie / http-authorization files")
	pf.String("history-db", "", "history database path (default: <output-dir>/.pdfgrab/history.db)")
	pf.Bool("no-history", false, "do not record outcomes in the history database")

	bindFlags(pf, map[string]string{
		"output_dir":  "output-dir",
		"timeout":     "timeout",
		"user_agent":  "user-agent",
		"max_retries": "max-retries",
		"secrets_dir": "secrets-dir",
		"history_db":  "history-db",
		"no_history":  "no-history",
	})
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pdfgrab")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pdfgrab"))
		}
	}

	viper.SetEnvPrefix("PDFGRAB")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
