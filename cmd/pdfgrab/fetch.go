// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pdfgrab/internal/fetch"
	"github.com/pdiddy/pdfgrab/pkg/types"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>",
	Short: "Download a single PDF",
	Long: `Fetch downloads one URL into the output directory. The file is named
after --name, the server's Content-Disposition header, or the last segment of
the URL path, in that order, falling back to document_<unix time>.pdf.`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

func init() {
	fetchCmd.Flags().String("name", "", "save under this filename (.pdf is appended when missing)")

	rootCmd.AddCommand(fetchCmd)
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	name, _ := cmd.Flags().GetString("name")
	cfg := fetchConfig()

	f := fetch.New(nil, cfg, cmd.OutOrStdout())
	if store := openHistory(ctx, cfg.OutputDir); store != nil {
		defer closeHistory(store)
		f.WithRecorder(store)
	}

	out := f.Fetch(ctx, types.DownloadRequest{
		URL:       args[0],
		TargetDir: cfg.OutputDir,
		Filename:  name,
	})
	if !out.OK() {
		return fmt.Errorf("%s: %s", out.Kind, out.Reason)
	}
	return nil
}
