// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pdfgrab/internal/history"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded runs and download outcomes",
	Long: `History lists recent runs from the history database. With --run, --last,
or --failed it lists individual outcomes instead. Use --json or --yaml for
machine-readable output.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	fs := historyCmd.Flags()
	fs.String("run", "", "show outcomes of this run ID")
	fs.Bool("last", false, "show outcomes of the most recent run")
	fs.Bool("failed", false, "show failed outcomes only")
	fs.Int("limit", 20, "maximum number of rows")
	fs.Bool("json", false, "output as JSON")
	fs.Bool("yaml", false, "output outcomes as YAML")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	w := cmd.OutOrStdout()
	runID, _ := cmd.Flags().GetString("run")
	last, _ := cmd.Flags().GetBool("last")
	failed, _ := cmd.Flags().GetBool("failed")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")
	asYAML, _ := cmd.Flags().GetBool("yaml")

	store, err := history.Open(historyPath(viper.GetString("output_dir")))
	if err != nil {
		return err
	}
	defer store.Close()

	if last {
		if runID, err = store.LastRunID(ctx); err != nil {
			return err
		}
	}

	if runID == "" && !failed && !asYAML {
		runs, err := store.Runs(ctx, limit)
		if err != nil {
			return err
		}
		if asJSON {
			return writeJSON(w, runs)
		}
		return printRuns(w, runs)
	}

	opts := history.QueryOptions{RunID: runID, FailedOnly: failed, Limit: limit}
	if asYAML {
		return store.ExportYAML(ctx, w, opts)
	}
	entries, err := store.Entries(ctx, opts)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(w, entries)
	}
	return printEntries(w, entries)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printRuns(w io.Writer, runs []history.Run) error {
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tSTARTED\tTOTAL\tOK\tFAILED")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\n",
			r.ID, r.StartedAt.Local().Format(time.DateTime), r.Total, r.Succeeded, r.Failed)
	}
	return tw.Flush()
}

func printEntries(w io.Writer, entries []history.Entry) error {
	if len(entries) == 0 {
		fmt.Fprintln(w, "no outcomes recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tSTATUS\tURL\tDETAIL")
	for _, e := range entries {
		detail := e.Filename
		if !e.OK() {
			detail = fmt.Sprintf("%s: %s", e.Kind, e.Reason)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.RecordedAt.Local().Format(time.DateTime), e.Status, e.URL, detail)
	}
	return tw.Flush()
}
