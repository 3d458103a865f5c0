// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package batch drives the fetcher over a list of URLs, one at a time, and
// retries the failures in bounded rounds.
package batch

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pdiddy/pdfgrab/pkg/types"
)

// Fetcher downloads a single document. *fetch.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, req types.DownloadRequest) types.Outcome
}

// Reporter is implemented by fetchers that print and record outcomes
// produced outside Fetch. *fetch.Fetcher implements it.
type Reporter interface {
	Report(ctx context.Context, o types.Outcome)
}

// Run fetches each URL in order, pausing cfg.Delay between attempts, and
// prints a summary. Every input URL ends up in exactly one of the
// result's Successes or Failures. If ctx is cancelled the URLs not yet
// attempted are reported as failures.
func Run(ctx context.Context, f Fetcher, urls []string, cfg types.BatchConfig, w io.Writer) types.BatchResult {
	cfg = cfg.Normalize()
	var result types.BatchResult

	for i, u := range urls {
		if i > 0 {
			if err := sleep(ctx, cfg.Delay); err != nil {
				cancelRemaining(ctx, f, &result, urls[i:], err, w)
				break
			}
		}
		out := f.Fetch(ctx, types.DownloadRequest{
			URL:       strings.TrimSpace(u),
			TargetDir: cfg.OutputDir,
		})
		result.Add(u, out)
	}

	fmt.Fprintf(w, "\nDownload Summary:\n")
	fmt.Fprintf(w, "Successfully downloaded: %d PDFs\n", len(result.Successes))
	fmt.Fprintf(w, "Failed downloads: %d PDFs\n", len(result.Failures))
	return result
}

// cancelRemaining fails the URLs a cancelled run never attempted. They go
// through the fetcher's Reporter when it has one so the history sees them.
func cancelRemaining(ctx context.Context, f Fetcher, result *types.BatchResult, rest []string, cause error, w io.Writer) {
	r, _ := f.(Reporter)
	for _, u := range rest {
		out := types.Failed(strings.TrimSpace(u), types.KindUnexpected, "cancelled: "+cause.Error())
		if r != nil {
			r.Report(ctx, out)
		} else {
			fmt.Fprintln(w, out)
		}
		result.Add(u, out)
	}
}

// RunWithRetry runs the batch, then re-runs it over the failures until
// none remain or cfg.MaxRounds passes have been made. The wait before
// retry round n (n >= 1) is RoundBackoff * 2^(n-1), capped at
// MaxRoundBackoff.
func RunWithRetry(ctx context.Context, f Fetcher, urls []string, cfg types.BatchConfig, w io.Writer) types.RetryReport {
	cfg = cfg.Normalize()
	var report types.RetryReport
	pending := urls

	for round := 1; round <= cfg.MaxRounds; round++ {
		if round > 1 {
			fmt.Fprintln(w, "\nFailed URLs:")
			for _, u := range pending {
				fmt.Fprintf(w, "- %s\n", u)
			}
			wait := RoundBackoff(cfg, round-1)
			fmt.Fprintf(w, "retrying %d URL(s) in %v (round %d/%d)\n", len(pending), wait, round, cfg.MaxRounds)
			if err := sleep(ctx, wait); err != nil {
				fmt.Fprintf(w, "retry aborted: %v\n", err)
				break
			}
		}

		res := Run(ctx, f, pending, cfg, w)
		report.Rounds = append(report.Rounds, res)
		report.Successes = append(report.Successes, res.Successes...)
		pending = res.Failures

		if len(pending) == 0 || ctx.Err() != nil {
			break
		}
	}

	report.Failures = pending
	if len(pending) > 0 {
		fmt.Fprintf(w, "\ngiving up on %d URL(s) after %d round(s)\n", len(pending), len(report.Rounds))
	}
	return report
}

// RoundBackoff returns the wait before retry round n.
func RoundBackoff(cfg types.BatchConfig, n int) time.Duration {
	if cfg.RoundBackoff <= 0 || n < 1 {
		return 0
	}
	d := cfg.RoundBackoff
	for i := 1; i < n; i++ {
		d *= 2
		if d >= cfg.MaxRoundBackoff {
			return cfg.MaxRoundBackoff
		}
	}
	if d > cfg.MaxRoundBackoff {
		return cfg.MaxRoundBackoff
	}
	return d
}

// sleep blocks for d or until ctx is done.
func sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil || d <= 0 {
		return err
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
