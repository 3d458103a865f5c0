// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package batch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/pdfgrab/internal/fetch"
	"github.com/pdiddy/pdfgrab/internal/history"
	"github.com/pdiddy/pdfgrab/pkg/types"
)

// scriptedFetcher fails each URL a fixed number of times before succeeding.
// A negative count fails forever.
type scriptedFetcher struct {
	failures map[string]int
	calls    []string
	onFetch  func()
}

func (s *scriptedFetcher) Fetch(_ context.Context, req types.DownloadRequest) types.Outcome {
	s.calls = append(s.calls, req.URL)
	if s.onFetch != nil {
		s.onFetch()
	}
	n := s.failures[req.URL]
	if n != 0 {
		if n > 0 {
			s.failures[req.URL] = n - 1
		}
		return types.Failed(req.URL, types.KindHTTPStatus, "HTTP 500 Internal Server Error")
	}
	return types.Succeeded(req.URL, filepath.Base(req.URL), filepath.Join(req.TargetDir, filepath.Base(req.URL)), 1)
}

func fastConfig() types.BatchConfig {
	return types.BatchConfig{
		FetchConfig:  types.FetchConfig{OutputDir: "out"},
		Delay:        time.Millisecond,
		RoundBackoff: time.Millisecond,
	}
}

func TestRun_Scenario(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/b.pdf" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Write([]byte("%PDF-1.4"))
	}))
	defer ts.Close()

	cfg := fastConfig()
	cfg.OutputDir = t.TempDir()
	var buf bytes.Buffer
	f := fetch.New(ts.Client(), cfg.FetchConfig, &buf)

	a, b := ts.URL+"/a.pdf", ts.URL+"/b.pdf"
	result := Run(context.Background(), f, []string{a, b}, cfg, &buf)

	assert.Equal(t, []string{a}, result.Successes)
	assert.Equal(t, []string{b}, result.Failures)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "a.pdf"))
	assert.Contains(t, buf.String(), "Successfully downloaded: 1 PDFs")
	assert.Contains(t, buf.String(), "Failed downloads: 1 PDFs")
}

func TestRun_PartitionPreservesOrder(t *testing.T) {
	urls := []string{"u1", " u2 ", "u3", "u4", "u5", "u1"}
	f := &scriptedFetcher{failures: map[string]int{"u2": -1, "u4": -1}}

	result := Run(context.Background(), f, urls, fastConfig(), &bytes.Buffer{})

	assert.Equal(t, len(urls), result.Total())
	assert.Equal(t, []string{"u1", "u3", "u5", "u1"}, result.Successes)
	assert.Equal(t, []string{" u2 ", "u4"}, result.Failures)
	assert.Len(t, result.Outcomes, len(urls))
	// Whitespace is trimmed before fetching.
	assert.Equal(t, []string{"u1", "u2", "u3", "u4", "u5", "u1"}, f.calls)
}

func TestRun_Empty(t *testing.T) {
	result := Run(context.Background(), &scriptedFetcher{}, nil, fastConfig(), &bytes.Buffer{})
	assert.Zero(t, result.Total())
	assert.False(t, result.HasFailures())
}

func TestRun_DelayBetweenAttempts(t *testing.T) {
	cfg := fastConfig()
	cfg.Delay = 20 * time.Millisecond
	f := &scriptedFetcher{}

	start := time.Now()
	Run(context.Background(), f, []string{"a", "b", "c"}, cfg, &bytes.Buffer{})

	// Two pauses for three URLs; none after the last.
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestRun_CancelMarksRemainingFailed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f := &scriptedFetcher{onFetch: cancel}
	var buf bytes.Buffer

	result := Run(ctx, f, []string{"a", "b", "c"}, fastConfig(), &buf)

	assert.Equal(t, []string{"a"}, f.calls)
	assert.Equal(t, []string{"a"}, result.Successes)
	assert.Equal(t, []string{"b", "c"}, result.Failures)
	assert.Equal(t, types.KindUnexpected, result.Outcomes[2].Kind)
	assert.Contains(t, buf.String(), "cancelled")
}

func TestRun_CancelledRunReachesHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cancel()
		<-r.Context().Done()
	}))
	defer ts.Close()

	store, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()
	runID, err := store.BeginRun(context.Background())
	require.NoError(t, err)

	cfg := fastConfig()
	cfg.OutputDir = t.TempDir()
	var buf bytes.Buffer
	f := fetch.New(ts.Client(), cfg.FetchConfig, &buf).WithRecorder(store)

	urls := []string{ts.URL + "/a.pdf", ts.URL + "/b.pdf", ts.URL + "/c.pdf"}
	result := Run(ctx, f, urls, cfg, &buf)

	assert.Equal(t, urls, result.Failures)
	assert.NotContains(t, buf.String(), "warning: recording outcome")

	failed, err := store.FailedURLs(context.Background(), runID)
	require.NoError(t, err)
	assert.Equal(t, urls, failed)
}

func TestRunWithRetry_UntilEmpty(t *testing.T) {
	f := &scriptedFetcher{failures: map[string]int{"b": 2, "c": 1}}
	var buf bytes.Buffer

	report := RunWithRetry(context.Background(), f, []string{"a", "b", "c"}, fastConfig(), &buf)

	require.Len(t, report.Rounds, 3)
	assert.Equal(t, []string{"a", "c", "b"}, report.Successes)
	assert.Empty(t, report.Failures)
	assert.False(t, report.HasFailures())
	assert.Equal(t, []string{"b", "c"}, report.Rounds[0].Failures)
	assert.Equal(t, []string{"b"}, report.Rounds[1].Failures)

	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "Failed URLs:"))
	assert.Contains(t, out, "- b\n")
	assert.NotContains(t, out, "giving up")
}

func TestRunWithRetry_StopsAtMaxRounds(t *testing.T) {
	f := &scriptedFetcher{failures: map[string]int{"dead": -1}}
	cfg := fastConfig()
	cfg.MaxRounds = 3
	var buf bytes.Buffer

	report := RunWithRetry(context.Background(), f, []string{"ok", "dead"}, cfg, &buf)

	assert.Len(t, report.Rounds, 3)
	assert.Equal(t, []string{"ok"}, report.Successes)
	assert.Equal(t, []string{"dead"}, report.Failures)
	assert.Equal(t, []string{"ok", "dead", "dead", "dead"}, f.calls)
	assert.Contains(t, buf.String(), "giving up on 1 URL(s) after 3 round(s)")
}

func TestRunWithRetry_CancelledDuringBackoff(t *testing.T) {
	f := &scriptedFetcher{failures: map[string]int{"dead": -1}}
	cfg := fastConfig()
	cfg.RoundBackoff = time.Hour
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	report := RunWithRetry(ctx, f, []string{"dead"}, cfg, &bytes.Buffer{})

	assert.Len(t, report.Rounds, 1)
	assert.Equal(t, []string{"dead"}, report.Failures)
}

func TestRoundBackoff(t *testing.T) {
	cfg := types.BatchConfig{RoundBackoff: time.Second, MaxRoundBackoff: 10 * time.Second}
	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 0},
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{40, 10 * time.Second},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, RoundBackoff(cfg, tt.n), "round %d", tt.n)
	}

	assert.Zero(t, RoundBackoff(types.BatchConfig{}, 3))
}
