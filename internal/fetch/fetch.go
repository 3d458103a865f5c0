// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package fetch downloads a single document over HTTP and writes it to disk.
// A fetch never returns an error: every failure is reported as a
// types.Outcome tagged with a FailureKind.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/pdfgrab/internal/httputil"
	"github.com/pdiddy/pdfgrab/pkg/types"
)

// chunkSize bounds memory use while streaming a body to disk.
const chunkSize = 8192

// errStalled is the cancellation cause when the body stops arriving.
var errStalled = errors.New("no data received")

// Recorder receives every outcome a Fetcher produces.
type Recorder interface {
	Record(ctx context.Context, o types.Outcome) error
}

// Fetcher performs single downloads. It is safe to reuse across calls but
// is not meant to be shared between goroutines.
type Fetcher struct {
	client   *http.Client
	cfg      types.FetchConfig
	w        io.Writer
	recorder Recorder
	now      func() time.Time
}

// New returns a Fetcher. A nil client gets one whose connect and
// response-header waits are bounded by cfg.Timeout; a nil writer discards
// progress lines.
func New(client *http.Client, cfg types.FetchConfig, w io.Writer) *Fetcher {
	cfg = cfg.Normalize()
	if client == nil {
		client = newClient(cfg.Timeout)
	}
	if w == nil {
		w = io.Discard
	}
	return &Fetcher{client: client, cfg: cfg, w: w, now: time.Now}
}

// newClient bounds connecting and waiting for headers. Client.Timeout
// stays unset because it would also cap the body transfer; body stalls are
// caught by the idle timer in fetch.
func newClient(timeout time.Duration) *http.Client {
	dialer := &net.Dialer{Timeout: timeout, KeepAlive: 30 * time.Second}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DialContext = dialer.DialContext
	tr.TLSHandshakeTimeout = timeout
	tr.ResponseHeaderTimeout = timeout
	return &http.Client{Transport: tr}
}

// WithRecorder attaches a Recorder and returns f.
func (f *Fetcher) WithRecorder(r Recorder) *Fetcher {
	f.recorder = r
	return f
}

// Fetch downloads req.URL into req.TargetDir (or the configured output
// directory when empty) and prints one status line.
func (f *Fetcher) Fetch(ctx context.Context, req types.DownloadRequest) (out types.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = types.Failed(req.URL, types.KindUnexpected, fmt.Sprintf("panic: %v", r))
			f.Report(ctx, out)
		}
	}()

	out = f.fetch(ctx, req)
	f.Report(ctx, out)
	return out
}

// Report prints o and passes it to the recorder. Batches use it for URLs
// they never hand to Fetch, such as those skipped on cancellation.
// Recording outlives ctx so a cancelled run still reaches the history.
func (f *Fetcher) Report(ctx context.Context, o types.Outcome) {
	fmt.Fprintln(f.w, o)
	if f.recorder == nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			fmt.Fprintf(f.w, "  warning: recording outcome for %s: panic: %v\n", o.URL, r)
		}
	}()
	if err := f.recorder.Record(context.WithoutCancel(ctx), o); err != nil {
		fmt.Fprintf(f.w, "  warning: recording outcome for %s: %v\n", o.URL, err)
	}
}

func (f *Fetcher) fetch(ctx context.Context, req types.DownloadRequest) types.Outcome {
	dir := req.TargetDir
	if dir == "" {
		dir = f.cfg.OutputDir
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return types.Failed(req.URL, types.KindDirectory, fmt.Sprintf("creating directory %s: %v", dir, err))
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodGet, req.URL, nil)
	if err != nil {
		return types.Failed(req.URL, types.KindTransport, fmt.Sprintf("creating request: %v", err))
	}
	httpReq.Header.Set("User-Agent", f.cfg.UserAgent)
	httpReq.Header.Set("Accept", "application/pdf,*/*;q=0.8")
	for k, v := range f.cfg.Headers {
		httpReq.Header.Set(k, v)
	}

	resp, err := httputil.DoWithRetry(reqCtx, f.client, httpReq, f.cfg.MaxRetries)
	if err != nil {
		return types.Failed(req.URL, types.KindTransport, err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Failed(req.URL, types.KindHTTPStatus,
			fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode)))
	}

	if ct := strings.ToLower(resp.Header.Get("Content-Type")); !strings.Contains(ct, "application/pdf") {
		fmt.Fprintf(f.w, "warning: %s might not be a PDF (Content-Type: %s)\n", req.URL, ct)
	}

	name := ResolveFilename(req.Filename, resp.Header.Get("Content-Disposition"), req.URL, f.now())
	dest := filepath.Join(dir, name)

	// The timer cancels the request when no bytes arrive for cfg.Timeout;
	// each successful read pushes it back.
	idle := time.AfterFunc(f.cfg.Timeout, func() {
		cancel(fmt.Errorf("%w for %v", errStalled, f.cfg.Timeout))
	})
	defer idle.Stop()

	n, err := writeFile(dest, &idleReader{r: resp.Body, timer: idle, timeout: f.cfg.Timeout})
	if err != nil {
		var re *readError
		if errors.As(err, &re) {
			if cause := context.Cause(reqCtx); errors.Is(cause, errStalled) {
				return types.Failed(req.URL, types.KindTransport, "reading body: "+cause.Error())
			}
			return types.Failed(req.URL, types.KindTransport, re.Error())
		}
		return types.Failed(req.URL, types.KindUnexpected, err.Error())
	}
	return types.Succeeded(req.URL, name, dest, n)
}

// idleReader resets timer after every read that returns data.
type idleReader struct {
	r       io.Reader
	timer   *time.Timer
	timeout time.Duration
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.timer.Reset(ir.timeout)
	}
	return n, err
}

// readError marks a failure reading the response body, as opposed to
// writing the file.
type readError struct{ err error }

func (e *readError) Error() string { return "reading body: " + e.err.Error() }
func (e *readError) Unwrap() error { return e.err }

// writeFile streams body into a temporary file next to dest in fixed-size
// chunks, then renames it over dest. The temp file is removed on failure.
func writeFile(dest string, body io.Reader) (int64, error) {
	tmp, err := os.CreateTemp(filepath.Dir(dest), ".pdfgrab-*.tmp")
	if err != nil {
		return 0, fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	n, copyErr := copyChunks(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		os.Remove(tmpPath)
		return n, copyErr
	}
	if closeErr != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("closing temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, dest); err != nil {
		os.Remove(tmpPath)
		return n, fmt.Errorf("renaming temp file: %w", err)
	}
	return n, nil
}

func copyChunks(dst io.Writer, src io.Reader) (int64, error) {
	buf := make([]byte, chunkSize)
	var written int64
	for {
		nr, rerr := src.Read(buf)
		if nr > 0 {
			nw, werr := dst.Write(buf[:nr])
			written += int64(nw)
			if werr != nil {
				return written, fmt.Errorf("writing file: %w", werr)
			}
		}
		if rerr == io.EOF {
			return written, nil
		}
		if rerr != nil {
			return written, &readError{err: rerr}
		}
	}
}
