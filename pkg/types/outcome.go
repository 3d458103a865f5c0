// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "fmt"

// DownloadRequest describes one file to fetch.
type DownloadRequest struct {
	// URL is the address of the document.
	URL string `json:"url" yaml:"url"`

	// TargetDir is the directory the file is written to. It is created
	// with its parents when absent.
	TargetDir string `json:"target_dir" yaml:"target_dir"`

	// Filename overrides every other naming source when non-empty.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
}

// OutcomeStatus tags an Outcome as a success or a failure.
type OutcomeStatus string

const (
	StatusSuccess OutcomeStatus = "success"
	StatusFailure OutcomeStatus = "failure"
)

// FailureKind classifies why a download failed.
type FailureKind string

const (
	KindNone       FailureKind = ""
	KindDirectory  FailureKind = "directory-error"
	KindHTTPStatus FailureKind = "http-status-error"
	KindTransport  FailureKind = "transport-error"
	KindUnexpected FailureKind = "unexpected-error"
)

// Outcome is the result of one download attempt. Exactly one is produced
// per request.
type Outcome struct {
	URL    string        `json:"url" yaml:"url"`
	Status OutcomeStatus `json:"status" yaml:"status"`

	// Success fields.
	Filename string `json:"filename,omitempty" yaml:"filename,omitempty"`
	Path     string `json:"path,omitempty" yaml:"path,omitempty"`
	Bytes    int64  `json:"bytes,omitempty" yaml:"bytes,omitempty"`

	// Failure fields.
	Kind   FailureKind `json:"kind,omitempty" yaml:"kind,omitempty"`
	Reason string      `json:"reason,omitempty" yaml:"reason,omitempty"`
}

// Succeeded builds a success outcome.
func Succeeded(url, filename, path string, n int64) Outcome {
	return Outcome{URL: url, Status: StatusSuccess, Filename: filename, Path: path, Bytes: n}
}

// Failed builds a failure outcome.
func Failed(url string, kind FailureKind, reason string) Outcome {
	return Outcome{URL: url, Status: StatusFailure, Kind: kind, Reason: reason}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

func (o Outcome) String() string {
	if o.OK() {
		return fmt.Sprintf("downloaded: %s", o.Filename)
	}
	return fmt.Sprintf("failed: %s (%s: %s)", o.URL, o.Kind, o.Reason)
}

// BatchResult partitions the URLs of one pass into successes and failures,
// each in input order.
type BatchResult struct {
	Successes []string  `json:"successes" yaml:"successes"`
	Failures  []string  `json:"failures" yaml:"failures"`
	Outcomes  []Outcome `json:"outcomes" yaml:"outcomes"`
}

// Add appends an outcome and files url under the matching partition. url
// is the caller's input string, which may differ from o.URL by
// surrounding whitespace.
func (r *BatchResult) Add(url string, o Outcome) {
	r.Outcomes = append(r.Outcomes, o)
	if o.OK() {
		r.Successes = append(r.Successes, url)
	} else {
		r.Failures = append(r.Failures, url)
	}
}

// Total returns the number of URLs processed.
func (r BatchResult) Total() int {
	return len(r.Successes) + len(r.Failures)
}

// HasFailures reports whether any download failed.
func (r BatchResult) HasFailures() bool {
	return len(r.Failures) > 0
}

// RetryReport aggregates the passes of a retried batch.
type RetryReport struct {
	Rounds []BatchResult `json:"rounds" yaml:"rounds"`

	// Successes lists URLs in the order they first succeeded.
	Successes []string `json:"successes" yaml:"successes"`

	// Failures lists URLs still failing after the last round.
	Failures []string `json:"failures" yaml:"failures"`
}

// HasFailures reports whether any URL was still failing at the end.
func (r RetryReport) HasFailures() bool {
	return len(r.Failures) > 0
}
