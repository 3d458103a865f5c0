// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// DefaultUserAgent identifies requests as a desktop browser. Some document
// portals refuse clients that announce themselves as scripts.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Defaults applied by the Normalize methods when a field is left zero.
const (
	DefaultTimeout         = 30 * time.Second
	DefaultDelay           = 1 * time.Second
	DefaultOutputDir       = "downloaded_pdfs"
	DefaultMaxRounds       = 5
	DefaultRoundBackoff    = 5 * time.Second
	DefaultMaxRoundBackoff = 2 * time.Minute
)

// HTTPConfig holds the settings for the HTTP client used by the fetcher.
type HTTPConfig struct {
	// Timeout bounds connecting, waiting for response headers, and each
	// gap between body reads. It does not cap the whole transfer.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// MaxRetries is the number of times an HTTP 429 or 503 response is
	// retried inside a single fetch. Zero disables the retry.
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Headers are added to every request (e.g. Cookie, Authorization).
	Headers map[string]string `json:"-" yaml:"-"`
}

// FetchConfig holds settings for single downloads.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// OutputDir is the directory PDFs are written to.
	OutputDir string `json:"output_dir" yaml:"output_dir"`
}

// Normalize fills zero fields with defaults.
func (c FetchConfig) Normalize() FetchConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.UserAgent == "" {
		c.UserAgent = DefaultUserAgent
	}
	if c.OutputDir == "" {
		c.OutputDir = DefaultOutputDir
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c
}

// BatchConfig holds settings for batch runs and retry rounds.
type BatchConfig struct {
	FetchConfig `yaml:",inline"`

	// Delay is the pause between consecutive downloads within a round.
	Delay time.Duration `json:"delay" yaml:"delay"`

	// MaxRounds caps the number of passes over the URL list, counting the
	// first pass.
	MaxRounds int `json:"max_rounds" yaml:"max_rounds"`

	// RoundBackoff is the wait before the first retry round. It doubles
	// for each subsequent round.
	RoundBackoff time.Duration `json:"round_backoff" yaml:"round_backoff"`

	// MaxRoundBackoff caps the wait between rounds.
	MaxRoundBackoff time.Duration `json:"max_round_backoff" yaml:"max_round_backoff"`
}

// Normalize fills zero fields with defaults. A negative Delay or
// RoundBackoff means no wait at all.
func (c BatchConfig) Normalize() BatchConfig {
	c.FetchConfig = c.FetchConfig.Normalize()
	if c.Delay < 0 {
		c.Delay = 0
	}
	if c.MaxRounds <= 0 {
		c.MaxRounds = DefaultMaxRounds
	}
	if c.RoundBackoff < 0 {
		c.RoundBackoff = 0
	}
	if c.MaxRoundBackoff <= 0 {
		c.MaxRoundBackoff = DefaultMaxRoundBackoff
	}
	return c
}
