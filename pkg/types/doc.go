// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data structures shared by the fetcher, the
// batch driver, the history store, and the CLI: download requests, their
// outcomes, batch results, and configuration.
package types
