//go:build mage

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// urlListFile is the list the Download target reads.
const urlListFile = "urls.txt"

// Download builds the CLI and runs a batch over urls.txt.
func Download() error {
	mg.Deps(Build, Init)
	if _, err := os.Stat(urlListFile); err != nil {
		return fmt.Errorf("%s: %w", urlListFile, err)
	}
	return sh.RunV(filepath.Join(binDir, binName), "batch", "--file", urlListFile, "--output-dir", outputDir)
}

// Retry re-runs the URLs that failed in the previous batch.
func Retry() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binDir, binName), "batch", "--from-history", "--output-dir", outputDir)
}
