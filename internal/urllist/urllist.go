// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package urllist reads lists of download URLs from plain text, CSV, or
// YAML files.
package urllist

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Format identifies the layout of a URL list.
type Format int

const (
	FormatText Format = iota
	FormatCSV
	FormatYAML
)

func (f Format) String() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatYAML:
		return "yaml"
	default:
		return "text"
	}
}

// FormatFromPath picks a format by file extension. Unknown extensions are
// read as plain text.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return FormatCSV
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatText
	}
}

// Load reads the URL list at path.
func Load(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening url list: %w", err)
	}
	defer f.Close()

	format := FormatFromPath(path)
	urls, err := Parse(f, format)
	if err != nil {
		return nil, fmt.Errorf("parsing %s as %s: %w", path, format, err)
	}
	return urls, nil
}

// Parse reads URLs from r. Blank entries are skipped and duplicates are
// dropped, keeping the first occurrence.
//
// Text: one URL per line; lines starting with '#' are comments.
// CSV: the column headed "url" (case-insensitive) if the first row names
// one, otherwise the first column of every row.
// YAML: a sequence of strings, or a mapping with a "urls" sequence.
func Parse(r io.Reader, format Format) ([]string, error) {
	var (
		urls []string
		err  error
	)
	switch format {
	case FormatCSV:
		urls, err = parseCSV(r)
	case FormatYAML:
		urls, err = parseYAML(r)
	default:
		urls, err = parseText(r)
	}
	if err != nil {
		return nil, err
	}
	return dedupe(urls), nil
}

func parseText(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading lines: %w", err)
	}
	return urls, nil
}

func parseCSV(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.Comment = '#'

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	col := 0
	if idx := headerColumn(records[0]); idx >= 0 {
		col = idx
		records = records[1:]
	}

	var urls []string
	for _, rec := range records {
		if col < len(rec) {
			urls = append(urls, rec[col])
		}
	}
	return urls, nil
}

func headerColumn(row []string) int {
	for i, name := range row {
		if strings.EqualFold(strings.TrimSpace(name), "url") {
			return i
		}
	}
	return -1
}

// ErrBadYAML is returned when a YAML list is neither a sequence of strings
// nor a mapping with a "urls" key.
var ErrBadYAML = errors.New("expected a sequence of URLs or a mapping with a urls key")

func parseYAML(r io.Reader) ([]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("reading yaml: %w", err)
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("decoding yaml: %w", err)
	}
	if len(node.Content) == 0 {
		return nil, nil
	}

	var urls []string
	switch root := node.Content[0]; root.Kind {
	case yaml.SequenceNode:
		err = root.Decode(&urls)
	case yaml.MappingNode:
		var doc struct {
			URLs []string `yaml:"urls"`
		}
		err = root.Decode(&doc)
		urls = doc.URLs
	default:
		return nil, ErrBadYAML
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadYAML, err)
	}
	return urls, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, u := range in {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
