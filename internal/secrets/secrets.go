// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package secrets loads request credentials from a directory of plain-text files.
// Each file in the directory represents one secret: the filename is the key name and the
// file contents (trimmed) are the value.
//
// Supported key files: http-cookie, http-authorization.
package secrets

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// headerKeys maps secret file names to the HTTP header they populate.
var headerKeys = map[string]string{
	"http-cookie":        "Cookie",
	"http-authorization": "Authorization",
}

// Load reads all files in dir and returns a map of filename to trimmed contents.
// A missing directory is not an error; Load returns an empty map.
// Unreadable files produce a warning on w but do not abort.
func Load(dir string, w io.Writer) (map[string]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("reading secrets directory %s: %w", dir, err)
	}

	secrets := make(map[string]string)
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			fmt.Fprintf(w, "warning: could not read secret %s: %v\n", name, err)
			continue
		}

		if value := strings.TrimSpace(string(data)); value != "" {
			secrets[name] = value
		}
	}

	return secrets, nil
}

// Headers returns the request headers carried by the loaded secrets.
// Secrets with no header mapping are ignored.
func Headers(secrets map[string]string) map[string]string {
	headers := make(map[string]string)
	for key, header := range headerKeys {
		if v, ok := secrets[key]; ok {
			headers[header] = v
		}
	}
	return headers
}
