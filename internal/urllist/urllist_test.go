// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package urllist

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatCSV, FormatFromPath("list.CSV"))
	assert.Equal(t, FormatYAML, FormatFromPath("a/b/list.yml"))
	assert.Equal(t, FormatYAML, FormatFromPath("list.yaml"))
	assert.Equal(t, FormatText, FormatFromPath("list.txt"))
	assert.Equal(t, FormatText, FormatFromPath("urls"))
}

func TestParse(t *testing.T) {
	tests := []struct {
		name   string
		format Format
		input  string
		want   []string
	}{
		{
			name:   "text with comments and blanks",
			format: FormatText,
			input:  "# reports\nhttps://x/a.pdf\n\n  https://x/b.pdf  \nhttps://x/a.pdf\n",
			want:   []string{"https://x/a.pdf", "https://x/b.pdf"},
		},
		{
			name:   "csv first column",
			format: FormatCSV,
			input:  "https://x/a.pdf,2011\nhttps://x/b.pdf,2012\n",
			want:   []string{"https://x/a.pdf", "https://x/b.pdf"},
		},
		{
			name:   "csv url header",
			format: FormatCSV,
			input:  "year,URL\n2011,https://x/a.pdf\n2012\n2013, https://x/c.pdf\n",
			want:   []string{"https://x/a.pdf", "https://x/c.pdf"},
		},
		{
			name:   "yaml sequence",
			format: FormatYAML,
			input:  "- https://x/a.pdf\n- https://x/b.pdf\n",
			want:   []string{"https://x/a.pdf", "https://x/b.pdf"},
		},
		{
			name:   "yaml mapping",
			format: FormatYAML,
			input:  "urls:\n  - https://x/a.pdf\n  - ''\n",
			want:   []string{"https://x/a.pdf"},
		},
		{
			name:   "yaml empty",
			format: FormatYAML,
			input:  "",
			want:   []string{},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(strings.NewReader(tt.input), tt.format)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_BadYAML(t *testing.T) {
	_, err := Parse(strings.NewReader("just a string"), FormatYAML)
	assert.ErrorIs(t, err, ErrBadYAML)

	_, err = Parse(strings.NewReader("- [nested]\n"), FormatYAML)
	assert.ErrorIs(t, err, ErrBadYAML)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reports.txt")
	require.NoError(t, os.WriteFile(path, []byte("https://x/a.pdf\n"), 0o644))

	urls, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://x/a.pdf"}, urls)

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}
