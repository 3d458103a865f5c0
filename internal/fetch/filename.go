// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package fetch

import (
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"
	"time"
)

const pdfExt = ".pdf"

// ResolveFilename picks the name a download is saved under. Sources are
// tried in order: the explicit name, the Content-Disposition header, the
// last segment of the URL path (percent-decoded), and finally a name
// synthesized from now. The result always ends in ".pdf" and never
// contains a directory component.
func ResolveFilename(explicit, disposition, rawURL string, now time.Time) string {
	name := cleanName(explicit)
	if name == "" {
		name = nameFromDisposition(disposition)
	}
	if name == "" {
		name = nameFromURL(rawURL)
	}
	if name == "" {
		name = fmt.Sprintf("document_%d%s", now.Unix(), pdfExt)
	}
	if !strings.HasSuffix(strings.ToLower(name), pdfExt) {
		name += pdfExt
	}
	return name
}

// nameFromDisposition extracts the filename parameter of a
// Content-Disposition header. RFC 2231 filename* values are decoded by
// mime.ParseMediaType; headers it rejects fall back to a plain split on
// "filename=".
func nameFromDisposition(cd string) string {
	if cd == "" {
		return ""
	}
	if _, params, err := mime.ParseMediaType(cd); err == nil {
		if fn := cleanName(params["filename"]); fn != "" {
			return fn
		}
	}
	_, v, ok := strings.Cut(cd, "filename=")
	if !ok {
		return ""
	}
	v, _, _ = strings.Cut(v, ";")
	return cleanName(v)
}

func nameFromURL(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	p := u.EscapedPath()
	if p == "" || strings.HasSuffix(p, "/") {
		return ""
	}
	seg := p[strings.LastIndex(p, "/")+1:]
	if dec, err := url.PathUnescape(seg); err == nil {
		seg = dec
	}
	return cleanName(seg)
}

// cleanName strips quotes and any directory part. It returns "" when
// nothing usable is left.
func cleanName(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `"'`)
	s = strings.ReplaceAll(s, `\`, "/")
	if s == "" {
		return ""
	}
	s = path.Base(s)
	switch s {
	case ".", "..", "/":
		return ""
	}
	return s
}
