package http

import "testing"

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"/index.html":      "text/html; charset=utf-8",
		"/INDEX.HTM":       "text/html; charset=utf-8",
		"/a.txt":           "text/plain; charset=utf-8",
		"/s/site.CSS":      "text/css; charset=utf-8",
		"/app.js":          "application/javascript; charset=utf-8",
		"/data.json":       "application/json; charset=utf-8",
		"/p.jpg":           "image/jpeg",
		"/p.JPEG":          "image/jpeg",
		"/p.png":           "image/png",
		"/p.gif":           "image/gif",
		"/logo.svg":        "image/svg+xml",
		"/archive.tar.gz":  DefaultContentType,
		"/Makefile":        DefaultContentType,
		"/dir.d/noext":     DefaultContentType,
		"/trailing.":       DefaultContentType,
		"/srv/www/a.b.txt": "text/plain; charset=utf-8",
	}

	for name, want := range tests {
		if got := ContentType(name); got != want {
			t.Errorf("ContentType(%q): expected %q, got %q", name, want, got)
		}
		if ContentType(name) != ContentType(name) {
			t.Errorf("ContentType(%q) is not stable", name)
		}
	}
}
