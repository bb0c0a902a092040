package http

import (
	"path"
	"strings"
)

// DefaultContentType is used for unknown or missing extensions
const DefaultContentType = "application/octet-stream"

var mimeTypes = map[string]string{
	".html": "text/html; charset=utf-8",
	".htm":  "text/html; charset=utf-8",
	".txt":  "text/plain; charset=utf-8",
	".css":  "text/css; charset=utf-8",
	".js":   "application/javascript; charset=utf-8",
	".json": "application/json; charset=utf-8",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".gif":  "image/gif",
	".svg":  "image/svg+xml",
}

// ContentType returns the MIME type for name based on its extension,
// compared case-insensitively.
func ContentType(name string) string {
	ext := path.Ext(name)
	if ext == "" {
		return DefaultContentType
	}
	if ct, ok := mimeTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return DefaultContentType
}
