// Package static serves files from the public directory when no route
// matches a GET request.
package static

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"pico/wire"
)

// MimeType maps a file path's extension onto a Content-Type,
// defaulting to application/octet-stream.
func MimeType(path string) string {
	switch strings.ToLower(strings.TrimPrefix(filepath.Ext(path), ".")) {
	case "html":
		return "text/html"
	case "css":
		return "text/css"
	case "js":
		return "application/javascript"
	case "png":
		return "image/png"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	case "json":
		return "application/json"
	case "txt":
		return "text/plain"
	case "ico":
		return "image/x-icon"
	case "woff":
		return "font/woff"
	case "woff2":
		return "font/woff2"
	case "ttf":
		return "font/ttf"
	case "otf":
		return "font/otf"
	default:
		return "application/octet-stream"
	}
}

// Serve resolves requestPath under publicDir and returns the file as a
// 200 response. Undecodable paths are a 400; traversal attempts,
// misses, and unreadable files are a 404 so the caller's not-found
// handling stays uniform.
func Serve(publicDir, requestPath string) (*wire.Response, *wire.Error) {
	decoded, err := url.PathUnescape(requestPath)
	if err != nil {
		return nil, wire.NewError(wire.StatusBadRequest, "malformed path encoding")
	}

	// Checked on both forms so an encoded dot-dot cannot slip through.
	if strings.Contains(requestPath, "..") || strings.Contains(decoded, "..") {
		return nil, wire.NewError(wire.StatusNotFound, "not found")
	}

	rel := strings.TrimPrefix(decoded, "/")
	if rel == "" || strings.HasSuffix(rel, "/") {
		rel += "index.html"
	}

	path := filepath.Join(publicDir, filepath.FromSlash(rel))
	info, err := os.Stat(path)
	if err == nil && info.IsDir() {
		path = filepath.Join(path, "index.html")
	}

	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, wire.NewError(wire.StatusNotFound, "not found")
	}

	resp := wire.NewResponse(wire.StatusOK)
	resp.SetHeader("Content-Type", MimeType(path))
	resp.Body = contents
	return resp, nil
}
