package server

import (
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path"
)

// SPAHandler serves static files from a filesystem and falls back to index.html
// for any extensionless path that doesn't match a static file, enabling SPA
// client-side routing while returning 404 for missing files with extensions.
type SPAHandler struct {
	fileServer http.Handler
	filesystem fs.FS
}

// NewSPAHandler creates a handler that serves files from fsys. When a
// requested file is not found, it serves index.html for client-side routing
// (extensionless paths only).
func NewSPAHandler(fsys fs.FS) *SPAHandler {
	return &SPAHandler{
		fileServer: http.FileServer(http.FS(fsys)),
		filesystem: fsys,
	}
}

// NewDirHandler serves the public directory dir of the host application.
func NewDirHandler(dir string) (*SPAHandler, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("public dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("public dir %s: not a directory", dir)
	}
	return NewSPAHandler(os.DirFS(dir)), nil
}

func (h *SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	urlPath := r.URL.Path
	if urlPath == "/" {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	filePath := urlPath[1:]
	if _, err := fs.Stat(h.filesystem, filePath); err == nil {
		h.fileServer.ServeHTTP(w, r)
		return
	}

	// Missing files with an extension are real asset requests: 404.
	if path.Ext(urlPath) != "" {
		http.NotFound(w, r)
		return
	}

	r.URL.Path = "/"
	h.fileServer.ServeHTTP(w, r)
}
