package server

import "strings"

// NormalizeBasePath ensures the base path starts and ends with '/'.
func NormalizeBasePath(basePath string) string {
	if basePath == "" {
		return "/"
	}
	if !strings.HasPrefix(basePath, "/") {
		basePath = "/" + basePath
	}
	if !strings.HasSuffix(basePath, "/") {
		basePath = basePath + "/"
	}
	return basePath
}

// StripBasePath removes the application mount prefix from urlPath. Paths
// outside the prefix are returned unchanged (direct access). The exact prefix
// without a trailing slash maps to "/".
func StripBasePath(basePath, urlPath string) string {
	bp := NormalizeBasePath(basePath)
	if bp == "/" {
		return urlPath
	}
	if strings.HasPrefix(urlPath, bp) {
		return "/" + strings.TrimPrefix(urlPath, bp)
	}
	if urlPath+"/" == bp {
		return "/"
	}
	return urlPath
}
