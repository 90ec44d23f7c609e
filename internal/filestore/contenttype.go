package filestore

import (
	"path"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// DefaultContentType is used when nothing better is known.
const DefaultContentType = "application/octet-stream"

var contentTypes = map[string]string{
	"jpg":  "image/jpeg",
	"jpeg": "image/jpeg",
	"png":  "image/png",
	"gif":  "image/gif",
	"webp": "image/webp",
	"svg":  "image/svg+xml",
	"pdf":  "application/pdf",
	"txt":  "text/plain",
	"md":   "text/markdown",
	"csv":  "text/csv",
	"json": "application/json",
	"js":   "application/javascript",
	"ts":   "application/typescript",
	"css":  "text/css",
	"html": "text/html",
	"htm":  "text/html",
}

// InferContentType maps a file name's extension to a MIME type.
// Matching is case-insensitive; unknown or missing extensions yield
// DefaultContentType.
func InferContentType(name string) string {
	ext := strings.TrimPrefix(path.Ext(name), ".")
	if ct, ok := contentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return DefaultContentType
}

// DetectFileContentType sniffs the content of a local file, falling back to
// the extension table when the content is not recognised.
func DetectFileContentType(localPath string) string {
	mt, err := mimetype.DetectFile(localPath)
	if err != nil || mt == nil || mt.Is(DefaultContentType) {
		return InferContentType(localPath)
	}
	if mt.Is("text/plain") {
		// Plain text sniffing cannot tell csv, md or json from prose.
		if byExt := InferContentType(localPath); byExt != DefaultContentType {
			return byExt
		}
	}
	return mt.String()
}
