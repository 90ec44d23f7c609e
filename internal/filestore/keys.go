package filestore

import (
	"net/url"
	"strings"
)

// Delimiter is the folder separator used for prefix listings.
const Delimiter = "/"

// FolderKey returns prefix with exactly one trailing delimiter appended
// when it does not already end with one.
func FolderKey(prefix string) string {
	if strings.HasSuffix(prefix, Delimiter) {
		return prefix
	}
	return prefix + Delimiter
}

// CopySource builds the x-amz-copy-source value for a key in bucket.
// The key is percent-encoded as a single path segment.
func CopySource(bucket, key string) string {
	return bucket + "/" + url.PathEscape(key)
}
