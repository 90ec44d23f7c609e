package filestore

import (
	"io"
	"strings"
	"time"
)

// BucketInfo describes a storage bucket.
type BucketInfo struct {
	// Name is the bucket name.
	Name string `json:"name"`

	// CreatedAt is when the bucket was created.
	// May be zero if the backend does not expose creation time.
	CreatedAt time.Time `json:"createdAt"`
}

// ObjectRecord describes one object returned by a listing.
type ObjectRecord struct {
	// Key is the full object path within the bucket (e.g. "images/photo.jpg").
	Key string `json:"key"`

	// Size is the byte size of the object.
	Size int64 `json:"size"`

	// LastModified is when the object was last written.
	LastModified time.Time `json:"lastModified"`

	// ETag is the object's entity tag, as returned by the backend.
	ETag string `json:"etag"`

	// StorageClass is empty when the backend does not report one.
	StorageClass string `json:"storageClass,omitempty"`
}

// IsFolder reports whether the record is a zero-byte folder placeholder.
func (o ObjectRecord) IsFolder() bool {
	return strings.HasSuffix(o.Key, "/")
}

// FolderRecord is a common prefix synthesised by delimiter listing.
type FolderRecord struct {
	Prefix string `json:"prefix"`
}

// ListPage is one page of a delimiter listing.
// ContinuationToken is opaque and must be passed back verbatim.
type ListPage struct {
	Files             []ObjectRecord `json:"files"`
	Folders           []FolderRecord `json:"folders"`
	IsTruncated       bool           `json:"isTruncated"`
	ContinuationToken string         `json:"continuationToken,omitempty"`
}

// BucketStats aggregates a full sweep of a bucket.
// LastModified is nil only when the bucket is empty.
type BucketStats struct {
	TotalSize    int64      `json:"totalSize"`
	ObjectCount  int64      `json:"objectCount"`
	LastModified *time.Time `json:"lastModified"`
}

// ConnectivityResult is the outcome of a credential probe.
type ConnectivityResult struct {
	IsAuthorized bool     `json:"isAuthorized"`
	Buckets      []string `json:"buckets"`

	// BucketExists reports whether the tuple's bucket is among Buckets.
	BucketExists bool   `json:"bucketExists"`
	Error        string `json:"error,omitempty"`
}

// ObjectMetadata is the result of a HEAD request.
type ObjectMetadata struct {
	ContentType   string            `json:"contentType"`
	ContentLength int64             `json:"contentLength"`
	LastModified  time.Time         `json:"lastModified"`
	ETag          string            `json:"etag"`
	StorageClass  string            `json:"storageClass,omitempty"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// ObjectStream is a streaming handle to an object's content.
// The caller MUST call Body.Close() after reading to avoid resource leaks.
type ObjectStream struct {
	Body io.ReadCloser

	// ContentType is empty when the backend did not report one.
	ContentType string

	// ContentLength is -1 if unknown.
	ContentLength int64
}
