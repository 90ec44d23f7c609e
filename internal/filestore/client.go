// Package filestore defines the provider-neutral contract between the object
// gateway and an S3-compatible backend.
//
// A Client is the thin protocol client built per call by a Factory from one
// Credentials tuple. Providers (MinIO, AWS S3, the in-memory store) implement
// Client in their own sub-packages; the gateway depends only on this package.
//
// Usage:
//
//	factory := minio.NewFactory(minio.Options{})
//	client, err := factory(ctx, creds)
//	if err != nil { ... }
//
//	page, err := client.ListObjects(ctx, creds.BucketName, filestore.ListInput{Delimiter: "/"})
package filestore

import (
	"context"
	"io"
	"time"
)

// Factory builds a stateless Client from a credential tuple.
// Construction performs no network I/O; failures are configuration errors only.
type Factory func(ctx context.Context, creds Credentials) (Client, error)

// Client is the set of S3 protocol calls the gateway composes.
// Implementations translate provider errors into *errs.Error values.
type Client interface {
	// PutObject uploads size bytes read from body. size may be -1 when unknown.
	PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts PutOptions) error

	// GetObject opens the object body, optionally limited to rng.
	// The caller MUST close ObjectStream.Body.
	GetObject(ctx context.Context, bucket, key string, rng *ByteRange) (*ObjectStream, error)

	// HeadObject returns metadata without transferring the body.
	HeadObject(ctx context.Context, bucket, key string) (*ObjectMetadata, error)

	// DeleteObject removes one key. Missing keys are not an error.
	DeleteObject(ctx context.Context, bucket, key string) error

	// DeleteObjects removes keys in one bulk request (at most MaxDeleteBatch keys)
	// and reports the keys the backend refused.
	DeleteObjects(ctx context.Context, bucket string, keys []string) ([]DeleteFailure, error)

	// CopyObject performs a server-side copy within bucket.
	CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error

	// ListObjects fetches one ListObjectsV2 page.
	ListObjects(ctx context.Context, bucket string, in ListInput) (*ListPage, error)

	// ListBuckets returns every bucket visible to the credentials.
	ListBuckets(ctx context.Context) ([]BucketInfo, error)

	// PresignGet returns a time-limited download URL.
	PresignGet(ctx context.Context, bucket, key string, ttl time.Duration, contentDisposition string) (string, error)

	// PresignPut returns a time-limited upload URL bound to contentType and acl.
	PresignPut(ctx context.Context, bucket, key string, ttl time.Duration, contentType, acl string) (string, error)
}

// MaxDeleteBatch is the most keys one DeleteObjects call may carry.
const MaxDeleteBatch = 1000

// MaxListKeys is the largest page a ListObjectsV2 call returns.
const MaxListKeys = 1000

// PutOptions carries the per-upload headers.
type PutOptions struct {
	ContentType string
	ACL         string
}

// ByteRange is an inclusive byte range, as in an HTTP Range header.
type ByteRange struct {
	Start int64
	End   int64
}

// ListInput mirrors the ListObjectsV2 request parameters.
type ListInput struct {
	Prefix            string
	Delimiter         string
	MaxKeys           int
	ContinuationToken string
}

// ListOptions is the caller-facing form of a listing request.
type ListOptions struct {
	Prefix string `json:"prefix"`

	// Delimiter groups keys into folders. Empty means Delimiter ("/")
	// unless Recursive is set.
	Delimiter string `json:"delimiter"`

	// Recursive lists every key under Prefix without folder grouping.
	Recursive bool `json:"recursive"`

	// MaxKeys bounds the page size. Zero selects the caller's default;
	// values above MaxListKeys are capped.
	MaxKeys int `json:"maxKeys"`

	ContinuationToken string `json:"continuationToken,omitempty"`
}

// Input resolves o into a ListInput, using defaultMaxKeys when MaxKeys is zero.
func (o ListOptions) Input(defaultMaxKeys int) ListInput {
	in := ListInput{
		Prefix:            o.Prefix,
		Delimiter:         o.Delimiter,
		MaxKeys:           o.MaxKeys,
		ContinuationToken: o.ContinuationToken,
	}
	if o.Recursive {
		in.Delimiter = ""
	} else if in.Delimiter == "" {
		in.Delimiter = Delimiter
	}
	if in.MaxKeys <= 0 {
		in.MaxKeys = defaultMaxKeys
	}
	if in.MaxKeys > MaxListKeys {
		in.MaxKeys = MaxListKeys
	}
	return in
}

// DeleteFailure reports one key a bulk delete could not remove.
type DeleteFailure struct {
	Key     string
	Code    string
	Message string
}
