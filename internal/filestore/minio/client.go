// Package minio provides a minio-go implementation of filestore.Client.
//
// Usage:
//
//	factory := minio.NewFactory(minio.Options{})
//	client, err := factory(ctx, creds)
//	if err != nil { ... }
//
//	buckets, err := client.ListBuckets(ctx)
package minio

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// defaultEndpoint is used when the credential tuple names no endpoint.
const defaultEndpoint = "s3.amazonaws.com"

// Options tunes clients built by NewFactory.
type Options struct {
	// Transport overrides the HTTP transport (tests, proxies).
	Transport http.RoundTripper

	// PathStyle forces path-style bucket addressing, which most
	// self-hosted S3-compatible stores need.
	PathStyle bool
}

// Client is a MinIO implementation of filestore.Client.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	core *miniogo.Core
}

var _ filestore.Client = (*Client)(nil)

// NewFactory returns a filestore.Factory that builds a fresh minio-go client
// per credential tuple. No request is sent until an operation runs.
func NewFactory(opts Options) filestore.Factory {
	return func(_ context.Context, creds filestore.Credentials) (filestore.Client, error) {
		return New(creds, opts)
	}
}

// New builds a Client for creds.
func New(creds filestore.Credentials, opts Options) (*Client, error) {
	host, secure, err := splitEndpoint(creds.Endpoint)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid endpoint", err)
	}

	lookup := miniogo.BucketLookupAuto
	if opts.PathStyle {
		lookup = miniogo.BucketLookupPath
	}

	core, err := miniogo.NewCore(host, &miniogo.Options{
		Creds:        credentials.NewStaticV4(creds.AccessKeyID, creds.SecretAccessKey, ""),
		Secure:       secure,
		Region:       creds.Region,
		Transport:    opts.Transport,
		BucketLookup: lookup,
	})
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to create minio client", err)
	}
	return &Client{core: core}, nil
}

// splitEndpoint turns "host:port" or "scheme://host:port" into the host
// minio-go expects plus the TLS flag.
func splitEndpoint(endpoint string) (string, bool, error) {
	if endpoint == "" {
		return defaultEndpoint, true, nil
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), true, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, err
	}
	return u.Host, u.Scheme == "https", nil
}

// --- filestore.Client implementation ---

// PutObject streams body to key. With size -1 minio-go switches to a
// multipart upload with bounded part buffers.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts filestore.PutOptions) error {
	putOpts := miniogo.PutObjectOptions{ContentType: opts.ContentType}
	if opts.ACL != "" {
		putOpts.UserMetadata = map[string]string{"x-amz-acl": opts.ACL}
	}
	if _, err := c.core.Client.PutObject(ctx, bucket, key, body, size, putOpts); err != nil {
		return mapError(err, "put object")
	}
	return nil
}

// GetObject issues one GET and returns the body unread.
func (c *Client) GetObject(ctx context.Context, bucket, key string, rng *filestore.ByteRange) (*filestore.ObjectStream, error) {
	getOpts := miniogo.GetObjectOptions{}
	if rng != nil {
		if err := getOpts.SetRange(rng.Start, rng.End); err != nil {
			return nil, errs.Wrap(errs.ErrKindInvalidInput, "invalid byte range", err)
		}
	}

	body, info, _, err := c.core.GetObject(ctx, bucket, key, getOpts)
	if err != nil {
		return nil, mapError(err, "get object")
	}

	length := info.Size
	if length < 0 {
		length = -1
	}
	return &filestore.ObjectStream{
		Body:          body,
		ContentType:   info.ContentType,
		ContentLength: length,
	}, nil
}

// HeadObject returns metadata for the object at key inside bucket
// without downloading its content.
func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*filestore.ObjectMetadata, error) {
	stat, err := c.core.Client.StatObject(ctx, bucket, key, miniogo.StatObjectOptions{})
	if err != nil {
		return nil, mapError(err, "head object")
	}

	meta := make(map[string]string, len(stat.UserMetadata))
	for k, v := range stat.UserMetadata {
		meta[strings.ToLower(k)] = v
	}
	return &filestore.ObjectMetadata{
		ContentType:   stat.ContentType,
		ContentLength: stat.Size,
		LastModified:  stat.LastModified,
		ETag:          stat.ETag,
		StorageClass:  stat.StorageClass,
		Metadata:      meta,
	}, nil
}

// DeleteObject removes a single key.
func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := c.core.Client.RemoveObject(ctx, bucket, key, miniogo.RemoveObjectOptions{}); err != nil {
		return mapError(err, "delete object")
	}
	return nil
}

// DeleteObjects removes keys through the multi-object delete API.
//
// minio-go reports a failed request once per key, so a result carrying an
// HTTP status or a non-protocol error is returned as a request error rather
// than as per-key failures. The result channel is always drained.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]filestore.DeleteFailure, error) {
	objects := make(chan miniogo.ObjectInfo, len(keys))
	for _, k := range keys {
		objects <- miniogo.ObjectInfo{Key: k}
	}
	close(objects)

	var (
		failures []filestore.DeleteFailure
		reqErr   error
	)
	for rmErr := range c.core.Client.RemoveObjects(ctx, bucket, objects, miniogo.RemoveObjectsOptions{}) {
		if reqErr != nil {
			continue
		}
		var resp miniogo.ErrorResponse
		if rmErr.ObjectName == "" || !errors.As(rmErr.Err, &resp) || resp.StatusCode != 0 {
			reqErr = rmErr.Err
			continue
		}
		failures = append(failures, filestore.DeleteFailure{
			Key:     rmErr.ObjectName,
			Code:    resp.Code,
			Message: resp.Message,
		})
	}
	if reqErr != nil {
		return nil, mapError(reqErr, "delete objects")
	}
	return failures, nil
}

// CopyObject performs a server-side copy; minio-go escapes the source key.
func (c *Client) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	dst := miniogo.CopyDestOptions{Bucket: bucket, Object: dstKey}
	src := miniogo.CopySrcOptions{Bucket: bucket, Object: srcKey}
	if _, err := c.core.Client.CopyObject(ctx, dst, src); err != nil {
		return mapError(err, "copy object")
	}
	return nil
}

type listResult struct {
	res miniogo.ListBucketV2Result
	err error
}

// ListObjects fetches one ListObjectsV2 page through the Core API, which
// exposes the continuation token the high-level iterator hides.
//
// Core.ListObjectsV2 takes no context, so the request runs in its own
// goroutine and ListObjects returns as soon as ctx ends. The abandoned
// request finishes in the background once minio-go stops retrying.
func (c *Client) ListObjects(ctx context.Context, bucket string, in filestore.ListInput) (*filestore.ListPage, error) {
	if err := ctx.Err(); err != nil {
		return nil, mapError(err, "list objects")
	}

	done := make(chan listResult, 1)
	go func() {
		res, err := c.core.ListObjectsV2(bucket, in.Prefix, "", in.ContinuationToken, in.Delimiter, in.MaxKeys)
		done <- listResult{res: res, err: err}
	}()

	var res miniogo.ListBucketV2Result
	select {
	case <-ctx.Done():
		return nil, mapError(ctx.Err(), "list objects")
	case r := <-done:
		if r.err != nil {
			return nil, mapError(r.err, "list objects")
		}
		res = r.res
	}

	page := &filestore.ListPage{
		Files:             make([]filestore.ObjectRecord, 0, len(res.Contents)),
		Folders:           make([]filestore.FolderRecord, 0, len(res.CommonPrefixes)),
		IsTruncated:       res.IsTruncated,
		ContinuationToken: res.NextContinuationToken,
	}
	for _, obj := range res.Contents {
		page.Files = append(page.Files, filestore.ObjectRecord{
			Key:          obj.Key,
			Size:         obj.Size,
			LastModified: obj.LastModified,
			ETag:         obj.ETag,
			StorageClass: obj.StorageClass,
		})
	}
	for _, p := range res.CommonPrefixes {
		page.Folders = append(page.Folders, filestore.FolderRecord{Prefix: p.Prefix})
	}
	return page, nil
}

// ListBuckets returns all buckets accessible with the configured credentials.
func (c *Client) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	raw, err := c.core.Client.ListBuckets(ctx)
	if err != nil {
		return nil, mapError(err, "list buckets")
	}

	buckets := make([]filestore.BucketInfo, len(raw))
	for i, b := range raw {
		buckets[i] = filestore.BucketInfo{
			Name:      b.Name,
			CreatedAt: b.CreationDate,
		}
	}
	return buckets, nil
}

// PresignGet returns a time-limited public download URL for the object.
func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration, contentDisposition string) (string, error) {
	params := url.Values{}
	if contentDisposition != "" {
		params.Set("response-content-disposition", contentDisposition)
	}
	u, err := c.core.Client.PresignedGetObject(ctx, bucket, key, ttl, params)
	if err != nil {
		return "", mapError(err, "presign get")
	}
	return u.String(), nil
}

// PresignPut returns a time-limited upload URL. Content-Type and the canned
// ACL are signed headers, so the uploader must send the same values.
func (c *Client) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration, contentType, acl string) (string, error) {
	headers := http.Header{}
	if contentType != "" {
		headers.Set("Content-Type", contentType)
	}
	if acl != "" {
		headers.Set("X-Amz-Acl", acl)
	}
	u, err := c.core.Client.PresignHeader(ctx, http.MethodPut, bucket, key, ttl, nil, headers)
	if err != nil {
		return "", mapError(err, "presign put")
	}
	return u.String(), nil
}
