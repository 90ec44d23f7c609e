// Package memory provides an in-process implementation of filestore.Client.
//
// It follows ListObjectsV2 semantics (lexicographic order, prefix/delimiter
// grouping, MaxKeys counting both keys and common prefixes, opaque
// continuation tokens) closely enough to stand in for a real bucket in tests
// and local development.
//
// Usage:
//
//	backend := memory.NewBackend()
//	backend.CreateBucket("media")
//	gw, err := gateway.New(gateway.Options{Factory: backend.Factory()})
package memory

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
)

type object struct {
	data         []byte
	contentType  string
	acl          string
	etag         string
	lastModified time.Time
}

// Backend holds every bucket. Clients built by Factory share it.
// It is safe for concurrent use by multiple goroutines.
type Backend struct {
	mu      sync.RWMutex
	buckets map[string]map[string]*object
	created map[string]time.Time
	denied  map[string]struct{}
	now     func() time.Time
}

// NewBackend returns an empty backend.
func NewBackend() *Backend {
	return &Backend{
		buckets: make(map[string]map[string]*object),
		created: make(map[string]time.Time),
		denied:  make(map[string]struct{}),
		now:     time.Now,
	}
}

// SetClock replaces the time source used for LastModified.
func (b *Backend) SetClock(now func() time.Time) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = now
}

// CreateBucket adds an empty bucket. Existing buckets are left as they are.
func (b *Backend) CreateBucket(name string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.buckets[name]; !ok {
		b.buckets[name] = make(map[string]*object)
		b.created[name] = b.now()
	}
}

// DenyListBuckets makes ListBuckets fail with AccessDenied for accessKeyID.
func (b *Backend) DenyListBuckets(accessKeyID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.denied[accessKeyID] = struct{}{}
}

// Factory returns a filestore.Factory producing clients bound to b.
func (b *Backend) Factory() filestore.Factory {
	return func(_ context.Context, creds filestore.Credentials) (filestore.Client, error) {
		return &Client{backend: b, accessKeyID: creds.AccessKeyID}, nil
	}
}

// Client is a filestore.Client over a Backend.
type Client struct {
	backend     *Backend
	accessKeyID string
}

var _ filestore.Client = (*Client)(nil)

func noSuchBucket(bucket string) error {
	return errs.New(errs.ErrKindNotFound, fmt.Sprintf("NoSuchBucket: %s", bucket))
}

func noSuchKey(key string) error {
	return errs.New(errs.ErrKindNotFound, fmt.Sprintf("NoSuchKey: %s", key))
}

// bucket returns the named bucket; callers hold b.mu.
func (b *Backend) bucket(name string) (map[string]*object, error) {
	objs, ok := b.buckets[name]
	if !ok {
		return nil, noSuchBucket(name)
	}
	return objs, nil
}

// PutObject stores the full body under key.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, _ int64, opts filestore.PutOptions) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return errs.Wrap(errs.ErrKindConnectionFailed, "read upload body", err)
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(errs.ErrKindTimeout, "put object", err)
	}

	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return err
	}
	sum := md5.Sum(data)
	objs[key] = &object{
		data:         data,
		contentType:  opts.ContentType,
		acl:          opts.ACL,
		etag:         `"` + hex.EncodeToString(sum[:]) + `"`,
		lastModified: c.backend.now(),
	}
	return nil
}

// GetObject returns a reader over a copy of the stored bytes.
func (c *Client) GetObject(_ context.Context, bucket, key string, rng *filestore.ByteRange) (*filestore.ObjectStream, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := objs[key]
	if !ok {
		return nil, noSuchKey(key)
	}

	data := obj.data
	if rng != nil {
		size := int64(len(data))
		if rng.Start >= size {
			return nil, errs.New(errs.ErrKindInvalidInput, "InvalidRange: the requested range is not satisfiable")
		}
		end := rng.End
		if end >= size {
			end = size - 1
		}
		data = data[rng.Start : end+1]
	}

	buf := bytes.Clone(data)
	return &filestore.ObjectStream{
		Body:          io.NopCloser(bytes.NewReader(buf)),
		ContentType:   obj.contentType,
		ContentLength: int64(len(buf)),
	}, nil
}

// HeadObject reports the stored metadata.
func (c *Client) HeadObject(_ context.Context, bucket, key string) (*filestore.ObjectMetadata, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return nil, err
	}
	obj, ok := objs[key]
	if !ok {
		return nil, noSuchKey(key)
	}
	return &filestore.ObjectMetadata{
		ContentType:   obj.contentType,
		ContentLength: int64(len(obj.data)),
		LastModified:  obj.lastModified,
		ETag:          obj.etag,
		StorageClass:  "STANDARD",
		Metadata:      map[string]string{},
	}, nil
}

// DeleteObject removes key; a missing key is not an error.
func (c *Client) DeleteObject(_ context.Context, bucket, key string) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return err
	}
	delete(objs, key)
	return nil
}

// DeleteObjects removes every key in one call.
func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]filestore.DeleteFailure, error) {
	if len(keys) > filestore.MaxDeleteBatch {
		return nil, errs.New(errs.ErrKindInvalidInput, "MalformedXML: too many keys in one delete request")
	}
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return nil, err
	}
	for _, k := range keys {
		delete(objs, k)
	}
	return nil, nil
}

// CopyObject duplicates srcKey under dstKey.
func (c *Client) CopyObject(_ context.Context, bucket, srcKey, dstKey string) error {
	c.backend.mu.Lock()
	defer c.backend.mu.Unlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return err
	}
	src, ok := objs[srcKey]
	if !ok {
		return noSuchKey(srcKey)
	}
	cp := *src
	cp.data = bytes.Clone(src.data)
	cp.lastModified = c.backend.now()
	objs[dstKey] = &cp
	return nil
}

// entry is one listing slot: an object key or a common prefix.
type entry struct {
	name   string
	prefix bool
}

// ListObjects returns one ListObjectsV2-style page.
func (c *Client) ListObjects(_ context.Context, bucket string, in filestore.ListInput) (*filestore.ListPage, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	objs, err := c.backend.bucket(bucket)
	if err != nil {
		return nil, err
	}

	start := ""
	if in.ContinuationToken != "" {
		raw, err := base64.RawURLEncoding.DecodeString(in.ContinuationToken)
		if err != nil {
			return nil, errs.New(errs.ErrKindInvalidInput, "InvalidArgument: the continuation token provided is incorrect")
		}
		start = string(raw)
	}

	maxKeys := in.MaxKeys
	if maxKeys <= 0 || maxKeys > filestore.MaxListKeys {
		maxKeys = filestore.MaxListKeys
	}

	entries := c.entries(objs, in.Prefix, in.Delimiter)
	from := 0
	if start != "" {
		from = sort.Search(len(entries), func(i int) bool { return entries[i].name > start })
	}

	page := &filestore.ListPage{
		Files:   []filestore.ObjectRecord{},
		Folders: []filestore.FolderRecord{},
	}
	end := from + maxKeys
	if end > len(entries) {
		end = len(entries)
	}
	for _, e := range entries[from:end] {
		if e.prefix {
			page.Folders = append(page.Folders, filestore.FolderRecord{Prefix: e.name})
			continue
		}
		obj := objs[e.name]
		page.Files = append(page.Files, filestore.ObjectRecord{
			Key:          e.name,
			Size:         int64(len(obj.data)),
			LastModified: obj.lastModified,
			ETag:         obj.etag,
			StorageClass: "STANDARD",
		})
	}
	if end < len(entries) {
		page.IsTruncated = true
		page.ContinuationToken = base64.RawURLEncoding.EncodeToString([]byte(entries[end-1].name))
	}
	return page, nil
}

// entries lists keys under prefix in lexicographic order, folding keys that
// contain delimiter after the prefix into one common-prefix entry.
func (c *Client) entries(objs map[string]*object, prefix, delimiter string) []entry {
	keys := make([]string, 0, len(objs))
	for k := range objs {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]entry, 0, len(keys))
	for _, k := range keys {
		if delimiter != "" {
			rest := k[len(prefix):]
			if i := strings.Index(rest, delimiter); i >= 0 {
				cp := prefix + rest[:i+len(delimiter)]
				if n := len(out); n > 0 && out[n-1].prefix && out[n-1].name == cp {
					continue
				}
				out = append(out, entry{name: cp, prefix: true})
				continue
			}
		}
		out = append(out, entry{name: k})
	}
	return out
}

// ListBuckets returns all buckets in name order.
func (c *Client) ListBuckets(_ context.Context) ([]filestore.BucketInfo, error) {
	c.backend.mu.RLock()
	defer c.backend.mu.RUnlock()

	if _, denied := c.backend.denied[c.accessKeyID]; denied {
		return nil, errs.New(errs.ErrKindPermissionDenied, "AccessDenied: Access Denied")
	}

	out := make([]filestore.BucketInfo, 0, len(c.backend.buckets))
	for name := range c.backend.buckets {
		out = append(out, filestore.BucketInfo{Name: name, CreatedAt: c.backend.created[name]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// PresignGet returns a memory:// URL describing the grant.
func (c *Client) PresignGet(_ context.Context, bucket, key string, ttl time.Duration, contentDisposition string) (string, error) {
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int64(ttl.Seconds())))
	if contentDisposition != "" {
		q.Set("response-content-disposition", contentDisposition)
	}
	return c.presign(bucket, key, q), nil
}

// PresignPut returns a memory:// URL describing the grant.
func (c *Client) PresignPut(_ context.Context, bucket, key string, ttl time.Duration, contentType, acl string) (string, error) {
	q := url.Values{}
	q.Set("X-Amz-Expires", fmt.Sprintf("%d", int64(ttl.Seconds())))
	q.Set("X-Amz-SignedHeaders", "content-type;host;x-amz-acl")
	q.Set("content-type", contentType)
	q.Set("x-amz-acl", acl)
	return c.presign(bucket, key, q), nil
}

func (c *Client) presign(bucket, key string, q url.Values) string {
	q.Set("X-Amz-Credential", c.accessKeyID)
	u := url.URL{Scheme: "memory", Host: bucket, Path: "/" + key, RawQuery: q.Encode()}
	return u.String()
}
