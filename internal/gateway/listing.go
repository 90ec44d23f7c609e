package gateway

import (
	"context"

	"github.com/koustreak/bucketgate/internal/filestore"
)

// ListObjects returns one page of the bucket listing. It never follows the
// continuation token itself.
//
// An empty Delimiter means "/" unless Recursive is set. MaxKeys defaults to
// DefaultMaxKeys and is capped at filestore.MaxListKeys.
func (g *Gateway) ListObjects(ctx context.Context, creds filestore.Credentials, opts filestore.ListOptions) (*filestore.ListPage, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "list", opts.Prefix, "failed to list files")
	defer cancel()
	if err != nil {
		return nil, err
	}
	if opts.MaxKeys < 0 {
		return nil, c.invalid("maxKeys must not be negative")
	}

	page, err := c.client.ListObjects(ctx, c.bucket, opts.Input(DefaultMaxKeys))
	if err != nil {
		return nil, c.fail(err)
	}
	return page, nil
}

// GetBucketStatistics sweeps the whole bucket once, summing sizes and
// counting objects. LastModified is the newest modification time seen and
// stays nil for an empty bucket.
func (g *Gateway) GetBucketStatistics(ctx context.Context, creds filestore.Credentials) (*filestore.BucketStats, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "stats", "", "failed to get bucket stats")
	defer cancel()
	if err != nil {
		return nil, err
	}

	stats := &filestore.BucketStats{}
	err = filestore.Walk(ctx, c.pager("", "", filestore.MaxListKeys), func(page *filestore.ListPage) error {
		for _, obj := range page.Files {
			stats.TotalSize += obj.Size
			stats.ObjectCount++
			if stats.LastModified == nil || obj.LastModified.After(*stats.LastModified) {
				lm := obj.LastModified
				stats.LastModified = &lm
			}
		}
		return nil
	})
	if err != nil {
		return nil, c.fail(err)
	}
	return stats, nil
}

// pager adapts the call's client to a filestore.PageFunc.
func (c *call) pager(prefix, delimiter string, maxKeys int) filestore.PageFunc {
	return func(ctx context.Context, token string) (*filestore.ListPage, error) {
		return c.client.ListObjects(ctx, c.bucket, filestore.ListInput{
			Prefix:            prefix,
			Delimiter:         delimiter,
			MaxKeys:           maxKeys,
			ContinuationToken: token,
		})
	}
}
