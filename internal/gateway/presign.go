package gateway

import (
	"context"
	"time"

	"github.com/koustreak/bucketgate/internal/filestore"
)

// PresignOptions tunes GetDownloadURL and GetUploadURL.
type PresignOptions struct {
	// ExpiresIn is the URL lifetime. Zero means DefaultPresignExpiry.
	ExpiresIn time.Duration

	// ContentDisposition overrides the response header on download.
	ContentDisposition string

	// ContentType and ACL are signed into upload URLs. They default to
	// filestore.DefaultContentType and DefaultACL.
	ContentType string
	ACL         string
}

func (o PresignOptions) ttl() time.Duration {
	if o.ExpiresIn == 0 {
		return DefaultPresignExpiry
	}
	return o.ExpiresIn
}

// GetDownloadURL returns a presigned GET URL for key.
func (g *Gateway) GetDownloadURL(ctx context.Context, creds filestore.Credentials, key string, opts PresignOptions) (string, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "download_url", key, "failed to generate signed URL")
	defer cancel()
	if err != nil {
		return "", err
	}
	if err := c.checkPresign(key, opts); err != nil {
		return "", err
	}

	u, err := c.client.PresignGet(ctx, c.bucket, key, opts.ttl(), opts.ContentDisposition)
	if err != nil {
		return "", c.fail(err)
	}
	return u, nil
}

// GetUploadURL returns a presigned PUT URL for key. The uploader must send
// the signed Content-Type and x-amz-acl headers.
func (g *Gateway) GetUploadURL(ctx context.Context, creds filestore.Credentials, key string, opts PresignOptions) (string, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "upload_url", key, "failed to generate upload URL")
	defer cancel()
	if err != nil {
		return "", err
	}
	if err := c.checkPresign(key, opts); err != nil {
		return "", err
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = filestore.DefaultContentType
	}
	acl := opts.ACL
	if acl == "" {
		acl = DefaultACL
	}

	u, err := c.client.PresignPut(ctx, c.bucket, key, opts.ttl(), contentType, acl)
	if err != nil {
		return "", c.fail(err)
	}
	return u, nil
}

func (c *call) checkPresign(key string, opts PresignOptions) error {
	if key == "" {
		return c.invalid("object key is required")
	}
	if ttl := opts.ExpiresIn; ttl != 0 && (ttl < time.Second || ttl > MaxPresignExpiry) {
		return c.invalid("expiresIn must be between 1s and 7 days")
	}
	return nil
}
