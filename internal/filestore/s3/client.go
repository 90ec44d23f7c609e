// Package s3 provides an aws-sdk-go-v2 implementation of filestore.Client.
//
// Usage:
//
//	factory := s3.NewFactory(s3.Options{})
//	client, err := factory(ctx, creds)
//	if err != nil { ... }
//
//	page, err := client.ListObjects(ctx, creds.BucketName, filestore.ListInput{Delimiter: "/"})
package s3

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	s3sdk "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
)

// Options tunes clients built by NewFactory.
type Options struct {
	// HTTPClient overrides the SDK's default HTTP client.
	HTTPClient *http.Client

	// PathStyle forces path-style addressing even against AWS.
	// Custom endpoints always use path-style.
	PathStyle bool
}

// api is the subset of *s3sdk.Client the driver calls.
type api interface {
	PutObject(ctx context.Context, in *s3sdk.PutObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.PutObjectOutput, error)
	GetObject(ctx context.Context, in *s3sdk.GetObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.GetObjectOutput, error)
	HeadObject(ctx context.Context, in *s3sdk.HeadObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.HeadObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3sdk.DeleteObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.DeleteObjectOutput, error)
	DeleteObjects(ctx context.Context, in *s3sdk.DeleteObjectsInput, optFns ...func(*s3sdk.Options)) (*s3sdk.DeleteObjectsOutput, error)
	CopyObject(ctx context.Context, in *s3sdk.CopyObjectInput, optFns ...func(*s3sdk.Options)) (*s3sdk.CopyObjectOutput, error)
	ListObjectsV2(ctx context.Context, in *s3sdk.ListObjectsV2Input, optFns ...func(*s3sdk.Options)) (*s3sdk.ListObjectsV2Output, error)
	ListBuckets(ctx context.Context, in *s3sdk.ListBucketsInput, optFns ...func(*s3sdk.Options)) (*s3sdk.ListBucketsOutput, error)
}

// Client is an AWS SDK implementation of filestore.Client.
// It is safe for concurrent use by multiple goroutines.
type Client struct {
	api     api
	presign *s3sdk.PresignClient
}

var _ filestore.Client = (*Client)(nil)

// NewFactory returns a filestore.Factory building one SDK client per tuple.
func NewFactory(opts Options) filestore.Factory {
	return func(ctx context.Context, creds filestore.Credentials) (filestore.Client, error) {
		return New(ctx, creds, opts)
	}
}

// New builds a Client for creds. Only static credentials from the tuple are
// used; no request is sent until an operation runs.
func New(ctx context.Context, creds filestore.Credentials, opts Options) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(creds.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(creds.AccessKeyID, creds.SecretAccessKey, ""),
		),
	}
	if opts.HTTPClient != nil {
		loadOpts = append(loadOpts, awsconfig.WithHTTPClient(opts.HTTPClient))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindInvalidInput, "failed to load aws config", err)
	}

	endpoint := normalizeEndpoint(creds.Endpoint)
	client := s3sdk.NewFromConfig(cfg, func(o *s3sdk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
			// Third-party stores often reject the SDK's default CRC trailers.
			o.RequestChecksumCalculation = aws.RequestChecksumCalculationWhenRequired
		}
		if opts.PathStyle {
			o.UsePathStyle = true
		}
	})

	return &Client{api: client, presign: s3sdk.NewPresignClient(client)}, nil
}

// normalizeEndpoint adds https:// to bare "host:port" endpoints.
func normalizeEndpoint(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" || strings.Contains(endpoint, "://") {
		return endpoint
	}
	return "https://" + endpoint
}

// --- filestore.Client implementation ---

func (c *Client) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64, opts filestore.PutOptions) error {
	in := &s3sdk.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   body,
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}
	if opts.ContentType != "" {
		in.ContentType = aws.String(opts.ContentType)
	}
	if opts.ACL != "" {
		in.ACL = types.ObjectCannedACL(opts.ACL)
	}

	if _, err := c.api.PutObject(ctx, in); err != nil {
		return mapError(err, "put object")
	}
	return nil
}

func (c *Client) GetObject(ctx context.Context, bucket, key string, rng *filestore.ByteRange) (*filestore.ObjectStream, error) {
	in := &s3sdk.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if rng != nil {
		in.Range = aws.String(fmt.Sprintf("bytes=%d-%d", rng.Start, rng.End))
	}

	out, err := c.api.GetObject(ctx, in)
	if err != nil {
		return nil, mapError(err, "get object")
	}

	length := int64(-1)
	if out.ContentLength != nil {
		length = *out.ContentLength
	}
	return &filestore.ObjectStream{
		Body:          out.Body,
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: length,
	}, nil
}

func (c *Client) HeadObject(ctx context.Context, bucket, key string) (*filestore.ObjectMetadata, error) {
	out, err := c.api.HeadObject(ctx, &s3sdk.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, mapError(err, "head object")
	}

	meta := out.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return &filestore.ObjectMetadata{
		ContentType:   aws.ToString(out.ContentType),
		ContentLength: aws.ToInt64(out.ContentLength),
		LastModified:  aws.ToTime(out.LastModified),
		ETag:          aws.ToString(out.ETag),
		StorageClass:  string(out.StorageClass),
		Metadata:      meta,
	}, nil
}

func (c *Client) DeleteObject(ctx context.Context, bucket, key string) error {
	_, err := c.api.DeleteObject(ctx, &s3sdk.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return mapError(err, "delete object")
	}
	return nil
}

func (c *Client) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]filestore.DeleteFailure, error) {
	if len(keys) == 0 {
		return nil, nil
	}
	ids := make([]types.ObjectIdentifier, 0, len(keys))
	for _, k := range keys {
		ids = append(ids, types.ObjectIdentifier{Key: aws.String(k)})
	}

	out, err := c.api.DeleteObjects(ctx, &s3sdk.DeleteObjectsInput{
		Bucket: aws.String(bucket),
		Delete: &types.Delete{
			Objects: ids,
			Quiet:   aws.Bool(true), // only failures are reported
		},
	})
	if err != nil {
		return nil, mapError(err, "delete objects")
	}

	var failures []filestore.DeleteFailure
	for _, e := range out.Errors {
		failures = append(failures, filestore.DeleteFailure{
			Key:     aws.ToString(e.Key),
			Code:    aws.ToString(e.Code),
			Message: aws.ToString(e.Message),
		})
	}
	return failures, nil
}

func (c *Client) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := c.api.CopyObject(ctx, &s3sdk.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(filestore.CopySource(bucket, srcKey)),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return mapError(err, "copy object")
	}
	return nil
}

func (c *Client) ListObjects(ctx context.Context, bucket string, in filestore.ListInput) (*filestore.ListPage, error) {
	req := &s3sdk.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(in.Prefix),
	}
	if in.Delimiter != "" {
		req.Delimiter = aws.String(in.Delimiter)
	}
	if in.MaxKeys > 0 {
		req.MaxKeys = aws.Int32(int32(in.MaxKeys))
	}
	if in.ContinuationToken != "" {
		req.ContinuationToken = aws.String(in.ContinuationToken)
	}

	out, err := c.api.ListObjectsV2(ctx, req)
	if err != nil {
		return nil, mapError(err, "list objects")
	}

	page := &filestore.ListPage{
		Files:             make([]filestore.ObjectRecord, 0, len(out.Contents)),
		Folders:           make([]filestore.FolderRecord, 0, len(out.CommonPrefixes)),
		IsTruncated:       aws.ToBool(out.IsTruncated),
		ContinuationToken: aws.ToString(out.NextContinuationToken),
	}
	for _, obj := range out.Contents {
		page.Files = append(page.Files, filestore.ObjectRecord{
			Key:          aws.ToString(obj.Key),
			Size:         aws.ToInt64(obj.Size),
			LastModified: aws.ToTime(obj.LastModified),
			ETag:         aws.ToString(obj.ETag),
			StorageClass: string(obj.StorageClass),
		})
	}
	for _, p := range out.CommonPrefixes {
		page.Folders = append(page.Folders, filestore.FolderRecord{Prefix: aws.ToString(p.Prefix)})
	}
	return page, nil
}

func (c *Client) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	in := &s3sdk.ListBucketsInput{}
	var buckets []filestore.BucketInfo
	for {
		out, err := c.api.ListBuckets(ctx, in)
		if err != nil {
			return nil, mapError(err, "list buckets")
		}
		for _, b := range out.Buckets {
			buckets = append(buckets, filestore.BucketInfo{
				Name:      aws.ToString(b.Name),
				CreatedAt: aws.ToTime(b.CreationDate),
			})
		}
		if aws.ToString(out.ContinuationToken) == "" {
			return buckets, nil
		}
		in.ContinuationToken = out.ContinuationToken
	}
}

func (c *Client) PresignGet(ctx context.Context, bucket, key string, ttl time.Duration, contentDisposition string) (string, error) {
	in := &s3sdk.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentDisposition != "" {
		in.ResponseContentDisposition = aws.String(contentDisposition)
	}
	req, err := c.presign.PresignGetObject(ctx, in, s3sdk.WithPresignExpires(ttl))
	if err != nil {
		return "", mapError(err, "presign get")
	}
	return req.URL, nil
}

func (c *Client) PresignPut(ctx context.Context, bucket, key string, ttl time.Duration, contentType, acl string) (string, error) {
	in := &s3sdk.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if acl != "" {
		in.ACL = types.ObjectCannedACL(acl)
	}
	req, err := c.presign.PresignPutObject(ctx, in, s3sdk.WithPresignExpires(ttl))
	if err != nil {
		return "", mapError(err, "presign put")
	}
	return req.URL, nil
}
