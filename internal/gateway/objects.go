package gateway

import (
	"bytes"
	"context"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
)

// UploadOptions tunes UploadObject.
type UploadOptions struct {
	// ContentType wins over everything else when set.
	ContentType string

	// ACL is a canned ACL such as "public-read". Empty means DefaultACL.
	ACL string

	// DetectContentType sniffs the local file when ContentType is empty.
	// Otherwise filestore.DefaultContentType is sent.
	DetectContentType bool
}

// UploadObject streams the file at localPath to key and returns the object's
// URL. A missing, unreadable or empty file fails with ErrKindSourceNotFound
// before anything is sent.
func (g *Gateway) UploadObject(ctx context.Context, creds filestore.Credentials, localPath, key string, opts UploadOptions) (string, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "upload", key, "failed to upload file")
	defer cancel()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", c.invalid("object key is required")
	}

	f, err := os.Open(localPath)
	if err != nil {
		return "", c.fail(errs.Wrap(errs.ErrKindSourceNotFound, "source file not found", err))
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", c.fail(errs.Wrap(errs.ErrKindSourceNotFound, "source file not readable", err))
	}
	if info.IsDir() {
		return "", c.fail(errs.New(errs.ErrKindSourceNotFound, "source path is a directory"))
	}
	if info.Size() == 0 {
		return "", c.fail(errs.New(errs.ErrKindSourceNotFound, "source file is empty"))
	}

	contentType := opts.ContentType
	if contentType == "" {
		contentType = filestore.DefaultContentType
		if opts.DetectContentType {
			contentType = filestore.DetectFileContentType(localPath)
		}
	}
	acl := opts.ACL
	if acl == "" {
		acl = DefaultACL
	}

	err = c.client.PutObject(ctx, c.bucket, key, f, info.Size(), filestore.PutOptions{
		ContentType: contentType,
		ACL:         acl,
	})
	if err != nil {
		return "", c.fail(err)
	}
	return ObjectURL(c.creds, key), nil
}

// ObjectURL returns the virtual-hosted AWS URL of key, or a path-style URL
// under the custom endpoint when one is set. The key is escaped as one
// path segment.
func ObjectURL(creds filestore.Credentials, key string) string {
	escaped := url.PathEscape(key)
	if creds.Endpoint == "" {
		return "https://" + creds.BucketName + ".s3." + creds.Region + ".amazonaws.com/" + escaped
	}
	base := strings.TrimRight(creds.Endpoint, "/")
	if !strings.Contains(base, "://") {
		base = "https://" + base
	}
	return base + "/" + creds.BucketName + "/" + escaped
}

// DownloadObject streams key into a file at localPath, replacing it.
// The body is written to a temporary file in the same directory and renamed
// into place, so a failed download leaves any existing file untouched.
func (g *Gateway) DownloadObject(ctx context.Context, creds filestore.Credentials, key, localPath string) (err error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "download", key, "failed to download file")
	defer cancel()
	if err != nil {
		return err
	}
	if key == "" {
		return c.invalid("object key is required")
	}

	stream, err := c.client.GetObject(ctx, c.bucket, key, nil)
	if err != nil {
		return c.fail(err)
	}
	defer stream.Body.Close()

	tmp, err := os.CreateTemp(filepath.Dir(localPath), "."+filepath.Base(localPath)+".*.part")
	if err != nil {
		return c.fail(errs.Wrap(errs.ErrKindOperationFailed, "create local file", err))
	}
	defer func() {
		if err != nil {
			os.Remove(tmp.Name())
		}
	}()
	_ = tmp.Chmod(0o644)

	if _, err = io.Copy(tmp, stream.Body); err != nil {
		tmp.Close()
		return c.fail(bodyErr(ctx, "copy object body", err))
	}
	if err = tmp.Close(); err != nil {
		return c.fail(errs.Wrap(errs.ErrKindOperationFailed, "close local file", err))
	}
	if err = os.Rename(tmp.Name(), localPath); err != nil {
		return c.fail(errs.Wrap(errs.ErrKindOperationFailed, "replace local file", err))
	}
	return nil
}

// StreamObject opens key for reading. The caller must close Body, which also
// releases the call's timeout. ContentType falls back to the key's extension.
func (g *Gateway) StreamObject(ctx context.Context, creds filestore.Credentials, key string) (*filestore.ObjectStream, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "stream", key, "failed to stream file")
	if err != nil {
		cancel()
		return nil, err
	}
	if key == "" {
		cancel()
		return nil, c.invalid("object key is required")
	}

	stream, err := c.client.GetObject(ctx, c.bucket, key, nil)
	if err != nil {
		cancel()
		return nil, c.fail(err)
	}
	if stream.ContentType == "" {
		stream.ContentType = filestore.InferContentType(key)
	}
	stream.Body = &cancelOnClose{ReadCloser: stream.Body, cancel: cancel}
	return stream, nil
}

type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (r *cancelOnClose) Close() error {
	err := r.ReadCloser.Close()
	r.cancel()
	return err
}

// GetObjectByteRange reads bytes start..end (inclusive) of key as text.
// Invalid UTF-8 sequences are replaced with U+FFFD. The whole range is held
// in memory, so callers bound its size.
func (g *Gateway) GetObjectByteRange(ctx context.Context, creds filestore.Credentials, key string, start, end int64) (string, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "byte_range", key, "failed to read byte range")
	defer cancel()
	if err != nil {
		return "", err
	}
	if key == "" {
		return "", c.invalid("object key is required")
	}
	if start < 0 || end < start {
		return "", c.invalid("invalid byte range")
	}

	stream, err := c.client.GetObject(ctx, c.bucket, key, &filestore.ByteRange{Start: start, End: end})
	if err != nil {
		return "", c.fail(err)
	}
	defer stream.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, io.LimitReader(stream.Body, end-start+1)); err != nil {
		return "", c.fail(bodyErr(ctx, "read range body", err))
	}
	return strings.ToValidUTF8(buf.String(), "\uFFFD"), nil
}

// bodyErr classifies a failed body read as a timeout when ctx is done and
// as a connection failure otherwise.
func bodyErr(ctx context.Context, msg string, err error) error {
	if ctx.Err() != nil {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// DeleteObject removes key. Deleting a missing key succeeds.
func (g *Gateway) DeleteObject(ctx context.Context, creds filestore.Credentials, key string) error {
	ctx, cancel, c, err := g.begin(ctx, creds, "delete", key, "failed to delete file")
	defer cancel()
	if err != nil {
		return err
	}
	if key == "" {
		return c.invalid("object key is required")
	}
	if err := c.client.DeleteObject(ctx, c.bucket, key); err != nil {
		return c.fail(err)
	}
	return nil
}

// CopyObject copies srcKey to dstKey inside the bucket, server side.
func (g *Gateway) CopyObject(ctx context.Context, creds filestore.Credentials, srcKey, dstKey string) error {
	ctx, cancel, c, err := g.begin(ctx, creds, "copy", srcKey, "failed to copy file")
	defer cancel()
	if err != nil {
		return err
	}
	if srcKey == "" || dstKey == "" {
		return c.invalid("source and destination keys are required")
	}
	if err := c.client.CopyObject(ctx, c.bucket, srcKey, dstKey); err != nil {
		return c.fail(err)
	}
	return nil
}

// RenameObject copies oldKey to newKey and then deletes oldKey. It is not
// atomic: when the delete fails both keys exist and the Completion is
// PartiallyCompleted with oldKey left over.
func (g *Gateway) RenameObject(ctx context.Context, creds filestore.Credentials, oldKey, newKey string) (Completion, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "rename", oldKey, "failed to rename file")
	defer cancel()
	if err != nil {
		return Completion{State: NotStarted}, err
	}
	if oldKey == "" || newKey == "" {
		return Completion{State: NotStarted}, c.invalid("old and new keys are required")
	}
	// A self-copy followed by delete would lose the object.
	if oldKey == newKey {
		return Completion{State: NotStarted}, c.invalid("old and new keys are identical")
	}

	if err := c.client.CopyObject(ctx, c.bucket, oldKey, newKey); err != nil {
		return Completion{State: NotStarted}, c.fail(err)
	}
	if err := c.client.DeleteObject(ctx, c.bucket, oldKey); err != nil {
		done := Completion{State: PartiallyCompleted, Processed: 1, Leftover: []string{oldKey}}
		return done, c.fail(errs.Wrap(errs.ErrKindPartialFailure, "copied to "+newKey+" but source was not deleted", err))
	}
	return Completion{State: Completed, Processed: 1}, nil
}

// ObjectExists reports whether key exists. Only a not-found answer yields
// false; any other failure is returned.
func (g *Gateway) ObjectExists(ctx context.Context, creds filestore.Credentials, key string) (bool, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "exists", key, "failed to check file existence")
	defer cancel()
	if err != nil {
		return false, err
	}
	if key == "" {
		return false, c.invalid("object key is required")
	}

	_, err = c.client.HeadObject(ctx, c.bucket, key)
	switch {
	case err == nil:
		return true, nil
	case errs.IsNotFound(err):
		return false, nil
	default:
		return false, c.fail(err)
	}
}

// GetObjectMetadata returns key's HEAD metadata. A missing key is
// ErrKindNotFound.
func (g *Gateway) GetObjectMetadata(ctx context.Context, creds filestore.Credentials, key string) (*filestore.ObjectMetadata, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "metadata", key, "failed to get metadata")
	defer cancel()
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, c.invalid("object key is required")
	}

	meta, err := c.client.HeadObject(ctx, c.bucket, key)
	if err != nil {
		return nil, c.fail(err)
	}
	return meta, nil
}
