package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/filestore/memory"
)

var testCreds = filestore.Credentials{
	Region:          "us-east-1",
	AccessKeyID:     "AKIAEXAMPLE",
	SecretAccessKey: "wJalrXUtnFEMI-example",
	BucketName:      "media",
}

// faultyClient wraps a real client and injects failures.
type faultyClient struct {
	filestore.Client
	deleteErr        error
	deleteBatchErrAt int // 1-based DeleteObjects call that fails; 0 never
	deleteFailures   []filestore.DeleteFailure
	listBucketsErr   error
	blockHead        bool
	bodyErr          error // GetObject bodies fail with this after the first bytes

	deleteBatches *int32
}

type failingBody struct {
	r   io.Reader
	err error
}

func (b *failingBody) Read(p []byte) (int, error) {
	n, err := b.r.Read(p)
	if err == io.EOF {
		return n, b.err
	}
	return n, err
}

func (b *failingBody) Close() error { return nil }

func (f *faultyClient) GetObject(ctx context.Context, bucket, key string, rng *filestore.ByteRange) (*filestore.ObjectStream, error) {
	stream, err := f.Client.GetObject(ctx, bucket, key, rng)
	if err != nil || f.bodyErr == nil {
		return stream, err
	}
	data, err := io.ReadAll(stream.Body)
	stream.Body.Close()
	if err != nil {
		return nil, err
	}
	stream.Body = &failingBody{r: strings.NewReader(string(data[:len(data)/2])), err: f.bodyErr}
	return stream, nil
}

func (f *faultyClient) DeleteObject(ctx context.Context, bucket, key string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	return f.Client.DeleteObject(ctx, bucket, key)
}

func (f *faultyClient) DeleteObjects(ctx context.Context, bucket string, keys []string) ([]filestore.DeleteFailure, error) {
	n := atomic.AddInt32(f.deleteBatches, 1)
	if f.deleteBatchErrAt > 0 && int(n) == f.deleteBatchErrAt {
		return nil, errs.New(errs.ErrKindConnectionFailed, "connection reset by peer")
	}
	if len(f.deleteFailures) > 0 {
		failed := make(map[string]bool)
		for _, df := range f.deleteFailures {
			failed[df.Key] = true
		}
		var rest []string
		for _, k := range keys {
			if !failed[k] {
				rest = append(rest, k)
			}
		}
		if _, err := f.Client.DeleteObjects(ctx, bucket, rest); err != nil {
			return nil, err
		}
		return f.deleteFailures, nil
	}
	return f.Client.DeleteObjects(ctx, bucket, keys)
}

func (f *faultyClient) ListBuckets(ctx context.Context) ([]filestore.BucketInfo, error) {
	if f.listBucketsErr != nil {
		return nil, f.listBucketsErr
	}
	return f.Client.ListBuckets(ctx)
}

func (f *faultyClient) HeadObject(ctx context.Context, bucket, key string) (*filestore.ObjectMetadata, error) {
	if f.blockHead {
		<-ctx.Done()
		return nil, errs.Wrap(errs.ErrKindTimeout, "head object", ctx.Err())
	}
	return f.Client.HeadObject(ctx, bucket, key)
}

type fixture struct {
	gw      *Gateway
	backend *memory.Backend
	client  filestore.Client
	calls   *int32
	batches *int32
	faults  *faultyClient
}

func newFixture(t *testing.T, opts ...func(*Options)) *fixture {
	t.Helper()
	backend := memory.NewBackend()
	backend.CreateBucket("media")

	direct, err := backend.Factory()(context.Background(), testCreds)
	require.NoError(t, err)

	fx := &fixture{
		backend: backend,
		client:  direct,
		calls:   new(int32),
		batches: new(int32),
	}
	fx.faults = &faultyClient{deleteBatches: fx.batches}

	o := Options{
		Factory: func(ctx context.Context, creds filestore.Credentials) (filestore.Client, error) {
			atomic.AddInt32(fx.calls, 1)
			c, err := backend.Factory()(ctx, creds)
			if err != nil {
				return nil, err
			}
			fc := *fx.faults
			fc.Client = c
			return &fc, nil
		},
	}
	for _, fn := range opts {
		fn(&o)
	}
	fx.gw, err = New(o)
	require.NoError(t, err)
	return fx
}

func (fx *fixture) put(t *testing.T, keys ...string) {
	t.Helper()
	for _, k := range keys {
		err := fx.client.PutObject(context.Background(), "media", k, strings.NewReader(k), int64(len(k)), filestore.PutOptions{})
		require.NoError(t, err)
	}
}

func (fx *fixture) exists(t *testing.T, key string) bool {
	t.Helper()
	ok, err := fx.gw.ObjectExists(context.Background(), testCreds, key)
	require.NoError(t, err)
	return ok
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o600))
	return p
}

func TestNew(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	gw, err := New(Options{Factory: memory.NewBackend().Factory()})
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, gw.timeout)
	assert.NotNil(t, gw.log)
}

func TestValidationRunsFirst(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		field string
		mut   func(*filestore.Credentials)
	}{
		{"region", func(c *filestore.Credentials) { c.Region = "" }},
		{"accessKeyId", func(c *filestore.Credentials) { c.AccessKeyID = "" }},
		{"secretAccessKey", func(c *filestore.Credentials) { c.SecretAccessKey = "" }},
		{"bucketName", func(c *filestore.Credentials) { c.BucketName = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			creds := testCreds
			tt.mut(&creds)

			_, err := fx.gw.ObjectExists(ctx, creds, "a.txt")
			require.Error(t, err)
			assert.True(t, errs.IsInvalidInput(err))

			var missing *filestore.MissingCredentialError
			require.ErrorAs(t, err, &missing)
			assert.Equal(t, tt.field, missing.Field)
			assert.Contains(t, err.Error(), "failed to check file existence")
			assert.NotContains(t, err.Error(), testCreds.SecretAccessKey)
		})
	}
	assert.Zero(t, atomic.LoadInt32(fx.calls), "no client is built for invalid credentials")
}

func TestDefaultsAreMerged(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.Defaults = testCreds })
	fx.backend.CreateBucket("other")
	ctx := context.Background()

	fx.put(t, "house.txt")
	ok, err := fx.gw.ObjectExists(ctx, filestore.Credentials{}, "house.txt")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = fx.gw.ObjectExists(ctx, filestore.Credentials{BucketName: "other"}, "house.txt")
	require.NoError(t, err)
	assert.False(t, ok, "explicit bucket wins over the default")
}

func TestUploadExistsDelete(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	src := writeTemp(t, "report.pdf", []byte("%PDF-1.4 body"))

	u, err := fx.gw.UploadObject(ctx, testCreds, src, "docs/q1 report.pdf", UploadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "https://media.s3.us-east-1.amazonaws.com/docs%2Fq1%20report.pdf", u)
	assert.True(t, fx.exists(t, "docs/q1 report.pdf"))

	meta, err := fx.gw.GetObjectMetadata(ctx, testCreds, "docs/q1 report.pdf")
	require.NoError(t, err)
	assert.Equal(t, filestore.DefaultContentType, meta.ContentType)
	assert.Equal(t, int64(13), meta.ContentLength)
	assert.NotEmpty(t, meta.ETag)

	require.NoError(t, fx.gw.DeleteObject(ctx, testCreds, "docs/q1 report.pdf"))
	assert.False(t, fx.exists(t, "docs/q1 report.pdf"))
	assert.NoError(t, fx.gw.DeleteObject(ctx, testCreds, "docs/q1 report.pdf"), "delete is idempotent")
}

func TestUploadContentType(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 32)...)
	src := writeTemp(t, "pixel.bin", png)

	tests := []struct {
		name string
		opts UploadOptions
		want string
	}{
		{"default", UploadOptions{}, filestore.DefaultContentType},
		{"explicit", UploadOptions{ContentType: "image/x-custom"}, "image/x-custom"},
		{"sniffed", UploadOptions{DetectContentType: true}, "image/png"},
		{"explicit beats sniffing", UploadOptions{ContentType: "text/plain", DetectContentType: true}, "text/plain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := fx.gw.UploadObject(ctx, testCreds, src, "pixel", tt.opts)
			require.NoError(t, err)
			meta, err := fx.gw.GetObjectMetadata(ctx, testCreds, "pixel")
			require.NoError(t, err)
			assert.Equal(t, tt.want, meta.ContentType)
		})
	}
}

func TestUploadRejectsBadSource(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	_, err := fx.gw.UploadObject(ctx, testCreds, writeTemp(t, "empty.txt", nil), "empty.txt", UploadOptions{})
	assert.True(t, errs.IsSourceNotFound(err))
	assert.False(t, fx.exists(t, "empty.txt"))

	_, err = fx.gw.UploadObject(ctx, testCreds, filepath.Join(t.TempDir(), "missing.txt"), "missing.txt", UploadOptions{})
	assert.True(t, errs.IsSourceNotFound(err))
	assert.Contains(t, err.Error(), "failed to upload file")

	_, err = fx.gw.UploadObject(ctx, testCreds, t.TempDir(), "dir", UploadOptions{})
	assert.True(t, errs.IsSourceNotFound(err))

	_, err = fx.gw.UploadObject(ctx, testCreds, writeTemp(t, "a.txt", []byte("a")), "", UploadOptions{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestObjectURL(t *testing.T) {
	tests := []struct {
		name     string
		endpoint string
		want     string
	}{
		{"aws", "", "https://media.s3.us-east-1.amazonaws.com/a%2Fb%20c.png"},
		{"custom with scheme", "http://localhost:9000/", "http://localhost:9000/media/a%2Fb%20c.png"},
		{"custom without scheme", "minio.local:9000", "https://minio.local:9000/media/a%2Fb%20c.png"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			creds := testCreds
			creds.Endpoint = tt.endpoint
			assert.Equal(t, tt.want, ObjectURL(creds, "a/b c.png"))
		})
	}
}

func TestCreateFolderThenList(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	require.NoError(t, fx.gw.CreateFolder(ctx, testCreds, "a/b"))
	assert.True(t, fx.exists(t, "a/b/"))

	page, err := fx.gw.ListObjects(ctx, testCreds, filestore.ListOptions{Prefix: "a/", Delimiter: "/"})
	require.NoError(t, err)
	assert.Equal(t, []filestore.FolderRecord{{Prefix: "a/b/"}}, page.Folders)
	assert.Empty(t, page.Files)

	folders, err := fx.gw.ListFolders(ctx, testCreds, "a/")
	require.NoError(t, err)
	assert.Equal(t, []filestore.FolderRecord{{Prefix: "a/b/"}}, folders)

	assert.True(t, errs.IsInvalidInput(fx.gw.CreateFolder(ctx, testCreds, "")))
}

func TestListObjects_Paging(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	for i := 0; i < 150; i++ {
		fx.put(t, fmt.Sprintf("logs/%03d.log", i))
	}

	page, err := fx.gw.ListObjects(ctx, testCreds, filestore.ListOptions{Prefix: "logs/"})
	require.NoError(t, err)
	assert.Len(t, page.Files, DefaultMaxKeys)
	assert.True(t, page.IsTruncated)
	require.NotEmpty(t, page.ContinuationToken)

	next, err := fx.gw.ListObjects(ctx, testCreds, filestore.ListOptions{Prefix: "logs/", ContinuationToken: page.ContinuationToken})
	require.NoError(t, err)
	assert.Len(t, next.Files, 50)
	assert.False(t, next.IsTruncated)

	_, err = fx.gw.ListObjects(ctx, testCreds, filestore.ListOptions{MaxKeys: -1})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestRenameObject(t *testing.T) {
	ctx := context.Background()

	t.Run("completed", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "old.txt")

		done, err := fx.gw.RenameObject(ctx, testCreds, "old.txt", "new.txt")
		require.NoError(t, err)
		assert.Equal(t, Completion{State: Completed, Processed: 1}, done)
		assert.True(t, fx.exists(t, "new.txt"))
		assert.False(t, fx.exists(t, "old.txt"))
	})

	t.Run("delete fails after copy", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "old.txt")
		fx.faults.deleteErr = errs.New(errs.ErrKindPermissionDenied, "AccessDenied")

		done, err := fx.gw.RenameObject(ctx, testCreds, "old.txt", "new.txt")
		require.Error(t, err)
		assert.True(t, errs.IsPartialFailure(err))
		assert.Equal(t, PartiallyCompleted, done.State)
		assert.Equal(t, []string{"old.txt"}, done.Leftover)

		fx.faults.deleteErr = nil
		assert.True(t, fx.exists(t, "old.txt"), "duplicated, not lost")
		assert.True(t, fx.exists(t, "new.txt"))
	})

	t.Run("copy fails", func(t *testing.T) {
		fx := newFixture(t)
		done, err := fx.gw.RenameObject(ctx, testCreds, "ghost.txt", "new.txt")
		assert.True(t, errs.IsNotFound(err))
		assert.Equal(t, NotStarted, done.State)
		assert.False(t, fx.exists(t, "new.txt"))
	})

	t.Run("same key", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "old.txt")
		_, err := fx.gw.RenameObject(ctx, testCreds, "old.txt", "old.txt")
		assert.True(t, errs.IsInvalidInput(err))
		assert.True(t, fx.exists(t, "old.txt"))
	})
}

func TestCopyObject(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "a b/src.txt")

	require.NoError(t, fx.gw.CopyObject(ctx, testCreds, "a b/src.txt", "dst.txt"))
	assert.True(t, fx.exists(t, "a b/src.txt"))
	assert.True(t, fx.exists(t, "dst.txt"))

	assert.True(t, errs.IsInvalidInput(fx.gw.CopyObject(ctx, testCreds, "", "dst.txt")))
}

func TestDeleteFolder_DrainsEveryPage(t *testing.T) {
	for _, n := range []int{250, 2101} {
		t.Run(fmt.Sprint(n), func(t *testing.T) {
			fx := newFixture(t)
			ctx := context.Background()
			require.NoError(t, fx.gw.CreateFolder(ctx, testCreds, "photos"))
			for i := 0; i < n; i++ {
				fx.put(t, fmt.Sprintf("photos/%04d.jpg", i))
			}
			fx.put(t, "photosets/keep.jpg")

			done, err := fx.gw.DeleteFolder(ctx, testCreds, "photos")
			require.NoError(t, err)
			assert.Equal(t, Completed, done.State)
			assert.Equal(t, n+1, done.Processed)
			assert.Equal(t, int32((n+1+999)/1000), atomic.LoadInt32(fx.batches))

			page, err := fx.gw.ListObjects(ctx, testCreds, filestore.ListOptions{Prefix: "photos/"})
			require.NoError(t, err)
			assert.Empty(t, page.Files)
			assert.Empty(t, page.Folders)
			assert.True(t, fx.exists(t, "photosets/keep.jpg"), "sibling prefix untouched")
		})
	}
}

func TestDeleteFolder_PartialFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("batch error", func(t *testing.T) {
		fx := newFixture(t)
		for i := 0; i < 1500; i++ {
			fx.put(t, fmt.Sprintf("tmp/%04d", i))
		}
		fx.faults.deleteBatchErrAt = 2

		done, err := fx.gw.DeleteFolder(ctx, testCreds, "tmp/")
		require.Error(t, err)
		assert.True(t, errs.IsPartialFailure(err))
		assert.Equal(t, PartiallyCompleted, done.State)
		assert.Equal(t, 1000, done.Processed)
		assert.Len(t, done.Leftover, 500)
		assert.Equal(t, "tmp/1000", done.Leftover[0])
	})

	t.Run("per key failure", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "tmp/a", "tmp/b", "tmp/c")
		fx.faults.deleteFailures = []filestore.DeleteFailure{{Key: "tmp/b", Code: "AccessDenied", Message: "Access Denied"}}

		done, err := fx.gw.DeleteFolder(ctx, testCreds, "tmp")
		assert.True(t, errs.IsPartialFailure(err))
		assert.Equal(t, Completion{State: PartiallyCompleted, Processed: 2, Leftover: []string{"tmp/b"}}, done)
		assert.Contains(t, err.Error(), "AccessDenied")
	})

	t.Run("every key refused", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "tmp/a", "tmp/b")
		fx.faults.deleteFailures = []filestore.DeleteFailure{
			{Key: "tmp/a", Code: "AccessDenied", Message: "Access Denied"},
			{Key: "tmp/b", Code: "AccessDenied", Message: "Access Denied"},
		}

		done, err := fx.gw.DeleteFolder(ctx, testCreds, "tmp")
		assert.True(t, errs.IsPermissionDenied(err))
		assert.Equal(t, NotStarted, done.State)
		assert.Equal(t, []string{"tmp/a", "tmp/b"}, done.Leftover)
		assert.True(t, fx.exists(t, "tmp/a"))
	})

	t.Run("unknown per key code", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "tmp/a")
		fx.faults.deleteFailures = []filestore.DeleteFailure{{Key: "tmp/a", Code: "InternalError", Message: "We encountered an internal error"}}

		_, err := fx.gw.DeleteFolder(ctx, testCreds, "tmp")
		assert.Equal(t, errs.ErrKindOperationFailed, errs.KindOf(err))
	})

	t.Run("nothing deleted", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "tmp/a")
		fx.faults.deleteBatchErrAt = 1

		done, err := fx.gw.DeleteFolder(ctx, testCreds, "tmp")
		assert.True(t, errs.IsConnectionFailed(err))
		assert.Equal(t, NotStarted, done.State)
		assert.Equal(t, []string{"tmp/a"}, done.Leftover)
	})

	t.Run("empty prefix rejected", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "keep")
		_, err := fx.gw.DeleteFolder(ctx, testCreds, "")
		assert.True(t, errs.IsInvalidInput(err))
		assert.True(t, fx.exists(t, "keep"))
	})
}

func TestGetBucketStatistics(t *testing.T) {
	ctx := context.Background()

	t.Run("empty bucket", func(t *testing.T) {
		fx := newFixture(t)
		stats, err := fx.gw.GetBucketStatistics(ctx, testCreds)
		require.NoError(t, err)
		assert.Equal(t, &filestore.BucketStats{}, stats)
		assert.Nil(t, stats.LastModified)
	})

	t.Run("newest modification wins", func(t *testing.T) {
		fx := newFixture(t)
		base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
		var tick int
		fx.backend.SetClock(func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Hour)
		})
		// "z" is written first but lists last; "a" is the newest.
		fx.put(t, "z-old", "m-mid", "a-new")

		stats, err := fx.gw.GetBucketStatistics(ctx, testCreds)
		require.NoError(t, err)
		assert.Equal(t, int64(3), stats.ObjectCount)
		assert.Equal(t, int64(len("z-old")+len("m-mid")+len("a-new")), stats.TotalSize)
		require.NotNil(t, stats.LastModified)
		assert.Equal(t, base.Add(3*time.Hour), *stats.LastModified)
	})

	t.Run("matches chained listing", func(t *testing.T) {
		fx := newFixture(t)
		for i := 0; i < 1234; i++ {
			fx.put(t, fmt.Sprintf("d%d/f%04d", i%7, i))
		}

		var listed int64
		opts := filestore.ListOptions{Recursive: true, MaxKeys: 250}
		for {
			page, err := fx.gw.ListObjects(ctx, testCreds, opts)
			require.NoError(t, err)
			listed += int64(len(page.Files))
			if !page.IsTruncated {
				break
			}
			opts.ContinuationToken = page.ContinuationToken
		}

		stats, err := fx.gw.GetBucketStatistics(ctx, testCreds)
		require.NoError(t, err)
		assert.Equal(t, listed, stats.ObjectCount)
		assert.Equal(t, int64(1234), listed)
	})
}

func TestStreamAndRange(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "notes/readme.md")
	require.NoError(t, fx.client.PutObject(ctx, "media", "bin", strings.NewReader("ok\xff\xfeok"), 6, filestore.PutOptions{}))

	stream, err := fx.gw.StreamObject(ctx, testCreds, "notes/readme.md")
	require.NoError(t, err)
	body, err := io.ReadAll(stream.Body)
	require.NoError(t, err)
	require.NoError(t, stream.Body.Close())
	assert.Equal(t, "notes/readme.md", string(body))
	assert.Equal(t, "text/markdown", stream.ContentType, "falls back to the extension")

	text, err := fx.gw.GetObjectByteRange(ctx, testCreds, "notes/readme.md", 6, 11)
	require.NoError(t, err)
	assert.Equal(t, "readme", text)

	text, err = fx.gw.GetObjectByteRange(ctx, testCreds, "bin", 0, 5)
	require.NoError(t, err)
	assert.Equal(t, "ok\uFFFDok", text)

	_, err = fx.gw.GetObjectByteRange(ctx, testCreds, "bin", 4, 2)
	assert.True(t, errs.IsInvalidInput(err))
	_, err = fx.gw.GetObjectByteRange(ctx, testCreds, "bin", -1, 2)
	assert.True(t, errs.IsInvalidInput(err))

	_, err = fx.gw.StreamObject(ctx, testCreds, "ghost")
	assert.True(t, errs.IsNotFound(err))
}

func TestDownloadObject(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "a/b.txt")
	dir := t.TempDir()

	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, fx.gw.DownloadObject(ctx, testCreds, "a/b.txt", dst))
	data, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "a/b.txt", string(data))

	missing := filepath.Join(dir, "ghost.txt")
	err = fx.gw.DownloadObject(ctx, testCreds, "ghost.txt", missing)
	assert.True(t, errs.IsNotFound(err))
	_, statErr := os.Stat(missing)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestDownloadObject_FailureKeepsExistingFile(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()
	fx.put(t, "reports/q1.csv")
	fx.faults.bodyErr = errors.New("connection reset by peer")

	dir := t.TempDir()
	dst := filepath.Join(dir, "q1.csv")
	require.NoError(t, os.WriteFile(dst, []byte("previous copy"), 0o644))

	err := fx.gw.DownloadObject(ctx, testCreds, "reports/q1.csv", dst)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to download file")

	data, readErr := os.ReadFile(dst)
	require.NoError(t, readErr)
	assert.Equal(t, "previous copy", string(data))

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	assert.Len(t, entries, 1, "temporary file removed")
}

func TestGetObjectMetadata_NotFound(t *testing.T) {
	fx := newFixture(t)
	_, err := fx.gw.GetObjectMetadata(context.Background(), testCreds, "ghost")
	assert.True(t, errs.IsNotFound(err))
	assert.Contains(t, err.Error(), "failed to get metadata")
}

func TestPresignedURLs(t *testing.T) {
	fx := newFixture(t)
	ctx := context.Background()

	u, err := fx.gw.GetDownloadURL(ctx, testCreds, "a.pdf", PresignOptions{ContentDisposition: "attachment"})
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Expires=3600")
	assert.Contains(t, u, "response-content-disposition=attachment")
	assert.NotContains(t, u, testCreds.SecretAccessKey)

	u, err = fx.gw.GetUploadURL(ctx, testCreds, "a.pdf", PresignOptions{ExpiresIn: 5 * time.Minute})
	require.NoError(t, err)
	assert.Contains(t, u, "X-Amz-Expires=300")
	assert.Contains(t, u, "x-amz-acl=private")
	assert.Contains(t, u, "content-type=application%2Foctet-stream")

	_, err = fx.gw.GetUploadURL(ctx, testCreds, "a.pdf", PresignOptions{ExpiresIn: 8 * 24 * time.Hour})
	assert.True(t, errs.IsInvalidInput(err))
	_, err = fx.gw.GetDownloadURL(ctx, testCreds, "", PresignOptions{})
	assert.True(t, errs.IsInvalidInput(err))
}

func TestTestConnectivity(t *testing.T) {
	ctx := context.Background()

	t.Run("authorized", func(t *testing.T) {
		fx := newFixture(t)
		fx.backend.CreateBucket("archive")
		res, err := fx.gw.TestConnectivity(ctx, testCreds)
		require.NoError(t, err)
		assert.True(t, res.IsAuthorized)
		assert.True(t, res.BucketExists)
		assert.Equal(t, []string{"archive", "media"}, res.Buckets)
		assert.Empty(t, res.Error)
	})

	t.Run("list buckets denied", func(t *testing.T) {
		fx := newFixture(t)
		fx.put(t, "still-readable.txt")
		fx.backend.DenyListBuckets(testCreds.AccessKeyID)

		res, err := fx.gw.TestConnectivity(ctx, testCreds)
		require.NoError(t, err)
		assert.False(t, res.IsAuthorized)
		assert.Equal(t, AccessDenied, res.Error)
		assert.Empty(t, res.Buckets)
		assert.True(t, fx.exists(t, "still-readable.txt"))
	})

	t.Run("transport failure", func(t *testing.T) {
		fx := newFixture(t)
		fx.faults.listBucketsErr = errs.Wrap(errs.ErrKindConnectionFailed, "list buckets", errors.New("dial tcp: connection refused"))

		res, err := fx.gw.TestConnectivity(ctx, testCreds)
		require.NoError(t, err)
		assert.False(t, res.IsAuthorized)
		assert.Equal(t, "dial tcp: connection refused", res.Error)
	})

	t.Run("invalid credentials", func(t *testing.T) {
		fx := newFixture(t)
		_, err := fx.gw.TestConnectivity(ctx, filestore.Credentials{Region: "us-east-1"})
		assert.True(t, errs.IsInvalidInput(err))
	})
}

func TestTimeout(t *testing.T) {
	fx := newFixture(t, func(o *Options) { o.Timeout = 20 * time.Millisecond })
	fx.faults.blockHead = true

	start := time.Now()
	_, err := fx.gw.ObjectExists(context.Background(), testCreds, "slow")
	assert.True(t, errs.IsTimeout(err))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestCompletionState_Text(t *testing.T) {
	b, err := PartiallyCompleted.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "partially_completed", string(b))
	assert.Equal(t, "not_started", NotStarted.String())
	assert.Equal(t, "completed", Completed.String())
}
