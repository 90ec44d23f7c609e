//go:build integration
// +build integration

package gateway

import (
	"context"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/filestore/minio"
	"github.com/koustreak/bucketgate/internal/filestore/s3"
	"github.com/koustreak/bucketgate/internal/testutil"
)

func TestIntegration_Drivers(t *testing.T) {
	ls := testutil.StartLocalStack(t, "bucketgate-it")
	creds := ls.Credentials()

	drivers := map[string]filestore.Factory{
		"s3":    s3.NewFactory(s3.Options{}),
		"minio": minio.NewFactory(minio.Options{PathStyle: true}),
	}
	for name, factory := range drivers {
		t.Run(name, func(t *testing.T) {
			gw, err := New(Options{Factory: factory, Defaults: creds})
			require.NoError(t, err)
			ctx := context.Background()
			root := name + "/"

			res, err := gw.TestConnectivity(ctx, filestore.Credentials{})
			require.NoError(t, err)
			require.True(t, res.IsAuthorized, res.Error)
			assert.True(t, res.BucketExists)

			src := writeTemp(t, "hello.txt", []byte("hello, bucket"))
			_, err = gw.UploadObject(ctx, creds, src, root+"docs/hello.txt", UploadOptions{ContentType: "text/plain"})
			require.NoError(t, err)

			ok, err := gw.ObjectExists(ctx, creds, root+"docs/hello.txt")
			require.NoError(t, err)
			assert.True(t, ok)

			meta, err := gw.GetObjectMetadata(ctx, creds, root+"docs/hello.txt")
			require.NoError(t, err)
			assert.Equal(t, "text/plain", meta.ContentType)
			assert.Equal(t, int64(13), meta.ContentLength)

			text, err := gw.GetObjectByteRange(ctx, creds, root+"docs/hello.txt", 7, 12)
			require.NoError(t, err)
			assert.Equal(t, "bucket", text)

			stream, err := gw.StreamObject(ctx, creds, root+"docs/hello.txt")
			require.NoError(t, err)
			body, err := io.ReadAll(stream.Body)
			require.NoError(t, stream.Body.Close())
			require.NoError(t, err)
			assert.Equal(t, "hello, bucket", string(body))

			done, err := gw.RenameObject(ctx, creds, root+"docs/hello.txt", root+"docs/renamed 1.txt")
			require.NoError(t, err)
			assert.Equal(t, Completed, done.State)

			require.NoError(t, gw.CreateFolder(ctx, creds, root+"bulk"))
			for i := 0; i < 120; i++ {
				_, err := gw.UploadObject(ctx, creds, src, fmt.Sprintf("%sbulk/%03d.txt", root, i), UploadOptions{})
				require.NoError(t, err)
			}

			folders, err := gw.ListFolders(ctx, creds, root)
			require.NoError(t, err)
			assert.ElementsMatch(t, []filestore.FolderRecord{{Prefix: root + "bulk/"}, {Prefix: root + "docs/"}}, folders)

			page, err := gw.ListObjects(ctx, creds, filestore.ListOptions{Prefix: root + "bulk/", MaxKeys: 50})
			require.NoError(t, err)
			assert.Len(t, page.Files, 50)
			assert.True(t, page.IsTruncated)

			u, err := gw.GetDownloadURL(ctx, creds, root+"docs/renamed 1.txt", PresignOptions{})
			require.NoError(t, err)
			assert.Contains(t, u, "X-Amz-Signature=")

			done, err = gw.DeleteFolder(ctx, creds, root+"bulk")
			require.NoError(t, err)
			assert.Equal(t, Completion{State: Completed, Processed: 121}, done)

			page, err = gw.ListObjects(ctx, creds, filestore.ListOptions{Prefix: root + "bulk/"})
			require.NoError(t, err)
			assert.Empty(t, page.Files)

			require.NoError(t, gw.DeleteObject(ctx, creds, root+"docs/renamed 1.txt"))
			ok, err = gw.ObjectExists(ctx, creds, root+"docs/renamed 1.txt")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}
