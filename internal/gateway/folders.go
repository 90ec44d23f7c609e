package gateway

import (
	"bytes"
	"context"
	"fmt"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
)

// CreateFolder writes a zero-byte placeholder at prefix + "/".
func (g *Gateway) CreateFolder(ctx context.Context, creds filestore.Credentials, prefix string) error {
	ctx, cancel, c, err := g.begin(ctx, creds, "create_folder", prefix, "failed to create folder")
	defer cancel()
	if err != nil {
		return err
	}
	if prefix == "" || prefix == filestore.Delimiter {
		return c.invalid("folder prefix is required")
	}

	key := filestore.FolderKey(prefix)
	if err := c.client.PutObject(ctx, c.bucket, key, bytes.NewReader(nil), 0, filestore.PutOptions{}); err != nil {
		return c.fail(err)
	}
	return nil
}

// DeleteFolder removes every object under prefix + "/", including the
// placeholder. All keys are enumerated first, then removed in bulk batches.
//
// Failures after at least one key was removed yield a PartiallyCompleted
// Completion listing the keys still present and an ErrKindPartialFailure
// error.
func (g *Gateway) DeleteFolder(ctx context.Context, creds filestore.Credentials, prefix string) (Completion, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "delete_folder", prefix, "failed to delete folder")
	defer cancel()
	if err != nil {
		return Completion{State: NotStarted}, err
	}
	// An empty prefix would address the whole bucket.
	if prefix == "" || prefix == filestore.Delimiter {
		return Completion{State: NotStarted}, c.invalid("folder prefix is required")
	}
	prefix = filestore.FolderKey(prefix)

	var keys []string
	err = filestore.Walk(ctx, c.pager(prefix, "", filestore.MaxListKeys), func(page *filestore.ListPage) error {
		for _, obj := range page.Files {
			keys = append(keys, obj.Key)
		}
		return nil
	})
	if err != nil {
		return Completion{State: NotStarted}, c.fail(err)
	}

	done := Completion{State: Completed}
	var firstErr error
	for i := 0; i < len(keys); i += filestore.MaxDeleteBatch {
		batch := keys[i:min(i+filestore.MaxDeleteBatch, len(keys))]

		failures, err := c.client.DeleteObjects(ctx, c.bucket, batch)
		if err != nil {
			// The batch outcome is unknown; report it and everything after it.
			done.Leftover = append(done.Leftover, keys[i:]...)
			firstErr = err
			break
		}
		for _, f := range failures {
			done.Leftover = append(done.Leftover, f.Key)
			if firstErr == nil {
				kind, _ := filestore.KindForCode(f.Code)
				firstErr = errs.New(kind, fmt.Sprintf("%s: %s: %s", f.Key, f.Code, f.Message))
			}
		}
		done.Processed += len(batch) - len(failures)
	}

	if len(done.Leftover) == 0 {
		c.log.Debugf("deleted %d objects", done.Processed)
		return done, nil
	}
	if done.Processed == 0 {
		done.State = NotStarted
		return done, c.fail(firstErr)
	}
	done.State = PartiallyCompleted
	msg := fmt.Sprintf("deleted %d of %d objects", done.Processed, len(keys))
	return done, c.fail(errs.Wrap(errs.ErrKindPartialFailure, msg, firstErr))
}

// ListFolders returns the common prefixes directly under prefix, from the
// first listing page only.
func (g *Gateway) ListFolders(ctx context.Context, creds filestore.Credentials, prefix string) ([]filestore.FolderRecord, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "list_folders", prefix, "failed to list folders")
	defer cancel()
	if err != nil {
		return nil, err
	}

	page, err := c.client.ListObjects(ctx, c.bucket, filestore.ListInput{
		Prefix:    prefix,
		Delimiter: filestore.Delimiter,
	})
	if err != nil {
		return nil, c.fail(err)
	}
	return page.Folders, nil
}
