package minio

import (
	"context"
	"errors"
	"net/http"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
	miniogo "github.com/minio/minio-go/v7"
)

// mapError translates a MinIO SDK error into a *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	// Context cancellation / deadline
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	// MinIO SDK exposes a typed ErrorResponse for S3-protocol errors.
	// Codes are checked first: HEAD responses carry no body, so their
	// code is synthesised from the status.
	var resp miniogo.ErrorResponse
	if errors.As(err, &resp) {
		if kind, ok := filestore.KindForCode(resp.Code); ok {
			return errs.Wrap(kind, msg, err)
		}

		switch resp.StatusCode {
		case http.StatusNotFound:
			return errs.Wrap(errs.ErrKindNotFound, msg, err)
		case http.StatusForbidden, http.StatusUnauthorized:
			return errs.Wrap(errs.ErrKindPermissionDenied, msg, err)
		case http.StatusBadRequest, http.StatusRequestedRangeNotSatisfiable:
			return errs.Wrap(errs.ErrKindInvalidInput, msg, err)
		}
		if resp.StatusCode != 0 {
			return errs.Wrap(errs.ErrKindOperationFailed, msg, err)
		}
	}

	// Anything else is treated as a connection or I/O failure.
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
