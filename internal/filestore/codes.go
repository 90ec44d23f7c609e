package filestore

import "github.com/koustreak/bucketgate/internal/errs"

var codeKinds = map[string]errs.ErrKind{
	"NoSuchBucket": errs.ErrKindNotFound,
	"NoSuchKey":    errs.ErrKindNotFound,
	"NoSuchUpload": errs.ErrKindNotFound,
	"NotFound":     errs.ErrKindNotFound,

	"AccessDenied":          errs.ErrKindPermissionDenied,
	"Forbidden":             errs.ErrKindPermissionDenied,
	"InvalidAccessKeyId":    errs.ErrKindPermissionDenied,
	"SignatureDoesNotMatch": errs.ErrKindPermissionDenied,
	"AllAccessDisabled":     errs.ErrKindPermissionDenied,

	"InvalidBucketName": errs.ErrKindInvalidInput,
	"InvalidObjectName": errs.ErrKindInvalidInput,
	"KeyTooLongError":   errs.ErrKindInvalidInput,
	"InvalidRange":      errs.ErrKindInvalidInput,
	"InvalidArgument":   errs.ErrKindInvalidInput,
	"MalformedXML":      errs.ErrKindInvalidInput,

	"RequestTimeout": errs.ErrKindTimeout,
	"SlowDown":       errs.ErrKindTimeout,
}

// KindForCode maps an S3 protocol error code to an error kind. Drivers use
// it for request errors; the gateway uses it for per-key bulk delete
// failures. ok is false for codes with no specific kind.
func KindForCode(code string) (kind errs.ErrKind, ok bool) {
	kind, ok = codeKinds[code]
	if !ok {
		return errs.ErrKindOperationFailed, false
	}
	return kind, true
}
