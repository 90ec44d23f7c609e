// Package gateway is the file-operation facade over an object store.
//
// Every call merges the caller's credentials over the configured defaults,
// validates the result, builds a fresh client through the Factory and runs
// the operation under a per-call timeout. Nothing is cached between calls,
// so rotated credentials take effect immediately.
//
// Usage:
//
//	gw, err := gateway.New(gateway.Options{
//	    Factory:  minio.NewFactory(minio.Options{}),
//	    Defaults: houseCreds,
//	    Logger:   log,
//	})
//	url, err := gw.UploadObject(ctx, filestore.Credentials{}, "/tmp/a.png", "img/a.png", gateway.UploadOptions{})
package gateway

import (
	"context"
	"errors"
	"time"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/logger"
)

const (
	// DefaultTimeout bounds one gateway call when Options.Timeout is zero.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxKeys is the page size of ListObjects when none is given.
	DefaultMaxKeys = 100

	// DefaultPresignExpiry is the lifetime of presigned URLs when none is given.
	DefaultPresignExpiry = time.Hour

	// MaxPresignExpiry is the longest lifetime SigV4 allows.
	MaxPresignExpiry = 7 * 24 * time.Hour

	// DefaultACL is applied to uploads that name none.
	DefaultACL = "private"
)

// Options configures a Gateway.
type Options struct {
	// Factory builds a client per call. Required.
	Factory filestore.Factory

	// Defaults is merged under the credentials passed to every call.
	Defaults filestore.Credentials

	// Timeout bounds each call. Zero means DefaultTimeout.
	Timeout time.Duration

	// Logger receives per-operation logs. Nil means logger.Nop().
	Logger *logger.Logger
}

// Gateway is stateless apart from its configuration and is safe for
// concurrent use.
type Gateway struct {
	factory  filestore.Factory
	defaults filestore.Credentials
	timeout  time.Duration
	log      *logger.Logger
}

// New returns a Gateway. It fails only when no Factory is given.
func New(opts Options) (*Gateway, error) {
	if opts.Factory == nil {
		return nil, errors.New("gateway: Factory is required")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	return &Gateway{
		factory:  opts.Factory,
		defaults: opts.Defaults,
		timeout:  timeout,
		log:      log,
	}, nil
}

// call is one validated, connected gateway invocation.
type call struct {
	client filestore.Client
	creds  filestore.Credentials
	bucket string
	log    *logger.Logger
	failed string
}

// begin merges and validates creds, bounds ctx by the gateway timeout and
// builds a client. failed is the message used to annotate every error the
// operation returns. The returned cancel func must always be called.
func (g *Gateway) begin(ctx context.Context, creds filestore.Credentials, op, key, failed string) (context.Context, context.CancelFunc, *call, error) {
	merged := filestore.MergeCredentials(g.defaults, creds)
	ctx, cancel := context.WithTimeout(ctx, g.timeout)

	c := &call{
		creds:  merged,
		bucket: merged.BucketName,
		failed: failed,
		log: g.log.With().
			Str("op", op).
			Str("bucket", merged.BucketName).
			Str("key", key).
			Logger(),
	}

	if err := merged.Validate(); err != nil {
		return ctx, cancel, c, c.fail(err)
	}

	client, err := g.factory(ctx, merged)
	if err != nil {
		return ctx, cancel, c, c.fail(err)
	}
	c.client = client
	c.log.Debug("storage call")
	return ctx, cancel, c, nil
}

// fail logs err and returns it annotated with the operation message.
func (c *call) fail(err error) error {
	annotated := errs.Annotate(err, c.failed)
	c.log.ErrorWith("storage call failed", err, map[string]interface{}{
		"kind": annotated.Kind.String(),
	})
	return annotated
}

// invalid rejects caller arguments before any remote call.
func (c *call) invalid(msg string) error {
	return c.fail(errs.New(errs.ErrKindInvalidInput, msg))
}

// CompletionState describes how far a multi-step operation got.
type CompletionState int

const (
	// NotStarted means the bucket was left untouched.
	NotStarted CompletionState = iota
	// Completed means every step succeeded.
	Completed
	// PartiallyCompleted means some steps took effect and some did not.
	PartiallyCompleted
)

func (s CompletionState) String() string {
	switch s {
	case Completed:
		return "completed"
	case PartiallyCompleted:
		return "partially_completed"
	default:
		return "not_started"
	}
}

// MarshalText renders the state as its string form in JSON.
func (s CompletionState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Completion is the outcome of a non-atomic operation (rename, folder delete).
// Leftover lists the keys still present that the operation meant to remove.
type Completion struct {
	State     CompletionState `json:"state"`
	Processed int             `json:"processed"`
	Leftover  []string        `json:"leftover,omitempty"`
}
