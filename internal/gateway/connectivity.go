package gateway

import (
	"context"

	"github.com/koustreak/bucketgate/internal/errs"
	"github.com/koustreak/bucketgate/internal/filestore"
)

// AccessDenied is the ConnectivityResult error for rejected credentials.
const AccessDenied = "Access denied"

// TestConnectivity lists every bucket the credentials can see.
//
// Provider failures are reported in the result rather than as an error:
// an access-denied answer sets Error to AccessDenied, anything else carries
// the provider's message. Only invalid credentials return an error.
func (g *Gateway) TestConnectivity(ctx context.Context, creds filestore.Credentials) (*filestore.ConnectivityResult, error) {
	ctx, cancel, c, err := g.begin(ctx, creds, "test_connection", "", "failed to test connection")
	defer cancel()
	if err != nil {
		return nil, err
	}

	buckets, err := c.client.ListBuckets(ctx)
	if err != nil {
		result := &filestore.ConnectivityResult{Buckets: []string{}}
		if errs.IsPermissionDenied(err) {
			result.Error = AccessDenied
		} else {
			result.Error = errs.RootMessage(err)
		}
		c.log.WarnWith("connection test failed", err, nil)
		return result, nil
	}

	result := &filestore.ConnectivityResult{
		IsAuthorized: true,
		Buckets:      make([]string, 0, len(buckets)),
	}
	for _, b := range buckets {
		result.Buckets = append(result.Buckets, b.Name)
		if b.Name == c.bucket {
			result.BucketExists = true
		}
	}
	return result, nil
}
