package gateway

import (
	"fmt"

	"github.com/koustreak/bucketgate/internal/filestore"
	"github.com/koustreak/bucketgate/internal/filestore/memory"
	"github.com/koustreak/bucketgate/internal/filestore/minio"
	"github.com/koustreak/bucketgate/internal/filestore/s3"
)

// NewFactory returns the client factory for provider. The memory provider
// gets a fresh, empty backend holding the defaults' bucket.
func NewFactory(provider filestore.Provider, defaults filestore.Credentials) (filestore.Factory, error) {
	switch provider {
	case filestore.ProviderS3:
		return s3.NewFactory(s3.Options{}), nil
	case filestore.ProviderMinIO:
		return minio.NewFactory(minio.Options{PathStyle: true}), nil
	case filestore.ProviderMemory:
		backend := memory.NewBackend()
		if defaults.BucketName != "" {
			backend.CreateBucket(defaults.BucketName)
		}
		return backend.Factory(), nil
	default:
		return nil, fmt.Errorf("unsupported storage provider %q", provider)
	}
}
