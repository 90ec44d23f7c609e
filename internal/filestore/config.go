package filestore

import (
	"fmt"
	"strings"
)

// Provider identifies the storage client implementation.
type Provider string

const (
	ProviderS3     Provider = "s3"
	ProviderMinIO  Provider = "minio"
	ProviderMemory Provider = "memory"
)

// ParseProvider maps a config string to a Provider. Empty means ProviderS3.
func ParseProvider(s string) (Provider, error) {
	switch p := Provider(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return ProviderS3, nil
	case ProviderS3, ProviderMinIO, ProviderMemory:
		return p, nil
	default:
		return "", fmt.Errorf("unknown storage provider %q", s)
	}
}
