package filestore

import (
	"fmt"

	"github.com/koustreak/bucketgate/internal/errs"
)

// Credentials is the tuple every gateway call is authenticated with.
// It is a value type: copies are cheap and nothing in this package mutates one.
type Credentials struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"accessKeyId" yaml:"accessKeyId"`
	SecretAccessKey string `json:"secretAccessKey" yaml:"secretAccessKey"`
	BucketName      string `json:"bucketName" yaml:"bucketName"`

	// Endpoint selects an S3-compatible store other than AWS.
	// Either "host:port" (TLS assumed) or a full "http(s)://host:port" URL.
	Endpoint string `json:"endpoint,omitempty" yaml:"endpoint"`
}

// MissingCredentialError names the first empty required field.
type MissingCredentialError struct {
	Field string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("missing S3 credential: %s", e.Field)
}

// Validate checks the required fields in a fixed order (region, accessKeyId,
// secretAccessKey, bucketName) so the reported field is deterministic.
func (c Credentials) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"region", c.Region},
		{"accessKeyId", c.AccessKeyID},
		{"secretAccessKey", c.SecretAccessKey},
		{"bucketName", c.BucketName},
	}
	for _, f := range required {
		if f.value == "" {
			missing := &MissingCredentialError{Field: f.name}
			return errs.Wrap(errs.ErrKindInvalidInput, "invalid credentials", missing)
		}
	}
	return nil
}

// String never prints the secret.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials{region=%s accessKeyId=%s bucket=%s endpoint=%s}",
		c.Region, c.AccessKeyID, c.BucketName, c.Endpoint)
}

// MergeCredentials overlays the non-empty fields of explicit onto defaults.
// Explicit fields always win; both inputs are left untouched.
func MergeCredentials(defaults, explicit Credentials) Credentials {
	merged := defaults
	if explicit.Region != "" {
		merged.Region = explicit.Region
	}
	if explicit.AccessKeyID != "" {
		merged.AccessKeyID = explicit.AccessKeyID
	}
	if explicit.SecretAccessKey != "" {
		merged.SecretAccessKey = explicit.SecretAccessKey
	}
	if explicit.BucketName != "" {
		merged.BucketName = explicit.BucketName
	}
	if explicit.Endpoint != "" {
		merged.Endpoint = explicit.Endpoint
	}
	return merged
}
