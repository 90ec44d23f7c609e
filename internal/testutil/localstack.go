// Package testutil starts a LocalStack container for integration tests.
package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/localstack"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/koustreak/bucketgate/internal/filestore"
)

const (
	localstackImage = "localstack/localstack:latest"
	region          = "us-east-1"
)

// LocalStack is a running container with one bucket created in it.
type LocalStack struct {
	container *localstack.LocalStackContainer
	creds     filestore.Credentials
}

// StartLocalStack starts a container, creates bucket and registers cleanup
// with t. It skips the test in -short mode.
func StartLocalStack(t *testing.T, bucket string) *LocalStack {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := localstack.Run(ctx,
		localstackImage,
		testcontainers.WithWaitStrategy(
			wait.ForHTTP("/_localstack/health").
				WithPort("4566").
				WithStartupTimeout(2*time.Minute),
		),
	)
	if err != nil {
		t.Fatalf("failed to start LocalStack container: %v", err)
	}
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate LocalStack container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("failed to get container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "4566")
	if err != nil {
		t.Fatalf("failed to get container port: %v", err)
	}

	ls := &LocalStack{
		container: container,
		creds: filestore.Credentials{
			Region:          region,
			AccessKeyID:     "test",
			SecretAccessKey: "test",
			BucketName:      bucket,
			Endpoint:        fmt.Sprintf("http://%s:%s", host, port.Port()),
		},
	}
	if err := ls.createBucket(ctx, bucket); err != nil {
		t.Fatalf("failed to create bucket %s: %v", bucket, err)
	}
	return ls
}

// Credentials returns a tuple addressing the container's bucket.
func (l *LocalStack) Credentials() filestore.Credentials {
	return l.creds
}

func (l *LocalStack) createBucket(ctx context.Context, bucket string) error {
	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(l.creds.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(l.creds.AccessKeyID, l.creds.SecretAccessKey, ""),
		),
	)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.UsePathStyle = true
		o.BaseEndpoint = aws.String(l.creds.Endpoint)
	})
	_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucket)})
	return err
}
