//go:build integration

package s3_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/marmos91/filebrowse/pkg/config"
	"github.com/marmos91/filebrowse/pkg/upload"
)

func localstackEndpoint() string {
	if endpoint := os.Getenv("LOCALSTACK_ENDPOINT"); endpoint != "" {
		return endpoint
	}
	return "http://localhost:4566"
}

// setupTestS3 creates an S3 client and test bucket for integration tests.
//
// It connects to Localstack (or another S3-compatible endpoint) and returns
// a cleanup function deleting every object and the bucket.
func setupTestS3(t *testing.T, bucketName string) (*s3.Client, func()) {
	t.Helper()
	ctx := context.Background()

	cfg, err := awsConfig.LoadDefaultConfig(ctx,
		awsConfig.WithRegion("us-east-1"),
		awsConfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider("test", "test", "")),
	)
	if err != nil {
		t.Fatalf("Failed to load AWS config: %v", err)
	}

	// Path-style URLs are required for Localstack
	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(localstackEndpoint())
		o.UsePathStyle = true
	})

	if _, err := client.CreateBucket(ctx, &s3.CreateBucketInput{Bucket: aws.String(bucketName)}); err != nil {
		t.Fatalf("Failed to create test bucket: %v", err)
	}

	cleanup := func() {
		listResp, _ := client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{Bucket: aws.String(bucketName)})
		if listResp != nil {
			for _, obj := range listResp.Contents {
				_, _ = client.DeleteObject(ctx, &s3.DeleteObjectInput{Bucket: aws.String(bucketName), Key: obj.Key})
			}
		}
		_, _ = client.DeleteBucket(ctx, &s3.DeleteBucketInput{Bucket: aws.String(bucketName)})
	}
	return client, cleanup
}

// TestS3Mirror_Integration uploads a batch with an S3 mirror configured the
// way the server configures it and checks the mirrored objects.
//
// Prerequisites:
//   - Localstack running on localhost:4566
//   - Run with: go test -tags=integration ./test/integration/s3/...
//
// To start Localstack:
//
//	docker run --rm -p 4566:4566 localstack/localstack
func TestS3Mirror_Integration(t *testing.T) {
	ctx := context.Background()

	bucketName := "filebrowse-test-bucket"
	client, cleanup := setupTestS3(t, bucketName)
	defer cleanup()

	mirror, err := config.CreateMirror(ctx, &config.MirrorConfig{
		Type: "s3",
		S3: map[string]any{
			"bucket":            bucketName,
			"region":            "us-east-1",
			"endpoint":          localstackEndpoint(),
			"access_key_id":     "test",
			"secret_access_key": "test",
			"key_prefix":        "uploads/",
		},
	})
	if err != nil {
		t.Fatalf("Failed to create mirror: %v", err)
	}

	dir := filepath.Join(t.TempDir(), "out")
	if err := os.Mkdir(dir, 0755); err != nil {
		t.Fatalf("Failed to create target dir: %v", err)
	}

	writer := upload.NewWriter(mirror)
	result := writer.WriteBatch(ctx, upload.Target{Site: "reports", Dir: dir, RemotePath: "/out/"}, []upload.File{
		{Name: "a.xml", Type: "text", Content: "<a/>"},
		{Name: "b.bin", Type: "binary", Content: "ignored"},
	})
	if !result.HasErrors || result.Files[0].HasError || !result.Files[1].HasError {
		t.Fatalf("Unexpected batch result: %+v", result)
	}

	obj, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String("uploads/reports/out/a.xml"),
	})
	if err != nil {
		t.Fatalf("Mirrored object not found: %v", err)
	}
	defer obj.Body.Close()

	data, err := io.ReadAll(obj.Body)
	if err != nil {
		t.Fatalf("Failed to read mirrored object: %v", err)
	}
	if string(data) != "<a/>" {
		t.Errorf("Expected mirrored content <a/>, got %q", data)
	}

	if _, err := client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucketName),
		Key:    aws.String("uploads/reports/out/b.bin"),
	}); err == nil {
		t.Errorf("Rejected file must not be mirrored")
	}
}
