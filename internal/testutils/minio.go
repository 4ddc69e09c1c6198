//go:build integration

package testutils

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gocloud.dev/blob"
	_ "gocloud.dev/blob/s3blob"
)

const (
	minioUser     = "minioadmin"
	minioPassword = "minioadmin"
)

// Minio is a throwaway S3-compatible server holding a single bucket.
type Minio struct {
	Bucket   string
	Endpoint string
}

// BucketURL returns the gocloud URL of the test bucket.
func (m *Minio) BucketURL() string {
	q := url.Values{}
	q.Set("endpoint", "http://"+m.Endpoint)
	q.Set("use_path_style", "true")
	q.Set("disable_https", "true")
	q.Set("region", "us-east-1")
	return fmt.Sprintf("s3://%s?%s", m.Bucket, q.Encode())
}

// OpenBucket opens the test bucket and closes it when the test ends.
func (m *Minio) OpenBucket(t *testing.T) *blob.Bucket {
	t.Helper()
	b, err := blob.OpenBucket(context.Background(), m.BucketURL())
	if err != nil {
		t.Fatalf("open minio bucket: %v", err)
	}
	t.Cleanup(func() { b.Close() })
	return b
}

// StartMinio runs a Minio container with bucket pre-created. Containers are
// terminated through t.Cleanup and AWS credentials are exported for gocloud.
func StartMinio(t *testing.T, bucket string) *Minio {
	t.Helper()
	ctx := context.Background()

	netName := fmt.Sprintf("wayback-minio-%d", time.Now().UnixNano())
	network, err := testcontainers.GenericNetwork(ctx, testcontainers.GenericNetworkRequest{
		NetworkRequest: testcontainers.NetworkRequest{Name: netName},
	})
	if err != nil {
		t.Fatalf("create network: %v", err)
	}
	t.Cleanup(func() { network.Remove(ctx) })

	server, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:          "minio/minio:latest",
			ExposedPorts:   []string{"9000/tcp"},
			Networks:       []string{netName},
			NetworkAliases: map[string][]string{netName: {"minio"}},
			Env: map[string]string{
				"MINIO_ROOT_USER":     minioUser,
				"MINIO_ROOT_PASSWORD": minioPassword,
			},
			Cmd:        []string{"server", "/data"},
			WaitingFor: wait.ForHTTP("/minio/health/ready").WithPort("9000"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start minio: %v", err)
	}
	t.Cleanup(func() { server.Terminate(ctx) })

	makeBucket(t, ctx, netName, bucket)

	host, err := server.Host(ctx)
	if err != nil {
		t.Fatalf("minio host: %v", err)
	}
	port, err := server.MappedPort(ctx, "9000")
	if err != nil {
		t.Fatalf("minio port: %v", err)
	}

	t.Setenv("AWS_ACCESS_KEY_ID", minioUser)
	t.Setenv("AWS_SECRET_ACCESS_KEY", minioPassword)

	return &Minio{Bucket: bucket, Endpoint: host + ":" + port.Port()}
}

// makeBucket runs the mc client once to create bucket on the server alias.
func makeBucket(t *testing.T, ctx context.Context, netName, bucket string) {
	t.Helper()

	script := fmt.Sprintf(
		"/usr/bin/mc alias set local http://minio:9000 %s %s && /usr/bin/mc mb local/%s; exit 0",
		minioUser, minioPassword, bucket,
	)
	mc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:      "minio/mc:latest",
			Networks:   []string{netName},
			Entrypoint: []string{"/bin/sh", "-c"},
			Cmd:        []string{script},
			WaitingFor: wait.ForExit(),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start mc: %v", err)
	}
	defer mc.Terminate(ctx)
}
