package ddblocal

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

// WithTestServer runs fn against a freshly started DynamoDB Local instance
// and guarantees the process is stopped when the test finishes. The server
// is configured from the environment; tests are skipped in short mode and
// when DDB_LOCAL_DIST is not set, so suites stay green on machines without
// the distribution installed.
func WithTestServer(t *testing.T, fn func(ctx context.Context, client *dynamodb.Client, ep Endpoint)) {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping dynamodb local test in short mode")
	}

	srv, err := FromEnv()
	if err != nil {
		t.Skipf("DynamoDB Local not configured: %v", err)
	}

	ctx := context.Background()
	ep, err := srv.Start(ctx)
	if err != nil {
		t.Fatalf("Failed to start dynamodb local: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Stop(context.Background()); err != nil {
			t.Errorf("Failed to stop dynamodb local: %v", err)
		}
	})

	fn(ctx, NewClient(ep), ep)
}

// NewTestTable generates a unique table name for testing.
func NewTestTable(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, time.Now().UnixNano())
}
