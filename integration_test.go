package ddblocal_test

import (
	"context"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nisimpson/ddblocal"
	"github.com/nisimpson/ddblocal/seed"
	"github.com/nisimpson/ddblocal/seed/assert"
)

// These tests run against a real DynamoDB Local process and are skipped
// unless DDB_LOCAL_DIST points at an unpacked distribution.

const integrationConfig = `
resources:
  Resources:
    UsersTable:
      Type: AWS::DynamoDB::Table
      Properties:
        TableName: users
        AttributeDefinitions:
          - AttributeName: id
            AttributeType: S
        KeySchema:
          - AttributeName: id
            KeyType: HASH
`

func parseIntegrationSpecs(t *testing.T) []seed.TableSpec {
	t.Helper()
	specs, err := seed.ParseServerlessConfig(strings.NewReader(integrationConfig))
	if err != nil {
		t.Fatalf("Failed to parse config: %v", err)
	}
	return specs
}

func TestIntegrationFixtureRoundTrip(t *testing.T) {
	ddblocal.WithTestServer(t, func(ctx context.Context, client *dynamodb.Client, ep ddblocal.Endpoint) {
		specs := parseIntegrationSpecs(t)

		db, err := seed.NewLocal(ep, seed.WithClient(client))
		if err != nil {
			t.Fatalf("Failed to build seed client: %v", err)
		}

		fixtures := seed.Fixtures{
			"users": {
				{"id": "u1", "name": "Ada", "age": 36},
				{"id": "u2", "name": "Grace", "age": 85},
			},
		}
		if err := db.FreshTables(ctx, specs, fixtures); err != nil {
			t.Fatalf("FreshTables failed: %v", err)
		}

		tables, err := db.ListTables(ctx)
		if err != nil {
			t.Fatalf("ListTables failed: %v", err)
		}
		assert.Tables(t, tables).Contains("users")

		items, err := db.TableItems(ctx, "users")
		if err != nil {
			t.Fatalf("TableItems failed: %v", err)
		}
		assert.Items(t, items).
			HasCount(2).
			ContainsItem(map[string]any{"id": "u1", "name": "Ada"}).
			ContainsItem(map[string]any{"id": "u2", "name": "Grace"})
	})
}

func TestIntegrationRefreshSchemaIsIdempotent(t *testing.T) {
	ddblocal.WithTestServer(t, func(ctx context.Context, client *dynamodb.Client, ep ddblocal.Endpoint) {
		specs := parseIntegrationSpecs(t)

		db, err := seed.NewLocal(ep, seed.WithClient(client))
		if err != nil {
			t.Fatalf("Failed to build seed client: %v", err)
		}

		if err := db.FreshTables(ctx, specs, seed.Fixtures{"users": {{"id": "u1"}}}); err != nil {
			t.Fatalf("FreshTables failed: %v", err)
		}
		// The second refresh recreates the table and drops the data.
		if err := db.RefreshSchema(ctx, specs); err != nil {
			t.Fatalf("second RefreshSchema failed: %v", err)
		}

		items, err := db.TableItems(ctx, "users")
		if err != nil {
			t.Fatalf("TableItems failed: %v", err)
		}
		assert.Items(t, items).IsEmpty()

		tables, err := db.ListTables(ctx)
		if err != nil {
			t.Fatalf("ListTables failed: %v", err)
		}
		assert.Tables(t, tables).Contains("users")
	})
}

func TestIntegrationTruncate(t *testing.T) {
	ddblocal.WithTestServer(t, func(ctx context.Context, client *dynamodb.Client, ep ddblocal.Endpoint) {
		specs := parseIntegrationSpecs(t)

		db, err := seed.NewLocal(ep, seed.WithClient(client))
		if err != nil {
			t.Fatalf("Failed to build seed client: %v", err)
		}

		fixtures := seed.Fixtures{"users": {{"id": "u1"}, {"id": "u2"}, {"id": "u3"}}}
		if err := db.FreshTables(ctx, specs, fixtures); err != nil {
			t.Fatalf("FreshTables failed: %v", err)
		}
		if err := db.Truncate(ctx, specs[0]); err != nil {
			t.Fatalf("Truncate failed: %v", err)
		}

		items, err := db.TableItems(ctx, "users")
		if err != nil {
			t.Fatalf("TableItems failed: %v", err)
		}
		assert.Items(t, items).IsEmpty()
	})
}
