package seed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/nisimpson/ddblocal"
)

func local8000() ddblocal.Endpoint {
	return ddblocal.Endpoint{Host: "localhost", Port: 8000}
}

var immediateBackoff ddblocal.BackoffFunc = func(int) time.Duration { return time.Millisecond }

func TestNewLocalRejectsRemoteEndpoints(t *testing.T) {
	remotes := []string{"dynamodb.us-east-1.amazonaws.com", "10.0.0.5", "db.internal"}
	for _, host := range remotes {
		t.Run(host, func(t *testing.T) {
			_, err := NewLocal(ddblocal.Endpoint{Host: host, Port: 8000})
			if !errors.Is(err, ErrRemoteEndpoint) {
				t.Errorf("expected ErrRemoteEndpoint for %s, got %v", host, err)
			}
		})
	}
}

func TestNewLocalAcceptsLoopback(t *testing.T) {
	for _, host := range []string{"localhost", "127.0.0.1", "::1"} {
		t.Run(host, func(t *testing.T) {
			local, err := NewLocal(ddblocal.Endpoint{Host: host, Port: 8000})
			if err != nil {
				t.Fatalf("NewLocal failed for %s: %v", host, err)
			}
			if local.api == nil {
				t.Error("expected a default client")
			}
		})
	}
}

func TestListTablesFollowsPagination(t *testing.T) {
	mock := NewMockClient(t)
	page := 0
	mock.ListTablesFunc = func(ctx context.Context, in *dynamodb.ListTablesInput, _ ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
		page++
		if page == 1 {
			return &dynamodb.ListTablesOutput{
				TableNames:             []string{"orders"},
				LastEvaluatedTableName: aws.String("orders"),
			}, nil
		}
		if in.ExclusiveStartTableName == nil || *in.ExclusiveStartTableName != "orders" {
			t.Error("expected the second page to resume from the last table")
		}
		return &dynamodb.ListTablesOutput{TableNames: []string{"users"}}, nil
	}

	local := newMockLocal(t, mock)
	names, err := local.ListTables(context.Background())
	if err != nil {
		t.Fatalf("ListTables failed: %v", err)
	}
	if len(names) != 2 || names[0] != "orders" || names[1] != "users" {
		t.Errorf("ListTables() = %v, want [orders users]", names)
	}
}

func TestTableItemsFollowsPagination(t *testing.T) {
	mock := NewMockClient(t)
	lastKey := map[string]types.AttributeValue{"id": &types.AttributeValueMemberS{Value: "u1"}}
	page := 0
	mock.ScanFunc = func(ctx context.Context, in *dynamodb.ScanInput, _ ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
		page++
		if page == 1 {
			return &dynamodb.ScanOutput{
				Items:            []map[string]types.AttributeValue{lastKey},
				LastEvaluatedKey: lastKey,
			}, nil
		}
		return &dynamodb.ScanOutput{
			Items: []map[string]types.AttributeValue{
				{"id": &types.AttributeValueMemberS{Value: "u2"}},
			},
		}, nil
	}

	local := newMockLocal(t, mock)
	items, err := local.TableItems(context.Background(), "users")
	if err != nil {
		t.Fatalf("TableItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Errorf("expected 2 items across pages, got %d", len(items))
	}
}

func TestFreshTables(t *testing.T) {
	mock, tables := fakeTables(t)

	written := 0
	mock.BatchWriteItemFunc = func(ctx context.Context, in *dynamodb.BatchWriteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
		for _, reqs := range in.RequestItems {
			written += len(reqs)
		}
		return &dynamodb.BatchWriteItemOutput{}, nil
	}

	local := newMockLocal(t, mock)
	err := local.FreshTables(context.Background(), []TableSpec{userSpec}, Fixtures{
		"users": {{"id": "u1"}, {"id": "u2"}},
	})
	if err != nil {
		t.Fatalf("FreshTables failed: %v", err)
	}
	if !tables["users"] {
		t.Error("expected users table to exist")
	}
	if written != 2 {
		t.Errorf("expected 2 fixture writes, got %d", written)
	}
}
