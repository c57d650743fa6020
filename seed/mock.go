package seed

import (
	"context"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
)

type DynamoDBAPICall[T, U any] = func(context.Context, *T, ...func(*dynamodb.Options)) (*U, error)

// DynamoDBAPI defines the DynamoDB operations required by the seed package.
type DynamoDBAPI interface {
	CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error)
	DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error)
	DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error)
	ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
	Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error)
}

// Ensure the real client satisfies the interface
var _ DynamoDBAPI = (*dynamodb.Client)(nil)

// MockClient is a simple expectation-based mock for the seed operations.
// Users set the functions for the calls they expect; everything else fails
// the test.
type MockClient struct {
	CreateTableFunc    DynamoDBAPICall[dynamodb.CreateTableInput, dynamodb.CreateTableOutput]
	DeleteTableFunc    DynamoDBAPICall[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput]
	DescribeTableFunc  DynamoDBAPICall[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput]
	ListTablesFunc     DynamoDBAPICall[dynamodb.ListTablesInput, dynamodb.ListTablesOutput]
	BatchWriteItemFunc DynamoDBAPICall[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput]
	ScanFunc           DynamoDBAPICall[dynamodb.ScanInput, dynamodb.ScanOutput]
}

// Ensure MockClient implements DynamoDBAPI
var _ DynamoDBAPI = (*MockClient)(nil)

// NewMockClient creates a mock whose every operation fails the test until
// an expectation replaces it.
func NewMockClient(t *testing.T) *MockClient {
	return &MockClient{
		CreateTableFunc:    defaultFunc[dynamodb.CreateTableInput, dynamodb.CreateTableOutput](t),
		DeleteTableFunc:    defaultFunc[dynamodb.DeleteTableInput, dynamodb.DeleteTableOutput](t),
		DescribeTableFunc:  defaultFunc[dynamodb.DescribeTableInput, dynamodb.DescribeTableOutput](t),
		ListTablesFunc:     defaultFunc[dynamodb.ListTablesInput, dynamodb.ListTablesOutput](t),
		BatchWriteItemFunc: defaultFunc[dynamodb.BatchWriteItemInput, dynamodb.BatchWriteItemOutput](t),
		ScanFunc:           defaultFunc[dynamodb.ScanInput, dynamodb.ScanOutput](t),
	}
}

func defaultFunc[T, U any](t *testing.T) DynamoDBAPICall[T, U] {
	return func(ctx context.Context, params *T, optFns ...func(*dynamodb.Options)) (*U, error) {
		t.Fatal("unexpected call")
		return nil, nil
	}
}

// CreateTable creates a table in the mock.
func (m *MockClient) CreateTable(ctx context.Context, params *dynamodb.CreateTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.CreateTableOutput, error) {
	return m.CreateTableFunc(ctx, params, optFns...)
}

// DeleteTable removes a table from the mock.
func (m *MockClient) DeleteTable(ctx context.Context, params *dynamodb.DeleteTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteTableOutput, error) {
	return m.DeleteTableFunc(ctx, params, optFns...)
}

// DescribeTable reports a table's status.
func (m *MockClient) DescribeTable(ctx context.Context, params *dynamodb.DescribeTableInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DescribeTableOutput, error) {
	return m.DescribeTableFunc(ctx, params, optFns...)
}

// ListTables lists table names.
func (m *MockClient) ListTables(ctx context.Context, params *dynamodb.ListTablesInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ListTablesOutput, error) {
	return m.ListTablesFunc(ctx, params, optFns...)
}

// BatchWriteItem processes batch write operations.
func (m *MockClient) BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error) {
	return m.BatchWriteItemFunc(ctx, params, optFns...)
}

// Scan performs a scan operation.
func (m *MockClient) Scan(ctx context.Context, params *dynamodb.ScanInput, optFns ...func(*dynamodb.Options)) (*dynamodb.ScanOutput, error) {
	return m.ScanFunc(ctx, params, optFns...)
}
