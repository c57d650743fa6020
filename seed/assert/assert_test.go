package assert

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

func mustItem(t *testing.T, value map[string]any) map[string]types.AttributeValue {
	t.Helper()
	item, err := attributevalue.MarshalMap(value)
	if err != nil {
		t.Fatalf("Failed to marshal item: %v", err)
	}
	return item
}

func TestItemsAssertions(t *testing.T) {
	items := []map[string]types.AttributeValue{
		mustItem(t, map[string]any{"id": "u1", "name": "Ada", "age": 36}),
		mustItem(t, map[string]any{"id": "u2", "name": "Grace"}),
	}

	Items(t, items).
		HasCount(2).
		IsNotEmpty().
		ContainsItem(map[string]any{"id": "u1", "name": "Ada"}).
		ContainsItem(map[string]any{"id": "u2"}).
		HasAttribute("name", "Grace")
}

func TestItemsEmpty(t *testing.T) {
	Items(t, nil).HasCount(0).IsEmpty()
}

func TestItemsContainsIgnoresExtraAttributes(t *testing.T) {
	items := []map[string]types.AttributeValue{
		mustItem(t, map[string]any{"id": "u1", "name": "Ada", "created_at": "2024-01-01"}),
	}

	// Matching on a subset must not require restating server-populated fields.
	Items(t, items).ContainsItem(map[string]any{"id": "u1"})
}

func TestItemAssertions(t *testing.T) {
	item := mustItem(t, map[string]any{"id": "u1", "name": "Ada", "age": 36})

	Item(t, item).
		HasKey("id", "u1").
		HasAttribute("name", "Ada").
		HasNumber("age", "36")
}

func TestTablesAssertions(t *testing.T) {
	names := []string{"orders", "users"}

	Tables(t, names).
		HasCount(2).
		Contains("users").
		Contains("orders").
		NotContains("payments")
}

func TestItemMatches(t *testing.T) {
	item := mustItem(t, map[string]any{"id": "u1", "name": "Ada"})
	want := mustItem(t, map[string]any{"id": "u1"})
	other := mustItem(t, map[string]any{"id": "u2"})

	if !itemMatches(item, want) {
		t.Error("expected subset match")
	}
	if itemMatches(item, other) {
		t.Error("expected mismatch on different value")
	}
}
