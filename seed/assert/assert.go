// Package assert provides fluent assertion utilities for testing DynamoDB
// state seeded by fixtures. It makes tests more readable by providing
// expressive assertion methods over scanned items and table listings.
//
// # Usage
//
//	import "github.com/nisimpson/ddblocal/seed/assert"
//
//	// Assert on scanned items
//	assert.Items(t, items).
//		HasCount(2).
//		ContainsItem(map[string]any{"id": "u1", "name": "Ada"})
//
//	// Assert on a single item
//	assert.Item(t, item).
//		HasKey("id", "u1").
//		HasNumber("age", "36")
//
//	// Assert on table listings
//	assert.Tables(t, names).Contains("users")
package assert

import (
	"reflect"
	"testing"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// ItemsAssertion provides fluent assertions for a collection of items.
type ItemsAssertion struct {
	t     *testing.T
	items []map[string]types.AttributeValue
}

// Items creates a new ItemsAssertion for the given items.
func Items(t *testing.T, items []map[string]types.AttributeValue) *ItemsAssertion {
	return &ItemsAssertion{
		t:     t,
		items: items,
	}
}

// HasCount asserts that the items collection has the expected count.
func (a *ItemsAssertion) HasCount(expected int) *ItemsAssertion {
	if len(a.items) != expected {
		a.t.Errorf("expected %d items, got %d", expected, len(a.items))
	}
	return a
}

// IsEmpty asserts that the items collection is empty.
func (a *ItemsAssertion) IsEmpty() *ItemsAssertion {
	return a.HasCount(0)
}

// IsNotEmpty asserts that the items collection is not empty.
func (a *ItemsAssertion) IsNotEmpty() *ItemsAssertion {
	if len(a.items) == 0 {
		a.t.Error("expected items to not be empty")
	}
	return a
}

// ContainsItem asserts that some item carries every attribute of expected
// with an equal value. Attributes beyond the expected ones are ignored, so
// fixtures can be matched without restating server-populated fields.
func (a *ItemsAssertion) ContainsItem(expected map[string]any) *ItemsAssertion {
	want, err := attributevalue.MarshalMap(expected)
	if err != nil {
		a.t.Errorf("failed to marshal expected item: %v", err)
		return a
	}

	for _, item := range a.items {
		if itemMatches(item, want) {
			return a // Found the item
		}
	}

	a.t.Errorf("expected to find item %v in items", expected)
	return a
}

// HasAttribute asserts that at least one item has the specified string
// attribute with the expected value.
func (a *ItemsAssertion) HasAttribute(attributeName, expectedValue string) *ItemsAssertion {
	for _, item := range a.items {
		if itemHasString(item, attributeName, expectedValue) {
			return a // Found the attribute
		}
	}

	a.t.Errorf("expected to find attribute %s with value %s in items", attributeName, expectedValue)
	return a
}

// itemMatches checks that every attribute in want appears in item with an
// equal value.
func itemMatches(item, want map[string]types.AttributeValue) bool {
	for name, wantValue := range want {
		gotValue, exists := item[name]
		if !exists || !reflect.DeepEqual(gotValue, wantValue) {
			return false
		}
	}
	return true
}

// itemHasString checks if an item has the attribute as a string member with
// the expected value.
func itemHasString(item map[string]types.AttributeValue, name, expected string) bool {
	attr, exists := item[name]
	if !exists {
		return false
	}

	attrStr, ok := attr.(*types.AttributeValueMemberS)
	if !ok {
		return false
	}

	return attrStr.Value == expected
}

// ItemAssertion provides fluent assertions for a single item.
type ItemAssertion struct {
	t    *testing.T
	item map[string]types.AttributeValue
}

// Item creates a new ItemAssertion for the given item.
func Item(t *testing.T, item map[string]types.AttributeValue) *ItemAssertion {
	return &ItemAssertion{
		t:    t,
		item: item,
	}
}

// HasKey asserts that the item has the specified string attribute with the
// expected value.
func (a *ItemAssertion) HasKey(keyName, expectedValue string) *ItemAssertion {
	if attr, exists := a.item[keyName]; !exists {
		a.t.Errorf("item missing key %s", keyName)
	} else if attrStr, ok := attr.(*types.AttributeValueMemberS); !ok {
		a.t.Errorf("key %s is not a string", keyName)
	} else if attrStr.Value != expectedValue {
		a.t.Errorf("key %s expected %s, got %s", keyName, expectedValue, attrStr.Value)
	}
	return a
}

// HasAttribute asserts that the item has the specified attribute with the
// expected value.
func (a *ItemAssertion) HasAttribute(attrName, expectedValue string) *ItemAssertion {
	return a.HasKey(attrName, expectedValue) // Same implementation for now
}

// HasNumber asserts that the item has the specified numeric attribute with
// the expected value. DynamoDB transmits numbers as strings; expected is
// compared against that form.
func (a *ItemAssertion) HasNumber(attrName, expectedValue string) *ItemAssertion {
	if attr, exists := a.item[attrName]; !exists {
		a.t.Errorf("item missing attribute %s", attrName)
	} else if attrNum, ok := attr.(*types.AttributeValueMemberN); !ok {
		a.t.Errorf("attribute %s is not a number", attrName)
	} else if attrNum.Value != expectedValue {
		a.t.Errorf("attribute %s expected %s, got %s", attrName, expectedValue, attrNum.Value)
	}
	return a
}

// TablesAssertion provides fluent assertions for a table listing.
type TablesAssertion struct {
	t     *testing.T
	names []string
}

// Tables creates a new TablesAssertion for the given table names.
func Tables(t *testing.T, names []string) *TablesAssertion {
	return &TablesAssertion{
		t:     t,
		names: names,
	}
}

// HasCount asserts that the listing has the expected number of tables.
func (a *TablesAssertion) HasCount(expected int) *TablesAssertion {
	if len(a.names) != expected {
		a.t.Errorf("expected %d tables, got %d", expected, len(a.names))
	}
	return a
}

// Contains asserts that the listing includes the named table.
func (a *TablesAssertion) Contains(name string) *TablesAssertion {
	for _, got := range a.names {
		if got == name {
			return a // Found the table
		}
	}

	a.t.Errorf("expected to find table %s in listing %v", name, a.names)
	return a
}

// NotContains asserts that the listing does not include the named table.
func (a *TablesAssertion) NotContains(name string) *TablesAssertion {
	for _, got := range a.names {
		if got == name {
			a.t.Errorf("expected table %s to be absent, found it in %v", name, a.names)
			return a
		}
	}
	return a
}
