package seed

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"
)

// Item is one JSON-typed fixture record.
type Item map[string]any

// Fixtures maps table names to the items to load into them.
type Fixtures map[string][]Item

// maxBatchItems is the BatchWriteItem request limit.
const maxBatchItems = 25

// PartialError reports fixture items that were still unprocessed when the
// retry budget ran out. The rest of the load completed; Unprocessed holds
// exactly the leftover write requests per table.
type PartialError struct {
	Unprocessed map[string][]types.WriteRequest
	Retries     int
}

func (e *PartialError) Error() string {
	return fmt.Sprintf("fixtures incomplete: %d items unprocessed after %d retries", e.ItemCount(), e.Retries)
}

// ItemCount returns the total number of unprocessed items across tables.
func (e *PartialError) ItemCount() int {
	n := 0
	for _, reqs := range e.Unprocessed {
		n += len(reqs)
	}
	return n
}

// ReadFixtures decodes a fixture document of the form
//
//	{"users": [{"id": "u1", "name": "Ada"}], "orders": [...]}
//
// mapping each table name to its items.
func ReadFixtures(r io.Reader) (Fixtures, error) {
	var fx Fixtures
	if err := json.NewDecoder(r).Decode(&fx); err != nil {
		return nil, fmt.Errorf("%w: decoding fixtures: %w", ErrInvalidConfig, err)
	}
	return fx, nil
}

// ReadFixturesFile is ReadFixtures over a file path.
func ReadFixturesFile(path string) (Fixtures, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()
	return ReadFixtures(f)
}

// LoadFixtures writes every fixture item through batched writes. Items the
// service reports unprocessed are retried with backoff up to the retry
// budget; whatever remains afterward is reported in a *PartialError while
// the rest of the load still completes.
func (l *Local) LoadFixtures(ctx context.Context, fx Fixtures) error {
	pending := make(map[string][]types.WriteRequest)
	for _, table := range slices.Sorted(maps.Keys(fx)) {
		for i, item := range fx[table] {
			av, err := attributevalue.MarshalMap(map[string]any(item))
			if err != nil {
				return fmt.Errorf("marshaling fixture %d for table %s: %w", i, table, err)
			}
			pending[table] = append(pending[table], types.WriteRequest{
				PutRequest: &types.PutRequest{Item: av},
			})
		}
	}
	if len(pending) == 0 {
		return nil
	}
	return l.writeBatches(ctx, pending)
}

// writeBatches drains pending through BatchWriteItem in chunks of up to 25
// requests, retrying unprocessed items before moving on. Chunks may span
// tables.
func (l *Local) writeBatches(ctx context.Context, pending map[string][]types.WriteRequest) error {
	failed := make(map[string][]types.WriteRequest)

	for batch := takeBatch(pending); len(batch) > 0; batch = takeBatch(pending) {
		for attempt := 0; ; attempt++ {
			out, err := l.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{RequestItems: batch})
			if err != nil {
				return fmt.Errorf("batch writing items: %w", err)
			}
			if len(out.UnprocessedItems) == 0 {
				break
			}
			batch = out.UnprocessedItems
			if attempt >= l.maxRetries {
				leftover := 0
				for table, reqs := range batch {
					failed[table] = append(failed[table], reqs...)
					leftover += len(reqs)
				}
				l.log.WithFields(logrus.Fields{"at": "batch", "unprocessed": leftover}).Warn("retry budget exhausted for batch")
				break
			}
			if err := sleep(ctx, l.backoff(attempt)); err != nil {
				return err
			}
		}
	}

	if len(failed) > 0 {
		return &PartialError{Unprocessed: failed, Retries: l.maxRetries}
	}
	return nil
}

// takeBatch removes up to maxBatchItems requests from pending, walking
// tables in name order so batches are deterministic.
func takeBatch(pending map[string][]types.WriteRequest) map[string][]types.WriteRequest {
	batch := make(map[string][]types.WriteRequest)
	space := maxBatchItems

	for _, table := range slices.Sorted(maps.Keys(pending)) {
		if space == 0 {
			break
		}
		reqs := pending[table]
		n := min(len(reqs), space)
		batch[table] = reqs[:n]
		space -= n

		if n == len(reqs) {
			delete(pending, table)
		} else {
			pending[table] = reqs[n:]
		}
	}

	if len(batch) == 0 {
		return nil
	}
	return batch
}

func sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
