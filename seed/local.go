package seed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/nisimpson/ddblocal"
)

// ErrRemoteEndpoint is returned by NewLocal for endpoints that do not
// address the local machine. Schema operations delete tables; the guard
// keeps a mis-wired test from pointing them at a real environment.
var ErrRemoteEndpoint = errors.New("refusing non-loopback endpoint")

const (
	// DefaultWaitTimeout bounds each table-state wait during a refresh.
	DefaultWaitTimeout = 30 * time.Second

	// DefaultMaxRetries is the retry budget for unprocessed batch items.
	DefaultMaxRetries = 3
)

// Local performs schema and fixture operations against a running DynamoDB
// Local endpoint. It is not a scoped resource; construct one inside the
// scope that owns the server.
type Local struct {
	api         DynamoDBAPI
	endpoint    ddblocal.Endpoint
	log         logrus.FieldLogger
	waitTimeout time.Duration
	backoff     ddblocal.BackoffFunc
	maxRetries  int
}

// Option configures a Local.
type Option func(*Local)

// WithClient substitutes the DynamoDB client. The endpoint guard still
// applies; this exists for injecting mocks and pre-built clients.
func WithClient(api DynamoDBAPI) Option {
	return func(l *Local) { l.api = api }
}

// WithLogger sets the logger for schema operations.
func WithLogger(log logrus.FieldLogger) Option {
	return func(l *Local) { l.log = log }
}

// WithWaitTimeout bounds each wait for a table to become active or to
// finish deleting.
func WithWaitTimeout(d time.Duration) Option {
	return func(l *Local) { l.waitTimeout = d }
}

// WithBackoff overrides the delay schedule for batch retries and table
// waits.
func WithBackoff(f ddblocal.BackoffFunc) Option {
	return func(l *Local) { l.backoff = f }
}

// WithMaxRetries sets the retry budget for unprocessed batch items.
func WithMaxRetries(n int) Option {
	return func(l *Local) { l.maxRetries = n }
}

// NewLocal returns a Local bound to ep. Endpoints that are not loopback are
// rejected with ErrRemoteEndpoint. The default client is
// ddblocal.NewClient(ep).
func NewLocal(ep ddblocal.Endpoint, opts ...Option) (*Local, error) {
	if !ep.IsLoopback() {
		return nil, fmt.Errorf("%w: %s", ErrRemoteEndpoint, ep.URL())
	}

	l := &Local{
		endpoint:    ep,
		log:         discardLogger(),
		waitTimeout: DefaultWaitTimeout,
		backoff:     ddblocal.DefaultBackoff,
		maxRetries:  DefaultMaxRetries,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.api == nil {
		l.api = ddblocal.NewClient(ep)
	}
	return l, nil
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// ListTables returns every table name at the endpoint.
func (l *Local) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	var start *string

	for {
		out, err := l.api.ListTables(ctx, &dynamodb.ListTablesInput{ExclusiveStartTableName: start})
		if err != nil {
			return nil, fmt.Errorf("listing tables: %w", err)
		}
		names = append(names, out.TableNames...)
		if out.LastEvaluatedTableName == nil {
			return names, nil
		}
		start = out.LastEvaluatedTableName
	}
}

// TableItems scans the full contents of a table, following pagination.
// Intended for verifying small fixture sets in tests.
func (l *Local) TableItems(ctx context.Context, table string) ([]map[string]types.AttributeValue, error) {
	var items []map[string]types.AttributeValue
	var start map[string]types.AttributeValue

	for {
		out, err := l.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:         aws.String(table),
			ExclusiveStartKey: start,
		})
		if err != nil {
			return nil, fmt.Errorf("scanning table %s: %w", table, err)
		}
		items = append(items, out.Items...)
		if out.LastEvaluatedKey == nil {
			return items, nil
		}
		start = out.LastEvaluatedKey
	}
}
