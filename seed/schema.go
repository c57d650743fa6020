package seed

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/sirupsen/logrus"

	"github.com/nisimpson/ddblocal"
)

// RefreshSchema brings every table in specs to a freshly created state:
// existing tables are deleted first, missing ones are tolerated, and each
// is recreated from its spec and waited into ACTIVE. Running it twice
// produces the same end state.
func (l *Local) RefreshSchema(ctx context.Context, specs []TableSpec) error {
	for _, spec := range specs {
		if err := l.recreateTable(ctx, spec); err != nil {
			return err
		}
	}
	return nil
}

// FreshTables recreates the tables and loads the fixture data into them,
// the usual test setup step.
func (l *Local) FreshTables(ctx context.Context, specs []TableSpec, fx Fixtures) error {
	if err := l.RefreshSchema(ctx, specs); err != nil {
		return err
	}
	return l.LoadFixtures(ctx, fx)
}

func (l *Local) recreateTable(ctx context.Context, spec TableSpec) error {
	name := spec.TableName

	_, err := l.api.DeleteTable(ctx, &dynamodb.DeleteTableInput{TableName: aws.String(name)})
	switch {
	case err == nil:
		if err := l.waitTableGone(ctx, name); err != nil {
			return err
		}
	case isTableNotFound(err):
		// Nothing to delete.
	default:
		return fmt.Errorf("deleting table %s: %w", name, err)
	}

	if _, err := l.api.CreateTable(ctx, spec.CreateTableInput()); err != nil {
		return fmt.Errorf("creating table %s: %w", name, err)
	}
	if err := l.waitTableActive(ctx, name); err != nil {
		return err
	}

	l.log.WithFields(logrus.Fields{"at": "refresh", "table": name}).Info("table recreated")
	return nil
}

// Truncate deletes every item from the table without recreating it, which
// is faster than a schema refresh when the schema itself has not changed.
// The scan projects only the key attributes.
func (l *Local) Truncate(ctx context.Context, spec TableSpec) error {
	keys := spec.KeyAttributeNames()
	if len(keys) == 0 {
		return fmt.Errorf("%w: table %s has no KeySchema", ErrInvalidConfig, spec.TableName)
	}

	proj := expression.NamesList(expression.Name(keys[0]))
	for _, key := range keys[1:] {
		proj = proj.AddNames(expression.Name(key))
	}
	expr, err := expression.NewBuilder().WithProjection(proj).Build()
	if err != nil {
		return fmt.Errorf("building key projection for table %s: %w", spec.TableName, err)
	}

	deletes := make(map[string][]types.WriteRequest)
	var start map[string]types.AttributeValue
	for {
		out, err := l.api.Scan(ctx, &dynamodb.ScanInput{
			TableName:                aws.String(spec.TableName),
			ProjectionExpression:     expr.Projection(),
			ExpressionAttributeNames: expr.Names(),
			ExclusiveStartKey:        start,
		})
		if err != nil {
			return fmt.Errorf("scanning table %s: %w", spec.TableName, err)
		}
		for _, item := range out.Items {
			deletes[spec.TableName] = append(deletes[spec.TableName], types.WriteRequest{
				DeleteRequest: &types.DeleteRequest{Key: item},
			})
		}
		if out.LastEvaluatedKey == nil {
			break
		}
		start = out.LastEvaluatedKey
	}

	if len(deletes) == 0 {
		return nil
	}

	l.log.WithFields(logrus.Fields{"at": "truncate", "table": spec.TableName, "items": len(deletes[spec.TableName])}).Info("truncating table")
	return l.writeBatches(ctx, deletes)
}

func (l *Local) waitTableActive(ctx context.Context, name string) error {
	err := ddblocal.Wait(ctx, l.waitTimeout, l.backoff, func(ctx context.Context) (bool, error) {
		out, err := l.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			if isTableNotFound(err) {
				return false, nil
			}
			return false, fmt.Errorf("describing table %s: %w", name, err)
		}
		return out.Table.TableStatus == types.TableStatusActive, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for table %s to become active: %w", name, err)
	}
	return nil
}

func (l *Local) waitTableGone(ctx context.Context, name string) error {
	err := ddblocal.Wait(ctx, l.waitTimeout, l.backoff, func(ctx context.Context) (bool, error) {
		_, err := l.api.DescribeTable(ctx, &dynamodb.DescribeTableInput{TableName: aws.String(name)})
		if err != nil {
			if isTableNotFound(err) {
				return true, nil
			}
			return false, fmt.Errorf("describing table %s: %w", name, err)
		}
		return false, nil
	})
	if err != nil {
		return fmt.Errorf("waiting for table %s to delete: %w", name, err)
	}
	return nil
}

func isTableNotFound(err error) bool {
	var notFound *types.ResourceNotFoundException
	return errors.As(err, &notFound)
}
