package ddblocal

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/sirupsen/logrus"

	"github.com/nisimpson/ddblocal/mocking"
)

// ErrPatchingNotEngaged is returned by RunRedirected when the mocking
// package has not been engaged by the test harness. The check runs before
// any process is spawned: a suite that forgot to engage patching would
// otherwise build clients against real AWS.
var ErrPatchingNotEngaged = errors.New("client patching not engaged; call mocking.Engage first")

// NewDynamoDB is the application-side DynamoDB constructor. Outside of
// tests it behaves exactly like dynamodb.NewFromConfig; while a redirection
// scope is active it returns the client registered for the local server
// instead. Application code that should be redirectable during tests builds
// its client through this function.
func NewDynamoDB(ctx context.Context, cfg aws.Config) (*dynamodb.Client, error) {
	v, ok, err := mocking.ClientFor(ctx, dynamodb.ServiceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return dynamodb.NewFromConfig(cfg), nil
	}
	client, isClient := v.(*dynamodb.Client)
	if !isClient {
		return nil, fmt.Errorf("patched dynamodb factory returned %T, want *dynamodb.Client", v)
	}
	return client, nil
}

// RunRedirected is Run with client redirection: while fn executes, any
// client built through NewDynamoDB targets the local server with
// placeholder credentials. On exit the patch is removed before the process
// is stopped, so teardown code still resolves against a live server.
func (s *Server) RunRedirected(ctx context.Context, fn func(Endpoint) error) (err error) {
	if !mocking.Engaged() {
		return ErrPatchingNotEngaged
	}

	ep, err := s.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			s.log.WithFields(logrus.Fields{"at": "redirect", "error": stopErr}).Warn("failed to stop dynamodb local cleanly")
			if err == nil {
				err = stopErr
			}
		}
	}()

	deregister, err := mocking.RegisterClientFactory(dynamodb.ServiceID, func(context.Context) (any, error) {
		return NewClient(ep), nil
	})
	if err != nil {
		return err
	}
	defer deregister()

	return fn(ep)
}
