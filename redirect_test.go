package ddblocal

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/nisimpson/ddblocal/mocking"
)

func TestRunRedirectedRequiresEngagement(t *testing.T) {
	srv := newTestServer(t, "serve")

	err := srv.RunRedirected(context.Background(), func(Endpoint) error {
		t.Fatal("scope body ran without an engaged harness")
		return nil
	})
	if !errors.Is(err, ErrPatchingNotEngaged) {
		t.Fatalf("expected ErrPatchingNotEngaged, got %v", err)
	}
	// The guard fires before any launch work: no process was spawned.
	if srv.State() != StateIdle {
		t.Errorf("expected idle state, got %s", srv.State())
	}
	if srv.PID() != 0 {
		t.Errorf("a process was spawned despite the failed precondition, pid %d", srv.PID())
	}
}

func TestRunRedirected(t *testing.T) {
	release := mocking.Engage()
	defer release()

	srv := newTestServer(t, "serve")
	ctx := context.Background()

	var patched *dynamodb.Client
	err := srv.RunRedirected(ctx, func(ep Endpoint) error {
		if _, ok, _ := mocking.ClientFor(ctx, dynamodb.ServiceID); !ok {
			t.Error("no factory registered inside the scope")
		}

		client, err := NewDynamoDB(ctx, aws.Config{})
		if err != nil {
			return err
		}
		patched = client
		return nil
	})
	if err != nil {
		t.Fatalf("RunRedirected failed: %v", err)
	}
	if patched == nil {
		t.Error("NewDynamoDB returned no client inside the scope")
	}

	if _, ok, _ := mocking.ClientFor(ctx, dynamodb.ServiceID); ok {
		t.Error("patch still registered after scope exit")
	}
	if srv.IsRunning() {
		t.Error("process still running after scope exit")
	}
}

func TestRunRedirectedBodyErrorPropagates(t *testing.T) {
	release := mocking.Engage()
	defer release()

	srv := newTestServer(t, "serve")
	bodyErr := errors.New("body failed")

	err := srv.RunRedirected(context.Background(), func(Endpoint) error {
		return bodyErr
	})
	if !errors.Is(err, bodyErr) {
		t.Errorf("expected body error to propagate, got %v", err)
	}
	if _, ok, _ := mocking.ClientFor(context.Background(), dynamodb.ServiceID); ok {
		t.Error("patch still registered after body error")
	}
	if srv.IsRunning() {
		t.Error("process still running after body error")
	}
}

func TestRunRedirectedRejectsNesting(t *testing.T) {
	release := mocking.Engage()
	defer release()

	outer := newTestServer(t, "serve")
	inner := newTestServer(t, "serve")
	ctx := context.Background()

	err := outer.RunRedirected(ctx, func(Endpoint) error {
		return inner.RunRedirected(ctx, func(Endpoint) error {
			t.Fatal("nested scope body ran")
			return nil
		})
	})
	if !errors.Is(err, mocking.ErrFactoryRegistered) {
		t.Fatalf("expected ErrFactoryRegistered from the nested scope, got %v", err)
	}
	if inner.IsRunning() {
		t.Error("inner process leaked after rejected nesting")
	}
	if outer.IsRunning() {
		t.Error("outer process still running after scope exit")
	}
}

func TestNewDynamoDBFallsBack(t *testing.T) {
	// Without an engaged harness the constructor behaves like NewFromConfig.
	client, err := NewDynamoDB(context.Background(), aws.Config{Region: LocalRegion})
	if err != nil {
		t.Fatalf("NewDynamoDB failed: %v", err)
	}
	if client == nil {
		t.Fatal("NewDynamoDB returned nil")
	}
}
