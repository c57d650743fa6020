package ddblocal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrDistributionNotFound is returned by Start when the distribution
	// path does not contain DynamoDBLocal.jar.
	ErrDistributionNotFound = errors.New("dynamodb local distribution not found")

	// ErrServerExited is returned by Start when the process exits before
	// it ever becomes ready.
	ErrServerExited = errors.New("dynamodb local exited before ready")

	// ErrStartupTimeout is returned by Start when the server does not
	// answer its endpoint within the startup timeout. The process is
	// killed before the error is returned.
	ErrStartupTimeout = errors.New("dynamodb local startup timed out")
)

const (
	jarName = "DynamoDBLocal.jar"
	libDir  = "DynamoDBLocal_lib"

	// earlyExitWindow is a short beat after spawning in which an exiting
	// child is reported as a launch failure rather than a probe timeout.
	earlyExitWindow = 100 * time.Millisecond
)

// probeClient issues the readiness requests. DynamoDB Local answers plain
// GETs with a 4xx, which is enough to prove it is parsing requests.
var probeClient = &http.Client{Timeout: 2 * time.Second}

// Start launches the DynamoDB Local process and blocks until its endpoint
// answers HTTP or the startup timeout elapses. The returned Endpoint is
// confirmed live before Start returns. On any failure the spawned process,
// if any, is killed and reaped, and the Server may be started again.
func (s *Server) Start(ctx context.Context) (Endpoint, error) {
	s.mu.Lock()
	switch s.state {
	case StateStarting, StateRunning:
		s.mu.Unlock()
		return Endpoint{}, ErrAlreadyStarted
	case StateStopped:
		s.mu.Unlock()
		return Endpoint{}, ErrServerStopped
	}
	s.state = StateStarting
	s.mu.Unlock()

	ep, err := s.launch(ctx)
	if err != nil {
		s.mu.Lock()
		s.state = StateIdle
		s.mu.Unlock()
		return Endpoint{}, err
	}
	return ep, nil
}

func (s *Server) launch(ctx context.Context) (Endpoint, error) {
	jar := filepath.Join(s.distPath, jarName)
	if _, err := os.Stat(jar); err != nil {
		return Endpoint{}, fmt.Errorf("%w: %s", ErrDistributionNotFound, jar)
	}

	port := s.fixedPort
	if port == 0 {
		var err error
		if port, err = reservePort(); err != nil {
			return Endpoint{}, err
		}
	}

	cmd := exec.Command(s.javaPath,
		"-Djava.library.path=./"+libDir,
		"-jar", jarName,
		"-inMemory",
		"-port", strconv.Itoa(port),
	)
	cmd.Dir = s.distPath
	cmd.Stdout = s.output
	cmd.Stderr = s.output

	if err := cmd.Start(); err != nil {
		return Endpoint{}, fmt.Errorf("spawning dynamodb local: %w", err)
	}

	log := s.log.WithFields(logrus.Fields{"at": "start", "port": port, "pid": cmd.Process.Pid})
	log.Info("dynamodb local starting")

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		return Endpoint{}, exitedError(err)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		<-done
		return Endpoint{}, ctx.Err()
	case <-time.After(earlyExitWindow):
	}

	ep := Endpoint{Host: "localhost", Port: port}
	if err := s.awaitReady(ctx, cmd, ep, done); err != nil {
		return Endpoint{}, err
	}

	s.mu.Lock()
	s.state = StateRunning
	s.cmd = cmd
	s.done = done
	s.endpoint = ep
	s.startedAt = time.Now()
	s.mu.Unlock()

	log.Info("dynamodb local ready")
	return ep, nil
}

// awaitReady polls the endpoint until it answers, watching the child for an
// early exit between probes. The child does not survive a failed wait.
func (s *Server) awaitReady(ctx context.Context, cmd *exec.Cmd, ep Endpoint, done chan error) error {
	var exited atomic.Bool
	url := ep.URL()

	err := Wait(ctx, s.startupTimeout, s.probeBackoff, func(ctx context.Context) (bool, error) {
		select {
		case waitErr := <-done:
			exited.Store(true)
			return false, exitedError(waitErr)
		default:
		}
		return probe(ctx, url), nil
	})
	if err == nil {
		return nil
	}

	if !exited.Load() {
		_ = cmd.Process.Kill()
		<-done
	}
	if errors.Is(err, ErrWaitTimeout) {
		return fmt.Errorf("%w after %s on port %d", ErrStartupTimeout, s.startupTimeout, ep.Port)
	}
	return err
}

func exitedError(waitErr error) error {
	if waitErr == nil {
		return ErrServerExited
	}
	return fmt.Errorf("%w: %w", ErrServerExited, waitErr)
}

// probe reports whether the endpoint answered an HTTP request. Any response
// counts; connection errors mean not yet.
func probe(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return false
	}
	resp, err := probeClient.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return true
}

// reservePort asks the OS for a free ephemeral port and releases it for the
// server to claim. The window between release and the server's bind is
// racable in principle; the readiness probe is what actually certifies the
// port.
func reservePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, fmt.Errorf("reserving ephemeral port: %w", err)
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		return 0, fmt.Errorf("releasing ephemeral port: %w", err)
	}
	return port, nil
}
