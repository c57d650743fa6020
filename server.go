package ddblocal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"strconv"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

var (
	// ErrNotStarted is returned by Stop when the server was never started.
	ErrNotStarted = errors.New("dynamodb local not started")

	// ErrAlreadyStarted is returned by Start while a previous Start is
	// still in effect.
	ErrAlreadyStarted = errors.New("dynamodb local already started")

	// ErrServerStopped is returned by Start after a Server has completed a
	// full start/stop cycle. A Server is single use; create a new one for
	// a fresh process.
	ErrServerStopped = errors.New("dynamodb local server stopped")
)

// Endpoint identifies where a running DynamoDB Local instance is reachable.
// It is a plain value and may be copied freely; it says nothing about
// whether the process behind it is still alive.
type Endpoint struct {
	Host string
	Port int
}

// Addr returns the host:port form of the endpoint.
func (e Endpoint) Addr() string {
	return net.JoinHostPort(e.Host, strconv.Itoa(e.Port))
}

// URL returns the http URL for the endpoint. DynamoDB Local does not
// serve TLS.
func (e Endpoint) URL() string {
	return "http://" + e.Addr()
}

// IsLoopback reports whether the endpoint addresses the local machine.
func (e Endpoint) IsLoopback() bool {
	if e.Host == "localhost" {
		return true
	}
	ip := net.ParseIP(e.Host)
	return ip != nil && ip.IsLoopback()
}

// State describes where a Server is in its lifecycle.
type State int

const (
	// StateIdle means Start has not been called, or the last Start failed.
	StateIdle State = iota
	// StateStarting means Start is in progress.
	StateStarting
	// StateRunning means the process is up and the endpoint has been
	// confirmed ready.
	StateRunning
	// StateStopped means the server completed its lifecycle. The Server
	// cannot be started again.
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

const (
	// DefaultStartupTimeout bounds the whole readiness wait during Start.
	DefaultStartupTimeout = 30 * time.Second

	// DefaultStopGracePeriod is how long Stop waits after SIGTERM before
	// escalating to SIGKILL.
	DefaultStopGracePeriod = 5 * time.Second
)

// Server manages a single DynamoDB Local subprocess. A Server runs exactly
// one process for exactly one start/stop cycle; it is not reusable after
// Stop.
type Server struct {
	distPath       string
	javaPath       string
	fixedPort      int
	startupTimeout time.Duration
	stopGrace      time.Duration
	probeBackoff   BackoffFunc
	output         io.Writer
	log            logrus.FieldLogger

	mu        sync.Mutex
	state     State
	cmd       *exec.Cmd
	done      chan error
	endpoint  Endpoint
	startedAt time.Time
}

// Option configures a Server.
type Option func(*Server)

// WithJava sets the java executable used to launch the server. The default
// is "java" resolved from PATH.
func WithJava(path string) Option {
	return func(s *Server) { s.javaPath = path }
}

// WithPort pins the server to a fixed port instead of an ephemeral one.
// Use only when the suite cannot tolerate a changing port; fixed ports
// collide under parallel test runs.
func WithPort(port int) Option {
	return func(s *Server) { s.fixedPort = port }
}

// WithStartupTimeout bounds the total time Start waits for readiness.
func WithStartupTimeout(d time.Duration) Option {
	return func(s *Server) { s.startupTimeout = d }
}

// WithStopGracePeriod sets how long Stop waits for the process to exit
// after SIGTERM before killing it.
func WithStopGracePeriod(d time.Duration) Option {
	return func(s *Server) { s.stopGrace = d }
}

// WithProbeBackoff overrides the delay schedule between readiness probes.
func WithProbeBackoff(f BackoffFunc) Option {
	return func(s *Server) { s.probeBackoff = f }
}

// WithOutput mirrors the server process stdout and stderr to w. By default
// the output is discarded.
func WithOutput(w io.Writer) Option {
	return func(s *Server) { s.output = w }
}

// WithLogger sets the logger for lifecycle events and suppressed cleanup
// failures. The default logger discards everything.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Server) { s.log = log }
}

// New returns a Server for the DynamoDB Local distribution unpacked at
// distPath. The distribution is the directory holding DynamoDBLocal.jar and
// DynamoDBLocal_lib; nothing is validated until Start.
func New(distPath string, opts ...Option) *Server {
	s := &Server{
		distPath:       distPath,
		javaPath:       "java",
		startupTimeout: DefaultStartupTimeout,
		stopGrace:      DefaultStopGracePeriod,
		probeBackoff:   ExponentialBackoff(100*time.Millisecond, 2.0, time.Second),
		output:         io.Discard,
		log:            discardLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// State returns the server's current lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Endpoint returns the endpoint of the running server. It is the zero
// Endpoint unless the server is running.
func (s *Server) Endpoint() Endpoint {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.endpoint
}

// PID returns the process id of the server, or zero if it has not started.
func (s *Server) PID() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cmd == nil || s.cmd.Process == nil {
		return 0
	}
	return s.cmd.Process.Pid
}

// Uptime returns how long the server has been running, or zero if it is
// not running.
func (s *Server) Uptime() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateRunning {
		return 0
	}
	return time.Since(s.startedAt)
}

// IsRunning reports whether the server process is alive, checked with a
// zero signal rather than trusting recorded state.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	state, cmd := s.state, s.cmd
	s.mu.Unlock()

	if state != StateRunning || cmd == nil || cmd.Process == nil {
		return false
	}
	return cmd.Process.Signal(syscall.Signal(0)) == nil
}

// Stop terminates the server process: SIGTERM first, then SIGKILL once the
// grace period expires, and reaps the child either way. Stopping an already
// stopped server is a no-op; stopping a server that never started returns
// ErrNotStarted. After Stop the Server cannot be started again.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	switch s.state {
	case StateIdle, StateStarting:
		s.mu.Unlock()
		return ErrNotStarted
	case StateStopped:
		s.mu.Unlock()
		return nil
	}
	cmd, done := s.cmd, s.done
	s.state = StateStopped
	s.mu.Unlock()

	log := s.log.WithFields(logrus.Fields{"at": "stop", "pid": cmd.Process.Pid})

	if err := cmd.Process.Signal(syscall.SIGTERM); err != nil {
		if errors.Is(err, os.ErrProcessDone) {
			<-done
			return nil
		}
		// Platforms without SIGTERM delivery fall straight through to kill.
		log.WithField("error", err).Warn("terminate signal failed, killing")
		return s.kill(cmd, done)
	}

	select {
	case err := <-done:
		return ignoreExitError(err)
	case <-time.After(s.stopGrace):
		log.WithField("grace", s.stopGrace).Warn("dynamodb local still running after grace period, killing")
		return s.kill(cmd, done)
	case <-ctx.Done():
		if err := s.kill(cmd, done); err != nil {
			return err
		}
		return ctx.Err()
	}
}

func (s *Server) kill(cmd *exec.Cmd, done chan error) error {
	if err := cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		<-done
		return fmt.Errorf("killing dynamodb local: %w", err)
	}
	<-done
	return nil
}

// ignoreExitError drops exit status errors: a child reporting a non-zero
// status after we signaled it is the expected outcome, not a failure.
func ignoreExitError(err error) error {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil
	}
	return err
}

// Run starts the server, invokes fn with the live endpoint, and guarantees
// the process is stopped on every exit path, including a panic in fn.
//
// An error from fn is never masked by cleanup: a Stop failure is logged,
// and returned only when fn itself succeeded.
func (s *Server) Run(ctx context.Context, fn func(Endpoint) error) (err error) {
	ep, err := s.Start(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if stopErr := s.Stop(context.WithoutCancel(ctx)); stopErr != nil {
			s.log.WithFields(logrus.Fields{"at": "run", "error": stopErr}).Warn("failed to stop dynamodb local cleanly")
			if err == nil {
				err = stopErr
			}
		}
	}()

	return fn(ep)
}
