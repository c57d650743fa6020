package ddblocal

import (
	"fmt"
	"time"

	"github.com/joeshaw/envdecode"
)

type envConfig struct {
	Distribution   string        `env:"DDB_LOCAL_DIST"`
	Java           string        `env:"DDB_LOCAL_JAVA,default=java"`
	StartupTimeout time.Duration `env:"DDB_LOCAL_STARTUP_TIMEOUT,default=30s"`
	StopGrace      time.Duration `env:"DDB_LOCAL_STOP_GRACE,default=5s"`
}

// FromEnv builds a Server from the environment:
//
//	DDB_LOCAL_DIST             path to the unpacked distribution (required)
//	DDB_LOCAL_JAVA             java executable (default "java")
//	DDB_LOCAL_STARTUP_TIMEOUT  readiness budget (default 30s)
//	DDB_LOCAL_STOP_GRACE       SIGTERM grace period (default 5s)
//
// Explicit options take precedence over the environment. Harnesses that
// keep the distribution path out of source control point DDB_LOCAL_DIST at
// it and construct servers with FromEnv alone.
func FromEnv(opts ...Option) (*Server, error) {
	var cfg envConfig
	if err := envdecode.StrictDecode(&cfg); err != nil {
		return nil, fmt.Errorf("reading DDB_LOCAL environment: %w", err)
	}

	base := []Option{
		WithJava(cfg.Java),
		WithStartupTimeout(cfg.StartupTimeout),
		WithStopGracePeriod(cfg.StopGrace),
	}
	return New(cfg.Distribution, append(base, opts...)...), nil
}
