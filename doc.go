// Package ddblocal runs Amazon's DynamoDB Local server as a disposable
// subprocess for automated tests, and can redirect an application's
// DynamoDB client construction at it for the duration of a test scope.
//
// The package covers three concerns:
//
//   - Process lifecycle: starting the java process against an unpacked
//     distribution, picking an ephemeral port, waiting until the endpoint
//     answers, and guaranteeing termination on every exit path with a
//     bounded SIGTERM grace period before a kill.
//   - Client redirection: while a redirected scope is active, clients built
//     through NewDynamoDB target the local server with placeholder
//     credentials instead of resolving real AWS configuration.
//   - Schema and fixtures: the seed subpackage recreates tables declared in
//     a Serverless deployment configuration and bulk-loads JSON fixture
//     data against the running endpoint.
//
// # Running a server
//
// A Server owns exactly one process for one start/stop cycle. Run scopes
// the lifecycle so the process cannot leak, even when the body fails:
//
//	srv := ddblocal.New("/opt/dynamodb_local")
//	err := srv.Run(ctx, func(ep ddblocal.Endpoint) error {
//	    client := ddblocal.NewClient(ep)
//	    _, err := client.ListTables(ctx, &dynamodb.ListTablesInput{})
//	    return err
//	})
//
// Start and Stop are also available unpaired for harnesses that manage the
// lifecycle themselves, for example from TestMain. FromEnv builds a Server
// from DDB_LOCAL_* environment variables so the distribution path stays out
// of source control.
//
// # Redirecting application clients
//
// RunRedirected refuses to start unless the test harness has engaged the
// mocking package, which keeps a misconfigured suite from quietly talking
// to real AWS:
//
//	release := mocking.Engage()
//	defer release()
//
//	srv := ddblocal.New("/opt/dynamodb_local")
//	err := srv.RunRedirected(ctx, func(ddblocal.Endpoint) error {
//	    svc, err := app.NewService(ctx) // builds its client via ddblocal.NewDynamoDB
//	    ...
//	})
//
// The patch is removed before the process stops, so client teardown inside
// the scope still reaches a live server.
//
// # Errors
//
// Failures carry sentinel errors that callers can test with errors.Is:
// ErrDistributionNotFound for a bad distribution path, ErrServerExited and
// ErrStartupTimeout for launch failures, ErrPatchingNotEngaged for a
// redirected scope without an engaged harness, and ErrAlreadyStarted,
// ErrServerStopped and ErrNotStarted for lifecycle misuse.
//
// See the DESIGN.md file for detailed design documentation.
package ddblocal
