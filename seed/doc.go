// Package seed creates table schemas and loads fixture data against a
// running DynamoDB Local endpoint.
//
// Table declarations come from a Serverless deployment configuration, so
// tests exercise the same schema the deployment creates:
//
//	specs, err := seed.ParseServerlessFile("serverless.yml")
//
// A Local performs the operations. It refuses endpoints that are not
// loopback, since refreshing a schema deletes tables:
//
//	db, err := seed.NewLocal(ep)
//	err = db.FreshTables(ctx, specs, seed.Fixtures{
//	    "users": {
//	        {"id": "u1", "name": "Ada"},
//	        {"id": "u2", "name": "Grace"},
//	    },
//	})
//
// RefreshSchema is idempotent: tables are deleted when they exist, missing
// tables are tolerated, and each is recreated and waited into ACTIVE.
// Fixture loads use batched writes; items the service leaves unprocessed
// are retried a bounded number of times, and anything still left is
// reported through *PartialError without aborting the rest of the load.
//
// # Testing support
//
// DynamoDBAPI is the narrow client interface the package operates through,
// and MockClient implements it with per-call functions for unit tests
// that should not touch a server. The assert subpackage provides fluent
// assertions over scanned items.
package seed
