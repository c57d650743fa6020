package ddblocal

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/smithy-go/logging"
)

// DynamoDB Local accepts any credentials without validating them; these
// placeholders keep the SDK's credential chain out of the picture and make
// accidental calls against real AWS fail authentication.
const (
	DummyAccessKeyID     = "fakeMyKeyId"
	DummySecretAccessKey = "fakeSecretAccessKey"

	// LocalRegion is the region baked into clients returned by NewClient.
	// DynamoDB Local ignores it, but the SDK requires one.
	LocalRegion = "us-east-1"
)

// NewClient returns a DynamoDB client bound to a local endpoint. The client
// carries placeholder credentials, performs no SDK retries, and keeps the
// SDK logger quiet, which suits a server running on the same machine as the
// test that talks to it.
func NewClient(ep Endpoint) *dynamodb.Client {
	return dynamodb.NewFromConfig(LocalConfig(ep))
}

// LocalConfig returns the aws.Config NewClient builds its client from, for
// callers that construct other service clients against the same endpoint.
func LocalConfig(ep Endpoint) aws.Config {
	return aws.Config{
		Region:      LocalRegion,
		Credentials: credentials.NewStaticCredentialsProvider(DummyAccessKeyID, DummySecretAccessKey, ""),
		EndpointResolverWithOptions: aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				return aws.Endpoint{URL: ep.URL()}, nil
			},
		),
		Retryer: func() aws.Retryer { return aws.NopRetryer{} },
		Logger:  logging.Nop{},
	}
}
