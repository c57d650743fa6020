package seed

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when a deployment configuration or fixture
// document cannot be decoded, or declares a table without the fields
// required to create it.
var ErrInvalidConfig = errors.New("invalid configuration")

const tableResourceType = "AWS::DynamoDB::Table"

// TableSpec is the declarative description of one table, in the shape the
// CloudFormation Properties block uses. It is immutable once parsed;
// CreateTableInput converts it for the SDK.
type TableSpec struct {
	TableName              string                 `yaml:"TableName"`
	AttributeDefinitions   []AttributeDefinition  `yaml:"AttributeDefinitions"`
	KeySchema              []KeyElement           `yaml:"KeySchema"`
	BillingMode            string                 `yaml:"BillingMode"`
	ProvisionedThroughput  *Throughput            `yaml:"ProvisionedThroughput"`
	GlobalSecondaryIndexes []GlobalSecondaryIndex `yaml:"GlobalSecondaryIndexes"`
	LocalSecondaryIndexes  []LocalSecondaryIndex  `yaml:"LocalSecondaryIndexes"`
}

// AttributeDefinition names a key attribute and its scalar type (S, N, B).
type AttributeDefinition struct {
	AttributeName string `yaml:"AttributeName"`
	AttributeType string `yaml:"AttributeType"`
}

// KeyElement is one element of a key schema: HASH or RANGE.
type KeyElement struct {
	AttributeName string `yaml:"AttributeName"`
	KeyType       string `yaml:"KeyType"`
}

// Throughput holds provisioned capacity units.
type Throughput struct {
	ReadCapacityUnits  int64 `yaml:"ReadCapacityUnits"`
	WriteCapacityUnits int64 `yaml:"WriteCapacityUnits"`
}

// GlobalSecondaryIndex describes a GSI on a declared table.
type GlobalSecondaryIndex struct {
	IndexName             string       `yaml:"IndexName"`
	KeySchema             []KeyElement `yaml:"KeySchema"`
	Projection            Projection   `yaml:"Projection"`
	ProvisionedThroughput *Throughput  `yaml:"ProvisionedThroughput"`
}

// LocalSecondaryIndex describes an LSI on a declared table.
type LocalSecondaryIndex struct {
	IndexName  string       `yaml:"IndexName"`
	KeySchema  []KeyElement `yaml:"KeySchema"`
	Projection Projection   `yaml:"Projection"`
}

// Projection controls which attributes an index copies. An empty
// ProjectionType is treated as ALL.
type Projection struct {
	ProjectionType   string   `yaml:"ProjectionType"`
	NonKeyAttributes []string `yaml:"NonKeyAttributes"`
}

// serverlessDoc covers both layouts the tooling produces: a serverless.yml
// (or `serverless print` output) nests CloudFormation under resources, while
// a raw CloudFormation template keeps Resources at the top level.
type serverlessDoc struct {
	Resources struct {
		Resources map[string]resourceDoc `yaml:"Resources"`
	} `yaml:"resources"`
	TopLevel map[string]resourceDoc `yaml:"Resources"`
}

type resourceDoc struct {
	Type       string    `yaml:"Type"`
	Properties TableSpec `yaml:"Properties"`
}

// ParseServerlessConfig extracts the DynamoDB table declarations from a
// Serverless deployment configuration. The document may be YAML or JSON
// (the output of `serverless print --format=json` parses as-is). Resources
// of other types are ignored. Tables are returned in logical-name order.
func ParseServerlessConfig(r io.Reader) ([]TableSpec, error) {
	var doc serverlessDoc
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	resources := doc.Resources.Resources
	if len(resources) == 0 {
		resources = doc.TopLevel
	}

	var specs []TableSpec
	for _, name := range slices.Sorted(maps.Keys(resources)) {
		res := resources[name]
		if res.Type != tableResourceType {
			continue
		}
		if res.Properties.TableName == "" {
			return nil, fmt.Errorf("%w: resource %s has no TableName", ErrInvalidConfig, name)
		}
		if len(res.Properties.KeySchema) == 0 {
			return nil, fmt.Errorf("%w: resource %s has no KeySchema", ErrInvalidConfig, name)
		}
		specs = append(specs, res.Properties)
	}
	return specs, nil
}

// ParseServerlessFile is ParseServerlessConfig over a file path.
func ParseServerlessFile(path string) ([]TableSpec, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	defer f.Close()
	return ParseServerlessConfig(f)
}

// CreateTableInput converts the spec into the SDK's create request. A table
// declaring neither a billing mode nor provisioned throughput defaults to
// PAY_PER_REQUEST, which is what local test tables want anyway.
func (ts TableSpec) CreateTableInput() *dynamodb.CreateTableInput {
	in := &dynamodb.CreateTableInput{
		TableName:            aws.String(ts.TableName),
		AttributeDefinitions: ts.attributeDefinitions(),
		KeySchema:            keySchema(ts.KeySchema),
	}

	switch {
	case ts.BillingMode != "":
		in.BillingMode = types.BillingMode(ts.BillingMode)
	case ts.ProvisionedThroughput == nil:
		in.BillingMode = types.BillingModePayPerRequest
	}
	if ts.ProvisionedThroughput != nil {
		in.ProvisionedThroughput = ts.ProvisionedThroughput.toSDK()
	}

	for _, gsi := range ts.GlobalSecondaryIndexes {
		sdkIndex := types.GlobalSecondaryIndex{
			IndexName:  aws.String(gsi.IndexName),
			KeySchema:  keySchema(gsi.KeySchema),
			Projection: gsi.Projection.toSDK(),
		}
		if gsi.ProvisionedThroughput != nil {
			sdkIndex.ProvisionedThroughput = gsi.ProvisionedThroughput.toSDK()
		}
		in.GlobalSecondaryIndexes = append(in.GlobalSecondaryIndexes, sdkIndex)
	}

	for _, lsi := range ts.LocalSecondaryIndexes {
		in.LocalSecondaryIndexes = append(in.LocalSecondaryIndexes, types.LocalSecondaryIndex{
			IndexName:  aws.String(lsi.IndexName),
			KeySchema:  keySchema(lsi.KeySchema),
			Projection: lsi.Projection.toSDK(),
		})
	}

	return in
}

// KeyAttributeNames returns the attribute names of the table's primary key.
func (ts TableSpec) KeyAttributeNames() []string {
	names := make([]string, 0, len(ts.KeySchema))
	for _, key := range ts.KeySchema {
		names = append(names, key.AttributeName)
	}
	return names
}

func (ts TableSpec) attributeDefinitions() []types.AttributeDefinition {
	defs := make([]types.AttributeDefinition, 0, len(ts.AttributeDefinitions))
	for _, def := range ts.AttributeDefinitions {
		defs = append(defs, types.AttributeDefinition{
			AttributeName: aws.String(def.AttributeName),
			AttributeType: types.ScalarAttributeType(def.AttributeType),
		})
	}
	return defs
}

func keySchema(keys []KeyElement) []types.KeySchemaElement {
	elems := make([]types.KeySchemaElement, 0, len(keys))
	for _, key := range keys {
		elems = append(elems, types.KeySchemaElement{
			AttributeName: aws.String(key.AttributeName),
			KeyType:       types.KeyType(key.KeyType),
		})
	}
	return elems
}

func (t *Throughput) toSDK() *types.ProvisionedThroughput {
	return &types.ProvisionedThroughput{
		ReadCapacityUnits:  aws.Int64(t.ReadCapacityUnits),
		WriteCapacityUnits: aws.Int64(t.WriteCapacityUnits),
	}
}

func (p Projection) toSDK() *types.Projection {
	proj := &types.Projection{ProjectionType: types.ProjectionTypeAll}
	if p.ProjectionType != "" {
		proj.ProjectionType = types.ProjectionType(p.ProjectionType)
	}
	if len(p.NonKeyAttributes) > 0 {
		proj.NonKeyAttributes = p.NonKeyAttributes
	}
	return proj
}
