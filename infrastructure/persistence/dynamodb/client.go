// Package dynamodb stores nodes, node records and workflow state in
// DynamoDB tables.
//
// Node table layout:
//
//	PK=NODE#<id>      SK=METADATA          the node document (GSI1PK=NODE)
//	PK=IDENT#<value>  SK=NODE#<id>         one item per node identifier
//	PK=NODE#<id>      SK=CATALOG#<id>      discovery catalogs
//	PK=NODE#<id>      SK=WORKITEM#<id>     poller work items
//	PK=NODE#<id>      SK=LOOKUP#<mac>      back-reference to a lookup row
//	PK=LOOKUP#<mac>   SK=LOOKUP            the lookup row itself
package dynamodb

import (
	"context"
	"errors"
	"fmt"

	apperrors "inventory-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/aws/smithy-go"
)

// API is the subset of the DynamoDB client the stores use.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	Query(ctx context.Context, params *dynamodb.QueryInput, optFns ...func(*dynamodb.Options)) (*dynamodb.QueryOutput, error)
	TransactWriteItems(ctx context.Context, params *dynamodb.TransactWriteItemsInput, optFns ...func(*dynamodb.Options)) (*dynamodb.TransactWriteItemsOutput, error)
	BatchWriteItem(ctx context.Context, params *dynamodb.BatchWriteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchWriteItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

const (
	metadataSK    = "METADATA"
	lookupSK      = "LOOKUP"
	nodeIndexPK   = "NODE"
	entityNode    = "NODE"
	entityIdent   = "IDENTIFIER"
	entityCatalog = "CATALOG"
	entityWork    = "WORKITEM"
	entityLookup  = "LOOKUP"

	// maxTransactItems is the DynamoDB limit for one TransactWriteItems call.
	maxTransactItems = 100
	// maxBatchWrite is the DynamoDB limit for one BatchWriteItem call.
	maxBatchWrite = 25
)

func nodePK(id string) string { return "NODE#" + id }
func identPK(value string) string { return "IDENT#" + value }
func identSK(nodeID string) string { return "NODE#" + nodeID }
func catalogSK(id string) string { return "CATALOG#" + id }
func workItemSK(id string) string { return "WORKITEM#" + id }
func lookupPK(mac string) string { return "LOOKUP#" + mac }
func lookupRefSK(mac string) string { return "LOOKUP#" + mac }

func key(pk, sk string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: pk},
		"SK": &types.AttributeValueMemberS{Value: sk},
	}
}

// classify maps a DynamoDB failure onto an application error.
func classify(err error, operation string) error {
	if err == nil {
		return nil
	}

	var ccf *types.ConditionalCheckFailedException
	if errors.As(err, &ccf) {
		return concurrentWrite(operation, err)
	}

	var ae smithy.APIError
	if errors.As(err, &ae) {
		switch ae.ErrorCode() {
		case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
			return apperrors.NewUnavailableError("dynamodb").WithCause(err)
		case "TransactionCanceledException":
			return concurrentWrite(operation, err)
		}
	}

	return apperrors.NewDatabaseError(operation, err)
}

func concurrentWrite(operation string, err error) error {
	return apperrors.NewConflictError(fmt.Sprintf("%s lost a race with a concurrent write", operation)).
		WithCode(apperrors.CodeConcurrentWrite).
		WithCause(err)
}

// cancelledBy reports whether a cancelled transaction failed a condition on
// the item at index.
func cancelledBy(err error, index int) bool {
	var tce *types.TransactionCanceledException
	if !errors.As(err, &tce) || index >= len(tce.CancellationReasons) {
		return false
	}
	code := tce.CancellationReasons[index].Code
	return code != nil && *code == "ConditionalCheckFailed"
}
