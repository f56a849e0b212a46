package repo

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/botcast/worker/internal/apperr"
)

type mailItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	ID        string `dynamodbav:"id"`
	CornerID  string `dynamodbav:"cornerId"`
	Body      string `dynamodbav:"body"`
	CreatedAt string `dynamodbav:"createdAt"`
}

// DynamoMailRepo is the DynamoDB-backed implementation of MailRepo. Mails
// are stored under their Corner's partition, so FindAllByCornerID is a
// single Query with no secondary index needed.
type DynamoMailRepo struct{ *Store }

func NewMailRepo(s *Store) *DynamoMailRepo { return &DynamoMailRepo{s} }

func (r *DynamoMailRepo) FindAllByCornerID(ctx context.Context, cornerID string) ([]Mail, error) {
	out, err := r.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.TableName,
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":     &types.AttributeValueMemberS{Value: "CORNER#" + cornerID},
			":prefix": &types.AttributeValueMemberS{Value: "MAIL#"},
		},
	})
	if err != nil {
		return nil, apperr.Repo("list mails", err)
	}
	var items []mailItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, apperr.Repo("unmarshal mail list", err)
	}
	mails := make([]Mail, 0, len(items))
	for _, it := range items {
		createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
		if err != nil {
			return nil, apperr.Repo("parse mail createdAt", err)
		}
		mails = append(mails, Mail{ID: it.ID, CornerID: it.CornerID, Body: it.Body, CreatedAt: createdAt})
	}
	return mails, nil
}
