package repo

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/botcast/worker/internal/apperr"
)

// Store wraps a single shared *dynamodb.Client and table name, mirroring
// the teacher's mcpserver.Store: every repository in this package holds a
// *Store rather than opening its own connection.
type Store struct {
	Client    *dynamodb.Client
	TableName string
}

// NewStore builds a Store around an already-configured DynamoDB client.
func NewStore(client *dynamodb.Client, tableName string) *Store {
	return &Store{Client: client, TableName: tableName}
}

const gsi1Name = "GSI1"

// podcastItem is the single-table record for a Podcast, generalizing the
// teacher's mcpserver.PodcastItem schema (PK/SK/GSI1PK/GSI1SK) to this
// domain's entity kinds.
type podcastItem struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	ID    string `dynamodbav:"id"`
	Owner string `dynamodbav:"ownerId"`
	Title string `dynamodbav:"title"`
	Cron  string `dynamodbav:"cron,omitempty"`
}

func podcastKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "PODCAST#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// DynamoPodcastRepo is the DynamoDB-backed implementation of PodcastRepo.
type DynamoPodcastRepo struct{ *Store }

func NewPodcastRepo(s *Store) *DynamoPodcastRepo { return &DynamoPodcastRepo{s} }

func (r *DynamoPodcastRepo) FindByID(ctx context.Context, id string) (*Podcast, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key:       podcastKey(id),
	})
	if err != nil {
		return nil, apperr.Repo("get podcast", err)
	}
	if out.Item == nil {
		return nil, apperr.NotFound("podcast", id)
	}
	var item podcastItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperr.Repo("unmarshal podcast", err)
	}
	return &Podcast{ID: item.ID, Owner: item.Owner, Title: item.Title, Cron: item.Cron}, nil
}

// scriptItem is the single-table record for a Script.
type scriptItem struct {
	PK       string `dynamodbav:"PK"`
	SK       string `dynamodbav:"SK"`
	ID       string `dynamodbav:"id"`
	OwnerID  string `dynamodbav:"ownerId"`
	Title    string `dynamodbav:"title"`
	Template string `dynamodbav:"template"`
	Result   string `dynamodbav:"result,omitempty"`
}

func scriptKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "SCRIPT#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// DynamoScriptRepo is the DynamoDB-backed implementation of ScriptRepo.
type DynamoScriptRepo struct{ *Store }

func NewScriptRepo(s *Store) *DynamoScriptRepo { return &DynamoScriptRepo{s} }

func (r *DynamoScriptRepo) FindByID(ctx context.Context, id string) (*Script, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key:       scriptKey(id),
	})
	if err != nil {
		return nil, apperr.Repo("get script", err)
	}
	if out.Item == nil {
		return nil, apperr.NotFound("script", id)
	}
	var item scriptItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperr.Repo("unmarshal script", err)
	}
	return &Script{
		ID:       item.ID,
		OwnerID:  item.OwnerID,
		Title:    item.Title,
		Template: []byte(item.Template),
		Result:   nullableBytes(item.Result),
	}, nil
}

func (r *DynamoScriptRepo) Create(ctx context.Context, s *Script) error {
	item := scriptItem{
		PK:       "SCRIPT#" + s.ID,
		SK:       "METADATA",
		ID:       s.ID,
		OwnerID:  s.OwnerID,
		Title:    s.Title,
		Template: string(s.Template),
		Result:   string(s.Result),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperr.Repo("marshal script", err)
	}
	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.TableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperr.Repo("create script", err)
	}
	return nil
}

func (r *DynamoScriptRepo) Update(ctx context.Context, s *Script) error {
	expr := "SET template = :tmpl, title = :title"
	values := map[string]types.AttributeValue{
		":tmpl":  &types.AttributeValueMemberS{Value: string(s.Template)},
		":title": &types.AttributeValueMemberS{Value: s.Title},
	}
	if s.Result != nil {
		expr += ", #result = :result"
		values[":result"] = &types.AttributeValueMemberS{Value: string(s.Result)}
	}
	names := map[string]string{"#result": "result"}
	_, err := r.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 &r.TableName,
		Key:                       scriptKey(s.ID),
		UpdateExpression:          aws.String(expr),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
	})
	if err != nil {
		return apperr.Repo("update script", err)
	}
	return nil
}

// secretItem is the single-table record for a Secret.
type secretItem struct {
	PK    string `dynamodbav:"PK"`
	SK    string `dynamodbav:"SK"`
	Value string `dynamodbav:"value"`
}

// DynamoSecretRepo is the DynamoDB-backed implementation of SecretRepo.
type DynamoSecretRepo struct{ *Store }

func NewSecretRepo(s *Store) *DynamoSecretRepo { return &DynamoSecretRepo{s} }

func (r *DynamoSecretRepo) FindByName(ctx context.Context, ownerID, name string) (*Secret, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "SECRET#" + ownerID},
			"SK": &types.AttributeValueMemberS{Value: "SECRET#" + name},
		},
	})
	if err != nil {
		return nil, apperr.Repo("get secret", err)
	}
	if out.Item == nil {
		return nil, apperr.NotFound("secret", fmt.Sprintf("%s/%s", ownerID, name))
	}
	var item secretItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperr.Repo("unmarshal secret", err)
	}
	return &Secret{OwnerID: ownerID, Name: name, Value: item.Value}, nil
}

func nullableBytes(s string) []byte {
	if s == "" {
		return nil
	}
	return []byte(s)
}
