package repo

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/botcast/worker/internal/apperr"
)

// apiKeyItem is the single-table record for an API key, generalizing the
// teacher's mcpserver/auth.go APIKeyRecord (PK "APIKEY#{prefix}").
type apiKeyItem struct {
	PK      string `dynamodbav:"PK"`
	SK      string `dynamodbav:"SK"`
	UserID  string `dynamodbav:"userId"`
	KeyHash string `dynamodbav:"keyHash"`
	Status  string `dynamodbav:"status"`
}

// userItem is the single-table record for a User profile (PK "USER#{id}").
type userItem struct {
	PK     string `dynamodbav:"PK"`
	SK     string `dynamodbav:"SK"`
	ID     string `dynamodbav:"id"`
	Name   string `dynamodbav:"name"`
	Email  string `dynamodbav:"email,omitempty"`
	Status string `dynamodbav:"status"`
}

// DynamoUserRepo is the DynamoDB-backed implementation of UserRepo.
type DynamoUserRepo struct{ *Store }

func NewUserRepo(s *Store) *DynamoUserRepo { return &DynamoUserRepo{s} }

// FindByAPIKey looks up the 8-char prefix after the "pk_" marker, then
// verifies the full key's SHA-256 hash, mirroring the teacher's
// Store.ValidateAPIKey rather than scanning the table.
func (r *DynamoUserRepo) FindByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	token := strings.TrimPrefix(strings.TrimSpace(apiKey), "Bearer ")
	if !strings.HasPrefix(token, "pk_") || len(token) < 11 {
		return nil, apperr.Unauthorized("invalid API key format")
	}
	prefix := token[3:11]

	keyOut, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "APIKEY#" + prefix},
			"SK": &types.AttributeValueMemberS{Value: "METADATA"},
		},
	})
	if err != nil {
		return nil, apperr.Repo("lookup api key", err)
	}
	if keyOut.Item == nil {
		return nil, apperr.Unauthorized("invalid API key")
	}

	var key apiKeyItem
	if err := attributevalue.UnmarshalMap(keyOut.Item, &key); err != nil {
		return nil, apperr.Repo("unmarshal api key", err)
	}

	sum := sha256.Sum256([]byte(token))
	if key.KeyHash != hex.EncodeToString(sum[:]) || key.Status != "active" {
		return nil, apperr.Unauthorized("invalid API key")
	}

	userOut, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: "USER#" + key.UserID},
			"SK": &types.AttributeValueMemberS{Value: "PROFILE"},
		},
	})
	if err != nil {
		return nil, apperr.Repo("lookup user", err)
	}
	if userOut.Item == nil {
		return nil, apperr.Unauthorized("user not found for API key")
	}

	var user userItem
	if err := attributevalue.UnmarshalMap(userOut.Item, &user); err != nil {
		return nil, apperr.Repo("unmarshal user", err)
	}
	if user.Status != "active" {
		return nil, apperr.Unauthorized("user account is " + user.Status)
	}

	return &User{ID: user.ID, Name: user.Name, Email: user.Email}, nil
}
