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

// episodeItem is keyed directly by episode id (PK) so FindByID is a single
// GetItem; GSI1 groups episodes under their podcast, sorted by creation
// time, for FindAllByPodcastID / FindMostRecentByPodcastID.
type episodeItem struct {
	PK          string `dynamodbav:"PK"`
	SK          string `dynamodbav:"SK"`
	GSI1PK      string `dynamodbav:"GSI1PK"`
	GSI1SK      string `dynamodbav:"GSI1SK"`
	ID          string `dynamodbav:"id"`
	PodcastID   string `dynamodbav:"podcastId"`
	ScriptID    string `dynamodbav:"scriptId,omitempty"`
	Title       string `dynamodbav:"title"`
	Description string `dynamodbav:"description,omitempty"`
	AudioURL    string `dynamodbav:"audioUrl,omitempty"`
	SRTURL      string `dynamodbav:"srtUrl,omitempty"`
	CreatedAt   string `dynamodbav:"createdAt"`
}

func episodeKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "EPISODE#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (it episodeItem) toEpisode() (Episode, error) {
	createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
	if err != nil {
		return Episode{}, apperr.Repo("parse episode createdAt", err)
	}
	return Episode{
		ID:          it.ID,
		PodcastID:   it.PodcastID,
		ScriptID:    it.ScriptID,
		Title:       it.Title,
		Description: it.Description,
		AudioURL:    it.AudioURL,
		SRTURL:      it.SRTURL,
		CreatedAt:   createdAt,
	}, nil
}

// commentItem is keyed directly by comment id; GSI1 groups comments by
// episode, sorted by creation time.
type commentItem struct {
	PK        string `dynamodbav:"PK"`
	SK        string `dynamodbav:"SK"`
	GSI1PK    string `dynamodbav:"GSI1PK"`
	GSI1SK    string `dynamodbav:"GSI1SK"`
	ID        string `dynamodbav:"id"`
	EpisodeID string `dynamodbav:"episodeId"`
	Content   string `dynamodbav:"content"`
	CreatedAt string `dynamodbav:"createdAt"`
}

func commentKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "COMMENT#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

// DynamoEpisodeRepo is the DynamoDB-backed implementation of EpisodeRepo.
type DynamoEpisodeRepo struct {
	*Store
	comments *DynamoCommentRepo
}

func NewEpisodeRepo(s *Store, comments *DynamoCommentRepo) *DynamoEpisodeRepo {
	return &DynamoEpisodeRepo{Store: s, comments: comments}
}

func (r *DynamoEpisodeRepo) FindByID(ctx context.Context, id string) (*Episode, []Comment, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key:       episodeKey(id),
	})
	if err != nil {
		return nil, nil, apperr.Repo("get episode", err)
	}
	if out.Item == nil {
		return nil, nil, apperr.NotFound("episode", id)
	}
	var item episodeItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, nil, apperr.Repo("unmarshal episode", err)
	}
	ep, err := item.toEpisode()
	if err != nil {
		return nil, nil, err
	}
	comments, err := r.comments.FindAllByEpisodeID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return &ep, comments, nil
}

func (r *DynamoEpisodeRepo) FindAllByPodcastID(ctx context.Context, podcastID string) ([]Episode, error) {
	out, err := r.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.TableName,
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "PODCAST#" + podcastID},
		},
		ScanIndexForward: aws.Bool(false),
	})
	if err != nil {
		return nil, apperr.Repo("list episodes", err)
	}
	var items []episodeItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, apperr.Repo("unmarshal episode list", err)
	}
	episodes := make([]Episode, 0, len(items))
	for _, it := range items {
		ep, err := it.toEpisode()
		if err != nil {
			return nil, err
		}
		episodes = append(episodes, ep)
	}
	return episodes, nil
}

func (r *DynamoEpisodeRepo) FindMostRecentByPodcastID(ctx context.Context, podcastID string) (*Episode, error) {
	out, err := r.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.TableName,
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "PODCAST#" + podcastID},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, apperr.Repo("find most recent episode", err)
	}
	if len(out.Items) == 0 {
		return nil, apperr.NotFound("episode", "most-recent-for-"+podcastID)
	}
	var item episodeItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperr.Repo("unmarshal episode", err)
	}
	ep, err := item.toEpisode()
	if err != nil {
		return nil, err
	}
	return &ep, nil
}

func (r *DynamoEpisodeRepo) Create(ctx context.Context, e *Episode) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	item := episodeItem{
		PK:          "EPISODE#" + e.ID,
		SK:          "METADATA",
		GSI1PK:      "PODCAST#" + e.PodcastID,
		GSI1SK:      e.CreatedAt.Format(time.RFC3339Nano) + "#" + e.ID,
		ID:          e.ID,
		PodcastID:   e.PodcastID,
		ScriptID:    e.ScriptID,
		Title:       e.Title,
		Description: e.Description,
		AudioURL:    e.AudioURL,
		SRTURL:      e.SRTURL,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339Nano),
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperr.Repo("marshal episode", err)
	}
	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.TableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperr.Repo("create episode", err)
	}
	return nil
}

func (r *DynamoEpisodeRepo) Update(ctx context.Context, e *Episode) error {
	_, err := r.Client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName: &r.TableName,
		Key:       episodeKey(e.ID),
		UpdateExpression: aws.String(
			"SET title = :title, description = :desc, audioUrl = :audio, srtUrl = :srt, scriptId = :script"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":title":  &types.AttributeValueMemberS{Value: e.Title},
			":desc":   &types.AttributeValueMemberS{Value: e.Description},
			":audio":  &types.AttributeValueMemberS{Value: e.AudioURL},
			":srt":    &types.AttributeValueMemberS{Value: e.SRTURL},
			":script": &types.AttributeValueMemberS{Value: e.ScriptID},
		},
	})
	if err != nil {
		return apperr.Repo("update episode", err)
	}
	return nil
}

// DynamoCommentRepo is the DynamoDB-backed implementation of CommentRepo.
type DynamoCommentRepo struct{ *Store }

func NewCommentRepo(s *Store) *DynamoCommentRepo { return &DynamoCommentRepo{s} }

func (r *DynamoCommentRepo) FindByID(ctx context.Context, id string) (*Comment, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key:       commentKey(id),
	})
	if err != nil {
		return nil, apperr.Repo("get comment", err)
	}
	if out.Item == nil {
		return nil, apperr.NotFound("comment", id)
	}
	var item commentItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperr.Repo("unmarshal comment", err)
	}
	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, apperr.Repo("parse comment createdAt", err)
	}
	return &Comment{ID: item.ID, EpisodeID: item.EpisodeID, Content: item.Content, CreatedAt: createdAt}, nil
}

func (r *DynamoCommentRepo) FindAllByEpisodeID(ctx context.Context, episodeID string) ([]Comment, error) {
	out, err := r.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.TableName,
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: "EPISODE#" + episodeID},
		},
		ScanIndexForward: aws.Bool(true),
	})
	if err != nil {
		return nil, apperr.Repo("list comments", err)
	}
	var items []commentItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, apperr.Repo("unmarshal comment list", err)
	}
	comments := make([]Comment, 0, len(items))
	for _, it := range items {
		createdAt, err := time.Parse(time.RFC3339Nano, it.CreatedAt)
		if err != nil {
			return nil, apperr.Repo("parse comment createdAt", err)
		}
		comments = append(comments, Comment{ID: it.ID, EpisodeID: it.EpisodeID, Content: it.Content, CreatedAt: createdAt})
	}
	return comments, nil
}
