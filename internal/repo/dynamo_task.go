package repo

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/botcast/worker/internal/apperr"
)

// taskItem is the single-table record for a Task. GSI1PK/GSI1SK are only
// populated while Status is Pending: DynamoDB's sparse-index behavior
// means a Completed/Failed/Running task simply drops out of the Pop query
// without needing an explicit filter.
type taskItem struct {
	PK           string `dynamodbav:"PK"`
	SK           string `dynamodbav:"SK"`
	GSI1PK       string `dynamodbav:"GSI1PK,omitempty"`
	GSI1SK       string `dynamodbav:"GSI1SK,omitempty"`
	ID           string `dynamodbav:"id"`
	Status       string `dynamodbav:"status"`
	ArgsType     string `dynamodbav:"argsType"`
	EpisodeID    string `dynamodbav:"episodeId,omitempty"`
	ScriptID     string `dynamodbav:"scriptId,omitempty"`
	PreEpisodeID string `dynamodbav:"preEpisodeId,omitempty"`
	ExecuteAfter string `dynamodbav:"executeAfter"`
	ExecutedAt   string `dynamodbav:"executedAt,omitempty"`
	Result       string `dynamodbav:"result,omitempty"`
}

const taskPendingGSI1PK = "TASKS#PENDING"

func taskKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		"PK": &types.AttributeValueMemberS{Value: "TASK#" + id},
		"SK": &types.AttributeValueMemberS{Value: "METADATA"},
	}
}

func (it taskItem) toTask() (*Task, error) {
	executeAfter, err := time.Parse(time.RFC3339Nano, it.ExecuteAfter)
	if err != nil {
		return nil, apperr.Repo("parse task executeAfter", err)
	}
	t := &Task{
		ID:     it.ID,
		Status: TaskStatus(it.Status),
		Args: TaskArgs{
			Type:         TaskArgsType(it.ArgsType),
			EpisodeID:    it.EpisodeID,
			ScriptID:     it.ScriptID,
			PreEpisodeID: it.PreEpisodeID,
		},
		ExecuteAfter: executeAfter,
	}
	if it.ExecutedAt != "" {
		executedAt, err := time.Parse(time.RFC3339Nano, it.ExecutedAt)
		if err != nil {
			return nil, apperr.Repo("parse task executedAt", err)
		}
		t.ExecutedAt = &executedAt
	}
	if it.Result != "" {
		t.Result = []byte(it.Result)
	}
	return t, nil
}

func taskToItem(t *Task) taskItem {
	item := taskItem{
		PK:           "TASK#" + t.ID,
		SK:           "METADATA",
		ID:           t.ID,
		Status:       string(t.Status),
		ArgsType:     string(t.Args.Type),
		EpisodeID:    t.Args.EpisodeID,
		ScriptID:     t.Args.ScriptID,
		PreEpisodeID: t.Args.PreEpisodeID,
		ExecuteAfter: t.ExecuteAfter.Format(time.RFC3339Nano),
	}
	if t.Status == TaskPending {
		item.GSI1PK = taskPendingGSI1PK
		item.GSI1SK = t.ExecuteAfter.Format(time.RFC3339Nano) + "#" + t.ID
	}
	if t.ExecutedAt != nil {
		item.ExecutedAt = t.ExecutedAt.Format(time.RFC3339Nano)
	}
	if t.Result != nil {
		item.Result = string(t.Result)
	}
	return item
}

// DynamoTaskRepo is the DynamoDB-backed implementation of TaskRepo.
type DynamoTaskRepo struct{ *Store }

func NewTaskRepo(s *Store) *DynamoTaskRepo { return &DynamoTaskRepo{s} }

func (r *DynamoTaskRepo) FindByID(ctx context.Context, id string) (*Task, error) {
	out, err := r.Client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: &r.TableName,
		Key:       taskKey(id),
	})
	if err != nil {
		return nil, apperr.Repo("get task", err)
	}
	if out.Item == nil {
		return nil, apperr.NotFound("task", id)
	}
	var item taskItem
	if err := attributevalue.UnmarshalMap(out.Item, &item); err != nil {
		return nil, apperr.Repo("unmarshal task", err)
	}
	return item.toTask()
}

func (r *DynamoTaskRepo) Create(ctx context.Context, t *Task) error {
	av, err := attributevalue.MarshalMap(taskToItem(t))
	if err != nil {
		return apperr.Repo("marshal task", err)
	}
	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName:           &r.TableName,
		Item:                av,
		ConditionExpression: aws.String("attribute_not_exists(PK)"),
	})
	if err != nil {
		return apperr.Repo("create task", err)
	}
	return nil
}

func (r *DynamoTaskRepo) Update(ctx context.Context, t *Task) error {
	item := taskToItem(t)
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return apperr.Repo("marshal task", err)
	}
	// Completed/Failed/Running tasks carry no GSI1 attributes (sparse
	// index); DynamoDB requires an explicit REMOVE for attributes no
	// longer present in a PutItem-equivalent UpdateExpression, so a plain
	// PutItem (which replaces the whole item) is simplest here.
	_, err = r.Client.PutItem(ctx, &dynamodb.PutItemInput{
		TableName: &r.TableName,
		Item:      av,
	})
	if err != nil {
		return apperr.Repo("update task", err)
	}
	return nil
}

// Pop atomically selects the Pending task with the smallest
// (execute_after, id) tuple whose execute_after <= now, flips it to
// Running, and returns it. The select-then-conditionally-update sequence
// is made safe against a racing Pop by the TransactWriteItems condition
// expression, which fails the whole transaction if another worker already
// claimed the row; this call then returns (nil, nil) without retrying, and
// the caller's next poll queries again.
func (r *DynamoTaskRepo) Pop(ctx context.Context, now time.Time) (*Task, error) {
	nowKey := now.UTC().Format(time.RFC3339Nano)
	out, err := r.Client.Query(ctx, &dynamodb.QueryInput{
		TableName:              &r.TableName,
		IndexName:              aws.String(gsi1Name),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK <= :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk":  &types.AttributeValueMemberS{Value: taskPendingGSI1PK},
			":now": &types.AttributeValueMemberS{Value: nowKey},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(1),
	})
	if err != nil {
		return nil, apperr.Repo("query pending tasks", err)
	}
	if len(out.Items) == 0 {
		return nil, nil
	}
	var item taskItem
	if err := attributevalue.UnmarshalMap(out.Items[0], &item); err != nil {
		return nil, apperr.Repo("unmarshal task", err)
	}

	_, err = r.Client.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{
		TransactItems: []types.TransactWriteItem{
			{
				Update: &types.Update{
					TableName: &r.TableName,
					Key:       taskKey(item.ID),
					UpdateExpression: aws.String(
						"SET #status = :running REMOVE GSI1PK, GSI1SK"),
					ConditionExpression: aws.String(
						"attribute_exists(PK) AND #status = :pending"),
					ExpressionAttributeNames: map[string]string{"#status": "status"},
					ExpressionAttributeValues: map[string]types.AttributeValue{
						":running": &types.AttributeValueMemberS{Value: string(TaskRunning)},
						":pending": &types.AttributeValueMemberS{Value: string(TaskPending)},
					},
				},
			},
		},
	})
	if err != nil {
		var ccf *types.TransactionCanceledException
		if errors.As(err, &ccf) {
			// Lost the race to another worker; the caller's next cycle
			// will query again.
			return nil, nil
		}
		return nil, apperr.Repo("claim task", err)
	}

	item.Status = string(TaskRunning)
	item.GSI1PK = ""
	item.GSI1SK = ""
	return item.toTask()
}

func (r *DynamoTaskRepo) FindStuckRunning(ctx context.Context) ([]Task, error) {
	out, err := r.Client.Scan(ctx, &dynamodb.ScanInput{
		TableName:        &r.TableName,
		FilterExpression: aws.String("begins_with(PK, :prefix) AND SK = :sk AND #status = :running"),
		ExpressionAttributeNames: map[string]string{
			"#status": "status",
		},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":prefix":  &types.AttributeValueMemberS{Value: "TASK#"},
			":sk":      &types.AttributeValueMemberS{Value: "METADATA"},
			":running": &types.AttributeValueMemberS{Value: string(TaskRunning)},
		},
	})
	if err != nil {
		return nil, apperr.Repo("scan stuck tasks", err)
	}
	var items []taskItem
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &items); err != nil {
		return nil, apperr.Repo("unmarshal stuck task list", err)
	}
	tasks := make([]Task, 0, len(items))
	for _, it := range items {
		t, err := it.toTask()
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, *t)
	}
	return tasks, nil
}
