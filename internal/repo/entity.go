// Package repo defines the domain entities and repository interfaces the
// script runtime and worker read and write through, plus a DynamoDB-backed
// implementation and in-memory fakes for tests.
package repo

import "time"

// TaskStatus is the lifecycle state of a Task.
type TaskStatus string

const (
	TaskPending   TaskStatus = "Pending"
	TaskRunning   TaskStatus = "Running"
	TaskCompleted TaskStatus = "Completed"
	TaskFailed    TaskStatus = "Failed"
)

// TaskArgsType tags the variant carried by Task.Args.
type TaskArgsType string

const (
	ArgsGenerateAudio  TaskArgsType = "GenerateAudio"
	ArgsEvaluateScript TaskArgsType = "EvaluateScript"
	ArgsNewEpisode     TaskArgsType = "NewEpisode"
)

// TaskArgs is the tagged union a Task carries, mirroring the wire shape in
// SPEC_FULL.md §6 ({"type":"GenerateAudio","episodeId":"..."}, etc).
type TaskArgs struct {
	Type         TaskArgsType `json:"type" dynamodbav:"type"`
	EpisodeID    string       `json:"episodeId,omitempty" dynamodbav:"episodeId,omitempty"`
	ScriptID     string       `json:"scriptId,omitempty" dynamodbav:"scriptId,omitempty"`
	PreEpisodeID string       `json:"preEpisodeId,omitempty" dynamodbav:"preEpisodeId,omitempty"`
}

// Task is a durable unit of work in the queue.
type Task struct {
	ID           string     `json:"id" dynamodbav:"id"`
	Status       TaskStatus `json:"status" dynamodbav:"status"`
	Args         TaskArgs   `json:"args" dynamodbav:"args"`
	ExecuteAfter time.Time  `json:"executeAfter" dynamodbav:"executeAfter"`
	ExecutedAt   *time.Time `json:"executedAt,omitempty" dynamodbav:"executedAt,omitempty"`
	Result       []byte     `json:"result,omitempty" dynamodbav:"result,omitempty"`
}

// Script is an owner-authored template plus its last evaluated result.
type Script struct {
	ID      string `json:"id" dynamodbav:"id"`
	OwnerID string `json:"ownerId" dynamodbav:"ownerId"`
	Title   string `json:"title" dynamodbav:"title"`
	// Template is the raw template JSON document, stored verbatim so the
	// runtime's order-preserving decoder can re-parse it on every render.
	Template []byte `json:"template" dynamodbav:"template"`
	// Result is the last successfully rendered JSON value, or nil.
	Result []byte `json:"result,omitempty" dynamodbav:"result,omitempty"`
}

// Podcast is a show: a recurring source of Episodes, optionally scheduled
// by a cron expression that drives NewEpisode tasks.
type Podcast struct {
	ID    string `json:"id" dynamodbav:"id"`
	Owner string `json:"ownerId" dynamodbav:"ownerId"`
	Title string `json:"title" dynamodbav:"title"`
	Cron  string `json:"cron,omitempty" dynamodbav:"cron,omitempty"`
}

// Episode belongs to a Podcast and is produced by rendering a Script into
// a Manuscript, then synthesizing it into audio.
type Episode struct {
	ID          string    `json:"id" dynamodbav:"id"`
	PodcastID   string    `json:"podcastId" dynamodbav:"podcastId"`
	ScriptID    string    `json:"scriptId,omitempty" dynamodbav:"scriptId,omitempty"`
	Title       string    `json:"title" dynamodbav:"title"`
	Description string    `json:"description,omitempty" dynamodbav:"description,omitempty"`
	AudioURL    string    `json:"audioUrl,omitempty" dynamodbav:"audioUrl,omitempty"`
	SRTURL      string    `json:"srtUrl,omitempty" dynamodbav:"srtUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// Comment belongs to an Episode.
type Comment struct {
	ID        string    `json:"id" dynamodbav:"id"`
	EpisodeID string    `json:"episodeId" dynamodbav:"episodeId"`
	Content   string    `json:"content" dynamodbav:"content"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// Corner groups listener Mails, e.g. a recurring segment of a show.
type Corner struct {
	ID    string `json:"id" dynamodbav:"id"`
	Title string `json:"title" dynamodbav:"title"`
}

// Mail belongs to a Corner.
type Mail struct {
	ID        string    `json:"id" dynamodbav:"id"`
	CornerID  string    `json:"cornerId" dynamodbav:"cornerId"`
	Body      string    `json:"body" dynamodbav:"body"`
	CreatedAt time.Time `json:"createdAt" dynamodbav:"createdAt"`
}

// Secret is an (ownerID, name) -> value lookup for plugin API keys, stored
// as a DynamoDB item and read through SecretRepo on every lookup (no
// in-process cache).
type Secret struct {
	OwnerID string `json:"ownerId" dynamodbav:"ownerId"`
	Name    string `json:"name" dynamodbav:"name"`
	Value   string `json:"value" dynamodbav:"value"`
}

// User is the identity resolved from a Bearer API key by the HTTP facade's
// auth middleware, returned by the domain plugin's me() builtin.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}
