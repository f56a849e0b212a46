// Package worker implements the single-goroutine task loop (SPEC_FULL.md
// §4.I): poll the queue, dispatch by Args variant, persist the result.
package worker

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/audio"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
)

var tracer = otel.Tracer("botcast-worker")

const pollInterval = 5 * time.Second

// Deps bundles the repositories and capabilities the loop dispatches
// into, mirroring the teacher's TaskManager's store/storage bundle.
type Deps struct {
	Tasks    repo.TaskRepo
	Scripts  repo.ScriptRepo
	Episodes repo.EpisodeRepo
	Podcasts repo.PodcastRepo

	RootContext *runtime.Context // runtime.NewRootContext(plugins.Default(d)...), wired once at startup
	Pipeline    *audio.Pipeline
	Upload   Uploader

	WorkDirRoot string
	KeepWorkDir bool

	Log *slog.Logger
}

// Uploader ships the pipeline's MP3/SRT artifacts to durable storage,
// grounded on the teacher's mcpserver/storage.go Storage.Upload.
type Uploader interface {
	UploadAudio(ctx context.Context, episodeID, path string) (url string, err error)
	UploadSRT(ctx context.Context, episodeID, content string) (url string, err error)
}

// Loop owns the single worker goroutine.
type Loop struct {
	deps Deps
}

func New(deps Deps) *Loop {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	return &Loop{deps: deps}
}

// Run blocks, polling every pollInterval until ctx is cancelled. It never
// runs two tasks concurrently; Pop serializes selection.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.cycle(ctx)
		}
	}
}

func (l *Loop) cycle(ctx context.Context) {
	ctx, span := tracer.Start(ctx, "worker.cycle")
	defer span.End()

	task, err := l.deps.Tasks.Pop(ctx, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "pop failed")
		l.deps.Log.ErrorContext(ctx, "pop task failed", "error", err)
		return
	}
	if task == nil {
		return
	}

	span.SetAttributes(
		attribute.String("task_id", task.ID),
		attribute.String("task_type", string(task.Args.Type)),
	)
	log := l.deps.Log.With("task_id", task.ID, "task_type", task.Args.Type)
	log.InfoContext(ctx, "dispatching task")

	dispatchErr := l.dispatch(ctx, task)

	now := time.Now().UTC()
	task.ExecutedAt = &now
	if dispatchErr != nil {
		span.RecordError(dispatchErr)
		span.SetStatus(codes.Error, "dispatch failed")
		log.ErrorContext(ctx, "task failed", "error", dispatchErr)
		task.Status = repo.TaskFailed
	} else {
		span.SetStatus(codes.Ok, "complete")
		log.InfoContext(ctx, "task complete")
		task.Status = repo.TaskCompleted
	}

	if err := l.deps.Tasks.Update(ctx, task); err != nil {
		log.ErrorContext(ctx, "persist task status failed", "error", err)
	}
}

func (l *Loop) dispatch(ctx context.Context, task *repo.Task) error {
	ctx, span := tracer.Start(ctx, "worker.dispatch."+string(task.Args.Type),
		trace.WithAttributes(attribute.String("task_id", task.ID)))
	defer span.End()

	switch task.Args.Type {
	case repo.ArgsEvaluateScript:
		return l.evaluateScript(ctx, task.Args.ScriptID)
	case repo.ArgsGenerateAudio:
		return l.generateAudio(ctx, task.Args.EpisodeID)
	case repo.ArgsNewEpisode:
		return l.newEpisode(ctx, task.Args.PreEpisodeID)
	default:
		return apperr.InvalidInput("unknown task args type %q", task.Args.Type)
	}
}
