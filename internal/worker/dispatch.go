package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/audio"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
)

// evaluateScript loads a script, renders its template with the default
// plugin stack, and stores the result — SPEC_FULL.md §4.I step 3,
// EvaluateScript branch. No follow-up task.
func (l *Loop) evaluateScript(ctx context.Context, scriptID string) error {
	script, err := l.deps.Scripts.FindByID(ctx, scriptID)
	if err != nil {
		return err
	}

	result, err := l.renderTemplate(ctx, script.Template)
	if err != nil {
		return err
	}

	script.Result = result
	return l.deps.Scripts.Update(ctx, script)
}

func (l *Loop) renderTemplate(ctx context.Context, template []byte) ([]byte, error) {
	node, err := runtime.DecodeTemplate(template)
	if err != nil {
		return nil, apperr.Script("decode template", err)
	}

	rc := &runtime.RenderContext{Go: ctx, Vars: l.deps.RootContext}
	v, err := rc.Render(node)
	if err != nil {
		return nil, err
	}

	out, err := runtime.ToJSON(v)
	if err != nil {
		return nil, apperr.Script("marshal render result", err)
	}
	result, err := json.Marshal(out)
	if err != nil {
		return nil, apperr.Script("marshal render result", err)
	}
	return result, nil
}

// generateAudio loads an episode's script, requires its last result to
// be a Manuscript, runs the audio pipeline, uploads the artifacts, and
// patches the episode — SPEC_FULL.md §4.I step 3, GenerateAudio branch.
func (l *Loop) generateAudio(ctx context.Context, episodeID string) error {
	episode, _, err := l.deps.Episodes.FindByID(ctx, episodeID)
	if err != nil {
		return err
	}
	if episode.ScriptID == "" {
		return apperr.InvalidInput("episode %s has no script", episodeID)
	}

	script, err := l.deps.Scripts.FindByID(ctx, episode.ScriptID)
	if err != nil {
		return err
	}
	if len(script.Result) == 0 {
		return apperr.InvalidInput("script %s has not been evaluated", script.ID)
	}

	manuscript, err := audio.DecodeManuscript(script.Result)
	if err != nil {
		return err
	}
	segments, err := audio.BuildSegments(manuscript)
	if err != nil {
		return err
	}

	workDir, err := l.acquireWorkDir(episode.ID)
	if err != nil {
		return apperr.Other("create work dir", err)
	}
	defer l.releaseWorkDir(workDir)

	result, err := l.deps.Pipeline.Run(ctx, workDir, segments)
	if err != nil {
		return err
	}

	audioURL, err := l.deps.Upload.UploadAudio(ctx, episode.ID, result.MP3Path)
	if err != nil {
		return apperr.Other("upload audio", err)
	}
	srtURL, err := l.deps.Upload.UploadSRT(ctx, episode.ID, result.SRT)
	if err != nil {
		return apperr.Other("upload srt", err)
	}

	episode.AudioURL = audioURL
	episode.SRTURL = srtURL
	return l.deps.Episodes.Update(ctx, episode)
}

// newEpisode loads the preceding episode to find its podcast, evaluates
// the script to derive the new episode's title, creates the new episode,
// and schedules the next NewEpisode task per the podcast's cron —
// SPEC_FULL.md §4.I step 3, NewEpisode branch (the {pre_episode_id}
// variant chosen in §9's Open Question resolution).
func (l *Loop) newEpisode(ctx context.Context, preEpisodeID string) error {
	preEpisode, _, err := l.deps.Episodes.FindByID(ctx, preEpisodeID)
	if err != nil {
		return err
	}

	podcast, err := l.deps.Podcasts.FindByID(ctx, preEpisode.PodcastID)
	if err != nil {
		return err
	}
	if podcast.Cron == "" {
		return apperr.InvalidInput("podcast %s has no cron", podcast.ID)
	}

	if preEpisode.ScriptID == "" {
		return apperr.InvalidInput("preceding episode %s has no script", preEpisode.ID)
	}
	preScript, err := l.deps.Scripts.FindByID(ctx, preEpisode.ScriptID)
	if err != nil {
		return err
	}

	result, err := l.renderTemplate(ctx, preScript.Template)
	if err != nil {
		return err
	}
	manuscript, err := audio.DecodeManuscript(result)
	if err != nil {
		return err
	}

	newScript := &repo.Script{
		ID:       uuid.NewString(),
		OwnerID:  podcast.Owner,
		Title:    manuscript.Title,
		Template: preScript.Template,
		Result:   result,
	}
	if err := l.deps.Scripts.Create(ctx, newScript); err != nil {
		return err
	}

	newEpisode := &repo.Episode{
		ID:        uuid.NewString(),
		PodcastID: podcast.ID,
		ScriptID:  newScript.ID,
		Title:     manuscript.Title,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.deps.Episodes.Create(ctx, newEpisode); err != nil {
		return err
	}

	next, err := nextCronInstant(podcast.Cron, time.Now().UTC())
	if err != nil {
		return err
	}

	followUp := &repo.Task{
		ID:           uuid.NewString(),
		Status:       repo.TaskPending,
		Args:         repo.TaskArgs{Type: repo.ArgsNewEpisode, PreEpisodeID: newEpisode.ID},
		ExecuteAfter: next,
	}
	return l.deps.Tasks.Create(ctx, followUp)
}

// nextCronInstant resolves the next upcoming instant for a cron
// expression, surfacing a Script error when none falls within a year —
// SPEC_FULL.md §4.I step 3.
func nextCronInstant(expr string, from time.Time) (time.Time, error) {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return time.Time{}, apperr.Script("parse cron expression", err)
	}
	next := schedule.Next(from)
	if next.IsZero() || next.After(from.AddDate(1, 0, 0)) {
		return time.Time{}, apperr.Script(fmt.Sprintf("cron %q has no upcoming instant within a year", expr), nil)
	}
	return next, nil
}

// acquireWorkDir creates a scoped temp directory for one task.
func (l *Loop) acquireWorkDir(taskKey string) (string, error) {
	root := l.deps.WorkDirRoot
	if root == "" {
		root = os.TempDir()
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return "", err
	}
	return os.MkdirTemp(root, taskKey+"-*")
}

// releaseWorkDir removes a task's working directory on every exit path
// unless KEEP_WORKDIR is set, per SPEC_FULL.md §4.G.
func (l *Loop) releaseWorkDir(dir string) {
	if l.deps.KeepWorkDir {
		return
	}
	_ = os.RemoveAll(dir)
}
