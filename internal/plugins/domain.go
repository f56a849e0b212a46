package plugins

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
	"github.com/botcast/worker/internal/urn"
)

// Resource is the port the domain plugin calls through, collapsing the
// corpus-observed duplication between a direct-repository implementation
// and an HTTP-API-client implementation (original_source's
// imports/repo.rs vs imports/api.rs) into one surface selected at wiring
// time. The worker wires repoResource directly; a future HTTP-backed
// implementation can satisfy the same port unchanged.
type Resource interface {
	GetPodcast(ctx context.Context, id string) (runtime.Value, error)
	GetEpisode(ctx context.Context, id string) (runtime.Value, error)
	GetComment(ctx context.Context, id string) (runtime.Value, error)
	GetScript(ctx context.Context, id string) (runtime.Value, error)
	NewEpisode(ctx context.Context, podcastID, title string, sections runtime.Value, description string) (runtime.Value, error)
	UpdateEpisode(ctx context.Context, id, title string, sections *runtime.Value, description *string) (runtime.Value, error)
	GetPodcastMails(ctx context.Context, cornerID string) (runtime.Value, error)
	Me(ctx context.Context) (runtime.Value, error)
}

// DomainPlugin registers get_podcast/get_episode/get_comment/get_script/
// new_episode/update_episode/get_podcast_mails/me, grounded on
// original_source's imports/repo.rs (the repository-backed sibling of
// imports/api.rs, here the only implementation since the redesign
// collapses both into one Resource port).
type DomainPlugin struct {
	Deps Deps
}

func (p DomainPlugin) resource() Resource {
	return repoResource{
		repos:       p.Deps.Repos,
		mails:       p.Deps.MailRepo,
		currentUser: p.Deps.CurrentUser,
	}
}

func (p DomainPlugin) Register(ctx *runtime.Context) {
	r := p.resource()
	ctx.Insert("get_podcast", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return oneIDCall(rc, args, "get_podcast", r.GetPodcast)
	})))
	ctx.Insert("get_episode", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return oneIDCall(rc, args, "get_episode", r.GetEpisode)
	})))
	ctx.Insert("get_comment", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return oneIDCall(rc, args, "get_comment", r.GetComment)
	})))
	ctx.Insert("get_script", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return oneIDCall(rc, args, "get_script", r.GetScript)
	})))
	ctx.Insert("new_episode", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return newEpisodeCall(rc, args, r)
	})))
	ctx.Insert("update_episode", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return updateEpisodeCall(rc, args, r)
	})))
	ctx.Insert("get_podcast_mails", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		return oneIDCall(rc, args, "get_podcast_mails", r.GetPodcastMails)
	})))
	ctx.Insert("me", runtime.Callable(runtime.AsyncFunc(func(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
		if len(args) != 0 {
			return runtime.Null, apperr.InvalidInput("me() takes no arguments")
		}
		return r.Me(rc.Go)
	})))
}

func oneIDCall(rc *runtime.RenderContext, args []runtime.Expr, name string, fn func(context.Context, string) (runtime.Value, error)) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("%s(id) takes exactly one argument", name)
	}
	id, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	return fn(rc.Go, id)
}

func newEpisodeCall(rc *runtime.RenderContext, args []runtime.Expr, r Resource) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 3 && len(vals) != 4 {
		return runtime.Null, apperr.InvalidInput("new_episode(podcast_id, title, sections, description?) takes 3 or 4 arguments")
	}
	podcastID, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	title, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	description := ""
	if len(vals) == 4 {
		description, err = runtime.AsString(vals[3])
		if err != nil {
			return runtime.Null, err
		}
	}
	return r.NewEpisode(rc.Go, podcastID, title, vals[2], description)
}

func updateEpisodeCall(rc *runtime.RenderContext, args []runtime.Expr, r Resource) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 4 {
		return runtime.Null, apperr.InvalidInput("update_episode(id, title, sections, description) takes exactly four arguments")
	}
	id, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	title, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	var sections *runtime.Value
	if !vals[2].IsNull() {
		sections = &vals[2]
	}
	var description *string
	if !vals[3].IsNull() {
		d, err := runtime.AsString(vals[3])
		if err != nil {
			return runtime.Null, err
		}
		description = &d
	}
	return r.UpdateEpisode(rc.Go, id, title, sections, description)
}

// repoResource is the DynamoDB-backed Resource, reading/writing straight
// through the repository layer rather than an HTTP API client.
type repoResource struct {
	repos       urn.Repos
	mails       repo.MailRepo
	currentUser func() (*repo.User, error)
}

func (r repoResource) GetPodcast(ctx context.Context, id string) (runtime.Value, error) {
	if r.repos.Podcast == nil {
		return runtime.Null, apperr.NotFound("podcast", id)
	}
	podcast, err := r.repos.Podcast.FindByID(ctx, id)
	if err != nil {
		return runtime.Null, err
	}
	v, err := structValue(podcast)
	if err != nil {
		return runtime.Null, err
	}
	var episodes []repo.Episode
	if r.repos.Episode != nil {
		episodes, err = r.repos.Episode.FindAllByPodcastID(ctx, id)
		if err != nil {
			return runtime.Null, err
		}
	}
	episodesValue, err := structValue(episodes)
	if err != nil {
		return runtime.Null, err
	}
	return appendPair(v, "episodes", episodesValue), nil
}

func (r repoResource) GetEpisode(ctx context.Context, id string) (runtime.Value, error) {
	return urn.Resolve(ctx, &runtime.RenderContext{Go: ctx}, urn.Format("episode", id), r.repos)
}

func (r repoResource) GetComment(ctx context.Context, id string) (runtime.Value, error) {
	return urn.Resolve(ctx, &runtime.RenderContext{Go: ctx}, urn.Format("comment", id), r.repos)
}

func (r repoResource) GetScript(ctx context.Context, id string) (runtime.Value, error) {
	if r.repos.Script == nil {
		return runtime.Null, apperr.NotFound("script", id)
	}
	script, err := r.repos.Script.FindByID(ctx, id)
	if err != nil {
		return runtime.Null, err
	}
	return structValue(script)
}

func (r repoResource) NewEpisode(ctx context.Context, podcastID, title string, sections runtime.Value, description string) (runtime.Value, error) {
	if r.repos.Episode == nil || r.repos.Script == nil {
		return runtime.Null, apperr.Other("new_episode: repositories not wired", nil)
	}
	manuscript, err := runtime.ToJSON(runtime.Object([]runtime.Pair{
		{Key: "title", Value: runtime.String(title)},
		{Key: "sections", Value: sections},
	}))
	if err != nil {
		return runtime.Null, apperr.Script("new_episode: render manuscript", err)
	}
	body, err := json.Marshal(manuscript)
	if err != nil {
		return runtime.Null, apperr.Other("new_episode: marshal manuscript", err)
	}

	ownerID := ""
	if r.currentUser != nil {
		if u, err := r.currentUser(); err == nil && u != nil {
			ownerID = u.ID
		}
	}

	script := &repo.Script{
		ID:       uuid.NewString(),
		OwnerID:  ownerID,
		Title:    title,
		Template: body,
		Result:   body,
	}
	if err := r.repos.Script.Create(ctx, script); err != nil {
		return runtime.Null, err
	}

	episode := &repo.Episode{
		ID:          uuid.NewString(),
		PodcastID:   podcastID,
		ScriptID:    script.ID,
		Title:       title,
		Description: description,
		CreatedAt:   time.Now().UTC(),
	}
	if err := r.repos.Episode.Create(ctx, episode); err != nil {
		return runtime.Null, err
	}
	return structValue(episode)
}

func (r repoResource) UpdateEpisode(ctx context.Context, id, title string, sections *runtime.Value, description *string) (runtime.Value, error) {
	if r.repos.Episode == nil {
		return runtime.Null, apperr.NotFound("episode", id)
	}
	episode, _, err := r.repos.Episode.FindByID(ctx, id)
	if err != nil {
		return runtime.Null, err
	}
	episode.Title = title
	if description != nil {
		episode.Description = *description
	}
	if sections != nil && r.repos.Script != nil && episode.ScriptID != "" {
		script, err := r.repos.Script.FindByID(ctx, episode.ScriptID)
		if err != nil {
			return runtime.Null, err
		}
		manuscript, err := runtime.ToJSON(runtime.Object([]runtime.Pair{
			{Key: "title", Value: runtime.String(title)},
			{Key: "sections", Value: *sections},
		}))
		if err != nil {
			return runtime.Null, apperr.Script("update_episode: render manuscript", err)
		}
		body, err := json.Marshal(manuscript)
		if err != nil {
			return runtime.Null, apperr.Other("update_episode: marshal manuscript", err)
		}
		script.Title = title
		script.Template = body
		script.Result = body
		if err := r.repos.Script.Update(ctx, script); err != nil {
			return runtime.Null, err
		}
	}
	if err := r.repos.Episode.Update(ctx, episode); err != nil {
		return runtime.Null, err
	}
	return structValue(episode)
}

func (r repoResource) GetPodcastMails(ctx context.Context, cornerID string) (runtime.Value, error) {
	if r.mails == nil {
		return runtime.Array(nil), nil
	}
	mails, err := r.mails.FindAllByCornerID(ctx, cornerID)
	if err != nil {
		return runtime.Null, err
	}
	return structValue(mails)
}

func (r repoResource) Me(ctx context.Context) (runtime.Value, error) {
	if r.currentUser == nil {
		return runtime.Null, apperr.Unauthorized("no authenticated user in context")
	}
	u, err := r.currentUser()
	if err != nil {
		return runtime.Null, err
	}
	return structValue(u)
}

func structValue(v any) (runtime.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return runtime.Null, apperr.Other("marshal domain result", err)
	}
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return runtime.Null, apperr.Other("decode domain result", err)
	}
	return runtime.FromJSON(raw), nil
}

func appendPair(v runtime.Value, key string, val runtime.Value) runtime.Value {
	pairs := append([]runtime.Pair{}, v.Obj()...)
	pairs = append(pairs, runtime.Pair{Key: key, Value: val})
	return runtime.Object(pairs)
}
