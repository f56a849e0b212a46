package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/botcast/worker/internal/apperr"
)

// The in-memory fakes below back package tests the way the original
// implementation's DummyScriptRepo/DummyEpisodeRepo backed its own tests:
// no network, deterministic, safe for concurrent use.

// MemoryScriptRepo is an in-memory ScriptRepo fake.
type MemoryScriptRepo struct {
	mu      sync.Mutex
	scripts map[string]*Script
}

func NewMemoryScriptRepo() *MemoryScriptRepo {
	return &MemoryScriptRepo{scripts: make(map[string]*Script)}
}

func (r *MemoryScriptRepo) Put(s *Script) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.scripts[s.ID] = &cp
}

func (r *MemoryScriptRepo) FindByID(ctx context.Context, id string) (*Script, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.scripts[id]
	if !ok {
		return nil, apperr.NotFound("script", id)
	}
	cp := *s
	return &cp, nil
}

func (r *MemoryScriptRepo) Create(ctx context.Context, s *Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.scripts[s.ID]; exists {
		return apperr.InvalidInput("script %s already exists", s.ID)
	}
	cp := *s
	r.scripts[s.ID] = &cp
	return nil
}

func (r *MemoryScriptRepo) Update(ctx context.Context, s *Script) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.scripts[s.ID]; !ok {
		return apperr.NotFound("script", s.ID)
	}
	cp := *s
	r.scripts[s.ID] = &cp
	return nil
}

// MemoryEpisodeRepo is an in-memory EpisodeRepo fake.
type MemoryEpisodeRepo struct {
	mu       sync.Mutex
	episodes map[string]*Episode
	comments *MemoryCommentRepo
}

func NewMemoryEpisodeRepo(comments *MemoryCommentRepo) *MemoryEpisodeRepo {
	return &MemoryEpisodeRepo{episodes: make(map[string]*Episode), comments: comments}
}

func (r *MemoryEpisodeRepo) Put(e *Episode) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *e
	r.episodes[e.ID] = &cp
}

func (r *MemoryEpisodeRepo) FindByID(ctx context.Context, id string) (*Episode, []Comment, error) {
	r.mu.Lock()
	e, ok := r.episodes[id]
	r.mu.Unlock()
	if !ok {
		return nil, nil, apperr.NotFound("episode", id)
	}
	var comments []Comment
	if r.comments != nil {
		comments, _ = r.comments.FindAllByEpisodeID(ctx, id)
	}
	cp := *e
	return &cp, comments, nil
}

func (r *MemoryEpisodeRepo) FindAllByPodcastID(ctx context.Context, podcastID string) ([]Episode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Episode
	for _, e := range r.episodes {
		if e.PodcastID == podcastID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *MemoryEpisodeRepo) FindMostRecentByPodcastID(ctx context.Context, podcastID string) (*Episode, error) {
	all, _ := r.FindAllByPodcastID(ctx, podcastID)
	if len(all) == 0 {
		return nil, apperr.NotFound("episode", "most-recent-for-"+podcastID)
	}
	return &all[0], nil
}

func (r *MemoryEpisodeRepo) Create(ctx context.Context, e *Episode) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	r.Put(e)
	return nil
}

func (r *MemoryEpisodeRepo) Update(ctx context.Context, e *Episode) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.episodes[e.ID]; !ok {
		return apperr.NotFound("episode", e.ID)
	}
	cp := *e
	r.episodes[e.ID] = &cp
	return nil
}

// MemoryCommentRepo is an in-memory CommentRepo fake.
type MemoryCommentRepo struct {
	mu       sync.Mutex
	comments map[string]*Comment
}

func NewMemoryCommentRepo() *MemoryCommentRepo {
	return &MemoryCommentRepo{comments: make(map[string]*Comment)}
}

func (r *MemoryCommentRepo) Put(c *Comment) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	r.comments[c.ID] = &cp
}

func (r *MemoryCommentRepo) FindByID(ctx context.Context, id string) (*Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.comments[id]
	if !ok {
		return nil, apperr.NotFound("comment", id)
	}
	cp := *c
	return &cp, nil
}

func (r *MemoryCommentRepo) FindAllByEpisodeID(ctx context.Context, episodeID string) ([]Comment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Comment
	for _, c := range r.comments {
		if c.EpisodeID == episodeID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// MemoryPodcastRepo is an in-memory PodcastRepo fake.
type MemoryPodcastRepo struct {
	mu       sync.Mutex
	podcasts map[string]*Podcast
}

func NewMemoryPodcastRepo() *MemoryPodcastRepo {
	return &MemoryPodcastRepo{podcasts: make(map[string]*Podcast)}
}

func (r *MemoryPodcastRepo) Put(p *Podcast) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *p
	r.podcasts[p.ID] = &cp
}

func (r *MemoryPodcastRepo) FindByID(ctx context.Context, id string) (*Podcast, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.podcasts[id]
	if !ok {
		return nil, apperr.NotFound("podcast", id)
	}
	cp := *p
	return &cp, nil
}

// MemoryTaskRepo is an in-memory TaskRepo fake reproducing the Pop
// compare-and-set over a plain mutex-guarded map, used by worker tests
// that need real (execute_after, id) ordering without DynamoDB.
type MemoryTaskRepo struct {
	mu    sync.Mutex
	tasks map[string]*Task
}

func NewMemoryTaskRepo() *MemoryTaskRepo {
	return &MemoryTaskRepo{tasks: make(map[string]*Task)}
}

func (r *MemoryTaskRepo) FindByID(ctx context.Context, id string) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tasks[id]
	if !ok {
		return nil, apperr.NotFound("task", id)
	}
	cp := *t
	return &cp, nil
}

func (r *MemoryTaskRepo) Create(ctx context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tasks[t.ID]; exists {
		return apperr.InvalidInput("task %s already exists", t.ID)
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *MemoryTaskRepo) Update(ctx context.Context, t *Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tasks[t.ID]; !ok {
		return apperr.NotFound("task", t.ID)
	}
	cp := *t
	r.tasks[t.ID] = &cp
	return nil
}

func (r *MemoryTaskRepo) Pop(ctx context.Context, now time.Time) (*Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var best *Task
	for _, t := range r.tasks {
		if t.Status != TaskPending || t.ExecuteAfter.After(now) {
			continue
		}
		if best == nil ||
			t.ExecuteAfter.Before(best.ExecuteAfter) ||
			(t.ExecuteAfter.Equal(best.ExecuteAfter) && t.ID < best.ID) {
			best = t
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = TaskRunning
	cp := *best
	return &cp, nil
}

func (r *MemoryTaskRepo) FindStuckRunning(ctx context.Context) ([]Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Task
	for _, t := range r.tasks {
		if t.Status == TaskRunning {
			out = append(out, *t)
		}
	}
	return out, nil
}

// MemorySecretRepo is an in-memory SecretRepo fake.
type MemorySecretRepo struct {
	mu      sync.Mutex
	secrets map[string]string
}

func NewMemorySecretRepo() *MemorySecretRepo {
	return &MemorySecretRepo{secrets: make(map[string]string)}
}

func (r *MemorySecretRepo) Put(ownerID, name, value string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.secrets[ownerID+"/"+name] = value
}

func (r *MemorySecretRepo) FindByName(ctx context.Context, ownerID, name string) (*Secret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.secrets[ownerID+"/"+name]
	if !ok {
		return nil, apperr.NotFound("secret", ownerID+"/"+name)
	}
	return &Secret{OwnerID: ownerID, Name: name, Value: v}, nil
}

// MemoryMailRepo is an in-memory MailRepo fake.
type MemoryMailRepo struct {
	mu    sync.Mutex
	mails []Mail
}

func NewMemoryMailRepo() *MemoryMailRepo { return &MemoryMailRepo{} }

func (r *MemoryMailRepo) Put(m Mail) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.mails = append(r.mails, m)
}

func (r *MemoryMailRepo) FindAllByCornerID(ctx context.Context, cornerID string) ([]Mail, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Mail
	for _, m := range r.mails {
		if m.CornerID == cornerID {
			out = append(out, m)
		}
	}
	return out, nil
}

// MemoryUserRepo is an in-memory UserRepo fake keyed directly by the raw
// API key (tests skip hashing, unlike DynamoUserRepo).
type MemoryUserRepo struct {
	mu    sync.Mutex
	users map[string]*User
}

func NewMemoryUserRepo() *MemoryUserRepo {
	return &MemoryUserRepo{users: make(map[string]*User)}
}

func (r *MemoryUserRepo) Put(apiKey string, u *User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *u
	r.users[apiKey] = &cp
}

func (r *MemoryUserRepo) FindByAPIKey(ctx context.Context, apiKey string) (*User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[apiKey]
	if !ok {
		return nil, apperr.Unauthorized("invalid API key")
	}
	cp := *u
	return &cp, nil
}
