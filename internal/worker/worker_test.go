package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/botcast/worker/internal/plugins"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
)

func newTestLoop() (*Loop, *repo.MemoryScriptRepo, *repo.MemoryEpisodeRepo, *repo.MemoryPodcastRepo, *repo.MemoryTaskRepo) {
	scripts := repo.NewMemoryScriptRepo()
	episodes := repo.NewMemoryEpisodeRepo(repo.NewMemoryCommentRepo())
	podcasts := repo.NewMemoryPodcastRepo()
	tasks := repo.NewMemoryTaskRepo()

	root := runtime.NewRootContext(plugins.Default(plugins.Deps{})...)

	l := New(Deps{
		Tasks:       tasks,
		Scripts:     scripts,
		Episodes:    episodes,
		Podcasts:    podcasts,
		RootContext: root,
	})
	return l, scripts, episodes, podcasts, tasks
}

func TestEvaluateScriptStoresResult(t *testing.T) {
	l, scripts, _, _, _ := newTestLoop()

	scripts.Put(&repo.Script{
		ID:       "s1",
		OwnerID:  "u1",
		Title:    "x",
		Template: []byte(`{"title": "x", "sections": []}`),
	})

	if err := l.evaluateScript(context.Background(), "s1"); err != nil {
		t.Fatalf("evaluateScript: %v", err)
	}

	got, err := scripts.FindByID(context.Background(), "s1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}

	var want, have any
	json.Unmarshal([]byte(`{"title": "x", "sections": []}`), &want)
	if err := json.Unmarshal(got.Result, &have); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	wb, _ := json.Marshal(want)
	hb, _ := json.Marshal(have)
	if string(wb) != string(hb) {
		t.Fatalf("result mismatch: got %s, want %s", hb, wb)
	}
}

func TestEvaluateScriptMissingScript(t *testing.T) {
	l, _, _, _, _ := newTestLoop()
	if err := l.evaluateScript(context.Background(), "missing"); err == nil {
		t.Fatal("expected error for missing script")
	}
}

func TestNewEpisodeSchedulesFollowUpViaCron(t *testing.T) {
	l, scripts, episodes, podcasts, tasks := newTestLoop()

	podcasts.Put(&repo.Podcast{ID: "p1", Owner: "u1", Title: "show", Cron: "0 0 * * *"})
	scripts.Put(&repo.Script{
		ID:       "s0",
		OwnerID:  "u1",
		Title:    "ep0",
		Template: []byte(`{"title": "ep0", "sections": []}`),
	})
	episodes.Put(&repo.Episode{ID: "e0", PodcastID: "p1", ScriptID: "s0", Title: "ep0", CreatedAt: time.Now()})

	if err := l.newEpisode(context.Background(), "e0"); err != nil {
		t.Fatalf("newEpisode: %v", err)
	}

	// p1 now holds the preceding episode e0 plus the new one, newest first.
	all, err := episodes.FindAllByPodcastID(context.Background(), "p1")
	if err != nil || len(all) != 2 {
		t.Fatalf("expected e0 plus 1 new episode, got %d (err=%v)", len(all), err)
	}
	if all[0].ID == "e0" || all[0].Title != "ep0" {
		t.Fatalf("unexpected newest episode: id=%q title=%q", all[0].ID, all[0].Title)
	}

	stuck, _ := tasks.FindStuckRunning(context.Background())
	if len(stuck) != 0 {
		t.Fatalf("expected no running tasks, got %d", len(stuck))
	}

	// "0 0 * * *" fires within a day, so the follow-up is eligible 48h out.
	followUp, err := tasks.Pop(context.Background(), time.Now().Add(48*time.Hour))
	if err != nil || followUp == nil {
		t.Fatalf("expected a scheduled follow-up task (err=%v)", err)
	}
	if followUp.Args.Type != repo.ArgsNewEpisode || followUp.Args.PreEpisodeID != all[0].ID {
		t.Fatalf("unexpected follow-up args: %+v", followUp.Args)
	}
}

func TestNewEpisodeRejectsPodcastWithoutCron(t *testing.T) {
	l, scripts, episodes, podcasts, _ := newTestLoop()

	podcasts.Put(&repo.Podcast{ID: "p1", Owner: "u1", Title: "show"})
	scripts.Put(&repo.Script{ID: "s0", OwnerID: "u1", Template: []byte(`{"title":"x","sections":[]}`)})
	episodes.Put(&repo.Episode{ID: "e0", PodcastID: "p1", ScriptID: "s0"})

	if err := l.newEpisode(context.Background(), "e0"); err == nil {
		t.Fatal("expected error for podcast without cron")
	}
}

func TestNextCronInstantRejectsExpressionWithNoUpcomingInstant(t *testing.T) {
	// "0 0 30 2 *" (Feb 30th) never matches any calendar date.
	if _, err := nextCronInstant("0 0 30 2 *", time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)); err == nil {
		t.Fatal("expected error for cron with no upcoming instant")
	}
}

func TestNextCronInstantResolvesDailySchedule(t *testing.T) {
	from := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	next, err := nextCronInstant("0 0 * * *", from)
	if err != nil {
		t.Fatalf("nextCronInstant: %v", err)
	}
	if !next.After(from) {
		t.Fatalf("expected next instant after %v, got %v", from, next)
	}
}

func TestRecoverStuckTasksTransitionsToFailed(t *testing.T) {
	tasks := repo.NewMemoryTaskRepo()
	tasks.Create(context.Background(), &repo.Task{
		ID:     "t1",
		Status: repo.TaskRunning,
		Args:   repo.TaskArgs{Type: repo.ArgsEvaluateScript, ScriptID: "s1"},
	})

	n, err := RecoverStuckTasks(context.Background(), tasks)
	if err != nil {
		t.Fatalf("RecoverStuckTasks: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 recovered task, got %d", n)
	}

	got, err := tasks.FindByID(context.Background(), "t1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got.Status != repo.TaskFailed {
		t.Fatalf("expected status Failed, got %s", got.Status)
	}
	if got.ExecutedAt == nil {
		t.Fatal("expected ExecutedAt to be set")
	}
}

func TestDispatchRejectsUnknownArgsType(t *testing.T) {
	l, _, _, _, _ := newTestLoop()
	err := l.dispatch(context.Background(), &repo.Task{Args: repo.TaskArgs{Type: "Bogus"}})
	if err == nil {
		t.Fatal("expected error for unknown args type")
	}
}
