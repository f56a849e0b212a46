package plugins

import (
	"context"
	"testing"

	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
	"github.com/botcast/worker/internal/urn"
)

func evalWith(t *testing.T, plugins []runtime.Plugin, src string) runtime.Value {
	t.Helper()
	vars := runtime.NewRootContext(plugins...)
	node, err := runtime.DecodeTemplate([]byte(src))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rc := &runtime.RenderContext{Go: context.Background(), Vars: vars}
	v, err := rc.Render(node)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	return v
}

func TestTodayFormatsStrftime(t *testing.T) {
	v := evalWith(t, []runtime.Plugin{TimePlugin{}}, `{"$eval": "today('%Y')"}`)
	if v.Kind() != runtime.KindString || len(v.Str()) != 4 {
		t.Fatalf("want a 4-digit year, got %#v", v)
	}
}

func TestReplaceBuiltinLiteral(t *testing.T) {
	v := evalWith(t, []runtime.Plugin{ReplacePlugin{}}, `{"$eval": "replace('a-b-c', '-', '_')"}`)
	if v.Str() != "a_b_c" {
		t.Fatalf("want a_b_c, got %q", v.Str())
	}
}

func TestJQSelectsField(t *testing.T) {
	v := evalWith(t, []runtime.Plugin{JQPlugin{}}, `{"$eval": "jq({\"a\": 1}, '.a')"}`)
	arr := v.Arr()
	if len(arr) != 1 || arr[0].Num() != 1 {
		t.Fatalf("want [1], got %#v", v)
	}
}

func TestHQSelectsFirstMatch(t *testing.T) {
	v := evalWith(t, []runtime.Plugin{HQPlugin{}},
		`{"$eval": "hq('<div><p>first</p><p>second</p></div>', 'p')"}`)
	if v.Str() != "first" {
		t.Fatalf("want \"first\", got %q", v.Str())
	}
}

func TestChoiceRejectsEmptyArray(t *testing.T) {
	vars := runtime.NewRootContext(RandPlugin{})
	node, err := runtime.DecodeTemplate([]byte(`{"$eval": "choice([])"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rc := &runtime.RenderContext{Go: context.Background(), Vars: vars}
	if _, err := rc.Render(node); err == nil {
		t.Fatal("want error for empty array, got nil")
	}
}

func TestEvalRerendersWithBindings(t *testing.T) {
	v := evalWith(t, []runtime.Plugin{EvalPlugin{}},
		`{"$eval": "eval('{\"$eval\": \"x + 1\"}', {\"x\": 41})"}`)
	if v.Num() != 42 {
		t.Fatalf("want 42, got %#v", v)
	}
}

func TestDomainPluginGetPodcastEmbedsEpisodes(t *testing.T) {
	podcasts := repo.NewMemoryPodcastRepo()
	podcasts.Put(&repo.Podcast{ID: "p1", Owner: "u1", Title: "Feed"})
	episodes := repo.NewMemoryEpisodeRepo(repo.NewMemoryCommentRepo())
	episodes.Put(&repo.Episode{ID: "e1", PodcastID: "p1", Title: "Ep 1"})

	plugin := DomainPlugin{Deps: Deps{
		Repos: urn.Repos{Podcast: podcasts, Episode: episodes},
	}}
	v := evalWith(t, []runtime.Plugin{plugin}, `{"$eval": "get_podcast('p1')"}`)
	episodesVal := v.Get("episodes")
	if episodesVal.Kind() != runtime.KindArray || len(episodesVal.Arr()) != 1 {
		t.Fatalf("want one embedded episode, got %#v", episodesVal)
	}
}

func TestDomainPluginNewEpisodeCreatesScriptAndEpisode(t *testing.T) {
	episodes := repo.NewMemoryEpisodeRepo(repo.NewMemoryCommentRepo())
	scripts := repo.NewMemoryScriptRepo()

	plugin := DomainPlugin{Deps: Deps{
		Repos: urn.Repos{Episode: episodes, Script: scripts},
	}}
	v := evalWith(t, []runtime.Plugin{plugin},
		`{"$eval": "new_episode('p1', 'Ep 1', [{\"type\": \"serif\", \"speaker\": \"urn:voicevox:3\", \"text\": \"hi\"}])"}`)
	if v.Get("scriptId").Str() == "" {
		t.Fatalf("want new_episode to set scriptId, got %#v", v)
	}
	script, err := scripts.FindByID(context.Background(), v.Get("scriptId").Str())
	if err != nil {
		t.Fatalf("expected created script to be findable: %v", err)
	}
	if script.Title != "Ep 1" {
		t.Fatalf("want script title Ep 1, got %q", script.Title)
	}
}

func TestMeReturnsUnauthorizedWithoutCurrentUser(t *testing.T) {
	plugin := DomainPlugin{Deps: Deps{}}
	vars := runtime.NewRootContext(plugin)
	node, err := runtime.DecodeTemplate([]byte(`{"$eval": "me()"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	rc := &runtime.RenderContext{Go: context.Background(), Vars: vars}
	if _, err := rc.Render(node); err == nil {
		t.Fatal("want unauthorized error, got nil")
	}
}
