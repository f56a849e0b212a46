// Package urn implements the urn:<resource>:<id> identifiers the template
// runtime and domain plugins use to address Podcast/Episode/Comment/Script
// records and speaker/audio-generator selectors.
package urn

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
)

// Parse splits a URN into its resource and id, grounded on the original
// resolver's "split on the first two colons" rule: the first segment must
// be the literal "urn", and both resource and id must be non-empty.
func Parse(u string) (resource, id string, err error) {
	parts := strings.SplitN(u, ":", 3)
	if len(parts) != 3 || parts[0] != "urn" {
		return "", "", apperr.InvalidInput("malformed urn %q: want urn:<resource>:<id>", u)
	}
	if parts[1] == "" || parts[2] == "" {
		return "", "", apperr.InvalidInput("malformed urn %q: resource and id must be non-empty", u)
	}
	return parts[1], parts[2], nil
}

// Format is the inverse of Parse, used by round-trip tests and anywhere a
// urn needs reconstructing from its parts.
func Format(resource, id string) string {
	return "urn:" + resource + ":" + id
}

// Repos bundles the repository handles Resolve dispatches to.
type Repos struct {
	Podcast repo.PodcastRepo
	Episode repo.EpisodeRepo
	Comment repo.CommentRepo
	Script  repo.ScriptRepo
}

// Resolve dispatches a urn to the matching repository and returns its
// record as a runtime.Value. For a "script" urn it additionally re-renders
// the fetched template against rc's current context (recursive
// evaluation), so `${urn-resolved script}` expands inline rather than
// returning raw template JSON.
func Resolve(ctx context.Context, rc *runtime.RenderContext, u string, repos Repos) (runtime.Value, error) {
	resource, id, err := Parse(u)
	if err != nil {
		return runtime.Null, err
	}

	switch resource {
	case "episode":
		if repos.Episode == nil {
			return runtime.Null, apperr.NotFound(resource, id)
		}
		episode, comments, err := repos.Episode.FindByID(ctx, id)
		if err != nil {
			return runtime.Null, err
		}
		return episodeValue(episode, comments)

	case "comment":
		if repos.Comment == nil {
			return runtime.Null, apperr.NotFound(resource, id)
		}
		comment, err := repos.Comment.FindByID(ctx, id)
		if err != nil {
			return runtime.Null, err
		}
		return structValue(comment)

	case "podcast":
		if repos.Podcast == nil {
			return runtime.Null, apperr.NotFound(resource, id)
		}
		podcast, err := repos.Podcast.FindByID(ctx, id)
		if err != nil {
			return runtime.Null, err
		}
		return structValue(podcast)

	case "script":
		if repos.Script == nil {
			return runtime.Null, apperr.NotFound(resource, id)
		}
		script, err := repos.Script.FindByID(ctx, id)
		if err != nil {
			return runtime.Null, err
		}
		node, err := runtime.DecodeTemplate(script.Template)
		if err != nil {
			return runtime.Null, apperr.Script("decode script template", err)
		}
		return rc.Render(node)

	default:
		return runtime.Null, apperr.NotFound(resource, id)
	}
}

func episodeValue(e *repo.Episode, comments []repo.Comment) (runtime.Value, error) {
	v, err := structValue(e)
	if err != nil {
		return runtime.Null, err
	}
	commentsValue, err := structValue(comments)
	if err != nil {
		return runtime.Null, err
	}
	pairs := append([]runtime.Pair{}, v.Obj()...)
	pairs = append(pairs, runtime.Pair{Key: "comments", Value: commentsValue})
	return runtime.Object(pairs), nil
}

func structValue(v any) (runtime.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return runtime.Null, apperr.Other("marshal urn result", err)
	}
	var raw any
	dec := json.NewDecoder(strings.NewReader(string(b)))
	dec.UseNumber()
	if err := dec.Decode(&raw); err != nil {
		return runtime.Null, apperr.Other("decode urn result", err)
	}
	return runtime.FromJSON(raw), nil
}
