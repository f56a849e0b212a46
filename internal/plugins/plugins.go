// Package plugins implements the built-in AsyncCallables the worker
// registers into every render: time/HTTP/HTML/jq/rss/LLM/random utilities
// plus the domain plugin that reaches through the repository layer.
package plugins

import (
	"net/http"
	"time"

	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
	"github.com/botcast/worker/internal/urn"
)

// Deps bundles everything a built-in plugin might need at construction
// time, mirroring the teacher's ProviderConfig pattern of capturing
// configuration once rather than threading it through every call.
// Fields are only read by the plugin(s) that need them; a worker
// wiring only the runtime subset can leave repo/LLM fields nil.
type Deps struct {
	HTTPClient *http.Client
	UserAgent  string

	Repos       urn.Repos
	MailRepo    repo.MailRepo
	SecretRepo  repo.SecretRepo
	CurrentUser func() (*repo.User, error)

	AnthropicAPIKey string
	AnthropicModel  string

	LLMAssistantPollTimeout time.Duration
}

func (d Deps) httpClient() *http.Client {
	if d.HTTPClient != nil {
		return d.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Second}
}

func (d Deps) userAgent() string {
	if d.UserAgent != "" {
		return d.UserAgent
	}
	return "podcaster-worker/1.0"
}

// Default builds the default plugin stack the worker composes before every
// render: time, fetch/html/jq/rss, eval, llm, random, and the domain
// plugin, in the teacher's additive Plugin-slice composition style
// (grounded on the teacher's tts.NewProvider name-to-constructor
// dispatch, generalized to a slice of Plugins rather than a single
// selected implementation).
func Default(d Deps) []runtime.Plugin {
	return []runtime.Plugin{
		TimePlugin{},
		FetchPlugin{Deps: d},
		JQPlugin{},
		HQPlugin{},
		ReplacePlugin{},
		RSSPlugin{},
		EvalPlugin{},
		RandPlugin{},
		LLMPlugin{Deps: d},
		DomainPlugin{Deps: d},
	}
}
