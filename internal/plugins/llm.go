package plugins

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/google/uuid"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/runtime"
)

const defaultLLMModel = "claude-haiku-4-5-20251001"
const defaultLLMAssistantPollTimeout = 120 * time.Second

// LLMPlugin registers llm, llm_assistant, create_thread, and
// delete_thread, grounded on original_source's plugins/llm.rs and this
// repo's script.ClaudeGenerator for the anthropic-sdk-go wiring. The
// original backs llm_assistant/create_thread/delete_thread with OpenAI's
// stateful Assistants API; Anthropic has no equivalent, so threads are
// modeled here as an in-process conversation history keyed by UUID, and
// llm_assistant's "poll until completed" contract becomes a single
// Messages call bounded by Deps.LLMAssistantPollTimeout.
type LLMPlugin struct {
	Deps Deps
}

func (p LLMPlugin) Register(ctx *runtime.Context) {
	ctx.Insert("llm", runtime.Callable(runtime.AsyncFunc(p.chatCompletion)))
	ctx.Insert("llm_assistant", runtime.Callable(runtime.AsyncFunc(p.chatAssistant)))
	ctx.Insert("create_thread", runtime.Callable(runtime.AsyncFunc(p.createThread)))
	ctx.Insert("delete_thread", runtime.Callable(runtime.AsyncFunc(p.deleteThread)))
}

func (p LLMPlugin) client(apiKey string) anthropic.Client {
	if apiKey != "" {
		return anthropic.NewClient(option.WithAPIKey(apiKey))
	}
	if p.Deps.AnthropicAPIKey != "" {
		return anthropic.NewClient(option.WithAPIKey(p.Deps.AnthropicAPIKey))
	}
	return anthropic.NewClient()
}

func (p LLMPlugin) model() string {
	if p.Deps.AnthropicModel != "" {
		return p.Deps.AnthropicModel
	}
	return defaultLLMModel
}

func (p LLMPlugin) pollTimeout() time.Duration {
	if p.Deps.LLMAssistantPollTimeout > 0 {
		return p.Deps.LLMAssistantPollTimeout
	}
	return defaultLLMAssistantPollTimeout
}

func (p LLMPlugin) chatCompletion(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("llm(key, prompt) takes exactly two arguments")
	}
	apiKey, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	prompt, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}

	message, err := p.client(apiKey).Messages.New(rc.Go, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model()),
		MaxTokens: 4096,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return runtime.Null, apperr.Script("llm: chat completion", err)
	}
	return runtime.String(extractLLMText(message)), nil
}

func (p LLMPlugin) chatAssistant(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 4 {
		return runtime.Null, apperr.InvalidInput("llm_assistant(key, thread, assistant, prompt) takes exactly four arguments")
	}
	apiKey, err := runtime.AsString(vals[0])
	if err != nil {
		return runtime.Null, err
	}
	threadID, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	assistantPrompt, err := runtime.AsString(vals[2])
	if err != nil {
		return runtime.Null, err
	}
	prompt, err := runtime.AsString(vals[3])
	if err != nil {
		return runtime.Null, err
	}

	th := getThread(threadID)
	if th == nil {
		return runtime.Null, apperr.NotFound("thread", threadID)
	}

	ctx, cancel := context.WithTimeout(rc.Go, p.pollTimeout())
	defer cancel()

	th.mu.Lock()
	th.messages = append(th.messages, anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)))
	messages := append([]anthropic.MessageParam(nil), th.messages...)
	th.mu.Unlock()

	message, err := p.client(apiKey).Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model()),
		MaxTokens: 4096,
		System:    []anthropic.TextBlockParam{{Text: assistantPrompt}},
		Messages:  messages,
	})
	if err != nil {
		if ctx.Err() != nil {
			return runtime.Null, apperr.Script("llm_assistant: poll timeout", ctx.Err())
		}
		return runtime.Null, apperr.Script("llm_assistant: run", err)
	}
	text := extractLLMText(message)

	th.mu.Lock()
	th.messages = append(th.messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(text)))
	th.mu.Unlock()

	return runtime.String(text), nil
}

func (p LLMPlugin) createThread(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 1 {
		return runtime.Null, apperr.InvalidInput("create_thread(key) takes exactly one argument")
	}
	id := uuid.NewString()
	putThread(id, &thread{})
	return runtime.String(id), nil
}

func (p LLMPlugin) deleteThread(rc *runtime.RenderContext, args []runtime.Expr) (runtime.Value, error) {
	vals, err := rc.EvaluateArgs(args)
	if err != nil {
		return runtime.Null, err
	}
	if len(vals) != 2 {
		return runtime.Null, apperr.InvalidInput("delete_thread(key, id) takes exactly two arguments")
	}
	id, err := runtime.AsString(vals[1])
	if err != nil {
		return runtime.Null, err
	}
	removeThread(id)
	return runtime.Null, nil
}

func extractLLMText(message *anthropic.Message) string {
	var parts []string
	for _, block := range message.Content {
		if tb, ok := block.AsAny().(anthropic.TextBlock); ok {
			parts = append(parts, tb.Text)
		}
	}
	return strings.Join(parts, "")
}

type thread struct {
	mu       sync.Mutex
	messages []anthropic.MessageParam
}

var threads sync.Map // string -> *thread

func getThread(id string) *thread {
	v, ok := threads.Load(id)
	if !ok {
		return nil
	}
	return v.(*thread)
}

func putThread(id string, t *thread) { threads.Store(id, t) }
func removeThread(id string)         { threads.Delete(id) }
