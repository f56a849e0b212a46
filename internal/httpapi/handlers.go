package httpapi

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/botcast/worker/internal/apperr"
	"github.com/botcast/worker/internal/plugins"
	"github.com/botcast/worker/internal/repo"
	"github.com/botcast/worker/internal/runtime"
)

// handleUpdateScript handles POST /scripts/{id}: body is the new
// template JSON; updates that script only.
func (s *Server) handleUpdateScript(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	body, err := readBody(r)
	if err != nil {
		writeError(w, apperr.InvalidInput("read body: %v", err))
		return
	}
	if _, err := runtime.DecodeTemplate(body); err != nil {
		writeError(w, apperr.InvalidInput("invalid template JSON: %v", err))
		return
	}

	script, err := s.deps.Scripts.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	script.Template = body
	if err := s.deps.Scripts.Update(r.Context(), script); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, script)
}

type evalTemplateRequest struct {
	Template json.RawMessage `json:"template"`
	Context  json.RawMessage `json:"context"`
}

// handleEvalTemplate handles POST /evalTemplate: renders an ad-hoc
// template without touching the queue.
func (s *Server) handleEvalTemplate(w http.ResponseWriter, r *http.Request) {
	var req evalTemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.InvalidInput("decode request: %v", err))
		return
	}

	node, err := runtime.DecodeTemplate(req.Template)
	if err != nil {
		writeError(w, apperr.InvalidInput("invalid template JSON: %v", err))
		return
	}

	pluginDeps := s.deps.PluginDeps
	pluginDeps.CurrentUser = func() (*repo.User, error) { return userFromContext(r.Context()) }
	vars := runtime.NewRootContext(plugins.Default(pluginDeps)...)
	if len(req.Context) > 0 {
		var bindings map[string]any
		if err := json.Unmarshal(req.Context, &bindings); err != nil {
			writeError(w, apperr.InvalidInput("invalid context JSON: %v", err))
			return
		}
		for k, v := range bindings {
			vars.Insert(k, runtime.FromJSON(v))
		}
	}

	rc := &runtime.RenderContext{Go: r.Context(), Vars: vars}
	v, err := rc.Render(node)
	if err != nil {
		writeError(w, err)
		return
	}
	out, err := runtime.ToJSON(v)
	if err != nil {
		writeError(w, apperr.Script("marshal render result", err))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// handleCreateTask handles POST /createTask: body is an Args variant;
// inserts a Pending task with execute_after = now.
func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var args repo.TaskArgs
	if err := json.NewDecoder(r.Body).Decode(&args); err != nil {
		writeError(w, apperr.InvalidInput("decode task args: %v", err))
		return
	}
	switch args.Type {
	case repo.ArgsEvaluateScript, repo.ArgsGenerateAudio, repo.ArgsNewEpisode:
	default:
		writeError(w, apperr.InvalidInput("unknown task args type %q", args.Type))
		return
	}

	task := &repo.Task{
		ID:           uuid.NewString(),
		Status:       repo.TaskPending,
		Args:         args,
		ExecuteAfter: time.Now().UTC(),
	}
	if err := s.deps.Tasks.Create(r.Context(), task); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, task)
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(r.Body)
}
