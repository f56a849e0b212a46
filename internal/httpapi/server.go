// Package httpapi implements the worker's HTTP facade (SPEC_FULL.md
// §4.J): routes for creating tasks, evaluating templates ad-hoc, and
// updating script templates, behind Bearer-token auth.
package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/botcast/worker/internal/plugins"
	"github.com/botcast/worker/internal/repo"
)

// Version is set at build time via -ldflags, mirroring the teacher's
// mcpserver server version reporting.
var Version = "dev"

// Deps bundles what the facade's handlers read and write through.
// PluginDeps is the template-runtime configuration shared with the
// worker loop, minus CurrentUser: /evalTemplate rebuilds the plugin
// stack per request so me() resolves the caller actually authenticated
// on that request, rather than whoever built the stack at startup.
type Deps struct {
	Scripts    repo.ScriptRepo
	Tasks      repo.TaskRepo
	Users      repo.UserRepo
	PluginDeps plugins.Deps
	Log        *slog.Logger
}

// Server is the worker's HTTP facade.
type Server struct {
	deps Deps
	mux  *http.ServeMux
}

// New builds the facade's mux, applying Bearer-token auth ahead of
// routing for every route but /version, grounded on the teacher's
// server.go WithHTTPContextFunc + store.ValidateAPIKey pattern
// generalized to a plain net/http middleware.
func New(deps Deps) *Server {
	if deps.Log == nil {
		deps.Log = slog.Default()
	}
	s := &Server{deps: deps, mux: http.NewServeMux()}

	s.mux.HandleFunc("GET /version", s.handleVersion)
	s.mux.Handle("POST /scripts/{id}", s.authenticate(http.HandlerFunc(s.handleUpdateScript)))
	s.mux.Handle("POST /evalTemplate", s.authenticate(http.HandlerFunc(s.handleEvalTemplate)))
	s.mux.Handle("POST /createTask", s.authenticate(http.HandlerFunc(s.handleCreateTask)))

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": Version})
}
