package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard http.ServeMux; each resource handler does its
// own sub-path dispatch.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler registers an http.Handler (resource handlers).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterSystemRoutes /health and the "/" banner + 404 fallback
func (r *Router) RegisterSystemRoutes(h *SystemHandler) {
	r.Handle("/health", h.Health)
	r.Handle("/", h.Root)
}

// RegisterAuthRoutes /api/v1/auth/{register,login,me,logout}
func (r *Router) RegisterAuthRoutes(h *AuthHandler) {
	r.HandleHandler(authPrefix+"/", h)
}

// RegisterCaseRoutes /api/v1/cases
func (r *Router) RegisterCaseRoutes(h *CaseHandler) {
	r.HandleHandler(casesPrefix, h)
	r.HandleHandler(casesPrefix+"/", h)
}

// RegisterClueRoutes /api/v1/clues
func (r *Router) RegisterClueRoutes(h *ClueHandler) {
	r.HandleHandler(cluesPrefix, h)
	r.HandleHandler(cluesPrefix+"/", h)
}

// RegisterUserRoutes /api/v1/users
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.HandleHandler(usersPrefix, h)
	r.HandleHandler(usersPrefix+"/", h)
}
