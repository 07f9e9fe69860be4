package httpapi

import (
	"net/http"
	"time"
)

// SystemHandler liveness probe, API banner and the 404 fallback.
type SystemHandler struct {
	*BaseHandler
	env        string
	apiVersion string
	now        func() time.Time
}

func NewSystemHandler(base *BaseHandler, env, apiVersion string) *SystemHandler {
	return &SystemHandler{BaseHandler: base, env: env, apiVersion: apiVersion, now: time.Now}
}

type healthResult struct {
	Success     bool      `json:"success"`
	Message     string    `json:"message"`
	Timestamp   time.Time `json:"timestamp"`
	Environment string    `json:"environment"`
}

type bannerResult struct {
	Success       bool   `json:"success"`
	Message       string `json:"message"`
	Version       string `json:"version"`
	Documentation string `json:"documentation"`
}

func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, healthResult{
		Success:     true,
		Message:     "Red Esperanza API está funcionando correctamente",
		Timestamp:   h.now().UTC(),
		Environment: h.env,
	})
}

// Root serves the banner on "/" and the 404 envelope everywhere else the mux
// has no route for.
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		h.notFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, bannerResult{
		Success:       true,
		Message:       "Bienvenido a Red Esperanza API",
		Version:       h.apiVersion,
		Documentation: "/api/docs",
	})
}
