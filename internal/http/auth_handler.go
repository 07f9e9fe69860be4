package httpapi

import (
	"net/http"

	"github.com/gevengood/red-esperanza-backend/internal/service"

	"go.uber.org/zap"
)

const authPrefix = "/api/v1/auth"

// AuthHandler /api/v1/auth
type AuthHandler struct {
	*BaseHandler
	authService service.AuthService
}

func NewAuthHandler(base *BaseHandler, authService service.AuthService) *AuthHandler {
	return &AuthHandler{BaseHandler: base, authService: authService}
}

func (h *AuthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, authPrefix)
	if len(segs) != 1 {
		h.notFound(w, r)
		return
	}
	switch segs[0] {
	case "register":
		h.only(w, r, http.MethodPost, h.Register)
	case "login":
		h.only(w, r, http.MethodPost, h.Login)
	case "me":
		h.only(w, r, http.MethodGet, h.Me)
	case "logout":
		h.only(w, r, http.MethodPost, h.Logout)
	default:
		h.notFound(w, r)
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req service.RegisterRequest
	if !h.decode(w, r, &req) {
		return
	}
	resp, err := h.authService.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(resp))
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req service.LoginRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.IPAddress = clientIP(r)
	resp, err := h.authService.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(resp))
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.authService.Me(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user))
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.authService.Logout(r.Context(), id); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.logger.Debug("Token revoked", zap.String("user_id", id.UserID))
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Sesión cerrada correctamente"})
}
