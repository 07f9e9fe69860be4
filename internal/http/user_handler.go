package httpapi

import (
	"net/http"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/service"
)

const usersPrefix = "/api/v1/users"

// UserHandler /api/v1/users
type UserHandler struct {
	*BaseHandler
	userService service.UserService
}

func NewUserHandler(base *BaseHandler, userService service.UserService) *UserHandler {
	return &UserHandler{BaseHandler: base, userService: userService}
}

func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, usersPrefix)
	switch {
	case len(segs) == 0:
		h.only(w, r, http.MethodGet, h.ListUsers)
	case len(segs) == 1:
		userID := segs[0]
		switch r.Method {
		case http.MethodGet:
			h.GetUser(w, r, userID)
		case http.MethodPut:
			h.UpdateProfile(w, r, userID)
		case http.MethodDelete:
			h.DeleteUser(w, r, userID)
		default:
			h.methodNotAllowed(w)
		}
	case len(segs) == 2 && segs[1] == "stats":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.GetStats(w, r, segs[0]) })
	case len(segs) == 2 && segs[1] == "password":
		h.only(w, r, http.MethodPut, func(w http.ResponseWriter, r *http.Request) { h.ChangePassword(w, r, segs[0]) })
	default:
		h.notFound(w, r)
	}
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	users, err := h.userService.ListUsers(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(users))
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	user, err := h.userService.GetUser(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(user))
}

func (h *UserHandler) GetStats(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	stats, err := h.userService.GetStats(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(stats))
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var patch domain.UserPatch
	if !h.decode(w, r, &patch) {
		return
	}
	user, err := h.userService.UpdateProfile(r.Context(), service.UpdateProfileRequest{Actor: id, UserID: userID, Patch: patch})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage(user, "Perfil actualizado exitosamente"))
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var req service.ChangePasswordRequest
	if !h.decode(w, r, &req) {
		return
	}
	req.Actor = id
	req.UserID = userID
	if err := h.userService.ChangePassword(r.Context(), req); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Contraseña cambiada exitosamente"})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.userService.DeleteUser(r.Context(), id, userID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Usuario eliminado exitosamente"})
}
