package httpapi

import (
	"net/http"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/service"
)

const cluesPrefix = "/api/v1/clues"

// ClueHandler /api/v1/clues
type ClueHandler struct {
	*BaseHandler
	clueService service.ClueService
}

func NewClueHandler(base *BaseHandler, clueService service.ClueService) *ClueHandler {
	return &ClueHandler{BaseHandler: base, clueService: clueService}
}

func (h *ClueHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, cluesPrefix)
	switch {
	case len(segs) == 0:
		h.only(w, r, http.MethodPost, h.CreateClue)
	case len(segs) == 1 && segs[0] == "pending":
		h.only(w, r, http.MethodGet, h.ListPending)
	case len(segs) == 2 && segs[0] == "case":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.ListByCase(w, r, segs[1]) })
	case len(segs) == 2 && segs[0] == "user":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.ListByUser(w, r, segs[1]) })
	case len(segs) == 1:
		clueID := segs[0]
		switch r.Method {
		case http.MethodGet:
			h.GetClue(w, r, clueID)
		case http.MethodPut:
			h.UpdateClue(w, r, clueID)
		case http.MethodDelete:
			h.DeleteClue(w, r, clueID)
		default:
			h.methodNotAllowed(w)
		}
	default:
		h.notFound(w, r)
	}
}

func (h *ClueHandler) ListByCase(w http.ResponseWriter, r *http.Request, caseID string) {
	// anonymous callers get the clue-specific 401 from the service
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	clues, err := h.clueService.ListByCase(r.Context(), id, caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(clues))
}

func (h *ClueHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	clues, err := h.clueService.ListPending(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(clues))
}

func (h *ClueHandler) ListByUser(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	clues, err := h.clueService.ListByUser(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(clues))
}

func (h *ClueHandler) GetClue(w http.ResponseWriter, r *http.Request, clueID string) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	clue, err := h.clueService.GetClue(r.Context(), id, clueID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(clue))
}

func (h *ClueHandler) CreateClue(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var req service.CreateClueRequest
	if !h.decode(w, r, &req) {
		return
	}
	clue, err := h.clueService.CreateClue(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage(clue, "Pista enviada exitosamente. Será revisada por un administrador."))
}

func (h *ClueHandler) UpdateClue(w http.ResponseWriter, r *http.Request, clueID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var patch domain.CluePatch
	if !h.decode(w, r, &patch) {
		return
	}
	clue, err := h.clueService.UpdateClue(r.Context(), service.UpdateClueRequest{Actor: id, ClueID: clueID, Patch: patch})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage(clue, "Pista actualizada exitosamente"))
}

func (h *ClueHandler) DeleteClue(w http.ResponseWriter, r *http.Request, clueID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := h.clueService.DeleteClue(r.Context(), id, clueID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Pista eliminada exitosamente"})
}
