package httpapi

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/service"

	"go.uber.org/zap"
)

const casesPrefix = "/api/v1/cases"

// CaseHandler /api/v1/cases
type CaseHandler struct {
	*BaseHandler
	caseService service.CaseService
}

func NewCaseHandler(base *BaseHandler, caseService service.CaseService) *CaseHandler {
	return &CaseHandler{BaseHandler: base, caseService: caseService}
}

func (h *CaseHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	segs := pathSegments(r.URL.Path, casesPrefix)
	switch {
	case len(segs) == 0:
		switch r.Method {
		case http.MethodGet:
			h.ListCases(w, r)
		case http.MethodPost:
			h.CreateCase(w, r)
		default:
			h.methodNotAllowed(w)
		}
	case len(segs) == 1 && segs[0] == "pending":
		h.only(w, r, http.MethodGet, h.ListPending)
	case len(segs) == 1 && segs[0] == "export":
		h.only(w, r, http.MethodGet, h.Export)
	case len(segs) == 2 && segs[0] == "user":
		h.only(w, r, http.MethodGet, func(w http.ResponseWriter, r *http.Request) { h.ListByUser(w, r, segs[1]) })
	case len(segs) == 1:
		caseID := segs[0]
		switch r.Method {
		case http.MethodGet:
			h.GetCase(w, r, caseID)
		case http.MethodPut:
			h.UpdateCase(w, r, caseID)
		case http.MethodDelete:
			h.DeleteCase(w, r, caseID)
		default:
			h.methodNotAllowed(w)
		}
	case len(segs) == 2 && segs[1] == "photos":
		h.only(w, r, http.MethodPost, func(w http.ResponseWriter, r *http.Request) { h.UploadPhoto(w, r, segs[0]) })
	default:
		h.notFound(w, r)
	}
}

// ============================================
// Queries
// ============================================

func (h *CaseHandler) ListCases(w http.ResponseWriter, r *http.Request) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	resp, err := h.caseService.ListCases(r.Context(), service.ListCasesRequest{
		Actor:  id,
		Estado: q.Get("estado"),
		Page:   parseInt(q.Get("pagina"), 1),
		Limit:  parseInt(q.Get("limite"), service.DefaultCasePageSize),
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Data: resp.Items, Pagination: &resp.Pagination})
}

func (h *CaseHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	cases, err := h.caseService.ListPending(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cases))
}

func (h *CaseHandler) ListByUser(w http.ResponseWriter, r *http.Request, userID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	cases, err := h.caseService.ListByUser(r.Context(), id, userID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(cases))
}

func (h *CaseHandler) GetCase(w http.ResponseWriter, r *http.Request, caseID string) {
	id, ok := h.identify(w, r)
	if !ok {
		return
	}
	detail, err := h.caseService.GetCase(r.Context(), id, caseID)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(detail))
}

// Export streams the cases as an xlsx attachment.
func (h *CaseHandler) Export(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	cases, err := h.caseService.ExportCases(r.Context(), id, r.URL.Query().Get("estado"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	data, err := GenerateCaseExport(cases)
	if err != nil {
		h.writeError(w, r, service.Internal("Error al exportar casos", err))
		return
	}

	filename := fmt.Sprintf("casos_%s.xlsx", time.Now().UTC().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.Warn("Failed to write case export", zap.Error(err))
	}
}

// ============================================
// Mutations
// ============================================

func (h *CaseHandler) CreateCase(w http.ResponseWriter, r *http.Request) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var req service.CreateCaseRequest
	if !h.decode(w, r, &req) {
		return
	}
	c, err := h.caseService.CreateCase(r.Context(), id, req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, OkMessage(c, "Caso creado exitosamente. Será revisado por un administrador."))
}

func (h *CaseHandler) UpdateCase(w http.ResponseWriter, r *http.Request, caseID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	var patch domain.CasePatch
	if !h.decode(w, r, &patch) {
		return
	}
	c, err := h.caseService.UpdateCase(r.Context(), service.UpdateCaseRequest{Actor: id, CaseID: caseID, Patch: patch})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage(c, "Caso actualizado exitosamente"))
}

func (h *CaseHandler) DeleteCase(w http.ResponseWriter, r *http.Request, caseID string) {
	id, ok := h.requireAdmin(w, r)
	if !ok {
		return
	}
	if err := h.caseService.DeleteCase(r.Context(), id, caseID); err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, Result{Success: true, Message: "Caso eliminado exitosamente"})
}

// UploadPhoto multipart/form-data with fields "posicion" (1..3) and "foto".
// The stored content type is sniffed from the bytes, not the part header.
func (h *CaseHandler) UploadPhoto(w http.ResponseWriter, r *http.Request, caseID string) {
	id, ok := h.requireIdentity(w, r)
	if !ok {
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)
	if err := r.ParseMultipartForm(h.maxBodySize); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("Formulario de carga inválido"))
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	file, _, err := r.FormFile("foto")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("No se proporcionó ninguna imagen"))
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("No se pudo leer la imagen"))
		return
	}

	c, err := h.caseService.UploadPhoto(r.Context(), service.UploadPhotoRequest{
		Actor:       id,
		CaseID:      caseID,
		Slot:        parseInt(r.FormValue("posicion"), 0),
		ContentType: http.DetectContentType(data),
		Data:        data,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, OkMessage(c, "Foto subida exitosamente"))
}
