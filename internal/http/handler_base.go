package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/service"

	"go.uber.org/zap"
)

const msgAdminRequired = "Acceso denegado. Se requieren permisos de administrador."

// BaseHandler shared by every resource handler: token resolution, body
// decoding and the single error responder.
type BaseHandler struct {
	auth        service.AuthService
	logger      *zap.Logger
	maxBodySize int64
	production  bool // hides internal error detail
}

func NewBaseHandler(auth service.AuthService, logger *zap.Logger, maxBodySize int64, production bool) *BaseHandler {
	if maxBodySize <= 0 {
		maxBodySize = 10 << 20
	}
	return &BaseHandler{auth: auth, logger: logger, maxBodySize: maxBodySize, production: production}
}

// identify resolves the optional bearer token. No token yields a nil
// identity; a bad token is answered with 401 and ok=false.
func (b *BaseHandler) identify(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	token, present := bearerToken(r)
	if !present {
		return nil, true
	}
	id, err := b.auth.Authenticate(r.Context(), token)
	if err != nil {
		b.writeError(w, r, err)
		return nil, false
	}
	return id, true
}

// requireIdentity is identify with the token mandatory.
func (b *BaseHandler) requireIdentity(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	id, ok := b.identify(w, r)
	if !ok {
		return nil, false
	}
	if id == nil {
		writeJSON(w, http.StatusUnauthorized, Fail(service.MsgTokenMissing))
		return nil, false
	}
	return id, true
}

func (b *BaseHandler) requireAdmin(w http.ResponseWriter, r *http.Request) (*domain.Identity, bool) {
	id, ok := b.requireIdentity(w, r)
	if !ok {
		return nil, false
	}
	if !id.IsAdmin {
		writeJSON(w, http.StatusForbidden, Fail(msgAdminRequired))
		return nil, false
	}
	return id, true
}

// decode reads a JSON body, answering 413/400 itself on failure.
func (b *BaseHandler) decode(w http.ResponseWriter, r *http.Request, out any) bool {
	err := readBodyJSON(r, b.maxBodySize, out)
	if err == nil {
		return true
	}
	if errors.Is(err, errBodyTooLarge) {
		writeJSON(w, http.StatusRequestEntityTooLarge, Fail("El cuerpo de la petición es demasiado grande"))
		return false
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		writeJSON(w, http.StatusBadRequest, Fail("Valor inválido para el campo "+typeErr.Field))
		return false
	}
	writeJSON(w, http.StatusBadRequest, Fail(service.MsgInvalidBody))
	return false
}

// writeError maps a service error to its status. Internal failures are
// logged with their cause; outside production the cause is echoed as detail.
func (b *BaseHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	se := service.AsError(err)
	status := se.Kind.Status()
	res := Fail(se.Message)

	if se.Kind == service.KindInternal {
		b.logger.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("msg", se.Message),
			zap.Error(se.Err),
		)
		if !b.production && se.Err != nil {
			res.Detail = se.Err.Error()
		}
	} else {
		b.logger.Debug("Request rejected",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.String("msg", se.Message),
		)
	}
	writeJSON(w, status, res)
}

func (b *BaseHandler) notFound(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusNotFound, notFoundResult{Success: false, Message: "Ruta no encontrada", Path: r.URL.Path})
}

// only dispatches to fn when the request uses method.
func (b *BaseHandler) only(w http.ResponseWriter, r *http.Request, method string, fn http.HandlerFunc) {
	if r.Method != method {
		b.methodNotAllowed(w)
		return
	}
	fn(w, r)
}

func (b *BaseHandler) methodNotAllowed(w http.ResponseWriter) {
	writeJSON(w, http.StatusMethodNotAllowed, Fail("Método no permitido"))
}

type notFoundResult struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Path    string `json:"path"`
}
