package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/lifecycle"
	"github.com/gevengood/red-esperanza-backend/internal/policy"
	"github.com/gevengood/red-esperanza-backend/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	DefaultCasePageSize = 50
	MaxCasePageSize     = 100
	MaxPhotoSlot        = 3
)

// CaseService case reporting, moderation and photo management
type CaseService interface {
	// queries
	ListCases(ctx context.Context, req ListCasesRequest) (*ListCasesResponse, error)
	ListPending(ctx context.Context, actor *domain.Identity) ([]*CaseDTO, error)
	ListByUser(ctx context.Context, actor *domain.Identity, userID string) ([]*CaseDTO, error)
	GetCase(ctx context.Context, actor *domain.Identity, caseID string) (*CaseDetail, error)
	// ExportCases returns raw rows for the spreadsheet export (admin only).
	ExportCases(ctx context.Context, actor *domain.Identity, estado string) ([]*domain.Case, error)

	// mutations
	CreateCase(ctx context.Context, actor *domain.Identity, req CreateCaseRequest) (*CaseDTO, error)
	UpdateCase(ctx context.Context, req UpdateCaseRequest) (*CaseDTO, error)
	UploadPhoto(ctx context.Context, req UploadPhotoRequest) (*CaseDTO, error)
	DeleteCase(ctx context.Context, actor *domain.Identity, caseID string) error
}

type caseService struct {
	casesRepo     repository.CasesRepository
	cluesRepo     repository.CluesRepository
	storage       PhotoStorage // nil when object storage is not configured
	maxPhotoBytes int64
	now           func() time.Time
	logger        *zap.Logger
}

func NewCaseService(
	casesRepo repository.CasesRepository,
	cluesRepo repository.CluesRepository,
	storage PhotoStorage,
	maxPhotoBytes int64,
	logger *zap.Logger,
) CaseService {
	return &caseService{
		casesRepo:     casesRepo,
		cluesRepo:     cluesRepo,
		storage:       storage,
		maxPhotoBytes: maxPhotoBytes,
		now:           time.Now,
		logger:        logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// ListCasesRequest GET /cases
type ListCasesRequest struct {
	Actor  *domain.Identity // nil = anonymous
	Estado string           // honored for administrators only
	Page   int              // default 1
	Limit  int              // default 50
}

type ListCasesResponse struct {
	Items      []*CaseDTO
	Pagination Pagination
}

// CreateCaseRequest POST /cases. Numbers arrive as JSON numbers or numeric
// strings.
type CreateCaseRequest struct {
	NombreDesaparecido string      `json:"nombre_desaparecido"`
	EdadDesaparecido   json.Number `json:"edad_desaparecido"`
	SexoDesaparecido   string      `json:"sexo_desaparecido"`
	DescripcionFisica  string      `json:"descripcion_fisica"`
	DescripcionRopa    string      `json:"descripcion_ropa"`
	DescripcionHechos  string      `json:"descripcion_hechos"`
	FechaDesaparicion  string      `json:"fecha_desaparicion"` // RFC 3339 or YYYY-MM-DD
	UbicacionLatitud   json.Number `json:"ubicacion_latitud"`
	UbicacionLongitud  json.Number `json:"ubicacion_longitud"`
	DireccionTexto     string      `json:"direccion_texto"`
	NombreContacto     string      `json:"nombre_contacto"`
	TelefonoContacto   string      `json:"telefono_contacto"`
	CorreoContacto     string      `json:"correo_contacto"`
	Parentesco         string      `json:"parentesco"`
	URLFoto1           string      `json:"url_foto_1"`
	URLFoto2           string      `json:"url_foto_2"`
	URLFoto3           string      `json:"url_foto_3"`
}

// UpdateCaseRequest PUT /cases/:id
type UpdateCaseRequest struct {
	Actor  *domain.Identity
	CaseID string
	Patch  domain.CasePatch
}

// UploadPhotoRequest POST /cases/:id/photos
type UploadPhotoRequest struct {
	Actor       *domain.Identity
	CaseID      string
	Slot        int // 1..3
	ContentType string
	Data        []byte
}

// ============================================
// Queries
// ============================================

func (s *caseService) ListCases(ctx context.Context, req ListCasesRequest) (*ListCasesResponse, error) {
	actor := policy.ActorFor(req.Actor, "")

	var requested domain.CaseState
	if actor.IsAdmin() && strings.TrimSpace(req.Estado) != "" {
		st, ok := domain.ParseCaseState(req.Estado)
		if !ok {
			return nil, Validation("Estado de caso inválido")
		}
		requested = st
	}

	page, limit := req.Page, req.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = DefaultCasePageSize
	}
	if limit > MaxCasePageSize {
		limit = MaxCasePageSize
	}
	// row offsets stay within int32 on every backend
	if maxPage := math.MaxInt32/limit + 1; page > maxPage {
		page = maxPage
	}

	filters := domain.CaseFilters{Estado: policy.CaseListState(actor, requested)}
	cases, total, err := s.casesRepo.ListCases(ctx, filters, page, limit)
	if err != nil {
		return nil, Internal("Error al obtener casos", err)
	}
	return &ListCasesResponse{
		Items:      toCaseDTOs(cases),
		Pagination: Pagination{Pagina: page, Limite: limit, Total: total},
	}, nil
}

func (s *caseService) ListPending(ctx context.Context, actor *domain.Identity) ([]*CaseDTO, error) {
	if d := policy.CanModerate(policy.ActorFor(actor, "")); !d.Allowed() {
		return nil, deny(d, MsgAdminOnly)
	}
	filters := domain.CaseFilters{Estado: domain.CaseStatePending, OldestFirst: true}
	cases, _, err := s.casesRepo.ListCases(ctx, filters, 0, 0)
	if err != nil {
		return nil, Internal("Error al obtener casos pendientes", err)
	}
	return toCaseDTOs(cases), nil
}

func (s *caseService) ListByUser(ctx context.Context, actor *domain.Identity, userID string) ([]*CaseDTO, error) {
	if d := policy.CanViewUser(policy.ActorFor(actor, userID)); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para ver estos casos")
	}
	cases, _, err := s.casesRepo.ListCases(ctx, domain.CaseFilters{ReporterID: userID}, 0, 0)
	if err != nil {
		return nil, Internal("Error al obtener casos", err)
	}
	return toCaseDTOs(cases), nil
}

func (s *caseService) GetCase(ctx context.Context, actor *domain.Identity, caseID string) (*CaseDetail, error) {
	c, err := s.loadCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	a := policy.ActorFor(actor, c.ReporterID)
	// hidden cases are indistinguishable from missing ones
	if !policy.CanViewCase(a, c.EstadoCaso) {
		return nil, NotFound(MsgCaseNotFound)
	}

	clues, err := s.cluesRepo.ListClues(ctx, domain.ClueFilters{
		CaseID: c.ID,
		Estado: policy.EmbeddedClueState(a),
	})
	if err != nil {
		return nil, Internal("Error al obtener el caso", err)
	}
	return &CaseDetail{CaseDTO: toCaseDTO(c), Pistas: toClueDTOs(clues)}, nil
}

func (s *caseService) ExportCases(ctx context.Context, actor *domain.Identity, estado string) ([]*domain.Case, error) {
	if d := policy.CanModerate(policy.ActorFor(actor, "")); !d.Allowed() {
		return nil, deny(d, MsgAdminOnly)
	}
	var filters domain.CaseFilters
	if strings.TrimSpace(estado) != "" {
		st, ok := domain.ParseCaseState(estado)
		if !ok {
			return nil, Validation("Estado de caso inválido")
		}
		filters.Estado = st
	}
	cases, _, err := s.casesRepo.ListCases(ctx, filters, 0, 0)
	if err != nil {
		return nil, Internal("Error al exportar casos", err)
	}
	return cases, nil
}

// ============================================
// Mutations
// ============================================

func (s *caseService) CreateCase(ctx context.Context, actor *domain.Identity, req CreateCaseRequest) (*CaseDTO, error) {
	if actor == nil {
		return nil, Unauthenticated(MsgTokenMissing)
	}
	c, err := s.buildCase(req)
	if err != nil {
		return nil, err
	}
	c.ReporterID = actor.UserID
	c.EstadoCaso = domain.CaseStatePending

	if err := s.casesRepo.CreateCase(ctx, c); err != nil {
		return nil, Internal("Error al crear el caso", err)
	}
	s.logger.Info("Case created",
		zap.String("case_id", c.ID),
		zap.String("reporter_id", c.ReporterID),
	)
	return toCaseDTO(c), nil
}

// buildCase validates a create request into a row without owner or state.
func (s *caseService) buildCase(req CreateCaseRequest) (*domain.Case, error) {
	required := []string{
		req.NombreDesaparecido, req.EdadDesaparecido.String(), req.SexoDesaparecido,
		req.DescripcionHechos, req.FechaDesaparicion,
		req.UbicacionLatitud.String(), req.UbicacionLongitud.String(), req.DireccionTexto,
		req.NombreContacto, req.TelefonoContacto, req.CorreoContacto, req.Parentesco,
	}
	for _, v := range required {
		if strings.TrimSpace(v) == "" {
			return nil, Validation("Todos los campos obligatorios deben ser completados")
		}
	}

	edad, err := req.EdadDesaparecido.Int64()
	if err != nil {
		return nil, Validation("La edad debe ser un número entero")
	}
	if edad < 0 || edad > domain.MaxCaseAge {
		return nil, Validation("La edad debe estar entre 0 y 18 años")
	}

	sexo, ok := domain.ParseSex(req.SexoDesaparecido)
	if !ok {
		return nil, Validation("Sexo inválido")
	}

	lat, errLat := req.UbicacionLatitud.Float64()
	lng, errLng := req.UbicacionLongitud.Float64()
	if errLat != nil || errLng != nil || math.Abs(lat) > 90 || math.Abs(lng) > 180 {
		return nil, Validation("Ubicación inválida")
	}

	fecha, err := parseDate(req.FechaDesaparicion)
	if err != nil {
		return nil, Validation("Fecha de desaparición inválida")
	}

	return &domain.Case{
		NombreDesaparecido: strings.TrimSpace(req.NombreDesaparecido),
		EdadDesaparecido:   int(edad),
		SexoDesaparecido:   sexo,
		DescripcionFisica:  optionalText(req.DescripcionFisica),
		DescripcionRopa:    optionalText(req.DescripcionRopa),
		DescripcionHechos:  strings.TrimSpace(req.DescripcionHechos),
		FechaDesaparicion:  fecha,
		UbicacionLatitud:   lat,
		UbicacionLongitud:  lng,
		DireccionTexto:     strings.TrimSpace(req.DireccionTexto),
		NombreContacto:     strings.TrimSpace(req.NombreContacto),
		TelefonoContacto:   strings.TrimSpace(req.TelefonoContacto),
		CorreoContacto:     strings.ToLower(strings.TrimSpace(req.CorreoContacto)),
		Parentesco:         strings.TrimSpace(req.Parentesco),
		URLFoto1:           optionalText(req.URLFoto1),
		URLFoto2:           optionalText(req.URLFoto2),
		URLFoto3:           optionalText(req.URLFoto3),
	}, nil
}

func (s *caseService) UpdateCase(ctx context.Context, req UpdateCaseRequest) (*CaseDTO, error) {
	c, err := s.loadCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}

	patch, d := policy.CasePatchFor(policy.ActorFor(req.Actor, c.ReporterID), req.Patch)
	if !d.Allowed() {
		return nil, deny(d, "No tienes permisos para actualizar este caso")
	}
	if err := normalizeCasePatch(&patch); err != nil {
		return nil, err
	}
	if patch.IsEmpty() {
		return nil, Validation(MsgNothingToUpdate)
	}

	patch, err = lifecycle.ApplyCaseState(c.EstadoCaso, patch, s.now())
	if err != nil {
		return nil, lifecycleError(err)
	}

	updated, err := s.casesRepo.UpdateCase(ctx, c.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgCaseNotFound)
		}
		return nil, Internal("Error al actualizar el caso", err)
	}
	if patch.EstadoCaso.HasValue() && patch.EstadoCaso.Value != c.EstadoCaso {
		s.logger.Info("Case state changed",
			zap.String("case_id", c.ID),
			zap.String("from", string(c.EstadoCaso)),
			zap.String("to", string(patch.EstadoCaso.Value)),
			zap.String("admin_id", req.Actor.UserID),
		)
	}
	return toCaseDTO(updated), nil
}

// normalizeCasePatch trims text, lowercases the contact email and rejects
// clearing a mandatory field. Blank optional text becomes null.
func normalizeCasePatch(p *domain.CasePatch) error {
	for _, f := range []*domain.Optional[string]{&p.DescripcionHechos, &p.TelefonoContacto, &p.CorreoContacto} {
		if !f.Present {
			continue
		}
		f.Value = strings.TrimSpace(f.Value)
		if f.Null || f.Value == "" {
			return Validation("Los campos obligatorios no pueden quedar vacíos")
		}
	}
	if p.CorreoContacto.HasValue() {
		p.CorreoContacto.Value = strings.ToLower(p.CorreoContacto.Value)
	}
	for _, f := range []*domain.Optional[string]{&p.DescripcionFisica, &p.DescripcionRopa, &p.URLFoto1, &p.URLFoto2, &p.URLFoto3} {
		if f.HasValue() {
			f.Value = strings.TrimSpace(f.Value)
			if f.Value == "" {
				*f = domain.Null[string]()
			}
		}
	}
	return nil
}

func (s *caseService) UploadPhoto(ctx context.Context, req UploadPhotoRequest) (*CaseDTO, error) {
	c, err := s.loadCase(ctx, req.CaseID)
	if err != nil {
		return nil, err
	}
	if _, d := policy.CasePatchFor(policy.ActorFor(req.Actor, c.ReporterID), domain.CasePatch{}); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para actualizar este caso")
	}
	if req.Slot < 1 || req.Slot > MaxPhotoSlot {
		return nil, Validation("La posición de la foto debe ser 1, 2 o 3")
	}
	ext, ok := photoExtensions[req.ContentType]
	if !ok {
		return nil, Validation("Solo se permiten imágenes JPEG o PNG")
	}
	if len(req.Data) == 0 {
		return nil, Validation("No se proporcionó ninguna imagen")
	}
	if s.maxPhotoBytes > 0 && int64(len(req.Data)) > s.maxPhotoBytes {
		return nil, Validation(fmt.Sprintf("La imagen no puede superar %d MB", s.maxPhotoBytes>>20))
	}
	if s.storage == nil {
		return nil, Internal("El almacenamiento de fotos no está configurado", errors.New("photo storage disabled"))
	}

	objectPath := fmt.Sprintf("casos/%s/foto_%d_%s%s", c.ID, req.Slot, uuid.NewString(), ext)
	url, err := s.storage.Upload(ctx, objectPath, req.ContentType, req.Data)
	if err != nil {
		return nil, Internal("Error al subir la foto", err)
	}

	var patch domain.CasePatch
	*patch.PhotoSlot(req.Slot) = domain.Some(url)
	updated, err := s.casesRepo.UpdateCase(ctx, c.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgCaseNotFound)
		}
		return nil, Internal("Error al actualizar el caso", err)
	}
	return toCaseDTO(updated), nil
}

var photoExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

func (s *caseService) DeleteCase(ctx context.Context, actor *domain.Identity, caseID string) error {
	if d := policy.CanDeleteCase(policy.ActorFor(actor, "")); !d.Allowed() {
		return deny(d, "Solo administradores pueden eliminar casos")
	}
	if err := s.casesRepo.DeleteCase(ctx, caseID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(MsgCaseNotFound)
		}
		return Internal("Error al eliminar el caso", err)
	}
	s.logger.Info("Case deleted", zap.String("case_id", caseID), zap.String("admin_id", actor.UserID))
	return nil
}

// ============================================
// Helpers
// ============================================

func (s *caseService) loadCase(ctx context.Context, caseID string) (*domain.Case, error) {
	c, err := s.casesRepo.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgCaseNotFound)
		}
		return nil, Internal("Error al obtener el caso", err)
	}
	return c, nil
}

// deny converts a refused policy decision; anonymous callers get 401.
func deny(d policy.Decision, forbiddenMsg string) *Error {
	if d == policy.DenyUnauthenticated {
		return Unauthenticated(MsgLoginRequired)
	}
	return Forbidden(forbiddenMsg)
}

func lifecycleError(err error) *Error {
	switch {
	case errors.Is(err, lifecycle.ErrInvalidCaseState):
		return Validation("Estado de caso inválido")
	case errors.Is(err, lifecycle.ErrInvalidClueState):
		return Validation("Estado de pista inválido")
	case errors.Is(err, lifecycle.ErrTransitionDenied):
		return Validation(MsgInvalidTransition)
	case errors.Is(err, lifecycle.ErrCaseNotAcceptingClues):
		return Validation("Solo se pueden agregar pistas a casos activos")
	}
	return Internal("Error interno del servidor", err)
}

func optionalText(s string) sql.NullString {
	s = strings.TrimSpace(s)
	return sql.NullString{String: s, Valid: s != ""}
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), nil
	}
	return time.Parse("2006-01-02", s)
}
