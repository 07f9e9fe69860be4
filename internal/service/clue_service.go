package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/lifecycle"
	"github.com/gevengood/red-esperanza-backend/internal/policy"
	"github.com/gevengood/red-esperanza-backend/internal/repository"

	"go.uber.org/zap"
)

// ClueService clue submission and moderation
type ClueService interface {
	ListByCase(ctx context.Context, actor *domain.Identity, caseID string) ([]*ClueDTO, error)
	ListPending(ctx context.Context, actor *domain.Identity) ([]*ClueDTO, error)
	ListByUser(ctx context.Context, actor *domain.Identity, userID string) ([]*ClueDTO, error)
	GetClue(ctx context.Context, actor *domain.Identity, clueID string) (*ClueDTO, error)

	CreateClue(ctx context.Context, actor *domain.Identity, req CreateClueRequest) (*ClueDTO, error)
	UpdateClue(ctx context.Context, req UpdateClueRequest) (*ClueDTO, error)
	DeleteClue(ctx context.Context, actor *domain.Identity, clueID string) error
}

type clueService struct {
	cluesRepo repository.CluesRepository
	casesRepo repository.CasesRepository
	logger    *zap.Logger
}

func NewClueService(cluesRepo repository.CluesRepository, casesRepo repository.CasesRepository, logger *zap.Logger) ClueService {
	return &clueService{
		cluesRepo: cluesRepo,
		casesRepo: casesRepo,
		logger:    logger,
	}
}

// CreateClueRequest POST /clues
type CreateClueRequest struct {
	CaseID       string `json:"id_caso"` // required, case must be ACTIVO
	Mensaje      string `json:"mensaje"` // required
	URLFotoPista string `json:"url_foto_pista"`
}

// UpdateClueRequest PUT /clues/:id
type UpdateClueRequest struct {
	Actor  *domain.Identity
	ClueID string
	Patch  domain.CluePatch
}

func (s *clueService) ListByCase(ctx context.Context, actor *domain.Identity, caseID string) ([]*ClueDTO, error) {
	if actor == nil {
		return nil, Unauthenticated("Debes iniciar sesión para ver las pistas")
	}
	c, err := s.casesRepo.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgCaseNotFound)
		}
		return nil, Internal("Error al obtener pistas", err)
	}

	d, estado := policy.ClueListAccess(policy.ActorFor(actor, c.ReporterID))
	if !d.Allowed() {
		return nil, deny(d, "No tienes permiso para ver estas pistas")
	}
	clues, err := s.cluesRepo.ListClues(ctx, domain.ClueFilters{CaseID: c.ID, Estado: estado})
	if err != nil {
		return nil, Internal("Error al obtener pistas", err)
	}
	return toClueDTOs(clues), nil
}

func (s *clueService) ListPending(ctx context.Context, actor *domain.Identity) ([]*ClueDTO, error) {
	if d := policy.CanModerate(policy.ActorFor(actor, "")); !d.Allowed() {
		return nil, deny(d, MsgAdminOnly)
	}
	clues, err := s.cluesRepo.ListClues(ctx, domain.ClueFilters{Estado: domain.ClueStatePending, OldestFirst: true})
	if err != nil {
		return nil, Internal("Error al obtener pistas pendientes", err)
	}
	return toClueDTOs(clues), nil
}

func (s *clueService) ListByUser(ctx context.Context, actor *domain.Identity, userID string) ([]*ClueDTO, error) {
	if d := policy.CanViewUser(policy.ActorFor(actor, userID)); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para ver estas pistas")
	}
	clues, err := s.cluesRepo.ListClues(ctx, domain.ClueFilters{ContributorID: userID})
	if err != nil {
		return nil, Internal("Error al obtener pistas", err)
	}
	return toClueDTOs(clues), nil
}

func (s *clueService) GetClue(ctx context.Context, actor *domain.Identity, clueID string) (*ClueDTO, error) {
	clue, err := s.loadClue(ctx, clueID)
	if err != nil {
		return nil, err
	}
	if !policy.CanViewClue(policy.ActorFor(actor, clue.ContributorID), clue.EstadoPista).Allowed() {
		return nil, Forbidden("No tienes permisos para ver esta pista")
	}
	return toClueDTO(clue), nil
}

func (s *clueService) CreateClue(ctx context.Context, actor *domain.Identity, req CreateClueRequest) (*ClueDTO, error) {
	if actor == nil {
		return nil, Unauthenticated(MsgTokenMissing)
	}
	caseID := strings.TrimSpace(req.CaseID)
	mensaje := strings.TrimSpace(req.Mensaje)
	if caseID == "" || mensaje == "" {
		return nil, Validation("El ID del caso y el mensaje son obligatorios")
	}

	c, err := s.casesRepo.GetCase(ctx, caseID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgCaseNotFound)
		}
		return nil, Internal("Error al crear la pista", err)
	}
	if err := lifecycle.CheckClueTarget(c); err != nil {
		return nil, lifecycleError(err)
	}

	clue := &domain.Clue{
		CaseID:        c.ID,
		ContributorID: actor.UserID,
		Mensaje:       mensaje,
		URLFotoPista:  optionalText(req.URLFotoPista),
		EstadoPista:   domain.ClueStatePending,
	}
	if err := s.cluesRepo.CreateClue(ctx, clue); err != nil {
		return nil, Internal("Error al crear la pista", err)
	}
	s.logger.Info("Clue created",
		zap.String("clue_id", clue.ID),
		zap.String("case_id", clue.CaseID),
		zap.String("contributor_id", clue.ContributorID),
	)

	// re-read for the joined author and case fields
	created, err := s.cluesRepo.GetClue(ctx, clue.ID)
	if err != nil {
		s.logger.Warn("Failed to reload created clue",
			zap.String("clue_id", clue.ID),
			zap.Error(err),
		)
		return toClueDTO(clue), nil
	}
	return toClueDTO(created), nil
}

func (s *clueService) UpdateClue(ctx context.Context, req UpdateClueRequest) (*ClueDTO, error) {
	clue, err := s.loadClue(ctx, req.ClueID)
	if err != nil {
		return nil, err
	}

	patch, d := policy.CluePatchFor(policy.ActorFor(req.Actor, clue.ContributorID), req.Patch)
	if !d.Allowed() {
		return nil, deny(d, "No tienes permisos para actualizar esta pista")
	}
	if patch.Mensaje.Present {
		patch.Mensaje.Value = strings.TrimSpace(patch.Mensaje.Value)
		if patch.Mensaje.Null || patch.Mensaje.Value == "" {
			return nil, Validation("El mensaje no puede estar vacío")
		}
	}
	if patch.URLFotoPista.HasValue() {
		patch.URLFotoPista.Value = strings.TrimSpace(patch.URLFotoPista.Value)
		if patch.URLFotoPista.Value == "" {
			patch.URLFotoPista = domain.Null[string]()
		}
	}
	if patch.IsEmpty() {
		return nil, Validation(MsgNothingToUpdate)
	}

	patch, err = lifecycle.ApplyClueState(clue.EstadoPista, patch)
	if err != nil {
		return nil, lifecycleError(err)
	}

	updated, err := s.cluesRepo.UpdateClue(ctx, clue.ID, patch)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgClueNotFound)
		}
		return nil, Internal("Error al actualizar la pista", err)
	}
	if patch.EstadoPista.HasValue() && patch.EstadoPista.Value != clue.EstadoPista {
		s.logger.Info("Clue state changed",
			zap.String("clue_id", clue.ID),
			zap.String("from", string(clue.EstadoPista)),
			zap.String("to", string(patch.EstadoPista.Value)),
			zap.String("admin_id", req.Actor.UserID),
		)
	}
	return toClueDTO(updated), nil
}

func (s *clueService) DeleteClue(ctx context.Context, actor *domain.Identity, clueID string) error {
	clue, err := s.loadClue(ctx, clueID)
	if err != nil {
		return err
	}
	if d := policy.CanDeleteClue(policy.ActorFor(actor, clue.ContributorID)); !d.Allowed() {
		return deny(d, "No tienes permisos para eliminar esta pista")
	}
	if err := s.cluesRepo.DeleteClue(ctx, clue.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(MsgClueNotFound)
		}
		return Internal("Error al eliminar la pista", err)
	}
	return nil
}

func (s *clueService) loadClue(ctx context.Context, clueID string) (*domain.Clue, error) {
	clue, err := s.cluesRepo.GetClue(ctx, clueID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgClueNotFound)
		}
		return nil, Internal("Error al obtener la pista", err)
	}
	return clue, nil
}
