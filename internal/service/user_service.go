package service

import (
	"context"
	"errors"
	"strings"

	"github.com/gevengood/red-esperanza-backend/internal/auth"
	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/policy"
	"github.com/gevengood/red-esperanza-backend/internal/repository"

	"go.uber.org/zap"
)

// UserService profile management
type UserService interface {
	// queries
	ListUsers(ctx context.Context, actor *domain.Identity) ([]*UserDTO, error)
	GetUser(ctx context.Context, actor *domain.Identity, userID string) (*UserDTO, error)
	GetStats(ctx context.Context, actor *domain.Identity, userID string) (*UserStats, error)

	// self-service
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserDTO, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error

	// DeleteUser removes the account with its cases and clues.
	DeleteUser(ctx context.Context, actor *domain.Identity, userID string) error
}

type userService struct {
	usersRepo repository.UsersRepository
	casesRepo repository.CasesRepository
	cluesRepo repository.CluesRepository
	hasher    *auth.PasswordHasher
	logger    *zap.Logger
}

func NewUserService(
	usersRepo repository.UsersRepository,
	casesRepo repository.CasesRepository,
	cluesRepo repository.CluesRepository,
	hasher *auth.PasswordHasher,
	logger *zap.Logger,
) UserService {
	return &userService{
		usersRepo: usersRepo,
		casesRepo: casesRepo,
		cluesRepo: cluesRepo,
		hasher:    hasher,
		logger:    logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// UpdateProfileRequest PUT /users/:id
type UpdateProfileRequest struct {
	Actor  *domain.Identity
	UserID string
	Patch  domain.UserPatch // es_administrador is not part of the patch
}

// ChangePasswordRequest PUT /users/:id/password
type ChangePasswordRequest struct {
	Actor           *domain.Identity `json:"-"`
	UserID          string           `json:"-"`
	CurrentPassword string           `json:"currentPassword"`
	NewPassword     string           `json:"newPassword"`
}

// ============================================
// Queries
// ============================================

func (s *userService) ListUsers(ctx context.Context, actor *domain.Identity) ([]*UserDTO, error) {
	if d := policy.CanModerate(policy.ActorFor(actor, "")); !d.Allowed() {
		return nil, deny(d, MsgAdminOnly)
	}
	users, err := s.usersRepo.ListUsers(ctx)
	if err != nil {
		return nil, Internal("Error al obtener usuarios", err)
	}
	return toUserDTOs(users), nil
}

func (s *userService) GetUser(ctx context.Context, actor *domain.Identity, userID string) (*UserDTO, error) {
	if d := policy.CanViewUser(policy.ActorFor(actor, userID)); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para ver este perfil")
	}
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return toUserDTO(user), nil
}

func (s *userService) GetStats(ctx context.Context, actor *domain.Identity, userID string) (*UserStats, error) {
	if d := policy.CanViewUser(policy.ActorFor(actor, userID)); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para ver estas estadísticas")
	}
	if _, err := s.loadUser(ctx, userID); err != nil {
		return nil, err
	}

	cases, err := s.casesRepo.CountCasesByState(ctx, userID)
	if err != nil {
		return nil, Internal("Error al obtener estadísticas", err)
	}
	clues, err := s.cluesRepo.CountCluesByState(ctx, userID)
	if err != nil {
		return nil, Internal("Error al obtener estadísticas", err)
	}

	stats := &UserStats{
		Casos: CaseCounts{
			Pendientes: cases[domain.CaseStatePending],
			Activos:    cases[domain.CaseStateActive],
			Resueltos:  cases[domain.CaseStateResolved],
			Rechazados: cases[domain.CaseStateRejected],
		},
		Pistas: ClueCounts{
			Pendientes:  clues[domain.ClueStatePending],
			Verificadas: clues[domain.ClueStateVerified],
			Rechazadas:  clues[domain.ClueStateRejected],
		},
	}
	for _, n := range cases {
		stats.Casos.Total += n
	}
	for _, n := range clues {
		stats.Pistas.Total += n
	}
	return stats, nil
}

// ============================================
// Mutations
// ============================================

func (s *userService) UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*UserDTO, error) {
	if d := policy.CanUpdateProfile(policy.ActorFor(req.Actor, req.UserID)); !d.Allowed() {
		return nil, deny(d, "No tienes permisos para actualizar este perfil")
	}
	patch := req.Patch
	if patch.IsEmpty() {
		return nil, Validation("Debes proporcionar al menos un campo para actualizar")
	}

	if patch.Nombre.Present {
		patch.Nombre.Value = strings.TrimSpace(patch.Nombre.Value)
		if patch.Nombre.Null || patch.Nombre.Value == "" {
			return nil, Validation("El nombre no puede estar vacío")
		}
	}
	if patch.Telefono.HasValue() {
		patch.Telefono.Value = strings.TrimSpace(patch.Telefono.Value)
		if patch.Telefono.Value == "" {
			patch.Telefono = domain.Null[string]()
		}
	}
	if patch.Correo.Present {
		patch.Correo.Value = strings.ToLower(strings.TrimSpace(patch.Correo.Value))
		if patch.Correo.Null || !emailPattern.MatchString(patch.Correo.Value) {
			return nil, Validation(MsgInvalidEmail)
		}
		taken, err := s.usersRepo.EmailTaken(ctx, patch.Correo.Value, req.UserID)
		if err != nil {
			return nil, Internal("Error al actualizar el perfil", err)
		}
		if taken {
			return nil, Conflict("El correo ya está en uso por otro usuario")
		}
	}

	user, err := s.usersRepo.UpdateUser(ctx, req.UserID, patch)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicateEmail):
			return nil, Conflict("El correo ya está en uso por otro usuario")
		case errors.Is(err, repository.ErrNotFound):
			return nil, NotFound(MsgUserNotFound)
		}
		return nil, Internal("Error al actualizar el perfil", err)
	}
	return toUserDTO(user), nil
}

func (s *userService) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if d := policy.CanUpdateProfile(policy.ActorFor(req.Actor, req.UserID)); !d.Allowed() {
		return deny(d, "No tienes permisos para cambiar esta contraseña")
	}
	if req.CurrentPassword == "" || req.NewPassword == "" {
		return Validation("Contraseña actual y nueva contraseña son obligatorias")
	}
	if len(req.NewPassword) < auth.MinPasswordLength {
		return Validation("La nueva contraseña debe tener al menos 6 caracteres")
	}
	if len(req.NewPassword) > auth.MaxPasswordBytes {
		return Validation(MsgPasswordTooLong)
	}

	user, err := s.loadUser(ctx, req.UserID)
	if err != nil {
		return err
	}
	if !s.hasher.Compare(user.PasswordHash, req.CurrentPassword) {
		return Unauthenticated("La contraseña actual es incorrecta")
	}

	hash, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return Internal("Error al cambiar la contraseña", err)
	}
	if err := s.usersRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(MsgUserNotFound)
		}
		return Internal("Error al cambiar la contraseña", err)
	}
	s.logger.Info("Password changed", zap.String("user_id", user.ID))
	return nil
}

func (s *userService) DeleteUser(ctx context.Context, actor *domain.Identity, userID string) error {
	if d := policy.CanDeleteUser(policy.ActorFor(actor, userID)); !d.Allowed() {
		return deny(d, "No tienes permisos para eliminar este usuario")
	}
	if err := s.usersRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NotFound(MsgUserNotFound)
		}
		return Internal("Error al eliminar el usuario", err)
	}
	s.logger.Info("User deleted",
		zap.String("user_id", userID),
		zap.String("deleted_by", actor.UserID),
	)
	return nil
}

func (s *userService) loadUser(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgUserNotFound)
		}
		return nil, Internal("Error al obtener usuario", err)
	}
	return user, nil
}
