package repository

import (
	"context"
	"errors"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

var (
	// ErrNotFound is returned when the addressed row does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicateEmail is returned when correo collides with another user (case-insensitive).
	ErrDuplicateEmail = errors.New("email already registered")
)

// UsersRepository usuarios
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, correo string) (*domain.User, error)
	// EmailTaken reports whether another user (not excludeID) owns correo.
	EmailTaken(ctx context.Context, correo, excludeID string) (bool, error)
	ListUsers(ctx context.Context) ([]*domain.User, error)
	// CreateUser assigns ID and FechaRegistro.
	CreateUser(ctx context.Context, user *domain.User) error
	UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
	// DeleteUser removes the user, the cases they reported, every clue on
	// those cases and every clue they contributed, atomically.
	DeleteUser(ctx context.Context, userID string) error
}

// CasesRepository casos
type CasesRepository interface {
	GetCase(ctx context.Context, caseID string) (*domain.Case, error)
	// ListCases pages when size > 0, otherwise returns every match.
	ListCases(ctx context.Context, filters domain.CaseFilters, page, size int) ([]*domain.Case, int, error)
	// CreateCase assigns ID and FechaCreacion.
	CreateCase(ctx context.Context, c *domain.Case) error
	UpdateCase(ctx context.Context, caseID string, patch domain.CasePatch) (*domain.Case, error)
	// DeleteCase removes the case and its clues atomically.
	DeleteCase(ctx context.Context, caseID string) error
	CountCasesByState(ctx context.Context, reporterID string) (map[domain.CaseState]int, error)
}

// CluesRepository pistas
type CluesRepository interface {
	GetClue(ctx context.Context, clueID string) (*domain.Clue, error)
	ListClues(ctx context.Context, filters domain.ClueFilters) ([]*domain.Clue, error)
	// CreateClue assigns ID and FechaCreacion.
	CreateClue(ctx context.Context, c *domain.Clue) error
	UpdateClue(ctx context.Context, clueID string, patch domain.CluePatch) (*domain.Clue, error)
	DeleteClue(ctx context.Context, clueID string) error
	CountCluesByState(ctx context.Context, contributorID string) (map[domain.ClueState]int, error)
}
