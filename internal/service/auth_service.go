package service

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"strings"

	"github.com/gevengood/red-esperanza-backend/internal/auth"
	"github.com/gevengood/red-esperanza-backend/internal/domain"
	"github.com/gevengood/red-esperanza-backend/internal/repository"

	"go.uber.org/zap"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// AuthService registration, login and token verification
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	Me(ctx context.Context, id *domain.Identity) (*UserDTO, error)
	Logout(ctx context.Context, id *domain.Identity) error

	// Authenticate turns a bearer token into an Identity, re-reading the
	// administrator flag from the store.
	Authenticate(ctx context.Context, token string) (*domain.Identity, error)

	// SeedAdmin creates the bootstrap administrator when correo is unused.
	SeedAdmin(ctx context.Context, nombre, correo, password string) error
}

type authService struct {
	usersRepo   repository.UsersRepository
	tokens      *auth.TokenService
	hasher      *auth.PasswordHasher
	revocations *auth.Revocations
	logger      *zap.Logger
}

func NewAuthService(
	usersRepo repository.UsersRepository,
	tokens *auth.TokenService,
	hasher *auth.PasswordHasher,
	revocations *auth.Revocations,
	logger *zap.Logger,
) AuthService {
	return &authService{
		usersRepo:   usersRepo,
		tokens:      tokens,
		hasher:      hasher,
		revocations: revocations,
		logger:      logger,
	}
}

// ============================================
// Request/Response DTOs
// ============================================

// RegisterRequest POST /auth/register
type RegisterRequest struct {
	Nombre   string `json:"nombre"`   // required
	Correo   string `json:"correo"`   // required, unique (case-insensitive)
	Password string `json:"password"` // required, >= 6
	Telefono string `json:"telefono"` // optional
}

// LoginRequest POST /auth/login
type LoginRequest struct {
	Correo    string `json:"correo"`
	Password  string `json:"password"`
	IPAddress string `json:"-"` // for logs
}

// AuthResponse token plus the public profile
type AuthResponse struct {
	Token   string   `json:"token"`
	Usuario *UserDTO `json:"usuario"`
}

// ============================================
// Operations
// ============================================

func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	nombre := strings.TrimSpace(req.Nombre)
	correo := strings.ToLower(strings.TrimSpace(req.Correo))
	if nombre == "" || correo == "" || req.Password == "" {
		return nil, Validation("Nombre, correo y contraseña son obligatorios")
	}
	if !emailPattern.MatchString(correo) {
		return nil, Validation(MsgInvalidEmail)
	}
	if len(req.Password) < auth.MinPasswordLength {
		return nil, Validation("La contraseña debe tener al menos 6 caracteres")
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		return nil, Validation(MsgPasswordTooLong)
	}

	taken, err := s.usersRepo.EmailTaken(ctx, correo, "")
	if err != nil {
		return nil, Internal("Error al registrar usuario", err)
	}
	if taken {
		return nil, Conflict("El correo ya está registrado")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, Internal("Error al registrar usuario", err)
	}
	user := &domain.User{
		Nombre:       nombre,
		Correo:       correo,
		PasswordHash: hash,
	}
	if tel := strings.TrimSpace(req.Telefono); tel != "" {
		user.Telefono = sql.NullString{String: tel, Valid: true}
	}
	if err := s.usersRepo.CreateUser(ctx, user); err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return nil, Conflict("El correo ya está registrado")
		}
		return nil, Internal("Error al registrar usuario", err)
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, Internal("Error al registrar usuario", err)
	}
	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return &AuthResponse{Token: token, Usuario: toUserDTO(user)}, nil
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	correo := strings.ToLower(strings.TrimSpace(req.Correo))
	if correo == "" || req.Password == "" {
		return nil, Validation("Correo y contraseña son obligatorios")
	}

	user, err := s.usersRepo.GetUserByEmail(ctx, correo)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, Internal("Error al iniciar sesión", err)
	}
	hash := ""
	if user != nil {
		hash = user.PasswordHash
	}
	// unknown email and wrong password are indistinguishable to the client
	if !s.hasher.Compare(hash, req.Password) {
		s.logger.Warn("User login failed: invalid credentials",
			zap.String("ip_address", req.IPAddress),
			zap.Bool("known_email", user != nil),
		)
		return nil, Unauthenticated("Credenciales inválidas")
	}

	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, Internal("Error al iniciar sesión", err)
	}
	s.logger.Info("User logged in", zap.String("user_id", user.ID), zap.String("ip_address", req.IPAddress))
	return &AuthResponse{Token: token, Usuario: toUserDTO(user)}, nil
}

func (s *authService) Me(ctx context.Context, id *domain.Identity) (*UserDTO, error) {
	user, err := s.usersRepo.GetUser(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, NotFound(MsgUserNotFound)
		}
		return nil, Internal("Error al obtener usuario", err)
	}
	return toUserDTO(user), nil
}

func (s *authService) Logout(ctx context.Context, id *domain.Identity) error {
	if err := s.revocations.Revoke(ctx, id.TokenID, id.Expires); err != nil {
		return Internal("Error al cerrar sesión", err)
	}
	s.logger.Info("User logged out", zap.String("user_id", id.UserID))
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*domain.Identity, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		s.logger.Debug("Token rejected", zap.Error(err))
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, Unauthenticated(MsgTokenExpired)
		}
		return nil, Unauthenticated(MsgTokenInvalid)
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, Internal("Error al verificar autenticación", err)
	}
	if revoked {
		return nil, Unauthenticated(MsgTokenRevoked)
	}

	user, err := s.usersRepo.GetUser(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, Unauthenticated(MsgUserNotFound)
		}
		return nil, Internal("Error al verificar autenticación", err)
	}

	id := &domain.Identity{
		UserID:  user.ID,
		Correo:  user.Correo,
		IsAdmin: user.EsAdministrador,
		TokenID: claims.ID,
	}
	if claims.ExpiresAt != nil {
		id.Expires = claims.ExpiresAt.Time
	}
	return id, nil
}

func (s *authService) SeedAdmin(ctx context.Context, nombre, correo, password string) error {
	correo = strings.ToLower(strings.TrimSpace(correo))
	if correo == "" {
		return nil
	}
	if !emailPattern.MatchString(correo) || len(password) < auth.MinPasswordLength || len(password) > auth.MaxPasswordBytes {
		return Validation("Configuración de administrador inválida")
	}

	existing, err := s.usersRepo.GetUserByEmail(ctx, correo)
	switch {
	case err == nil:
		s.logger.Info("Admin seed skipped: email already registered",
			zap.String("user_id", existing.ID),
			zap.Bool("es_administrador", existing.EsAdministrador),
		)
		return nil
	case !errors.Is(err, repository.ErrNotFound):
		return Internal("Error al crear administrador", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return Internal("Error al crear administrador", err)
	}
	admin := &domain.User{
		Nombre:          strings.TrimSpace(nombre),
		Correo:          correo,
		PasswordHash:    hash,
		EsAdministrador: true,
	}
	if admin.Nombre == "" {
		admin.Nombre = "Administrador"
	}
	if err := s.usersRepo.CreateUser(ctx, admin); err != nil {
		return Internal("Error al crear administrador", err)
	}
	s.logger.Info("Admin account seeded", zap.String("user_id", admin.ID))
	return nil
}
