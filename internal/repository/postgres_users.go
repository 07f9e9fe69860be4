package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

const userColumns = `id_usuario, nombre, correo, password_hash, telefono, es_administrador, fecha_registro`

// PostgresUsersRepository usuarios on Postgres
type PostgresUsersRepository struct {
	db *sqlx.DB
}

func NewPostgresUsersRepository(db *sqlx.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if !isUUID(userID) {
		return nil, ErrNotFound
	}
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM usuarios WHERE id_usuario = $1`, userID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, correo string) (*domain.User, error) {
	correo = normalizeEmail(correo)
	if correo == "" {
		return nil, ErrNotFound
	}
	var u domain.User
	err := r.db.GetContext(ctx, &u, `SELECT `+userColumns+` FROM usuarios WHERE lower(correo) = $1`, correo)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &u, nil
}

func (r *PostgresUsersRepository) EmailTaken(ctx context.Context, correo, excludeID string) (bool, error) {
	var taken bool
	err := r.db.GetContext(ctx, &taken,
		`SELECT EXISTS (SELECT 1 FROM usuarios WHERE lower(correo) = $1 AND ($2 = '' OR id_usuario::text <> $2))`,
		normalizeEmail(correo), excludeID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to check email: %w", err)
	}
	return taken, nil
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context) ([]*domain.User, error) {
	users := []*domain.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT `+userColumns+` FROM usuarios ORDER BY fecha_registro DESC`); err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) error {
	if user == nil {
		return fmt.Errorf("user is required")
	}
	user.ID = uuid.NewString()
	user.Correo = normalizeEmail(user.Correo)

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO usuarios (id_usuario, nombre, correo, password_hash, telefono, es_administrador)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING fecha_registro`,
		user.ID, user.Nombre, user.Correo, user.PasswordHash, user.Telefono, user.EsAdministrador,
	).Scan(&user.FechaRegistro)
	if isUniqueViolation(err) {
		return ErrDuplicateEmail
	}
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	if !isUUID(userID) {
		return nil, ErrNotFound
	}
	b := &updateBuilder{}
	setOptional(b, "nombre", patch.Nombre)
	setOptional(b, "telefono", patch.Telefono)
	if patch.Correo.HasValue() {
		b.set("correo", normalizeEmail(patch.Correo.Value))
	}
	if b.empty() {
		return r.GetUser(ctx, userID)
	}

	q, args := b.build("usuarios", "id_usuario", userID)
	var u domain.User
	err := r.db.GetContext(ctx, &u, q+` RETURNING `+userColumns, args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if isUniqueViolation(err) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}
	return &u, nil
}

func (r *PostgresUsersRepository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	if !isUUID(userID) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `UPDATE usuarios SET password_hash = $1 WHERE id_usuario = $2`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return requireAffected(res)
}

// DeleteUser deletes, in order: the user's clues and the clues on the
// user's cases, the user's cases, then the user row.
func (r *PostgresUsersRepository) DeleteUser(ctx context.Context, userID string) error {
	if !isUUID(userID) {
		return ErrNotFound
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM pistas
		 WHERE id_usuario_que_aporta = $1
		    OR id_caso IN (SELECT id_caso FROM casos WHERE id_usuario_reportero = $1)`,
		userID,
	); err != nil {
		return fmt.Errorf("failed to delete user clues: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM casos WHERE id_usuario_reportero = $1`, userID); err != nil {
		return fmt.Errorf("failed to delete user cases: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM usuarios WHERE id_usuario = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

func normalizeEmail(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
