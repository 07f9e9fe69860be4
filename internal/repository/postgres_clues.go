package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

const clueSelect = `
	SELECT
		p.id_pista, p.id_caso, p.id_usuario_que_aporta, p.mensaje, p.url_foto_pista,
		p.estado_pista, p.fecha_creacion,
		u.nombre AS aportante_nombre,
		c.nombre_desaparecido AS caso_nombre_desaparecido,
		c.estado_caso AS caso_estado
	FROM pistas p
	LEFT JOIN usuarios u ON u.id_usuario = p.id_usuario_que_aporta
	LEFT JOIN casos c ON c.id_caso = p.id_caso`

// PostgresCluesRepository pistas on Postgres
type PostgresCluesRepository struct {
	db *sqlx.DB
}

func NewPostgresCluesRepository(db *sqlx.DB) *PostgresCluesRepository {
	return &PostgresCluesRepository{db: db}
}

var _ CluesRepository = (*PostgresCluesRepository)(nil)

func (r *PostgresCluesRepository) GetClue(ctx context.Context, clueID string) (*domain.Clue, error) {
	if !isUUID(clueID) {
		return nil, ErrNotFound
	}
	var c domain.Clue
	err := r.db.GetContext(ctx, &c, clueSelect+` WHERE p.id_pista = $1`, clueID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get clue: %w", err)
	}
	return &c, nil
}

func (r *PostgresCluesRepository) ListClues(ctx context.Context, filters domain.ClueFilters) ([]*domain.Clue, error) {
	if (filters.CaseID != "" && !isUUID(filters.CaseID)) || (filters.ContributorID != "" && !isUUID(filters.ContributorID)) {
		return []*domain.Clue{}, nil
	}
	w := &whereBuilder{}
	if filters.CaseID != "" {
		w.add("p.id_caso = $%d", filters.CaseID)
	}
	if filters.ContributorID != "" {
		w.add("p.id_usuario_que_aporta = $%d", filters.ContributorID)
	}
	if filters.Estado != "" {
		w.add("p.estado_pista = $%d", string(filters.Estado))
	}
	order := " ORDER BY p.fecha_creacion DESC"
	if filters.OldestFirst {
		order = " ORDER BY p.fecha_creacion ASC"
	}

	clues := []*domain.Clue{}
	if err := r.db.SelectContext(ctx, &clues, clueSelect+w.String()+order, w.args...); err != nil {
		return nil, fmt.Errorf("failed to list clues: %w", err)
	}
	return clues, nil
}

func (r *PostgresCluesRepository) CreateClue(ctx context.Context, c *domain.Clue) error {
	if c == nil {
		return fmt.Errorf("clue is required")
	}
	c.ID = uuid.NewString()

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO pistas (id_pista, id_caso, id_usuario_que_aporta, mensaje, url_foto_pista, estado_pista)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING fecha_creacion`,
		c.ID, c.CaseID, c.ContributorID, c.Mensaje, c.URLFotoPista, string(c.EstadoPista),
	).Scan(&c.FechaCreacion)
	if err != nil {
		return fmt.Errorf("failed to create clue: %w", err)
	}
	return nil
}

func (r *PostgresCluesRepository) UpdateClue(ctx context.Context, clueID string, patch domain.CluePatch) (*domain.Clue, error) {
	if !isUUID(clueID) {
		return nil, ErrNotFound
	}
	b := &updateBuilder{}
	setOptional(b, "mensaje", patch.Mensaje)
	setOptional(b, "url_foto_pista", patch.URLFotoPista)
	if patch.EstadoPista.HasValue() {
		b.set("estado_pista", string(patch.EstadoPista.Value))
	}
	if b.empty() {
		return r.GetClue(ctx, clueID)
	}

	q, args := b.build("pistas", "id_pista", clueID)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update clue: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return r.GetClue(ctx, clueID)
}

func (r *PostgresCluesRepository) DeleteClue(ctx context.Context, clueID string) error {
	if !isUUID(clueID) {
		return ErrNotFound
	}
	res, err := r.db.ExecContext(ctx, `DELETE FROM pistas WHERE id_pista = $1`, clueID)
	if err != nil {
		return fmt.Errorf("failed to delete clue: %w", err)
	}
	return requireAffected(res)
}

func (r *PostgresCluesRepository) CountCluesByState(ctx context.Context, contributorID string) (map[domain.ClueState]int, error) {
	out := make(map[domain.ClueState]int, len(domain.ClueStates))
	for _, st := range domain.ClueStates {
		out[st] = 0
	}
	if !isUUID(contributorID) {
		return out, nil
	}
	var rows []stateCount
	err := r.db.SelectContext(ctx, &rows,
		`SELECT estado_pista AS estado, COUNT(*) AS total FROM pistas WHERE id_usuario_que_aporta = $1 GROUP BY estado_pista`,
		contributorID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count clues: %w", err)
	}
	for _, row := range rows {
		out[domain.ClueState(row.Estado)] = row.Total
	}
	return out, nil
}
