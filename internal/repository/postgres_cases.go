package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

const caseSelect = `
	SELECT
		c.id_caso, c.id_usuario_reportero, c.nombre_desaparecido, c.edad_desaparecido,
		c.sexo_desaparecido, c.descripcion_fisica, c.descripcion_ropa, c.descripcion_hechos,
		c.fecha_desaparicion, c.ubicacion_latitud, c.ubicacion_longitud, c.direccion_texto,
		c.nombre_contacto, c.telefono_contacto, c.correo_contacto, c.parentesco,
		c.url_foto_1, c.url_foto_2, c.url_foto_3, c.estado_caso,
		c.fecha_creacion, c.fecha_resolucion,
		u.nombre AS reportero_nombre
	FROM casos c
	LEFT JOIN usuarios u ON u.id_usuario = c.id_usuario_reportero`

// PostgresCasesRepository casos on Postgres
type PostgresCasesRepository struct {
	db *sqlx.DB
}

func NewPostgresCasesRepository(db *sqlx.DB) *PostgresCasesRepository {
	return &PostgresCasesRepository{db: db}
}

var _ CasesRepository = (*PostgresCasesRepository)(nil)

func (r *PostgresCasesRepository) GetCase(ctx context.Context, caseID string) (*domain.Case, error) {
	if !isUUID(caseID) {
		return nil, ErrNotFound
	}
	var c domain.Case
	err := r.db.GetContext(ctx, &c, caseSelect+` WHERE c.id_caso = $1`, caseID)
	if errors.Is(err, sql.ErrNoRows) || isInvalidText(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get case: %w", err)
	}
	return &c, nil
}

func (r *PostgresCasesRepository) ListCases(ctx context.Context, filters domain.CaseFilters, page, size int) ([]*domain.Case, int, error) {
	if filters.ReporterID != "" && !isUUID(filters.ReporterID) {
		return []*domain.Case{}, 0, nil
	}
	w := &whereBuilder{}
	if filters.Estado != "" {
		w.add("c.estado_caso = $%d", string(filters.Estado))
	}
	if filters.ReporterID != "" {
		w.add("c.id_usuario_reportero = $%d", filters.ReporterID)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM casos c`+w.String(), w.args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count cases: %w", err)
	}

	order := " ORDER BY c.fecha_creacion DESC"
	if filters.OldestFirst {
		order = " ORDER BY c.fecha_creacion ASC"
	}
	query := caseSelect + w.String() + order
	args := w.args
	if size > 0 {
		if page <= 0 {
			page = 1
		}
		offset := math.MaxInt
		if page-1 <= math.MaxInt/size {
			offset = (page - 1) * size
		}
		args = append(args, size, offset)
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	}

	cases := []*domain.Case{}
	if err := r.db.SelectContext(ctx, &cases, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list cases: %w", err)
	}
	return cases, total, nil
}

func (r *PostgresCasesRepository) CreateCase(ctx context.Context, c *domain.Case) error {
	if c == nil {
		return fmt.Errorf("case is required")
	}
	c.ID = uuid.NewString()

	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO casos (
			id_caso, id_usuario_reportero, nombre_desaparecido, edad_desaparecido, sexo_desaparecido,
			descripcion_fisica, descripcion_ropa, descripcion_hechos, fecha_desaparicion,
			ubicacion_latitud, ubicacion_longitud, direccion_texto,
			nombre_contacto, telefono_contacto, correo_contacto, parentesco,
			url_foto_1, url_foto_2, url_foto_3, estado_caso
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		RETURNING fecha_creacion`,
		c.ID, c.ReporterID, c.NombreDesaparecido, c.EdadDesaparecido, string(c.SexoDesaparecido),
		c.DescripcionFisica, c.DescripcionRopa, c.DescripcionHechos, c.FechaDesaparicion,
		c.UbicacionLatitud, c.UbicacionLongitud, c.DireccionTexto,
		c.NombreContacto, c.TelefonoContacto, c.CorreoContacto, c.Parentesco,
		c.URLFoto1, c.URLFoto2, c.URLFoto3, string(c.EstadoCaso),
	).Scan(&c.FechaCreacion)
	if err != nil {
		return fmt.Errorf("failed to create case: %w", err)
	}
	return nil
}

func (r *PostgresCasesRepository) UpdateCase(ctx context.Context, caseID string, patch domain.CasePatch) (*domain.Case, error) {
	if !isUUID(caseID) {
		return nil, ErrNotFound
	}
	b := &updateBuilder{}
	setOptional(b, "descripcion_fisica", patch.DescripcionFisica)
	setOptional(b, "descripcion_ropa", patch.DescripcionRopa)
	setOptional(b, "descripcion_hechos", patch.DescripcionHechos)
	setOptional(b, "telefono_contacto", patch.TelefonoContacto)
	setOptional(b, "correo_contacto", patch.CorreoContacto)
	setOptional(b, "url_foto_1", patch.URLFoto1)
	setOptional(b, "url_foto_2", patch.URLFoto2)
	setOptional(b, "url_foto_3", patch.URLFoto3)
	if patch.EstadoCaso.HasValue() {
		b.set("estado_caso", string(patch.EstadoCaso.Value))
	}
	setOptional(b, "fecha_resolucion", patch.FechaResolucion)
	if b.empty() {
		return r.GetCase(ctx, caseID)
	}

	q, args := b.build("casos", "id_caso", caseID)
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update case: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, err
	}
	return r.GetCase(ctx, caseID)
}

func (r *PostgresCasesRepository) DeleteCase(ctx context.Context, caseID string) error {
	if !isUUID(caseID) {
		return ErrNotFound
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM pistas WHERE id_caso = $1`, caseID); err != nil {
		return fmt.Errorf("failed to delete case clues: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM casos WHERE id_caso = $1`, caseID)
	if err != nil {
		return fmt.Errorf("failed to delete case: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type stateCount struct {
	Estado string `db:"estado"`
	Total  int    `db:"total"`
}

func (r *PostgresCasesRepository) CountCasesByState(ctx context.Context, reporterID string) (map[domain.CaseState]int, error) {
	out := make(map[domain.CaseState]int, len(domain.CaseStates))
	for _, st := range domain.CaseStates {
		out[st] = 0
	}
	if !isUUID(reporterID) {
		return out, nil
	}
	var rows []stateCount
	err := r.db.SelectContext(ctx, &rows,
		`SELECT estado_caso AS estado, COUNT(*) AS total FROM casos WHERE id_usuario_reportero = $1 GROUP BY estado_caso`,
		reporterID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to count cases: %w", err)
	}
	for _, row := range rows {
		out[domain.CaseState(row.Estado)] = row.Total
	}
	return out, nil
}
