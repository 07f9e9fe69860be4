package domain

import (
	"database/sql"
	"time"
)

// Clue pistas row
type Clue struct {
	ID            string         `db:"id_pista"`
	CaseID        string         `db:"id_caso"`
	ContributorID string         `db:"id_usuario_que_aporta"`
	Mensaje       string         `db:"mensaje"`
	URLFotoPista  sql.NullString `db:"url_foto_pista"`
	EstadoPista   ClueState      `db:"estado_pista"`
	FechaCreacion time.Time      `db:"fecha_creacion"`

	// joined on reads
	AportanteNombre        sql.NullString `db:"aportante_nombre"`
	CasoNombreDesaparecido sql.NullString `db:"caso_nombre_desaparecido"`
	CasoEstado             sql.NullString `db:"caso_estado"`
}

// CluePatch partial clue update.
type CluePatch struct {
	Mensaje      Optional[string]    `json:"mensaje"`
	URLFotoPista Optional[string]    `json:"url_foto_pista"`
	EstadoPista  Optional[ClueState] `json:"estado_pista"`
}

// HasContent reports whether any contributor-editable field is present.
func (p CluePatch) HasContent() bool {
	return p.Mensaje.Present || p.URLFotoPista.Present
}

// IsEmpty reports a patch that would change nothing.
func (p CluePatch) IsEmpty() bool {
	return !p.HasContent() && !p.EstadoPista.Present
}

// ClueFilters list filters
type ClueFilters struct {
	CaseID        string
	ContributorID string
	Estado        ClueState // empty = any state
	OldestFirst   bool
}
