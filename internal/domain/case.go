package domain

import (
	"database/sql"
	"time"
)

// MaxCaseAge upper bound for edad_desaparecido; the platform only tracks minors.
const MaxCaseAge = 18

// Case casos row
type Case struct {
	ID                 string         `db:"id_caso"`
	ReporterID         string         `db:"id_usuario_reportero"`
	NombreDesaparecido string         `db:"nombre_desaparecido"`
	EdadDesaparecido   int            `db:"edad_desaparecido"`
	SexoDesaparecido   Sex            `db:"sexo_desaparecido"`
	DescripcionFisica  sql.NullString `db:"descripcion_fisica"`
	DescripcionRopa    sql.NullString `db:"descripcion_ropa"`
	DescripcionHechos  string         `db:"descripcion_hechos"`
	FechaDesaparicion  time.Time      `db:"fecha_desaparicion"`
	UbicacionLatitud   float64        `db:"ubicacion_latitud"`
	UbicacionLongitud  float64        `db:"ubicacion_longitud"`
	DireccionTexto     string         `db:"direccion_texto"`
	NombreContacto     string         `db:"nombre_contacto"`
	TelefonoContacto   string         `db:"telefono_contacto"`
	CorreoContacto     string         `db:"correo_contacto"`
	Parentesco         string         `db:"parentesco"`
	URLFoto1           sql.NullString `db:"url_foto_1"`
	URLFoto2           sql.NullString `db:"url_foto_2"`
	URLFoto3           sql.NullString `db:"url_foto_3"`
	EstadoCaso         CaseState      `db:"estado_caso"`
	FechaCreacion      time.Time      `db:"fecha_creacion"`
	FechaResolucion    sql.NullTime   `db:"fecha_resolucion"`

	// joined from usuarios on reads
	ReporterNombre sql.NullString `db:"reportero_nombre"`
}

// CasePatch partial case update. EstadoCaso carries the raw administrator
// input; lifecycle validation normalizes it and sets FechaResolucion.
type CasePatch struct {
	DescripcionFisica Optional[string]    `json:"descripcion_fisica"`
	DescripcionRopa   Optional[string]    `json:"descripcion_ropa"`
	DescripcionHechos Optional[string]    `json:"descripcion_hechos"`
	TelefonoContacto  Optional[string]    `json:"telefono_contacto"`
	CorreoContacto    Optional[string]    `json:"correo_contacto"`
	URLFoto1          Optional[string]    `json:"url_foto_1"`
	URLFoto2          Optional[string]    `json:"url_foto_2"`
	URLFoto3          Optional[string]    `json:"url_foto_3"`
	EstadoCaso        Optional[CaseState] `json:"estado_caso"`
	FechaResolucion   Optional[time.Time] `json:"-"`
}

// HasContent reports whether any owner-editable field is present.
func (p CasePatch) HasContent() bool {
	return p.DescripcionFisica.Present || p.DescripcionRopa.Present || p.DescripcionHechos.Present ||
		p.TelefonoContacto.Present || p.CorreoContacto.Present ||
		p.URLFoto1.Present || p.URLFoto2.Present || p.URLFoto3.Present
}

// IsEmpty reports a patch that would change nothing.
func (p CasePatch) IsEmpty() bool {
	return !p.HasContent() && !p.EstadoCaso.Present && !p.FechaResolucion.Present
}

// PhotoSlot returns the patch field for url_foto_<slot>, slot in 1..3.
func (p *CasePatch) PhotoSlot(slot int) *Optional[string] {
	switch slot {
	case 1:
		return &p.URLFoto1
	case 2:
		return &p.URLFoto2
	case 3:
		return &p.URLFoto3
	default:
		return nil
	}
}

// CaseFilters list filters
type CaseFilters struct {
	Estado      CaseState // empty = any state
	ReporterID  string
	OldestFirst bool
}
