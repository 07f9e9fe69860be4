package service

import (
	"database/sql"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

// ============================================
// Response DTOs (JSON wire shapes)
// ============================================

// UserDTO public user shape; the password hash never leaves the service.
type UserDTO struct {
	ID              string    `json:"id_usuario"`
	Nombre          string    `json:"nombre"`
	Correo          string    `json:"correo"`
	Telefono        *string   `json:"telefono"`
	EsAdministrador bool      `json:"es_administrador"`
	FechaRegistro   time.Time `json:"fecha_registro"`
}

// UserRef embedded author of a case or clue
type UserRef struct {
	ID     string  `json:"id_usuario"`
	Nombre *string `json:"nombre"`
}

// CaseRef embedded parent case of a clue
type CaseRef struct {
	ID                 string  `json:"id_caso"`
	NombreDesaparecido *string `json:"nombre_desaparecido"`
	EstadoCaso         *string `json:"estado_caso"`
}

type CaseDTO struct {
	ID                 string           `json:"id_caso"`
	ReporterID         string           `json:"id_usuario_reportero"`
	NombreDesaparecido string           `json:"nombre_desaparecido"`
	EdadDesaparecido   int              `json:"edad_desaparecido"`
	SexoDesaparecido   domain.Sex       `json:"sexo_desaparecido"`
	DescripcionFisica  *string          `json:"descripcion_fisica"`
	DescripcionRopa    *string          `json:"descripcion_ropa"`
	DescripcionHechos  string           `json:"descripcion_hechos"`
	FechaDesaparicion  time.Time        `json:"fecha_desaparicion"`
	UbicacionLatitud   float64          `json:"ubicacion_latitud"`
	UbicacionLongitud  float64          `json:"ubicacion_longitud"`
	DireccionTexto     string           `json:"direccion_texto"`
	NombreContacto     string           `json:"nombre_contacto"`
	TelefonoContacto   string           `json:"telefono_contacto"`
	CorreoContacto     string           `json:"correo_contacto"`
	Parentesco         string           `json:"parentesco"`
	URLFoto1           *string          `json:"url_foto_1"`
	URLFoto2           *string          `json:"url_foto_2"`
	URLFoto3           *string          `json:"url_foto_3"`
	EstadoCaso         domain.CaseState `json:"estado_caso"`
	FechaCreacion      time.Time        `json:"fecha_creacion"`
	FechaResolucion    *time.Time       `json:"fecha_resolucion"`
	UsuarioReportero   *UserRef         `json:"usuario_reportero,omitempty"`
}

// CaseDetail single case with its visible clues
type CaseDetail struct {
	*CaseDTO
	Pistas []*ClueDTO `json:"pistas"`
}

type ClueDTO struct {
	ID            string           `json:"id_pista"`
	CaseID        string           `json:"id_caso"`
	ContributorID string           `json:"id_usuario_que_aporta"`
	Mensaje       string           `json:"mensaje"`
	URLFotoPista  *string          `json:"url_foto_pista"`
	EstadoPista   domain.ClueState `json:"estado_pista"`
	FechaCreacion time.Time        `json:"fecha_creacion"`
	Usuario       *UserRef         `json:"usuario,omitempty"`
	Caso          *CaseRef         `json:"caso,omitempty"`
}

// Pagination page metadata of the public case list
type Pagination struct {
	Pagina int `json:"pagina"`
	Limite int `json:"limite"`
	Total  int `json:"total"`
}

// CaseCounts / ClueCounts per-state totals for user stats
type CaseCounts struct {
	Total      int `json:"total"`
	Pendientes int `json:"pendientes"`
	Activos    int `json:"activos"`
	Resueltos  int `json:"resueltos"`
	Rechazados int `json:"rechazados"`
}

type ClueCounts struct {
	Total       int `json:"total"`
	Pendientes  int `json:"pendientes"`
	Verificadas int `json:"verificadas"`
	Rechazadas  int `json:"rechazadas"`
}

type UserStats struct {
	Casos  CaseCounts `json:"casos"`
	Pistas ClueCounts `json:"pistas"`
}

// ============================================
// Mapping
// ============================================

func nullStringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

func nullTimePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func toUserDTO(u *domain.User) *UserDTO {
	return &UserDTO{
		ID:              u.ID,
		Nombre:          u.Nombre,
		Correo:          u.Correo,
		Telefono:        nullStringPtr(u.Telefono),
		EsAdministrador: u.EsAdministrador,
		FechaRegistro:   u.FechaRegistro,
	}
}

func toUserDTOs(users []*domain.User) []*UserDTO {
	out := make([]*UserDTO, 0, len(users))
	for _, u := range users {
		out = append(out, toUserDTO(u))
	}
	return out
}

func toCaseDTO(c *domain.Case) *CaseDTO {
	return &CaseDTO{
		ID:                 c.ID,
		ReporterID:         c.ReporterID,
		NombreDesaparecido: c.NombreDesaparecido,
		EdadDesaparecido:   c.EdadDesaparecido,
		SexoDesaparecido:   c.SexoDesaparecido,
		DescripcionFisica:  nullStringPtr(c.DescripcionFisica),
		DescripcionRopa:    nullStringPtr(c.DescripcionRopa),
		DescripcionHechos:  c.DescripcionHechos,
		FechaDesaparicion:  c.FechaDesaparicion,
		UbicacionLatitud:   c.UbicacionLatitud,
		UbicacionLongitud:  c.UbicacionLongitud,
		DireccionTexto:     c.DireccionTexto,
		NombreContacto:     c.NombreContacto,
		TelefonoContacto:   c.TelefonoContacto,
		CorreoContacto:     c.CorreoContacto,
		Parentesco:         c.Parentesco,
		URLFoto1:           nullStringPtr(c.URLFoto1),
		URLFoto2:           nullStringPtr(c.URLFoto2),
		URLFoto3:           nullStringPtr(c.URLFoto3),
		EstadoCaso:         c.EstadoCaso,
		FechaCreacion:      c.FechaCreacion,
		FechaResolucion:    nullTimePtr(c.FechaResolucion),
		UsuarioReportero:   &UserRef{ID: c.ReporterID, Nombre: nullStringPtr(c.ReporterNombre)},
	}
}

func toCaseDTOs(cases []*domain.Case) []*CaseDTO {
	out := make([]*CaseDTO, 0, len(cases))
	for _, c := range cases {
		out = append(out, toCaseDTO(c))
	}
	return out
}

func toClueDTO(c *domain.Clue) *ClueDTO {
	return &ClueDTO{
		ID:            c.ID,
		CaseID:        c.CaseID,
		ContributorID: c.ContributorID,
		Mensaje:       c.Mensaje,
		URLFotoPista:  nullStringPtr(c.URLFotoPista),
		EstadoPista:   c.EstadoPista,
		FechaCreacion: c.FechaCreacion,
		Usuario:       &UserRef{ID: c.ContributorID, Nombre: nullStringPtr(c.AportanteNombre)},
		Caso: &CaseRef{
			ID:                 c.CaseID,
			NombreDesaparecido: nullStringPtr(c.CasoNombreDesaparecido),
			EstadoCaso:         nullStringPtr(c.CasoEstado),
		},
	}
}

func toClueDTOs(clues []*domain.Clue) []*ClueDTO {
	out := make([]*ClueDTO, 0, len(clues))
	for _, c := range clues {
		out = append(out, toClueDTO(c))
	}
	return out
}
