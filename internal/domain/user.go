package domain

import (
	"database/sql"
	"time"
)

// User usuarios row
type User struct {
	ID              string         `db:"id_usuario"`
	Nombre          string         `db:"nombre"`
	Correo          string         `db:"correo"` // stored lowercased
	PasswordHash    string         `db:"password_hash"`
	Telefono        sql.NullString `db:"telefono"`
	EsAdministrador bool           `db:"es_administrador"`
	FechaRegistro   time.Time      `db:"fecha_registro"`
}

// UserPatch self-service profile update. es_administrador is not patchable.
type UserPatch struct {
	Nombre   Optional[string] `json:"nombre"`
	Telefono Optional[string] `json:"telefono"`
	Correo   Optional[string] `json:"correo"`
}

// IsEmpty reports a patch that would change nothing.
func (p UserPatch) IsEmpty() bool {
	return !p.Nombre.Present && !p.Telefono.Present && !p.Correo.Present
}

// Identity is the verified actor attached to an authenticated request.
type Identity struct {
	UserID  string
	Correo  string
	IsAdmin bool
	TokenID string    // jti, used for revocation
	Expires time.Time // token expiry
}
