package service

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a service failure; each kind maps to one HTTP status.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindUnauthenticated
	KindForbidden
	KindNotFound
	KindConflict
	KindRateLimited
)

// Status returns the HTTP status for k.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// Error carries a user-facing message plus the underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func newError(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

func Validation(msg string) *Error      { return newError(KindValidation, msg) }
func Unauthenticated(msg string) *Error { return newError(KindUnauthenticated, msg) }
func Forbidden(msg string) *Error       { return newError(KindForbidden, msg) }
func NotFound(msg string) *Error        { return newError(KindNotFound, msg) }
func Conflict(msg string) *Error        { return newError(KindConflict, msg) }
func RateLimited(msg string) *Error     { return newError(KindRateLimited, msg) }

// Internal wraps an unexpected failure; msg is what the client sees.
func Internal(msg string, err error) *Error {
	return &Error{Kind: KindInternal, Message: msg, Err: err}
}

// AsError extracts a *Error, treating anything else as internal.
func AsError(err error) *Error {
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return Internal("Error interno del servidor", err)
}

// Messages shared across services and middleware.
const (
	MsgTokenMissing      = "No autorizado. Token no proporcionado."
	MsgTokenExpired      = "Token expirado"
	MsgTokenInvalid      = "Token inválido"
	MsgTokenRevoked      = "Token revocado"
	MsgUserNotFound      = "Usuario no encontrado"
	MsgCaseNotFound      = "Caso no encontrado"
	MsgClueNotFound      = "Pista no encontrada"
	MsgAdminOnly         = "Solo administradores pueden acceder a esta información"
	MsgNothingToUpdate   = "No hay datos para actualizar"
	MsgInvalidBody       = "Cuerpo de la petición inválido"
	MsgTooManyRequests   = "Demasiadas peticiones desde esta IP, por favor intenta más tarde."
	MsgLoginRequired     = "No autorizado"
	MsgInvalidEmail      = "Formato de correo inválido"
	MsgInvalidTransition = "Transición de estado no permitida"
	MsgPasswordTooLong   = "La contraseña no puede superar 72 bytes"
)
