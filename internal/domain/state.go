package domain

import "strings"

// CaseState estado_caso
type CaseState string

const (
	CaseStatePending  CaseState = "PENDIENTE_REVISION"
	CaseStateActive   CaseState = "ACTIVO"
	CaseStateResolved CaseState = "RESUELTO"
	CaseStateRejected CaseState = "RECHAZADO"
)

// CaseStates lists every case state in lifecycle order.
var CaseStates = []CaseState{CaseStatePending, CaseStateActive, CaseStateResolved, CaseStateRejected}

// ParseCaseState normalizes (trim + upper) and validates a case state.
func ParseCaseState(s string) (CaseState, bool) {
	switch st := CaseState(strings.ToUpper(strings.TrimSpace(s))); st {
	case CaseStatePending, CaseStateActive, CaseStateResolved, CaseStateRejected:
		return st, true
	default:
		return "", false
	}
}

// ClueState estado_pista
type ClueState string

const (
	ClueStatePending  ClueState = "PENDIENTE_REVISION"
	ClueStateVerified ClueState = "VERIFICADA"
	ClueStateRejected ClueState = "RECHAZADA"
)

// ClueStates lists every clue state in lifecycle order.
var ClueStates = []ClueState{ClueStatePending, ClueStateVerified, ClueStateRejected}

// ParseClueState normalizes (trim + upper) and validates a clue state.
func ParseClueState(s string) (ClueState, bool) {
	switch st := ClueState(strings.ToUpper(strings.TrimSpace(s))); st {
	case ClueStatePending, ClueStateVerified, ClueStateRejected:
		return st, true
	default:
		return "", false
	}
}

// Sex sexo_desaparecido
type Sex string

const (
	SexMale   Sex = "MASCULINO"
	SexFemale Sex = "FEMENINO"
	SexOther  Sex = "OTRO"
)

// ParseSex normalizes (trim + upper) and validates a sex value.
func ParseSex(s string) (Sex, bool) {
	switch sx := Sex(strings.ToUpper(strings.TrimSpace(s))); sx {
	case SexMale, SexFemale, SexOther:
		return sx, true
	default:
		return "", false
	}
}
