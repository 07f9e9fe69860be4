// Package lifecycle holds the case and clue state machines.
package lifecycle

import (
	"errors"
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

var (
	ErrInvalidCaseState      = errors.New("invalid case state")
	ErrInvalidClueState      = errors.New("invalid clue state")
	ErrTransitionDenied      = errors.New("state transition not allowed")
	ErrCaseNotAcceptingClues = errors.New("case is not active")
)

// case: PENDIENTE_REVISION -> ACTIVO | RECHAZADO, ACTIVO -> RESUELTO
var caseEdges = map[domain.CaseState][]domain.CaseState{
	domain.CaseStatePending:  {domain.CaseStateActive, domain.CaseStateRejected},
	domain.CaseStateActive:   {domain.CaseStateResolved},
	domain.CaseStateResolved: nil,
	domain.CaseStateRejected: nil,
}

// clue: PENDIENTE_REVISION -> VERIFICADA | RECHAZADA
var clueEdges = map[domain.ClueState][]domain.ClueState{
	domain.ClueStatePending:  {domain.ClueStateVerified, domain.ClueStateRejected},
	domain.ClueStateVerified: nil,
	domain.ClueStateRejected: nil,
}

// CanTransitionCase reports whether from -> to is allowed. Re-asserting the
// current state is always allowed.
func CanTransitionCase(from, to domain.CaseState) bool {
	if from == to {
		return true
	}
	for _, next := range caseEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CanTransitionClue reports whether from -> to is allowed.
func CanTransitionClue(from, to domain.ClueState) bool {
	if from == to {
		return true
	}
	for _, next := range clueEdges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ApplyCaseState validates the estado_caso carried by p against current and
// rewrites it in canonical form. Entering RESUELTO stamps FechaResolucion with
// now. A patch without estado_caso is returned unchanged.
func ApplyCaseState(current domain.CaseState, p domain.CasePatch, now time.Time) (domain.CasePatch, error) {
	if !p.EstadoCaso.Present {
		return p, nil
	}
	if p.EstadoCaso.Null {
		return p, ErrInvalidCaseState
	}
	to, ok := domain.ParseCaseState(string(p.EstadoCaso.Value))
	if !ok {
		return p, ErrInvalidCaseState
	}
	if !CanTransitionCase(current, to) {
		return p, ErrTransitionDenied
	}
	p.EstadoCaso = domain.Some(to)
	// re-asserting RESUELTO keeps the original resolution timestamp
	if to == domain.CaseStateResolved && current != domain.CaseStateResolved {
		p.FechaResolucion = domain.Some(now.UTC())
	}
	return p, nil
}

// ApplyClueState validates and canonicalizes estado_pista.
func ApplyClueState(current domain.ClueState, p domain.CluePatch) (domain.CluePatch, error) {
	if !p.EstadoPista.Present {
		return p, nil
	}
	if p.EstadoPista.Null {
		return p, ErrInvalidClueState
	}
	to, ok := domain.ParseClueState(string(p.EstadoPista.Value))
	if !ok {
		return p, ErrInvalidClueState
	}
	if !CanTransitionClue(current, to) {
		return p, ErrTransitionDenied
	}
	p.EstadoPista = domain.Some(to)
	return p, nil
}

// CheckClueTarget enforces that clues only attach to ACTIVO cases.
func CheckClueTarget(c *domain.Case) error {
	if c.EstadoCaso != domain.CaseStateActive {
		return ErrCaseNotAcceptingClues
	}
	return nil
}
