// Package policy decides who may see, change and delete users, cases and
// clues. Every function is pure: callers load the resource, derive an Actor
// and act on the returned decision.
package policy

import (
	"time"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

// Role of the caller independent of any resource.
type Role int

const (
	RoleAnonymous Role = iota
	RoleUser
	RoleAdmin
)

// Actor is the caller as seen by one resource. IsOwner means reporter for a
// case, contributor for a clue, and the user themself for a user record.
type Actor struct {
	Role    Role
	IsOwner bool
}

// ActorFor derives the actor for a resource owned by ownerID. id is nil for
// anonymous requests.
func ActorFor(id *domain.Identity, ownerID string) Actor {
	if id == nil {
		return Actor{Role: RoleAnonymous}
	}
	a := Actor{Role: RoleUser, IsOwner: ownerID != "" && id.UserID == ownerID}
	if id.IsAdmin {
		a.Role = RoleAdmin
	}
	return a
}

// IsAdmin reports the administrator role.
func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

// Decision is the outcome of an access check.
type Decision int

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) Allowed() bool { return d == Allow }

// denyFor maps a refused actor to the right denial.
func denyFor(a Actor) Decision {
	if a.Role == RoleAnonymous {
		return DenyUnauthenticated
	}
	return DenyForbidden
}

// ============================================
// Visibility
// ============================================

// CanViewCase: ACTIVO is public, other states only for the reporter or an admin.
func CanViewCase(a Actor, st domain.CaseState) bool {
	switch a.Role {
	case RoleAdmin:
		return true
	case RoleUser:
		return a.IsOwner || st == domain.CaseStateActive
	case RoleAnonymous:
		return st == domain.CaseStateActive
	}
	return false
}

// CaseListState returns the state filter for the public case list. Only an
// administrator may pick a state (empty means every state); everyone else is
// pinned to ACTIVO whatever they asked for.
func CaseListState(a Actor, requested domain.CaseState) domain.CaseState {
	if a.IsAdmin() {
		return requested
	}
	return domain.CaseStateActive
}

// ClueListAccess gates the clue list of one case. a is derived against the
// case reporter. On Allow, filter is the state the caller is limited to
// (empty = all states).
func ClueListAccess(a Actor) (d Decision, filter domain.ClueState) {
	switch {
	case a.Role == RoleAnonymous:
		return DenyUnauthenticated, ""
	case a.IsAdmin():
		return Allow, ""
	case a.IsOwner:
		return Allow, domain.ClueStateVerified
	default:
		return DenyForbidden, ""
	}
}

// EmbeddedClueState is the filter for the clue sub-list of a case detail.
func EmbeddedClueState(a Actor) domain.ClueState {
	if a.IsAdmin() {
		return ""
	}
	return domain.ClueStateVerified
}

// CanViewClue: VERIFICADA is public, other states only for the contributor
// or an admin. a is derived against the contributor.
func CanViewClue(a Actor, st domain.ClueState) Decision {
	if st == domain.ClueStateVerified || a.IsAdmin() || a.IsOwner {
		return Allow
	}
	return DenyForbidden
}

// ============================================
// Mutability
// ============================================

// CasePatchFor filters a requested case update down to what a may change.
// Owners and admins may edit descriptive, contact and photo fields; only an
// admin may touch estado_caso, which is silently dropped for anyone else.
func CasePatchFor(a Actor, in domain.CasePatch) (domain.CasePatch, Decision) {
	if !a.IsAdmin() && !a.IsOwner {
		return domain.CasePatch{}, denyFor(a)
	}
	out := in
	out.FechaResolucion = domain.Optional[time.Time]{}
	if !a.IsAdmin() {
		out.EstadoCaso = domain.Optional[domain.CaseState]{}
	}
	return out, Allow
}

// CluePatchFor filters a requested clue update. Content belongs to the
// contributor and estado_pista to administrators; an admin who is also the
// contributor gets both.
func CluePatchFor(a Actor, in domain.CluePatch) (domain.CluePatch, Decision) {
	if !a.IsAdmin() && !a.IsOwner {
		return domain.CluePatch{}, denyFor(a)
	}
	var out domain.CluePatch
	if a.IsOwner {
		out.Mensaje = in.Mensaje
		out.URLFotoPista = in.URLFotoPista
	}
	if a.IsAdmin() {
		out.EstadoPista = in.EstadoPista
	}
	return out, Allow
}

// CanUpdateProfile: profile and password are self-service only, never admin.
func CanUpdateProfile(a Actor) Decision {
	if a.IsOwner {
		return Allow
	}
	return denyFor(a)
}

// CanViewUser covers profile, stats and the per-user case/clue lists.
func CanViewUser(a Actor) Decision {
	if a.IsOwner || a.IsAdmin() {
		return Allow
	}
	return denyFor(a)
}

// ============================================
// Deletability
// ============================================

func CanDeleteCase(a Actor) Decision {
	if a.IsAdmin() {
		return Allow
	}
	return denyFor(a)
}

func CanDeleteClue(a Actor) Decision {
	if a.IsOwner || a.IsAdmin() {
		return Allow
	}
	return denyFor(a)
}

func CanDeleteUser(a Actor) Decision {
	if a.IsOwner || a.IsAdmin() {
		return Allow
	}
	return denyFor(a)
}

// CanModerate covers the moderation queues, the user list and exports.
func CanModerate(a Actor) Decision {
	if a.IsAdmin() {
		return Allow
	}
	return denyFor(a)
}
