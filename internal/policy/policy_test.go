package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

var (
	anon     = Actor{Role: RoleAnonymous}
	stranger = Actor{Role: RoleUser}
	owner    = Actor{Role: RoleUser, IsOwner: true}
	admin    = Actor{Role: RoleAdmin}
)

func TestActorFor(t *testing.T) {
	assert.Equal(t, anon, ActorFor(nil, "u1"))
	assert.Equal(t, owner, ActorFor(&domain.Identity{UserID: "u1"}, "u1"))
	assert.Equal(t, stranger, ActorFor(&domain.Identity{UserID: "u2"}, "u1"))
	assert.Equal(t, Actor{Role: RoleAdmin, IsOwner: true}, ActorFor(&domain.Identity{UserID: "u1", IsAdmin: true}, "u1"))
	assert.Equal(t, stranger, ActorFor(&domain.Identity{UserID: "u1"}, ""))
}

func TestCanViewCase(t *testing.T) {
	for _, st := range domain.CaseStates {
		active := st == domain.CaseStateActive
		assert.Equal(t, active, CanViewCase(anon, st), st)
		assert.Equal(t, active, CanViewCase(stranger, st), st)
		assert.True(t, CanViewCase(owner, st), st)
		assert.True(t, CanViewCase(admin, st), st)
	}
}

func TestCaseListState(t *testing.T) {
	assert.Equal(t, domain.CaseStateActive, CaseListState(anon, domain.CaseStatePending))
	assert.Equal(t, domain.CaseStateActive, CaseListState(owner, ""))
	assert.Equal(t, domain.CaseStatePending, CaseListState(admin, domain.CaseStatePending))
	assert.Equal(t, domain.CaseState(""), CaseListState(admin, ""))
}

func TestClueListAccess(t *testing.T) {
	tests := []struct {
		name   string
		actor  Actor
		want   Decision
		filter domain.ClueState
	}{
		{"anonymous", anon, DenyUnauthenticated, ""},
		{"stranger", stranger, DenyForbidden, ""},
		{"owner", owner, Allow, domain.ClueStateVerified},
		{"admin", admin, Allow, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, f := ClueListAccess(tt.actor)
			assert.Equal(t, tt.want, d)
			assert.Equal(t, tt.filter, f)
		})
	}
}

func TestCanViewClue(t *testing.T) {
	assert.Equal(t, Allow, CanViewClue(anon, domain.ClueStateVerified))
	assert.Equal(t, DenyForbidden, CanViewClue(anon, domain.ClueStatePending))
	assert.Equal(t, DenyForbidden, CanViewClue(stranger, domain.ClueStateRejected))
	assert.Equal(t, Allow, CanViewClue(owner, domain.ClueStatePending))
	assert.Equal(t, Allow, CanViewClue(admin, domain.ClueStateRejected))
	assert.Equal(t, domain.ClueState(""), EmbeddedClueState(admin))
	assert.Equal(t, domain.ClueStateVerified, EmbeddedClueState(owner))
}

func TestCasePatchFor(t *testing.T) {
	in := domain.CasePatch{
		DescripcionRopa: domain.Some("chaqueta roja"),
		EstadoCaso:      domain.Some(domain.CaseStateActive),
	}

	_, d := CasePatchFor(stranger, in)
	assert.Equal(t, DenyForbidden, d)

	out, d := CasePatchFor(owner, in)
	assert.Equal(t, Allow, d)
	assert.False(t, out.EstadoCaso.Present)
	assert.Equal(t, "chaqueta roja", out.DescripcionRopa.Value)

	out, d = CasePatchFor(admin, in)
	assert.Equal(t, Allow, d)
	assert.True(t, out.EstadoCaso.Present)

	// owner sending only a state ends up with an empty patch
	out, _ = CasePatchFor(owner, domain.CasePatch{EstadoCaso: domain.Some(domain.CaseStateResolved)})
	assert.True(t, out.IsEmpty())
}

func TestCluePatchFor(t *testing.T) {
	in := domain.CluePatch{
		Mensaje:     domain.Some("lo vi en la plaza"),
		EstadoPista: domain.Some(domain.ClueStateVerified),
	}

	_, d := CluePatchFor(stranger, in)
	assert.Equal(t, DenyForbidden, d)

	out, d := CluePatchFor(owner, in)
	assert.Equal(t, Allow, d)
	assert.True(t, out.Mensaje.Present)
	assert.False(t, out.EstadoPista.Present)

	out, d = CluePatchFor(admin, in)
	assert.Equal(t, Allow, d)
	assert.False(t, out.Mensaje.Present)
	assert.True(t, out.EstadoPista.Present)

	out, _ = CluePatchFor(Actor{Role: RoleAdmin, IsOwner: true}, in)
	assert.True(t, out.Mensaje.Present)
	assert.True(t, out.EstadoPista.Present)
}

func TestUserDecisions(t *testing.T) {
	assert.Equal(t, Allow, CanUpdateProfile(owner))
	assert.Equal(t, DenyForbidden, CanUpdateProfile(admin))
	assert.Equal(t, DenyForbidden, CanUpdateProfile(stranger))

	assert.Equal(t, Allow, CanViewUser(owner))
	assert.Equal(t, Allow, CanViewUser(admin))
	assert.Equal(t, DenyForbidden, CanViewUser(stranger))

	assert.Equal(t, Allow, CanDeleteUser(owner))
	assert.Equal(t, Allow, CanDeleteUser(admin))
	assert.Equal(t, DenyForbidden, CanDeleteUser(stranger))
}

func TestDeleteAndModerate(t *testing.T) {
	assert.Equal(t, DenyForbidden, CanDeleteCase(owner))
	assert.Equal(t, Allow, CanDeleteCase(admin))
	assert.Equal(t, DenyUnauthenticated, CanDeleteCase(anon))

	assert.Equal(t, Allow, CanDeleteClue(owner))
	assert.Equal(t, Allow, CanDeleteClue(admin))
	assert.Equal(t, DenyForbidden, CanDeleteClue(stranger))

	assert.Equal(t, Allow, CanModerate(admin))
	assert.Equal(t, DenyForbidden, CanModerate(owner))
}
