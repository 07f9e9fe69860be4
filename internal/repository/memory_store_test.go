package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

func seedUser(t *testing.T, m *MemoryStore, nombre, correo string) *domain.User {
	t.Helper()
	u := &domain.User{Nombre: nombre, Correo: correo, PasswordHash: "h"}
	require.NoError(t, m.CreateUser(context.Background(), u))
	return u
}

func seedCase(t *testing.T, m *MemoryStore, reporterID string, st domain.CaseState) *domain.Case {
	t.Helper()
	c := &domain.Case{
		ReporterID: reporterID, NombreDesaparecido: "Lucía", EdadDesaparecido: 9,
		SexoDesaparecido: domain.SexFemale, DescripcionHechos: "hechos", EstadoCaso: st,
	}
	require.NoError(t, m.CreateCase(context.Background(), c))
	return c
}

func seedClue(t *testing.T, m *MemoryStore, caseID, contributorID string, st domain.ClueState) *domain.Clue {
	t.Helper()
	p := &domain.Clue{CaseID: caseID, ContributorID: contributorID, Mensaje: "pista", EstadoPista: st}
	require.NoError(t, m.CreateClue(context.Background(), p))
	return p
}

func TestMemoryStore_UniqueEmailCaseInsensitive(t *testing.T) {
	m := NewMemoryStore()
	seedUser(t, m, "Ana", "ana@x.com")

	err := m.CreateUser(context.Background(), &domain.User{Nombre: "Otra", Correo: " ANA@x.com"})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	users, _ := m.ListUsers(context.Background())
	assert.Len(t, users, 1)
}

func TestMemoryStore_UpdateUser(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ana := seedUser(t, m, "Ana", "ana@x.com")
	seedUser(t, m, "Bea", "bea@x.com")

	_, err := m.UpdateUser(ctx, ana.ID, domain.UserPatch{Correo: domain.Some("BEA@x.com")})
	assert.ErrorIs(t, err, ErrDuplicateEmail)

	u, err := m.UpdateUser(ctx, ana.ID, domain.UserPatch{Correo: domain.Some("Ana@X.com"), Telefono: domain.Some("555")})
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", u.Correo)
	assert.Equal(t, "555", u.Telefono.String)

	taken, err := m.EmailTaken(ctx, "ana@x.com", ana.ID)
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestMemoryStore_ListCasesOrderingAndPaging(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	m.now = func() time.Time { tick++; return base.Add(time.Duration(tick) * time.Minute) }

	u := seedUser(t, m, "Ana", "ana@x.com")
	first := seedCase(t, m, u.ID, domain.CaseStateActive)
	seedCase(t, m, u.ID, domain.CaseStatePending)
	last := seedCase(t, m, u.ID, domain.CaseStateActive)

	cases, total, err := m.ListCases(ctx, domain.CaseFilters{Estado: domain.CaseStateActive}, 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, cases, 1)
	assert.Equal(t, last.ID, cases[0].ID)
	assert.Equal(t, "Ana", cases[0].ReporterNombre.String)

	cases, _, err = m.ListCases(ctx, domain.CaseFilters{Estado: domain.CaseStateActive, OldestFirst: true}, 0, 0)
	require.NoError(t, err)
	require.Len(t, cases, 2)
	assert.Equal(t, first.ID, cases[0].ID)

	cases, total, err = m.ListCases(ctx, domain.CaseFilters{Estado: domain.CaseStateActive}, 3, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Empty(t, cases)

	assert.NotPanics(t, func() {
		cases, total, err = m.ListCases(ctx, domain.CaseFilters{}, 1<<62, 4)
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Empty(t, cases)
}

func TestMemoryStore_DeleteUserCascades(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	ana := seedUser(t, m, "Ana", "ana@x.com")
	bea := seedUser(t, m, "Bea", "bea@x.com")

	anaCase := seedCase(t, m, ana.ID, domain.CaseStateActive)
	beaCase := seedCase(t, m, bea.ID, domain.CaseStateActive)
	onAnaCase := seedClue(t, m, anaCase.ID, bea.ID, domain.ClueStatePending)
	byAna := seedClue(t, m, beaCase.ID, ana.ID, domain.ClueStateVerified)
	kept := seedClue(t, m, beaCase.ID, bea.ID, domain.ClueStatePending)

	require.NoError(t, m.DeleteUser(ctx, ana.ID))

	_, err := m.GetUser(ctx, ana.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetCase(ctx, anaCase.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetClue(ctx, onAnaCase.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.GetClue(ctx, byAna.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = m.GetCase(ctx, beaCase.ID)
	assert.NoError(t, err)
	_, err = m.GetClue(ctx, kept.ID)
	assert.NoError(t, err)

	assert.ErrorIs(t, m.DeleteUser(ctx, ana.ID), ErrNotFound)
}

func TestMemoryStore_DeleteCaseRemovesClues(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	u := seedUser(t, m, "Ana", "ana@x.com")
	c := seedCase(t, m, u.ID, domain.CaseStateActive)
	p := seedClue(t, m, c.ID, u.ID, domain.ClueStatePending)

	require.NoError(t, m.DeleteCase(ctx, c.ID))
	_, err := m.GetClue(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UpdateCase(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	u := seedUser(t, m, "Ana", "ana@x.com")
	c := seedCase(t, m, u.ID, domain.CaseStateActive)
	at := time.Now().UTC()

	out, err := m.UpdateCase(ctx, c.ID, domain.CasePatch{
		DescripcionRopa: domain.Some("chaqueta"),
		URLFoto2:        domain.Some("https://cdn/x.png"),
		EstadoCaso:      domain.Some(domain.CaseStateResolved),
		FechaResolucion: domain.Some(at),
	})
	require.NoError(t, err)
	assert.Equal(t, "chaqueta", out.DescripcionRopa.String)
	assert.Equal(t, "https://cdn/x.png", out.URLFoto2.String)
	assert.Equal(t, domain.CaseStateResolved, out.EstadoCaso)
	assert.True(t, out.FechaResolucion.Valid)

	out, err = m.UpdateCase(ctx, c.ID, domain.CasePatch{DescripcionRopa: domain.Null[string]()})
	require.NoError(t, err)
	assert.False(t, out.DescripcionRopa.Valid)
}

func TestMemoryStore_CluesFilterAndCounts(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	u := seedUser(t, m, "Ana", "ana@x.com")
	c := seedCase(t, m, u.ID, domain.CaseStateActive)
	seedClue(t, m, c.ID, u.ID, domain.ClueStatePending)
	v := seedClue(t, m, c.ID, u.ID, domain.ClueStateVerified)

	clues, err := m.ListClues(ctx, domain.ClueFilters{CaseID: c.ID, Estado: domain.ClueStateVerified})
	require.NoError(t, err)
	require.Len(t, clues, 1)
	assert.Equal(t, v.ID, clues[0].ID)
	assert.Equal(t, "Lucía", clues[0].CasoNombreDesaparecido.String)
	assert.Equal(t, "ACTIVO", clues[0].CasoEstado.String)

	counts, err := m.CountCluesByState(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[domain.ClueStatePending])
	assert.Equal(t, 1, counts[domain.ClueStateVerified])
	assert.Equal(t, 0, counts[domain.ClueStateRejected])

	caseCounts, err := m.CountCasesByState(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, caseCounts[domain.CaseStateActive])
}
