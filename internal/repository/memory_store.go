package repository

import (
	"context"
	"database/sql"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

// MemoryStore backs users, cases and clues when the DB is disabled (dev,
// tests). One lock guards all three tables so cascades stay atomic.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[string]domain.User
	cases map[string]domain.Case
	clues map[string]domain.Clue
	seq   map[string]int64 // insertion order, breaks timestamp ties
	next  int64
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: map[string]domain.User{},
		cases: map[string]domain.Case{},
		clues: map[string]domain.Clue{},
		seq:   map[string]int64{},
		now:   time.Now,
	}
}

var (
	_ UsersRepository = (*MemoryStore)(nil)
	_ CasesRepository = (*MemoryStore)(nil)
	_ CluesRepository = (*MemoryStore)(nil)
)

func (m *MemoryStore) stamp(id string) time.Time {
	m.next++
	m.seq[id] = m.next
	return m.now().UTC()
}

// before orders a before b by (created, insertion).
func (m *MemoryStore) before(aID string, aAt time.Time, bID string, bAt time.Time) bool {
	if !aAt.Equal(bAt) {
		return aAt.Before(bAt)
	}
	return m.seq[aID] < m.seq[bID]
}

func paginate[T any](all []T, page, size int) []T {
	if size <= 0 {
		return all
	}
	if page <= 0 {
		page = 1
	}
	total := len(all)
	if page-1 > total/size {
		return all[:0]
	}
	start := (page - 1) * size
	end := start + size
	if end > total {
		end = total
	}
	return all[start:end]
}

// ============================================
// Users
// ============================================

func (m *MemoryStore) GetUser(_ context.Context, userID string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *MemoryStore) GetUserByEmail(_ context.Context, correo string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if u := m.findEmailLocked(normalizeEmail(correo), ""); u != nil {
		c := *u
		return &c, nil
	}
	return nil, ErrNotFound
}

func (m *MemoryStore) findEmailLocked(correo, excludeID string) *domain.User {
	if correo == "" {
		return nil
	}
	for _, u := range m.users {
		if u.ID != excludeID && normalizeEmail(u.Correo) == correo {
			return &u
		}
	}
	return nil
}

func (m *MemoryStore) EmailTaken(_ context.Context, correo, excludeID string) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.findEmailLocked(normalizeEmail(correo), excludeID) != nil, nil
}

func (m *MemoryStore) ListUsers(_ context.Context) ([]*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.User, 0, len(m.users))
	for _, u := range m.users {
		u := u
		out = append(out, &u)
	}
	sort.Slice(out, func(i, j int) bool {
		return m.before(out[j].ID, out[j].FechaRegistro, out[i].ID, out[i].FechaRegistro)
	})
	return out, nil
}

func (m *MemoryStore) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	user.Correo = normalizeEmail(user.Correo)
	// unique index on lower(correo)
	if m.findEmailLocked(user.Correo, "") != nil {
		return ErrDuplicateEmail
	}
	user.ID = uuid.NewString()
	user.FechaRegistro = m.stamp(user.ID)
	m.users[user.ID] = *user
	return nil
}

func (m *MemoryStore) UpdateUser(_ context.Context, userID string, patch domain.UserPatch) (*domain.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Nombre.HasValue() {
		u.Nombre = patch.Nombre.Value
	}
	if patch.Telefono.Present {
		u.Telefono = nullString(patch.Telefono)
	}
	if patch.Correo.HasValue() {
		correo := normalizeEmail(patch.Correo.Value)
		if m.findEmailLocked(correo, userID) != nil {
			return nil, ErrDuplicateEmail
		}
		u.Correo = correo
	}
	m.users[userID] = u
	return &u, nil
}

func (m *MemoryStore) UpdatePassword(_ context.Context, userID, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	m.users[userID] = u
	return nil
}

func (m *MemoryStore) DeleteUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[userID]; !ok {
		return ErrNotFound
	}
	owned := map[string]bool{}
	for id, c := range m.cases {
		if c.ReporterID == userID {
			owned[id] = true
		}
	}
	for id, p := range m.clues {
		if p.ContributorID == userID || owned[p.CaseID] {
			m.dropLocked(id)
			delete(m.clues, id)
		}
	}
	for id := range owned {
		m.dropLocked(id)
		delete(m.cases, id)
	}
	m.dropLocked(userID)
	delete(m.users, userID)
	return nil
}

func (m *MemoryStore) dropLocked(id string) { delete(m.seq, id) }

// ============================================
// Cases
// ============================================

func (m *MemoryStore) caseViewLocked(c domain.Case) *domain.Case {
	if u, ok := m.users[c.ReporterID]; ok {
		c.ReporterNombre = sql.NullString{String: u.Nombre, Valid: true}
	}
	return &c
}

func (m *MemoryStore) GetCase(_ context.Context, caseID string) (*domain.Case, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.caseViewLocked(c), nil
}

func (m *MemoryStore) ListCases(_ context.Context, filters domain.CaseFilters, page, size int) ([]*domain.Case, int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	all := make([]*domain.Case, 0, len(m.cases))
	for _, c := range m.cases {
		if filters.Estado != "" && c.EstadoCaso != filters.Estado {
			continue
		}
		if filters.ReporterID != "" && c.ReporterID != filters.ReporterID {
			continue
		}
		all = append(all, m.caseViewLocked(c))
	}
	sort.Slice(all, func(i, j int) bool {
		if filters.OldestFirst {
			return m.before(all[i].ID, all[i].FechaCreacion, all[j].ID, all[j].FechaCreacion)
		}
		return m.before(all[j].ID, all[j].FechaCreacion, all[i].ID, all[i].FechaCreacion)
	})
	return paginate(all, page, size), len(all), nil
}

func (m *MemoryStore) CreateCase(_ context.Context, c *domain.Case) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[c.ReporterID]; !ok {
		return ErrNotFound
	}
	c.ID = uuid.NewString()
	c.FechaCreacion = m.stamp(c.ID)
	m.cases[c.ID] = *c
	return nil
}

func (m *MemoryStore) UpdateCase(_ context.Context, caseID string, patch domain.CasePatch) (*domain.Case, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.cases[caseID]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.DescripcionFisica.Present {
		c.DescripcionFisica = nullString(patch.DescripcionFisica)
	}
	if patch.DescripcionRopa.Present {
		c.DescripcionRopa = nullString(patch.DescripcionRopa)
	}
	if patch.DescripcionHechos.HasValue() {
		c.DescripcionHechos = patch.DescripcionHechos.Value
	}
	if patch.TelefonoContacto.HasValue() {
		c.TelefonoContacto = patch.TelefonoContacto.Value
	}
	if patch.CorreoContacto.HasValue() {
		c.CorreoContacto = patch.CorreoContacto.Value
	}
	if patch.URLFoto1.Present {
		c.URLFoto1 = nullString(patch.URLFoto1)
	}
	if patch.URLFoto2.Present {
		c.URLFoto2 = nullString(patch.URLFoto2)
	}
	if patch.URLFoto3.Present {
		c.URLFoto3 = nullString(patch.URLFoto3)
	}
	if patch.EstadoCaso.HasValue() {
		c.EstadoCaso = patch.EstadoCaso.Value
	}
	if patch.FechaResolucion.Present {
		c.FechaResolucion = sql.NullTime{Time: patch.FechaResolucion.Value, Valid: !patch.FechaResolucion.Null}
	}
	m.cases[caseID] = c
	return m.caseViewLocked(c), nil
}

func (m *MemoryStore) DeleteCase(_ context.Context, caseID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[caseID]; !ok {
		return ErrNotFound
	}
	for id, p := range m.clues {
		if p.CaseID == caseID {
			m.dropLocked(id)
			delete(m.clues, id)
		}
	}
	m.dropLocked(caseID)
	delete(m.cases, caseID)
	return nil
}

func (m *MemoryStore) CountCasesByState(_ context.Context, reporterID string) (map[domain.CaseState]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.CaseState]int, len(domain.CaseStates))
	for _, st := range domain.CaseStates {
		out[st] = 0
	}
	for _, c := range m.cases {
		if c.ReporterID == reporterID {
			out[c.EstadoCaso]++
		}
	}
	return out, nil
}

// ============================================
// Clues
// ============================================

func (m *MemoryStore) clueViewLocked(p domain.Clue) *domain.Clue {
	if u, ok := m.users[p.ContributorID]; ok {
		p.AportanteNombre = sql.NullString{String: u.Nombre, Valid: true}
	}
	if c, ok := m.cases[p.CaseID]; ok {
		p.CasoNombreDesaparecido = sql.NullString{String: c.NombreDesaparecido, Valid: true}
		p.CasoEstado = sql.NullString{String: string(c.EstadoCaso), Valid: true}
	}
	return &p
}

func (m *MemoryStore) GetClue(_ context.Context, clueID string) (*domain.Clue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.clues[clueID]
	if !ok {
		return nil, ErrNotFound
	}
	return m.clueViewLocked(p), nil
}

func (m *MemoryStore) ListClues(_ context.Context, filters domain.ClueFilters) ([]*domain.Clue, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*domain.Clue, 0)
	for _, p := range m.clues {
		if filters.CaseID != "" && p.CaseID != filters.CaseID {
			continue
		}
		if filters.ContributorID != "" && p.ContributorID != filters.ContributorID {
			continue
		}
		if filters.Estado != "" && p.EstadoPista != filters.Estado {
			continue
		}
		out = append(out, m.clueViewLocked(p))
	}
	sort.Slice(out, func(i, j int) bool {
		if filters.OldestFirst {
			return m.before(out[i].ID, out[i].FechaCreacion, out[j].ID, out[j].FechaCreacion)
		}
		return m.before(out[j].ID, out[j].FechaCreacion, out[i].ID, out[i].FechaCreacion)
	})
	return out, nil
}

func (m *MemoryStore) CreateClue(_ context.Context, p *domain.Clue) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.cases[p.CaseID]; !ok {
		return ErrNotFound
	}
	if _, ok := m.users[p.ContributorID]; !ok {
		return ErrNotFound
	}
	p.ID = uuid.NewString()
	p.FechaCreacion = m.stamp(p.ID)
	m.clues[p.ID] = *p
	return nil
}

func (m *MemoryStore) UpdateClue(_ context.Context, clueID string, patch domain.CluePatch) (*domain.Clue, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.clues[clueID]
	if !ok {
		return nil, ErrNotFound
	}
	if patch.Mensaje.HasValue() {
		p.Mensaje = patch.Mensaje.Value
	}
	if patch.URLFotoPista.Present {
		p.URLFotoPista = nullString(patch.URLFotoPista)
	}
	if patch.EstadoPista.HasValue() {
		p.EstadoPista = patch.EstadoPista.Value
	}
	m.clues[clueID] = p
	return m.clueViewLocked(p), nil
}

func (m *MemoryStore) DeleteClue(_ context.Context, clueID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.clues[clueID]; !ok {
		return ErrNotFound
	}
	m.dropLocked(clueID)
	delete(m.clues, clueID)
	return nil
}

func (m *MemoryStore) CountCluesByState(_ context.Context, contributorID string) (map[domain.ClueState]int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[domain.ClueState]int, len(domain.ClueStates))
	for _, st := range domain.ClueStates {
		out[st] = 0
	}
	for _, p := range m.clues {
		if p.ContributorID == contributorID {
			out[p.EstadoPista]++
		}
	}
	return out, nil
}

func nullString(o domain.Optional[string]) sql.NullString {
	if !o.HasValue() {
		return sql.NullString{}
	}
	return sql.NullString{String: o.Value, Valid: true}
}
