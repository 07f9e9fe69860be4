package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/gevengood/red-esperanza-backend/internal/domain"
)

// updateBuilder collects "col = $n" fragments for a dynamic UPDATE.
type updateBuilder struct {
	sets []string
	args []any
}

func (b *updateBuilder) set(col string, v any) {
	b.args = append(b.args, v)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d", col, len(b.args)))
}

func (b *updateBuilder) empty() bool { return len(b.sets) == 0 }

// build appends "WHERE keyCol = $n" and returns the statement and args.
func (b *updateBuilder) build(table, keyCol string, key any) (string, []any) {
	args := append(b.args, key)
	q := fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d", table, strings.Join(b.sets, ", "), keyCol, len(args))
	return q, args
}

// setOptional adds col when the patch field is present; null writes NULL.
func setOptional[T any](b *updateBuilder, col string, o domain.Optional[T]) {
	if !o.Present {
		return
	}
	if o.Null {
		b.set(col, nil)
		return
	}
	b.set(col, o.Value)
}

// whereBuilder collects AND-ed conditions.
type whereBuilder struct {
	conds []string
	args  []any
}

func (w *whereBuilder) add(cond string, v any) {
	w.args = append(w.args, v)
	w.conds = append(w.conds, fmt.Sprintf(cond, len(w.args)))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// isUniqueViolation matches SQLSTATE 23505.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

// isUUID reports whether id has the canonical 36-char form Postgres accepts
// for the uuid key columns. Anything else can never match a row.
func isUUID(id string) bool {
	if len(id) != 36 {
		return false
	}
	_, err := uuid.Parse(id)
	return err == nil
}

// isInvalidText matches SQLSTATE 22P02 (e.g. a malformed uuid literal).
func isInvalidText(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "22P02"
}
