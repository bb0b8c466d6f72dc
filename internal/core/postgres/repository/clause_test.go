package repository

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/gorm/clause"

	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

func TestToClauseLeaves(t *testing.T) {
	now := time.Now()
	col := clause.Column{Name: "status"}

	assert.Equal(t, matchAll, ToClause(nil))
	assert.Equal(t, matchAll, ToClause(predicate.True))
	assert.Equal(t, matchNone, ToClause(predicate.False))
	assert.Equal(t, clause.Eq{Column: col, Value: "PENDING"}, ToClause(predicate.Eq("status", "PENDING")))
	assert.Equal(t, clause.Eq{Column: clause.Column{Name: "due_date"}, Value: nil}, ToClause(predicate.IsNull("due_date")))
	assert.Equal(t, clause.Lt{Column: clause.Column{Name: "due_date"}, Value: now}, ToClause(predicate.Lt("due_date", now)))
	assert.Equal(t, clause.Gte{Column: clause.Column{Name: "due_date"}, Value: now}, ToClause(predicate.Gte("due_date", now)))

	in := ToClause(predicate.In("status", []string{"PENDING", "IN_PROGRESS"}))
	assert.Equal(t, clause.IN{Column: col, Values: []any{"PENDING", "IN_PROGRESS"}}, in)
}

func TestToClauseEmptyInMatchesNothing(t *testing.T) {
	assert.Equal(t, matchNone, ToClause(predicate.InExpr{Field: "organization_id"}))
	assert.Equal(t, matchNone, ToClause(predicate.In("organization_id", []string{})))
}

func TestToClauseComposites(t *testing.T) {
	and := ToClause(predicate.And(predicate.Eq("a", 1), predicate.Eq("b", 2)))
	if assert.IsType(t, clause.AndConditions{}, and) {
		assert.Len(t, and.(clause.AndConditions).Exprs, 2)
	}

	or := ToClause(predicate.Or(predicate.Eq("a", 1), predicate.Eq("b", 2)))
	if assert.IsType(t, clause.OrConditions{}, or) {
		assert.Len(t, or.(clause.OrConditions).Exprs, 2)
	}

	not := ToClause(predicate.Not(predicate.Eq("a", 1)))
	assert.IsType(t, clause.NotConditions{}, not)
}
