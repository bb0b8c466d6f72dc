package repository

import (
	"fmt"

	"gorm.io/gorm/clause"

	"github.com/viridial-group/realestate-sub003/internal/predicate"
)

var (
	matchAll  = clause.Expr{SQL: "1 = 1"}
	matchNone = clause.Expr{SQL: "1 = 0"}
)

// ToClause translates a predicate tree into a gorm WHERE expression.
// Field names are column names.
func ToClause(e predicate.Expr) clause.Expression {
	switch v := e.(type) {
	case nil:
		return matchAll
	case predicate.Const:
		if v {
			return matchAll
		}
		return matchNone
	case predicate.EqExpr:
		return clause.Eq{Column: clause.Column{Name: v.Field}, Value: v.Value}
	case predicate.InExpr:
		if len(v.Values) == 0 {
			return matchNone
		}
		return clause.IN{Column: clause.Column{Name: v.Field}, Values: v.Values}
	case predicate.IsNullExpr:
		// clause.Eq renders a nil value as IS NULL.
		return clause.Eq{Column: clause.Column{Name: v.Field}, Value: nil}
	case predicate.CmpExpr:
		col := clause.Column{Name: v.Field}
		switch v.Op {
		case predicate.OpLt:
			return clause.Lt{Column: col, Value: v.Value}
		case predicate.OpLte:
			return clause.Lte{Column: col, Value: v.Value}
		case predicate.OpGt:
			return clause.Gt{Column: col, Value: v.Value}
		case predicate.OpGte:
			return clause.Gte{Column: col, Value: v.Value}
		}
	case predicate.AndExpr:
		return clause.And(translateAll(v)...)
	case predicate.OrExpr:
		return clause.Or(translateAll(v)...)
	case predicate.NotExpr:
		return clause.Not(ToClause(v.Expr))
	}
	panic(fmt.Sprintf("repository: unsupported predicate %T", e))
}

func translateAll(exprs []predicate.Expr) []clause.Expression {
	out := make([]clause.Expression, 0, len(exprs))
	for _, e := range exprs {
		out = append(out, ToClause(e))
	}
	return out
}
