// Package predicate is a small, storage-neutral filter language. Expressions
// are built with the constructors below, evaluated in memory with Eval, and
// translated to SQL by the postgres repositories.
package predicate

import (
	"time"
)

// Record exposes named field values to Eval. A missing or NULL field returns nil.
type Record interface {
	Value(field string) any
}

type Expr interface {
	Eval(r Record) bool
}

// Const is a literal true/false.
type Const bool

var (
	True  Expr = Const(true)
	False Expr = Const(false)
)

func (c Const) Eval(Record) bool { return bool(c) }

type EqExpr struct {
	Field string
	Value any
}

func (e EqExpr) Eval(r Record) bool {
	v := r.Value(e.Field)
	return v != nil && v == e.Value
}

type InExpr struct {
	Field  string
	Values []any
}

func (e InExpr) Eval(r Record) bool {
	v := r.Value(e.Field)
	if v == nil {
		return false
	}
	for _, want := range e.Values {
		if v == want {
			return true
		}
	}
	return false
}

type Op string

const (
	OpLt  Op = "<"
	OpLte Op = "<="
	OpGt  Op = ">"
	OpGte Op = ">="
)

// CmpExpr orders time.Time, int and string fields.
type CmpExpr struct {
	Field string
	Op    Op
	Value any
}

func (e CmpExpr) Eval(r Record) bool {
	c, ok := compare(r.Value(e.Field), e.Value)
	if !ok {
		return false
	}
	switch e.Op {
	case OpLt:
		return c < 0
	case OpLte:
		return c <= 0
	case OpGt:
		return c > 0
	case OpGte:
		return c >= 0
	}
	return false
}

type IsNullExpr struct {
	Field string
}

func (e IsNullExpr) Eval(r Record) bool { return r.Value(e.Field) == nil }

type AndExpr []Expr

func (e AndExpr) Eval(r Record) bool {
	for _, x := range e {
		if !x.Eval(r) {
			return false
		}
	}
	return true
}

type OrExpr []Expr

func (e OrExpr) Eval(r Record) bool {
	for _, x := range e {
		if x.Eval(r) {
			return true
		}
	}
	return false
}

type NotExpr struct {
	Expr Expr
}

func (e NotExpr) Eval(r Record) bool { return !e.Expr.Eval(r) }

func Eq(field string, value any) Expr { return EqExpr{Field: field, Value: value} }

// In matches nothing when values is empty.
func In[T any](field string, values []T) Expr {
	if len(values) == 0 {
		return False
	}
	vs := make([]any, len(values))
	for i, v := range values {
		vs[i] = v
	}
	return InExpr{Field: field, Values: vs}
}

func Lt(field string, value any) Expr  { return CmpExpr{Field: field, Op: OpLt, Value: value} }
func Lte(field string, value any) Expr { return CmpExpr{Field: field, Op: OpLte, Value: value} }
func Gt(field string, value any) Expr  { return CmpExpr{Field: field, Op: OpGt, Value: value} }
func Gte(field string, value any) Expr { return CmpExpr{Field: field, Op: OpGte, Value: value} }

func IsNull(field string) Expr { return IsNullExpr{Field: field} }

// And drops nil and True operands and collapses to False if any operand is False.
// With no remaining operands it is True.
func And(exprs ...Expr) Expr {
	out := make(AndExpr, 0, len(exprs))
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
			continue
		case Const:
			if !v {
				return False
			}
			continue
		case AndExpr:
			out = append(out, v...)
		default:
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return True
	case 1:
		return out[0]
	}
	return out
}

// Or drops nil and False operands and collapses to True if any operand is True.
// With no remaining operands it is False.
func Or(exprs ...Expr) Expr {
	out := make(OrExpr, 0, len(exprs))
	for _, e := range exprs {
		switch v := e.(type) {
		case nil:
			continue
		case Const:
			if v {
				return True
			}
			continue
		case OrExpr:
			out = append(out, v...)
		default:
			out = append(out, e)
		}
	}
	switch len(out) {
	case 0:
		return False
	case 1:
		return out[0]
	}
	return out
}

func Not(e Expr) Expr {
	switch v := e.(type) {
	case Const:
		return !v
	case NotExpr:
		return v.Expr
	}
	return NotExpr{Expr: e}
}

func compare(a, b any) (int, bool) {
	switch x := a.(type) {
	case time.Time:
		y, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return x.Compare(y), true
	case int:
		y, ok := b.(int)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	case string:
		y, ok := b.(string)
		if !ok {
			return 0, false
		}
		return cmpOrdered(x, y), true
	}
	return 0, false
}

func cmpOrdered[T int | string](a, b T) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
