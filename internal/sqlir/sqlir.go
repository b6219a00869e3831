// Copyright 2026 Google LLC
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package sqlir is a dialect-agnostic algebraic description of a SELECT
// statement, and a renderer that walks it against a chosen dialect.Dialect.
package sqlir

import (
	"fmt"
	"strings"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
)

// SqlExpr is the SQL-level expression tree: lower-level than expr.Expr (which
// is the semantic layer's tagged tree) and closer to what the renderer can
// spell directly.
type SqlExpr interface {
	isSqlExpr()
}

// SqlColumn is a (optionally table-qualified) column reference.
type SqlColumn struct {
	Table string // empty means unqualified
	Name  string
}

// SqlLiteral is a JSON-like scalar or array value.
type SqlLiteral struct {
	Value any
}

// SqlFunction is a call to a Function tag with already-lowered args and, for
// tags that need one, the accessory parameter (grain/field/sep).
type SqlFunction struct {
	Call expr.FuncCall
	Args []SqlExpr
}

// SqlCast is CAST/TRY_CAST.
type SqlCast struct {
	TryCast  bool
	Expr     SqlExpr
	DataType string
}

// SqlCase is a CASE expression.
type SqlCase struct {
	Branches []SqlCaseBranch
	Else     SqlExpr
}

// SqlCaseBranch is one WHEN/THEN arm.
type SqlCaseBranch struct {
	When SqlExpr
	Then SqlExpr
}

// SqlBinaryOperator is the set of rendered SQL binary operators.
type SqlBinaryOperator string

const (
	OpAdd      SqlBinaryOperator = "+"
	OpSubtract SqlBinaryOperator = "-"
	OpMultiply SqlBinaryOperator = "*"
	OpDivide   SqlBinaryOperator = "/"
	OpModulo   SqlBinaryOperator = "%"
	OpAnd      SqlBinaryOperator = "AND"
	OpOr       SqlBinaryOperator = "OR"
	OpEq       SqlBinaryOperator = "="
	OpNeq      SqlBinaryOperator = "!="
	OpGt       SqlBinaryOperator = ">"
	OpGte      SqlBinaryOperator = ">="
	OpLt       SqlBinaryOperator = "<"
	OpLte      SqlBinaryOperator = "<="
	OpLike     SqlBinaryOperator = "LIKE"
	OpILike    SqlBinaryOperator = "ILIKE"
)

// SqlBinaryOp is a binary operator expression; the renderer always
// parenthesizes it.
type SqlBinaryOp struct {
	Op    SqlBinaryOperator
	Left  SqlExpr
	Right SqlExpr
}

// SqlAggregate is a plain (unfiltered) aggregate call.
type SqlAggregate struct {
	Agg          expr.Aggregation
	Expr         SqlExpr
	StringAggSep *string
}

// SqlFilteredAggregate is an aggregate with a row-level predicate, lowered
// per-dialect by the renderer to either AGG(e) FILTER (WHERE c) or
// AGG(CASE WHEN c THEN e ELSE NULL END).
type SqlFilteredAggregate struct {
	Agg          expr.Aggregation
	Expr         SqlExpr
	Filter       SqlExpr
	StringAggSep *string
}

// SqlInList is IN / NOT IN.
type SqlInList struct {
	Expr     SqlExpr
	List     []SqlExpr
	Negated  bool
}

// SqlExists is a correlated EXISTS subquery, used by the pre-aggregated plan
// to test non-base-alias filters without performing a physical join.
type SqlExists struct {
	Subquery *SelectQuery
}

func (SqlColumn) isSqlExpr()            {}
func (SqlLiteral) isSqlExpr()           {}
func (SqlFunction) isSqlExpr()          {}
func (SqlCast) isSqlExpr()              {}
func (SqlCase) isSqlExpr()              {}
func (SqlBinaryOp) isSqlExpr()          {}
func (SqlAggregate) isSqlExpr()         {}
func (SqlFilteredAggregate) isSqlExpr() {}
func (SqlInList) isSqlExpr()            {}
func (SqlExists) isSqlExpr()            {}

// SelectItem is one projected column.
type SelectItem struct {
	Expr  SqlExpr
	Alias string // empty means no AS clause
}

// TableRef is a FROM/JOIN source: either a physical table by name, or a
// sub-select (exclusive with Name).
type TableRef struct {
	Name     string
	Alias    string
	Subquery *SelectQuery
}

// JoinType mirrors the four join kinds a flow may declare.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// Join is one JOIN clause.
type Join struct {
	Type  JoinType
	Table TableRef
	On    []SqlExpr
}

// SortDirection is ASC/DESC.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// OrderItem is one ORDER BY term.
type OrderItem struct {
	Expr      SqlExpr
	Direction SortDirection
}

// SelectQuery is the full algebraic description of one SELECT.
type SelectQuery struct {
	Select  []SelectItem
	From    TableRef
	Joins   []Join
	Filters []SqlExpr
	GroupBy []SqlExpr
	OrderBy []OrderItem
	Limit   *uint64
	Offset  *uint64
}

// Renderer walks a SelectQuery against one Dialect.
type Renderer struct {
	D renderDialect
}

// renderDialect is the subset of dialect.Dialect the renderer needs; declared
// locally so that sqlir depends on expr only, not on the dialect package.
type renderDialect interface {
	QuoteIdent(string) string
	RenderFunction(expr.FuncCall, []string) string
	RenderCast(tryCast bool, arg, dataType string) string
	RenderAggregation(agg expr.Aggregation, rendered string, stringAggSep *string) string
	RenderLiteral(value any) string
	SupportsFilteredAggregates() bool
}

// NewRenderer constructs a Renderer for the given dialect.
func NewRenderer(d renderDialect) *Renderer {
	return &Renderer{D: d}
}

// RenderSelect renders a complete SELECT statement.
func (r *Renderer) RenderSelect(q *SelectQuery) string {
	items := make([]string, len(q.Select))
	for i, item := range q.Select {
		e := r.renderExpr(item.Expr)
		if item.Alias != "" {
			items[i] = fmt.Sprintf("%s AS %s", e, r.D.QuoteIdent(item.Alias))
		} else {
			items[i] = e
		}
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT %s FROM %s", strings.Join(items, ", "), r.renderTableRef(&q.From))

	for _, j := range q.Joins {
		kw := map[JoinType]string{
			JoinInner: "JOIN",
			JoinLeft:  "LEFT JOIN",
			JoinRight: "RIGHT JOIN",
			JoinFull:  "FULL JOIN",
		}[j.Type]
		onParts := make([]string, len(j.On))
		for i, on := range j.On {
			onParts[i] = r.renderExpr(on)
		}
		fmt.Fprintf(&sb, " %s %s ON %s", kw, r.renderTableRef(&j.Table), strings.Join(onParts, " AND "))
	}

	if len(q.Filters) > 0 {
		parts := make([]string, len(q.Filters))
		for i, f := range q.Filters {
			parts[i] = r.renderExpr(f)
		}
		fmt.Fprintf(&sb, " WHERE %s", strings.Join(parts, " AND "))
	}

	if len(q.GroupBy) > 0 {
		parts := make([]string, len(q.GroupBy))
		for i, g := range q.GroupBy {
			parts[i] = r.renderExpr(g)
		}
		fmt.Fprintf(&sb, " GROUP BY %s", strings.Join(parts, ", "))
	}

	if len(q.OrderBy) > 0 {
		parts := make([]string, len(q.OrderBy))
		for i, o := range q.OrderBy {
			dir := "ASC"
			if o.Direction == Desc {
				dir = "DESC"
			}
			parts[i] = fmt.Sprintf("%s %s", r.renderExpr(o.Expr), dir)
		}
		fmt.Fprintf(&sb, " ORDER BY %s", strings.Join(parts, ", "))
	}

	if q.Limit != nil {
		fmt.Fprintf(&sb, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&sb, " OFFSET %d", *q.Offset)
	}

	return sb.String()
}

func (r *Renderer) renderTableRef(t *TableRef) string {
	if t.Subquery != nil {
		inner := r.RenderSelect(t.Subquery)
		if t.Alias != "" {
			return fmt.Sprintf("(%s) %s", inner, r.D.QuoteIdent(t.Alias))
		}
		return fmt.Sprintf("(%s)", inner)
	}
	if t.Alias != "" {
		return fmt.Sprintf("%s %s", r.D.QuoteIdent(t.Name), r.D.QuoteIdent(t.Alias))
	}
	return r.D.QuoteIdent(t.Name)
}

func (r *Renderer) renderExpr(e SqlExpr) string {
	switch v := e.(type) {
	case SqlColumn:
		if v.Table != "" {
			return fmt.Sprintf("%s.%s", r.D.QuoteIdent(v.Table), r.D.QuoteIdent(v.Name))
		}
		return r.D.QuoteIdent(v.Name)
	case SqlLiteral:
		return r.D.RenderLiteral(v.Value)
	case SqlFunction:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			args[i] = r.renderExpr(a)
		}
		return r.D.RenderFunction(v.Call, args)
	case SqlCast:
		return r.D.RenderCast(v.TryCast, r.renderExpr(v.Expr), v.DataType)
	case SqlCase:
		var sb strings.Builder
		sb.WriteString("CASE")
		for _, b := range v.Branches {
			fmt.Fprintf(&sb, " WHEN %s THEN %s", r.renderExpr(b.When), r.renderExpr(b.Then))
		}
		fmt.Fprintf(&sb, " ELSE %s END", r.renderExpr(v.Else))
		return sb.String()
	case SqlBinaryOp:
		return fmt.Sprintf("(%s %s %s)", r.renderExpr(v.Left), v.Op, r.renderExpr(v.Right))
	case SqlAggregate:
		return r.D.RenderAggregation(v.Agg, r.renderExpr(v.Expr), v.StringAggSep)
	case SqlFilteredAggregate:
		innerExpr := r.renderExpr(v.Expr)
		if r.D.SupportsFilteredAggregates() {
			agg := r.D.RenderAggregation(v.Agg, innerExpr, v.StringAggSep)
			return fmt.Sprintf("%s FILTER (WHERE %s)", agg, r.renderExpr(v.Filter))
		}
		lowered := fmt.Sprintf("CASE WHEN %s THEN %s ELSE NULL END", r.renderExpr(v.Filter), innerExpr)
		return r.D.RenderAggregation(v.Agg, lowered, v.StringAggSep)
	case SqlInList:
		parts := make([]string, len(v.List))
		for i, item := range v.List {
			parts[i] = r.renderExpr(item)
		}
		not := ""
		if v.Negated {
			not = "NOT "
		}
		return fmt.Sprintf("%s %sIN (%s)", r.renderExpr(v.Expr), not, strings.Join(parts, ", "))
	case SqlExists:
		return fmt.Sprintf("EXISTS (%s)", r.RenderSelect(v.Subquery))
	default:
		return "NULL"
	}
}
