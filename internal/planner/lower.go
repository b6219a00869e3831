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

// Package planner turns a resolved query request into a dialect-agnostic
// sqlir.SelectQuery: choosing between a flat join or a two-level
// pre-aggregated plan, resolving derived measures, and pruning joins the
// request does not need.
package planner

import (
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// exprToSQL lowers a semantic Expr to a SqlExpr at resolve time, qualifying
// every Column with alias. A MeasureRef at this point resolves to its
// already-computed (unqualified) aggregate alias.
func exprToSQL(e expr.Expr, alias string) (sqlir.SqlExpr, error) {
	switch v := e.(type) {
	case expr.Column:
		return sqlir.SqlColumn{Table: alias, Name: v.Name}, nil
	case expr.Literal:
		return sqlir.SqlLiteral{Value: v.Value}, nil
	case expr.MeasureRef:
		return sqlir.SqlColumn{Name: v.Name}, nil
	case expr.FuncCall:
		args := make([]sqlir.SqlExpr, len(v.Args))
		for i, a := range v.Args {
			sa, err := exprToSQL(a, alias)
			if err != nil {
				return nil, err
			}
			args[i] = sa
		}
		return sqlir.SqlFunction{Call: v, Args: args}, nil
	case expr.CastExpr:
		inner, err := exprToSQL(v.Expr, alias)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlCast{TryCast: v.TryCast, Expr: inner, DataType: v.DataType}, nil
	case expr.Case:
		branches := make([]sqlir.SqlCaseBranch, len(v.Branches))
		for i, b := range v.Branches {
			when, err := exprToSQL(b.When, alias)
			if err != nil {
				return nil, err
			}
			then, err := exprToSQL(b.Then, alias)
			if err != nil {
				return nil, err
			}
			branches[i] = sqlir.SqlCaseBranch{When: when, Then: then}
		}
		els, err := exprToSQL(v.Else, alias)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlCase{Branches: branches, Else: els}, nil
	case expr.Binary:
		left, err := exprToSQL(v.Left, alias)
		if err != nil {
			return nil, err
		}
		right, err := exprToSQL(v.Right, alias)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlBinaryOp{Op: binaryOpToSQL(v.Op), Left: left, Right: right}, nil
	default:
		return nil, util.NewSqlError("unsupported expression node in exprToSQL")
	}
}

// renderPostExpr lowers a derived measure's post_expr: a MeasureRef resolves
// via resolveMeasure (the already-built SqlExpr for that base measure), and a
// bare Column names a projected alias, not a table column.
func renderPostExpr(e expr.Expr, resolveMeasure func(name string) (sqlir.SqlExpr, error)) (sqlir.SqlExpr, error) {
	switch v := e.(type) {
	case expr.Column:
		return sqlir.SqlColumn{Name: v.Name}, nil
	case expr.Literal:
		return sqlir.SqlLiteral{Value: v.Value}, nil
	case expr.MeasureRef:
		return resolveMeasure(v.Name)
	case expr.FuncCall:
		args := make([]sqlir.SqlExpr, len(v.Args))
		for i, a := range v.Args {
			sa, err := renderPostExpr(a, resolveMeasure)
			if err != nil {
				return nil, err
			}
			args[i] = sa
		}
		return sqlir.SqlFunction{Call: v, Args: args}, nil
	case expr.CastExpr:
		inner, err := renderPostExpr(v.Expr, resolveMeasure)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlCast{TryCast: v.TryCast, Expr: inner, DataType: v.DataType}, nil
	case expr.Case:
		branches := make([]sqlir.SqlCaseBranch, len(v.Branches))
		for i, b := range v.Branches {
			when, err := renderPostExpr(b.When, resolveMeasure)
			if err != nil {
				return nil, err
			}
			then, err := renderPostExpr(b.Then, resolveMeasure)
			if err != nil {
				return nil, err
			}
			branches[i] = sqlir.SqlCaseBranch{When: when, Then: then}
		}
		els, err := renderPostExpr(v.Else, resolveMeasure)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlCase{Branches: branches, Else: els}, nil
	case expr.Binary:
		left, err := renderPostExpr(v.Left, resolveMeasure)
		if err != nil {
			return nil, err
		}
		right, err := renderPostExpr(v.Right, resolveMeasure)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlBinaryOp{Op: binaryOpToSQL(v.Op), Left: left, Right: right}, nil
	default:
		return nil, util.NewSqlError("unsupported expression node in renderPostExpr")
	}
}

func binaryOpToSQL(op expr.BinaryOp) sqlir.SqlBinaryOperator {
	switch op {
	case expr.OpAdd:
		return sqlir.OpAdd
	case expr.OpSubtract:
		return sqlir.OpSubtract
	case expr.OpMultiply:
		return sqlir.OpMultiply
	case expr.OpDivide:
		return sqlir.OpDivide
	case expr.OpModulo:
		return sqlir.OpModulo
	case expr.OpAnd:
		return sqlir.OpAnd
	case expr.OpOr:
		return sqlir.OpOr
	case expr.OpEq:
		return sqlir.OpEq
	case expr.OpNeq:
		return sqlir.OpNeq
	case expr.OpGt:
		return sqlir.OpGt
	case expr.OpGte:
		return sqlir.OpGte
	case expr.OpLt:
		return sqlir.OpLt
	case expr.OpLte:
		return sqlir.OpLte
	default:
		return sqlir.OpEq
	}
}
