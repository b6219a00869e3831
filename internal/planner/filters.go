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

package planner

import (
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// renderFilterExpr lowers one request filter against an already-resolved
// column/dimension expression.
func renderFilterExpr(base sqlir.SqlExpr, f registry.Filter) (sqlir.SqlExpr, error) {
	switch f.Op {
	case registry.FilterIn, registry.FilterNotIn:
		values, ok := f.Value.([]any)
		if !ok {
			values = []any{f.Value}
		}
		list := make([]sqlir.SqlExpr, len(values))
		for i, v := range values {
			list[i] = sqlir.SqlLiteral{Value: v}
		}
		return sqlir.SqlInList{Expr: base, List: list, Negated: f.Op == registry.FilterNotIn}, nil
	case registry.FilterEq:
		return sqlir.SqlBinaryOp{Op: sqlir.OpEq, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterNeq:
		return sqlir.SqlBinaryOp{Op: sqlir.OpNeq, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterGt:
		return sqlir.SqlBinaryOp{Op: sqlir.OpGt, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterGte:
		return sqlir.SqlBinaryOp{Op: sqlir.OpGte, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterLt:
		return sqlir.SqlBinaryOp{Op: sqlir.OpLt, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterLte:
		return sqlir.SqlBinaryOp{Op: sqlir.OpLte, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterLike:
		return sqlir.SqlBinaryOp{Op: sqlir.OpLike, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	case registry.FilterILike:
		return sqlir.SqlBinaryOp{Op: sqlir.OpILike, Left: base, Right: sqlir.SqlLiteral{Value: f.Value}}, nil
	default:
		return nil, util.NewValidationErrorf("unsupported filter operator %q", f.Op)
	}
}
