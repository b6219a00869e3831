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
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/resolver"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
)

const preAggAlias = "fact_preagg"

// buildPreAggPlan builds a two-level plan for flows where a needed join
// carries fan-out risk: the inner query aggregates over the base table alone
// (it carries no joins), non-base-alias filters are pushed down as correlated EXISTS
// subqueries against the base's own join keys, and the outer query LEFT
// JOINs in any dimension tables the projection still needs, grouping once
// more over the already-aggregated rows.
func buildPreAggPlan(
	reg *registry.FlowRegistry,
	flow registry.SemanticFlow,
	aliasMap map[string]string,
	needed map[string]bool,
	dims []resolvedDimension,
	meas []resolvedMeasure,
	filters []resolvedFilter,
	order []resolvedOrder,
	limit, offset *uint32,
) (*sqlir.SelectQuery, error) {
	lookup := measureLookupFor(reg, flow, aliasMap)
	baseExprs := map[string]sqlir.SqlExpr{}
	cache := map[string]sqlir.SqlExpr{}
	stack := map[string]bool{}

	baseTable, _ := reg.GetTable(flow.BaseTable.SemanticTable)
	baseAlias := flow.BaseTable.Alias

	inner := &sqlir.SelectQuery{
		From: sqlir.TableRef{Name: baseTable.Table, Alias: baseAlias},
	}

	// base-side dimensions project straight through; non-base dimensions are
	// resolved on the outer query instead, once the dimension table is
	// LEFT JOINed in directly (safe: dimension joins are, by construction,
	// ManyToOne/OneToOne off the base).
	baseDims := map[string]resolvedDimension{}
	var outerDims []resolvedDimension
	for _, d := range dims {
		if d.alias == baseAlias {
			baseDims[d.requestName] = d
		} else {
			outerDims = append(outerDims, d)
		}
	}
	for _, d := range baseDims {
		e, err := exprToSQL(d.def.Expression, d.alias)
		if err != nil {
			return nil, err
		}
		inner.Select = append(inner.Select, sqlir.SelectItem{Expr: e, Alias: d.requestName})
		inner.GroupBy = append(inner.GroupBy, e)
	}
	// Every outer-joined dimension table needs its base-side join key carried
	// through the aggregation so the outer query can LEFT JOIN it back in
	// without re-aggregating in a way that double counts.
	joinKeyAlias := map[string]string{} // dimension alias -> inner projected column name
	seenJoin := map[string]bool{}
	for _, d := range dims {
		if d.alias == baseAlias || seenJoin[d.alias] {
			continue
		}
		seenJoin[d.alias] = true
		j := flow.Joins[d.alias]
		keyCol := "__jk_" + d.alias
		inner.Select = append(inner.Select, sqlir.SelectItem{
			Expr:  sqlir.SqlColumn{Table: j.ToTable, Name: j.JoinKeys[0].Left},
			Alias: keyCol,
		})
		inner.GroupBy = append(inner.GroupBy, sqlir.SqlColumn{Table: j.ToTable, Name: j.JoinKeys[0].Left})
		joinKeyAlias[d.alias] = keyCol
	}

	for _, m := range meas {
		key := m.alias + "." + m.name
		var e sqlir.SqlExpr
		if m.def.PostExpr == nil {
			base, err := buildBaseMeasureExpr(m.def, m.alias)
			if err != nil {
				return nil, err
			}
			baseExprs[key] = base
			e = base
		} else {
			resolved, err := resolveMeasureWithPosts(key, lookup, baseExprs, cache, stack)
			if err != nil {
				return nil, err
			}
			e = resolved
		}
		if m.requested {
			inner.Select = append(inner.Select, sqlir.SelectItem{Expr: e, Alias: m.requestName})
		}
	}

	for _, f := range filters {
		if f.res.Alias == baseAlias {
			base, err := exprToSQL(f.def.Expression, f.res.Alias)
			if err != nil {
				return nil, err
			}
			cond, err := renderFilterExpr(base, f.field)
			if err != nil {
				return nil, err
			}
			inner.Filters = append(inner.Filters, cond)
			continue
		}
		exists, err := buildFilterExists(reg, flow, f)
		if err != nil {
			return nil, err
		}
		inner.Filters = append(inner.Filters, exists)
	}

	outer := &sqlir.SelectQuery{
		From: sqlir.TableRef{Alias: preAggAlias, Subquery: inner},
	}
	for _, d := range baseDims {
		c := sqlir.SqlColumn{Table: preAggAlias, Name: d.requestName}
		outer.Select = append(outer.Select, sqlir.SelectItem{Expr: c, Alias: d.requestName})
		outer.GroupBy = append(outer.GroupBy, c)
	}
	for _, m := range meas {
		if !m.requested {
			continue
		}
		c := sqlir.SqlColumn{Table: preAggAlias, Name: m.requestName}
		outer.Select = append(outer.Select, sqlir.SelectItem{Expr: c, Alias: m.requestName})
	}

	joined := map[string]bool{}
	for _, d := range outerDims {
		if !joined[d.alias] {
			j := flow.Joins[d.alias]
			t, _ := reg.GetTable(j.SemanticTable)
			jn := buildJoin(j, t.Table)
			jn.On = []sqlir.SqlExpr{
				sqlir.SqlBinaryOp{Op: sqlir.OpEq,
					Left:  sqlir.SqlColumn{Table: preAggAlias, Name: joinKeyAlias[d.alias]},
					Right: sqlir.SqlColumn{Table: d.alias, Name: j.JoinKeys[0].Right}},
			}
			outer.Joins = append(outer.Joins, jn)
			joined[d.alias] = true
		}
		e, err := exprToSQL(d.def.Expression, d.alias)
		if err != nil {
			return nil, err
		}
		outer.Select = append(outer.Select, sqlir.SelectItem{Expr: e, Alias: d.requestName})
		outer.GroupBy = append(outer.GroupBy, e)
	}

	for _, o := range order {
		var e sqlir.SqlExpr
		if o.res.Alias == baseAlias || o.res.Kind == resolver.KindMeasure {
			e = sqlir.SqlColumn{Table: preAggAlias, Name: o.req.Column}
		} else {
			var err error
			t, _ := reg.GetTable(aliasMap[o.res.Alias])
			e, err = exprToSQL(t.Dimensions[o.res.Name].Expression, o.res.Alias)
			if err != nil {
				return nil, err
			}
		}
		dir := sqlir.Asc
		if o.req.Direction == registry.Desc {
			dir = sqlir.Desc
		}
		outer.OrderBy = append(outer.OrderBy, sqlir.OrderItem{Expr: e, Direction: dir})
	}

	if limit != nil {
		l := uint64(*limit)
		outer.Limit = &l
	}
	if offset != nil {
		o := uint64(*offset)
		outer.Offset = &o
	}

	return outer, nil
}

// buildFilterExists lowers a filter on a non-base alias into a correlated
// EXISTS subquery against that alias's own table, joined back to the base
// via the same join keys the flow declares, so the inner aggregation never
// has to physically join (and thus never risks fanning out) that alias.
func buildFilterExists(reg *registry.FlowRegistry, flow registry.SemanticFlow, f resolvedFilter) (sqlir.SqlExpr, error) {
	j := flow.Joins[f.res.Alias]
	t, _ := reg.GetTable(j.SemanticTable)

	sub := &sqlir.SelectQuery{
		From: sqlir.TableRef{Name: t.Table, Alias: j.Alias},
	}
	for _, k := range j.JoinKeys {
		sub.Filters = append(sub.Filters, sqlir.SqlBinaryOp{
			Op:    sqlir.OpEq,
			Left:  sqlir.SqlColumn{Table: j.ToTable, Name: k.Left},
			Right: sqlir.SqlColumn{Table: j.Alias, Name: k.Right},
		})
	}
	base, err := exprToSQL(f.def.Expression, f.res.Alias)
	if err != nil {
		return nil, err
	}
	cond, err := renderFilterExpr(base, f.field)
	if err != nil {
		return nil, err
	}
	sub.Filters = append(sub.Filters, cond)
	sub.Select = []sqlir.SelectItem{{Expr: sqlir.SqlLiteral{Value: true}}}
	return sqlir.SqlExists{Subquery: sub}, nil
}
