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

// measureLookupFor builds the closure resolveMeasureWithPosts uses to find a
// measure's definition by name against the flow's full alias map (not just
// the joins selected for this query — a derived measure may reference a
// base measure on an alias the projection otherwise never touches).
func measureLookupFor(reg *registry.FlowRegistry, flow registry.SemanticFlow, aliasMap map[string]string) measureLookup {
	return func(name string) (registry.Measure, string, bool) {
		r, err := resolver.ResolveMeasure(reg, aliasMap, flow.BaseTable.Alias, name)
		if err != nil {
			return registry.Measure{}, "", false
		}
		t, ok := reg.GetTable(aliasMap[r.Alias])
		if !ok {
			return registry.Measure{}, "", false
		}
		m, ok := t.Measures[r.Name]
		if !ok {
			return registry.Measure{}, "", false
		}
		return m, r.Alias, true
	}
}

// buildFlatPlan builds a single-level SELECT ... GROUP BY over a physical
// join of every needed alias. Safe only when every needed join is
// ManyToOne/OneToOne relative to the base, so no measure can fan out.
func buildFlatPlan(
	reg *registry.FlowRegistry,
	flow registry.SemanticFlow,
	needed map[string]bool,
	dims []resolvedDimension,
	meas []resolvedMeasure,
	filters []resolvedFilter,
	order []resolvedOrder,
	limit, offset *uint32,
) (*sqlir.SelectQuery, error) {
	aliasMap, err := resolver.BuildAliasMap(reg, flow)
	if err != nil {
		return nil, err
	}
	lookup := measureLookupFor(reg, flow, aliasMap)
	baseExprs := map[string]sqlir.SqlExpr{}
	cache := map[string]sqlir.SqlExpr{}
	stack := map[string]bool{}

	q := &sqlir.SelectQuery{}
	baseTable, _ := reg.GetTable(flow.BaseTable.SemanticTable)
	q.From = sqlir.TableRef{Name: baseTable.Table, Alias: flow.BaseTable.Alias}

	for _, alias := range orderJoins(flow, needed) {
		j := flow.Joins[alias]
		t, ok := reg.GetTable(j.SemanticTable)
		if !ok {
			continue
		}
		q.Joins = append(q.Joins, buildJoin(j, t.Table))
	}

	for _, d := range dims {
		e, err := exprToSQL(d.def.Expression, d.alias)
		if err != nil {
			return nil, err
		}
		q.Select = append(q.Select, sqlir.SelectItem{Expr: e, Alias: d.requestName})
		q.GroupBy = append(q.GroupBy, e)
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
			q.Select = append(q.Select, sqlir.SelectItem{Expr: e, Alias: m.requestName})
		}
	}

	for _, f := range filters {
		base, err := exprToSQL(f.def.Expression, f.res.Alias)
		if err != nil {
			return nil, err
		}
		cond, err := renderFilterExpr(base, f.field)
		if err != nil {
			return nil, err
		}
		q.Filters = append(q.Filters, cond)
	}

	for _, o := range order {
		var e sqlir.SqlExpr
		if o.res.Kind == resolver.KindDimension {
			t, _ := reg.GetTable(aliasMap[o.res.Alias])
			e, err = exprToSQL(t.Dimensions[o.res.Name].Expression, o.res.Alias)
		} else {
			e = sqlir.SqlColumn{Name: o.req.Column}
		}
		if err != nil {
			return nil, err
		}
		dir := sqlir.Asc
		if o.req.Direction == registry.Desc {
			dir = sqlir.Desc
		}
		q.OrderBy = append(q.OrderBy, sqlir.OrderItem{Expr: e, Direction: dir})
	}

	if limit != nil {
		l := uint64(*limit)
		q.Limit = &l
	}
	if offset != nil {
		o := uint64(*offset)
		q.Offset = &o
	}
	return q, nil
}
