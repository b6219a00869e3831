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
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/resolver"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// resolvedDimension is a dimension requested by the caller, after
// resolution.
type resolvedDimension struct {
	requestName string
	alias       string
	name        string
	def         registry.Dimension
}

// resolvedMeasure is a measure in scope for the query: requested directly,
// or pulled in automatically because a requested derived measure's
// post_expr references it.
type resolvedMeasure struct {
	requestName string // empty for auto-included measures
	alias       string
	name        string
	def         registry.Measure
	requested   bool
}

// resolvedFilter is one request filter after field resolution.
type resolvedFilter struct {
	field registry.Filter
	res   resolver.Resolved
	def   registry.Dimension
}

// resolvedOrder is one request ORDER BY term after field resolution.
type resolvedOrder struct {
	req registry.OrderItem
	res resolver.Resolved
}

// Build compiles req against flow into a dialect-agnostic SelectQuery.
func Build(reg *registry.FlowRegistry, flow registry.SemanticFlow, req registry.QueryRequest) (*sqlir.SelectQuery, error) {
	aliasMap, err := resolver.BuildAliasMap(reg, flow)
	if err != nil {
		return nil, err
	}
	if err := validateSingleDataSource(reg, flow); err != nil {
		return nil, err
	}

	requiredAliases := map[string]bool{flow.BaseTable.Alias: true}

	dims := make([]resolvedDimension, 0, len(req.Dimensions))
	for _, name := range req.Dimensions {
		r, err := resolver.ResolveDimension(reg, aliasMap, flow.BaseTable.Alias, name)
		if err != nil {
			return nil, err
		}
		t, _ := reg.GetTable(aliasMap[r.Alias])
		dims = append(dims, resolvedDimension{requestName: name, alias: r.Alias, name: r.Name, def: t.Dimensions[r.Name]})
		requiredAliases[r.Alias] = true
	}

	seenMeasures := map[string]bool{}
	meas := make([]resolvedMeasure, 0, len(req.Measures))
	for _, name := range req.Measures {
		r, err := resolver.ResolveMeasure(reg, aliasMap, flow.BaseTable.Alias, name)
		if err != nil {
			return nil, err
		}
		t, _ := reg.GetTable(aliasMap[r.Alias])
		meas = append(meas, resolvedMeasure{requestName: name, alias: r.Alias, name: r.Name, def: t.Measures[r.Name], requested: true})
		seenMeasures[r.Alias+"."+r.Name] = true
		requiredAliases[r.Alias] = true
	}
	// Auto-include any measure referenced by a requested derived measure's
	// post_expr, so its base aggregate is computed even though it was not
	// itself requested in the projection.
	for i := 0; i < len(meas); i++ {
		m := meas[i]
		if m.def.PostExpr == nil {
			continue
		}
		for _, refName := range expr.CollectMeasureRefs(m.def.PostExpr) {
			r, err := resolver.ResolveMeasure(reg, aliasMap, flow.BaseTable.Alias, refName)
			if err != nil {
				return nil, err
			}
			key := r.Alias + "." + r.Name
			if seenMeasures[key] {
				continue
			}
			seenMeasures[key] = true
			t, _ := reg.GetTable(aliasMap[r.Alias])
			meas = append(meas, resolvedMeasure{alias: r.Alias, name: r.Name, def: t.Measures[r.Name], requested: false})
			requiredAliases[r.Alias] = true
		}
	}

	filters := make([]resolvedFilter, 0, len(req.Filters))
	for _, f := range req.Filters {
		r, err := resolver.ResolveField(reg, aliasMap, flow.BaseTable.Alias, f.Field)
		if err != nil {
			return nil, err
		}
		if r.Kind == resolver.KindMeasure {
			return nil, util.NewValidationErrorf("filters on measures are not supported (%q)", f.Field)
		}
		t, _ := reg.GetTable(aliasMap[r.Alias])
		filters = append(filters, resolvedFilter{field: f, res: r, def: t.Dimensions[r.Name]})
		requiredAliases[r.Alias] = true
	}

	order := make([]resolvedOrder, 0, len(req.Order))
	for _, o := range req.Order {
		r, err := resolver.ResolveField(reg, aliasMap, flow.BaseTable.Alias, o.Column)
		if err != nil {
			return nil, err
		}
		order = append(order, resolvedOrder{req: o, res: r})
		requiredAliases[r.Alias] = true
	}

	if len(dims) == 0 && len(meas) == 0 {
		return nil, util.NewValidationErrorf("query for flow %q selects no dimensions or measures", flow.Name)
	}

	needed, err := selectRequiredJoins(reg, flow, requiredAliases)
	if err != nil {
		return nil, err
	}
	usesPreAgg := len(meas) > 0 &&
		len(flow.Joins) > 0 &&
		allMeasuresOnBaseAlias(meas, flow.BaseTable.Alias) &&
		anyFilterOnNonBaseAlias(filters, flow.BaseTable.Alias) &&
		needsPreAggregation(reg, flow, needed)

	if usesPreAgg {
		return buildPreAggPlan(reg, flow, aliasMap, needed, dims, meas, filters, order, req.Limit, req.Offset)
	}
	return buildFlatPlan(reg, flow, needed, dims, meas, filters, order, req.Limit, req.Offset)
}

// needsPreAggregation reports whether any needed non-base join carries
// fan-out risk (OneToMany/ManyToMany/Unknown cardinality): such a join,
// combined with any requested measure, would silently inflate aggregate
// results if performed before aggregation.
func needsPreAggregation(reg *registry.FlowRegistry, flow registry.SemanticFlow, needed map[string]bool) bool {
	for alias := range needed {
		j := flow.Joins[alias]
		t, _ := reg.GetTable(j.SemanticTable)
		switch inferCardinality(j, t) {
		case registry.ManyToOne, registry.OneToOne:
			continue
		default:
			return true
		}
	}
	return false
}

// allMeasuresOnBaseAlias reports whether every measure in scope resolves to
// the base alias. A measure on a joined alias can't be computed inside the
// pre-agg plan's inner query, whose FROM is the base table alone.
func allMeasuresOnBaseAlias(meas []resolvedMeasure, baseAlias string) bool {
	for _, m := range meas {
		if m.alias != baseAlias {
			return false
		}
	}
	return true
}

// anyFilterOnNonBaseAlias reports whether at least one filter resolves to a
// joined alias rather than the base. Without one, there's no join-side
// condition to push down as a correlated EXISTS, so pre-agg buys nothing
// over the flat plan.
func anyFilterOnNonBaseAlias(filters []resolvedFilter, baseAlias string) bool {
	for _, f := range filters {
		if f.res.Alias != baseAlias {
			return true
		}
	}
	return false
}

// inferCardinality returns the join's explicit cardinality if set, else
// infers ManyToOne when its sole join key targets the joined table's
// primary key (the common dimension-join shape), else Unknown.
func inferCardinality(j registry.FlowJoin, t registry.SemanticTable) registry.Cardinality {
	if j.Cardinality != nil {
		return *j.Cardinality
	}
	if len(j.JoinKeys) == 1 && j.JoinKeys[0].Right == t.PrimaryKey {
		return registry.ManyToOne
	}
	return registry.Unknown
}

func validateSingleDataSource(reg *registry.FlowRegistry, flow registry.SemanticFlow) error {
	base, ok := reg.GetTable(flow.BaseTable.SemanticTable)
	if !ok {
		return util.NewValidationErrorf("flow %q: unknown semantic table %q", flow.Name, flow.BaseTable.SemanticTable)
	}
	ds := base.DataSource
	for _, j := range flow.Joins {
		t, ok := reg.GetTable(j.SemanticTable)
		if !ok {
			return util.NewValidationErrorf("flow %q: unknown semantic table %q", flow.Name, j.SemanticTable)
		}
		if t.DataSource != ds {
			return util.NewValidationErrorf("flow %q: all joined tables must share one data source (%q vs %q)", flow.Name, ds, t.DataSource)
		}
	}
	return nil
}
