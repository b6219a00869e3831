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
	"fmt"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// validateNoMeasureRefs rejects a filter expression that references another
// measure: filters run against row-level data, before any aggregation.
func validateNoMeasureRefs(e expr.Expr) error {
	for _, name := range expr.CollectMeasureRefs(e) {
		return util.NewValidationErrorf("measure reference %q is not allowed in a filter expression", name)
	}
	return nil
}

// buildBaseMeasureExpr lowers one non-derived measure to its aggregate
// SqlExpr. A measure with a Filter always becomes a SqlFilteredAggregate —
// the FILTER-vs-CASE lowering decision is made later, by the renderer,
// based on the target dialect.
func buildBaseMeasureExpr(m registry.Measure, alias string) (sqlir.SqlExpr, error) {
	base, err := exprToSQL(m.Expr, alias)
	if err != nil {
		return nil, err
	}
	if m.Filter != nil {
		if err := validateNoMeasureRefs(m.Filter); err != nil {
			return nil, err
		}
		filterExpr, err := exprToSQL(m.Filter, alias)
		if err != nil {
			return nil, err
		}
		return sqlir.SqlFilteredAggregate{Agg: m.Agg, Expr: base, Filter: filterExpr, StringAggSep: m.StringAgg}, nil
	}
	return sqlir.SqlAggregate{Agg: m.Agg, Expr: base, StringAggSep: m.StringAgg}, nil
}

// measureLookup resolves a bare or qualified measure name to its definition
// and the alias it was found on.
type measureLookup func(name string) (registry.Measure, string, bool)

// resolveMeasureWithPosts resolves name to a SqlExpr, memoizing results in
// cache and detecting cycles via stack. A derived measure (post_expr) may
// only reference base measures — referencing another derived measure is
// rejected as non-transitive.
func resolveMeasureWithPosts(
	name string,
	lookup measureLookup,
	baseExprs map[string]sqlir.SqlExpr,
	cache map[string]sqlir.SqlExpr,
	stack map[string]bool,
) (sqlir.SqlExpr, error) {
	if cached, ok := cache[name]; ok {
		return cached, nil
	}
	if base, ok := baseExprs[name]; ok {
		cache[name] = base
		return base, nil
	}
	if stack[name] {
		return nil, util.NewValidationErrorf("measure %q participates in a dependency cycle", name)
	}

	m, alias, ok := lookup(name)
	if !ok {
		return nil, util.NewValidationErrorf("unknown measure %q", name)
	}
	if m.PostExpr == nil {
		base, err := buildBaseMeasureExpr(m, alias)
		if err != nil {
			return nil, err
		}
		baseExprs[name] = base
		cache[name] = base
		return base, nil
	}

	stack[name] = true
	defer delete(stack, name)

	resolved, err := renderPostExpr(m.PostExpr, func(refName string) (sqlir.SqlExpr, error) {
		refM, _, ok := lookup(refName)
		if !ok {
			return nil, util.NewValidationErrorf("unknown measure %q referenced by %q", refName, name)
		}
		if refM.PostExpr != nil {
			return nil, util.NewValidationErrorf(
				"derived measure %q cannot reference another derived measure %q", name, refName)
		}
		return resolveMeasureWithPosts(refName, lookup, baseExprs, cache, stack)
	})
	if err != nil {
		return nil, fmt.Errorf("resolving derived measure %q: %w", name, err)
	}
	cache[name] = resolved
	return resolved, nil
}
