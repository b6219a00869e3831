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
	"sort"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// safeToPrune reports whether a LEFT JOIN keyed on the joined table's own
// primary key can be dropped when nothing in the request needs its alias:
// such a join can neither filter rows out nor duplicate them.
func safeToPrune(j registry.FlowJoin, t registry.SemanticTable) bool {
	return j.JoinType == registry.JoinLeft && len(j.JoinKeys) == 1 && j.JoinKeys[0].Right == t.PrimaryKey
}

// selectRequiredJoins walks backward from every alias the request actually
// needs (requiredAliases, typically seeded with the base alias) toward the
// base table, plus any join that is not safe to prune, and returns the full
// set of join aliases that must appear in the FROM clause.
func selectRequiredJoins(
	reg *registry.FlowRegistry,
	flow registry.SemanticFlow,
	requiredAliases map[string]bool,
) (map[string]bool, error) {
	needed := map[string]bool{}
	var stack []string
	for alias := range requiredAliases {
		if alias != flow.BaseTable.Alias {
			stack = append(stack, alias)
		}
	}
	for alias, j := range flow.Joins {
		t, ok := reg.GetTable(j.SemanticTable)
		if !ok {
			return nil, util.NewValidationErrorf("join %q: unknown semantic table %q", alias, j.SemanticTable)
		}
		if !safeToPrune(j, t) {
			stack = append(stack, alias)
		}
	}

	for len(stack) > 0 {
		alias := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if needed[alias] || alias == flow.BaseTable.Alias {
			continue
		}
		needed[alias] = true
		j, ok := flow.Joins[alias]
		if !ok {
			return nil, util.NewValidationErrorf("unknown join alias %q", alias)
		}
		if j.ToTable != flow.BaseTable.Alias && !needed[j.ToTable] {
			stack = append(stack, j.ToTable)
		}
	}
	return needed, nil
}

// buildJoin lowers one FlowJoin into a sqlir.Join, qualifying its ON
// conditions by alias.
func buildJoin(j registry.FlowJoin, tableName string) sqlir.Join {
	on := make([]sqlir.SqlExpr, len(j.JoinKeys))
	for i, k := range j.JoinKeys {
		on[i] = sqlir.SqlBinaryOp{
			Op:    sqlir.OpEq,
			Left:  sqlir.SqlColumn{Table: j.ToTable, Name: k.Left},
			Right: sqlir.SqlColumn{Table: j.Alias, Name: k.Right},
		}
	}
	var jt sqlir.JoinType
	switch j.JoinType {
	case registry.JoinInner:
		jt = sqlir.JoinInner
	case registry.JoinLeft:
		jt = sqlir.JoinLeft
	case registry.JoinRight:
		jt = sqlir.JoinRight
	case registry.JoinFull:
		jt = sqlir.JoinFull
	}
	return sqlir.Join{
		Type:  jt,
		Table: sqlir.TableRef{Name: tableName, Alias: j.Alias},
		On:    on,
	}
}

// orderJoins emits needed joins in DAG order (a join's to_table is emitted
// before the join itself), so every ON clause only references
// already-available aliases.
func orderJoins(flow registry.SemanticFlow, needed map[string]bool) []string {
	visited := map[string]bool{}
	var order []string
	var visit func(alias string)
	visit = func(alias string) {
		if visited[alias] || alias == flow.BaseTable.Alias {
			return
		}
		visited[alias] = true
		j := flow.Joins[alias]
		if j.ToTable != flow.BaseTable.Alias {
			visit(j.ToTable)
		}
		order = append(order, alias)
	}
	aliases := make([]string, 0, len(needed))
	for alias := range needed {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		visit(alias)
	}
	return order
}
