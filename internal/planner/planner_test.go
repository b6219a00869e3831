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

package planner_test

import (
	"strings"
	"testing"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/planner"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/sqlir"
)

func renderWith(t *testing.T, reg *registry.FlowRegistry, flowName string, req registry.QueryRequest) string {
	t.Helper()
	flow, ok := reg.GetFlow(flowName)
	if !ok {
		t.Fatalf("unknown flow %q", flowName)
	}
	q, err := planner.Build(reg, flow, req)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return sqlir.NewRenderer(dialect.DuckDB{}).RenderSelect(q)
}

// baseRegistry builds the S1/S2/S3 fixture: orders (base) LEFT JOIN customers
// on a PK (prunable, ManyToOne), LEFT JOIN order_items (OneToMany, fan-out).
func baseRegistry() *registry.FlowRegistry {
	r := registry.NewFlowRegistry()
	r.AddTable(registry.SemanticTable{
		Name: "orders", Table: "orders", DataSource: "main", PrimaryKey: "id",
		Dimensions: map[string]registry.Dimension{
			"country": {Expression: expr.Column{Name: "country"}},
		},
		Measures: map[string]registry.Measure{
			"order_total": {Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum},
			"sum_amt":     {Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum},
			"cnt_ord":     {Expr: expr.Column{Name: "id"}, Agg: expr.AggCount},
			"avg_amt": {
				Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum,
				PostExpr: expr.FuncCall{Func: expr.FuncSafeDivide, Args: []expr.Expr{
					expr.MeasureRef{Name: "sum_amt"}, expr.MeasureRef{Name: "cnt_ord"},
				}},
			},
		},
	})
	r.AddTable(registry.SemanticTable{
		Name: "customers", Table: "customers", DataSource: "main", PrimaryKey: "id",
		Dimensions: map[string]registry.Dimension{
			"segment": {Expression: expr.Column{Name: "segment"}},
		},
		Measures: map[string]registry.Measure{
			"customer_count": {Expr: expr.Column{Name: "id"}, Agg: expr.AggCount},
		},
	})
	r.AddTable(registry.SemanticTable{
		Name: "order_items", Table: "order_items", DataSource: "main", PrimaryKey: "id",
		Dimensions: map[string]registry.Dimension{
			"sku": {Expression: expr.Column{Name: "sku"}},
		},
	})
	r.AddFlow(registry.SemanticFlow{
		Name:      "sales",
		BaseTable: registry.FlowTableRef{SemanticTable: "orders", Alias: "o"},
		Joins: map[string]registry.FlowJoin{
			"c": {
				SemanticTable: "customers", Alias: "c", ToTable: "o", JoinType: registry.JoinLeft,
				JoinKeys: []registry.JoinKey{{Left: "customer_id", Right: "id"}},
			},
		},
	})
	// sales_items additionally carries a OneToMany join to order_items: its
	// single join key targets order_items' own order_id column, not its
	// primary key, so it is neither prunable nor provably fan-out-free, and
	// is always carried into the query's join set (see S2).
	r.AddFlow(registry.SemanticFlow{
		Name:      "sales_items",
		BaseTable: registry.FlowTableRef{SemanticTable: "orders", Alias: "o"},
		Joins: map[string]registry.FlowJoin{
			"c": {
				SemanticTable: "customers", Alias: "c", ToTable: "o", JoinType: registry.JoinLeft,
				JoinKeys: []registry.JoinKey{{Left: "customer_id", Right: "id"}},
			},
			"oi": {
				SemanticTable: "order_items", Alias: "oi", ToTable: "o", JoinType: registry.JoinLeft,
				JoinKeys: []registry.JoinKey{{Left: "id", Right: "order_id"}},
			},
		},
	})
	return r
}

// S1 — flat query with join pruning: neither join alias is referenced, so no
// JOIN appears at all.
func TestBuildS1FlatJoinPruning(t *testing.T) {
	reg := baseRegistry()
	got := renderWith(t, reg, "sales", registry.QueryRequest{
		Dimensions: []string{"country"},
		Measures:   []string{"order_total"},
	})
	want := `SELECT "o"."country" AS "country", SUM("o"."amount") AS "order_total" FROM "orders" "o" GROUP BY "o"."country"`
	if got != want {
		t.Errorf("RenderSelect() =\n  %s\nwant\n  %s", got, want)
	}
	if strings.Contains(got, "JOIN") {
		t.Errorf("expected no JOIN in a flat plan that never references a joined alias, got: %s", got)
	}
}

// S2 — a filter on the fan-out-capable order_items alias forces pre-agg: the
// inner query carries no JOIN, pushes the filter down as a correlated EXISTS,
// and the outer query selects from fact_preagg.
func TestBuildS2PreAggOnFanOutFilter(t *testing.T) {
	reg := baseRegistry()
	got := renderWith(t, reg, "sales_items", registry.QueryRequest{
		Dimensions: []string{"country"},
		Measures:   []string{"order_total"},
		Filters:    []registry.Filter{{Field: "sku", Op: registry.FilterEq, Value: "A"}},
	})
	want := `SELECT "fact_preagg"."country" AS "country", "fact_preagg"."order_total" AS "order_total" FROM (SELECT "o"."country" AS "country", SUM("o"."amount") AS "order_total" FROM "orders" "o" WHERE EXISTS (SELECT true FROM "order_items" "oi" WHERE ("o"."id" = "oi"."order_id") AND ("oi"."sku" = 'A')) GROUP BY "o"."country") "fact_preagg" GROUP BY "fact_preagg"."country"`
	if got != want {
		t.Errorf("RenderSelect() =\n  %s\nwant\n  %s", got, want)
	}

	innerEnd := strings.Index(got, `) "fact_preagg"`)
	if innerEnd < 0 {
		t.Fatalf("could not locate end of inner sub-select in: %s", got)
	}
	inner := got[:innerEnd]
	if strings.Contains(inner, " JOIN ") {
		t.Errorf("inner pre-agg query must contain no JOIN, got: %s", inner)
	}
}

// A fan-out-capable alias referenced only as a dimension, with no filter on
// any joined alias, must not trigger pre-agg: condition 3 (a filter on a
// non-base alias) fails, so the flat plan is correct and safe here because
// the join key (o.id = oi.order_id) is carried per base row, not aggregated.
func TestBuildFlatForFanOutDimensionWithoutFilter(t *testing.T) {
	reg := baseRegistry()
	got := renderWith(t, reg, "sales_items", registry.QueryRequest{
		Dimensions: []string{"sku"},
		Measures:   []string{"order_total"},
	})
	if strings.Contains(got, "fact_preagg") {
		t.Errorf("no join-side filter is present, expected the flat plan, got: %s", got)
	}
	if !strings.Contains(got, "LEFT JOIN") {
		t.Errorf("expected a flat LEFT JOIN to order_items, got: %s", got)
	}
}

// A measure that lives on a non-base alias must not trigger pre-agg even
// when some other join in the flow carries fan-out risk and a filter
// targets a non-base alias: condition 2 (all measures on the base alias)
// fails, and the pre-agg inner query has no FROM entry for a non-base alias
// to compute such a measure against.
func TestBuildFlatForNonBaseMeasureDespiteFanOutFilter(t *testing.T) {
	reg := baseRegistry()
	got := renderWith(t, reg, "sales_items", registry.QueryRequest{
		Measures: []string{"customer_count"},
		Filters:  []registry.Filter{{Field: "sku", Op: registry.FilterEq, Value: "A"}},
	})
	if strings.Contains(got, "fact_preagg") {
		t.Errorf("measure is not on the base alias, expected the flat plan, got: %s", got)
	}
	if !strings.Contains(got, "LEFT JOIN") {
		t.Errorf("expected flat LEFT JOINs to customers and order_items, got: %s", got)
	}
}

// Cardinality hint wins: an explicit many_to_one bypasses pre-agg even for a
// join whose shape (non-PK key) would otherwise infer Unknown.
func TestBuildCardinalityHintBypassesPreAgg(t *testing.T) {
	reg := registry.NewFlowRegistry()
	reg.AddTable(registry.SemanticTable{
		Name: "orders", Table: "orders", DataSource: "main", PrimaryKey: "id",
		Measures: map[string]registry.Measure{
			"order_total": {Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum},
		},
	})
	reg.AddTable(registry.SemanticTable{
		Name: "shipping_plans", Table: "shipping_plans", DataSource: "main", PrimaryKey: "id",
		Dimensions: map[string]registry.Dimension{
			"carrier": {Expression: expr.Column{Name: "carrier"}},
		},
	})
	mto := registry.ManyToOne
	reg.AddFlow(registry.SemanticFlow{
		Name:      "shipping",
		BaseTable: registry.FlowTableRef{SemanticTable: "orders", Alias: "o"},
		Joins: map[string]registry.FlowJoin{
			"s": {
				SemanticTable: "shipping_plans", Alias: "s", ToTable: "o", JoinType: registry.JoinLeft,
				JoinKeys:    []registry.JoinKey{{Left: "shipping_plan_code", Right: "code"}},
				Cardinality: &mto,
			},
		},
	})
	got := renderWith(t, reg, "shipping", registry.QueryRequest{
		Dimensions: []string{"s.carrier"},
		Measures:   []string{"order_total"},
		Filters:    []registry.Filter{{Field: "s.carrier", Op: registry.FilterEq, Value: "UPS"}},
	})
	if strings.Contains(got, "fact_preagg") {
		t.Errorf("explicit many_to_one cardinality should bypass pre-agg, got: %s", got)
	}
	if !strings.Contains(got, "LEFT JOIN") {
		t.Errorf("expected a flat LEFT JOIN to shipping_plans, got: %s", got)
	}
}

// S3 — a derived measure pulls in its base measures transitively even when
// only the derived name is requested.
func TestBuildS3DerivedMeasureExpandsTransitively(t *testing.T) {
	reg := baseRegistry()
	got := renderWith(t, reg, "sales", registry.QueryRequest{
		Measures: []string{"avg_amt"},
	})
	want := `SELECT SUM("o"."amount") / NULLIF(COUNT("o"."id"), 0) AS "avg_amt" FROM "orders" "o"`
	if got != want {
		t.Errorf("RenderSelect() =\n  %s\nwant\n  %s", got, want)
	}
}

func TestBuildEmptySelectRejected(t *testing.T) {
	reg := baseRegistry()
	flow, _ := reg.GetFlow("sales")
	_, err := planner.Build(reg, flow, registry.QueryRequest{})
	if err == nil {
		t.Fatal("expected an error for a request with no dimensions or measures")
	}
}

func TestBuildMeasureFilterRejected(t *testing.T) {
	reg := baseRegistry()
	flow, _ := reg.GetFlow("sales")
	_, err := planner.Build(reg, flow, registry.QueryRequest{
		Measures: []string{"order_total"},
		Filters:  []registry.Filter{{Field: "order_total", Op: registry.FilterGt, Value: 0}},
	})
	if err == nil {
		t.Fatal("expected an error filtering on a measure")
	}
}

func TestBuildDerivedCycleRejected(t *testing.T) {
	reg := registry.NewFlowRegistry()
	reg.AddTable(registry.SemanticTable{
		Name: "orders", Table: "orders", DataSource: "main", PrimaryKey: "id",
		Measures: map[string]registry.Measure{
			"a": {
				Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum,
				PostExpr: expr.MeasureRef{Name: "b"},
			},
			"b": {
				Expr: expr.Column{Name: "amount"}, Agg: expr.AggSum,
				PostExpr: expr.MeasureRef{Name: "a"},
			},
		},
	})
	reg.AddFlow(registry.SemanticFlow{
		Name:      "cyclic",
		BaseTable: registry.FlowTableRef{SemanticTable: "orders", Alias: "o"},
	})
	flow, _ := reg.GetFlow("cyclic")
	_, err := planner.Build(reg, flow, registry.QueryRequest{Measures: []string{"a"}})
	if err == nil {
		t.Fatal("expected an error for a measure cycle between two derived measures")
	}
}

func TestBuildLimitOffsetThreadedForFlatPlan(t *testing.T) {
	reg := baseRegistry()
	limit, offset := uint32(10), uint32(5)
	got := renderWith(t, reg, "sales", registry.QueryRequest{
		Dimensions: []string{"country"},
		Measures:   []string{"order_total"},
		Limit:      &limit,
		Offset:     &offset,
	})
	if !strings.HasSuffix(got, "LIMIT 10 OFFSET 5") {
		t.Errorf("expected flat plan to carry LIMIT/OFFSET, got: %s", got)
	}
}

func TestBuildLimitOffsetThreadedForPreAggPlan(t *testing.T) {
	reg := baseRegistry()
	limit, offset := uint32(10), uint32(5)
	got := renderWith(t, reg, "sales_items", registry.QueryRequest{
		Dimensions: []string{"country"},
		Measures:   []string{"order_total"},
		Filters:    []registry.Filter{{Field: "sku", Op: registry.FilterEq, Value: "A"}},
		Limit:      &limit,
		Offset:     &offset,
	})
	if !strings.HasSuffix(got, "LIMIT 10 OFFSET 5") {
		t.Errorf("expected pre-agg plan's outer query to carry LIMIT/OFFSET, got: %s", got)
	}
	if strings.Count(got, "LIMIT") != 1 {
		t.Errorf("expected exactly one LIMIT clause (on the outer query only), got: %s", got)
	}
}
