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

package dialect_test

import (
	"testing"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/dialect"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
)

func TestPlaceholder(t *testing.T) {
	tcs := []struct {
		desc string
		d    dialect.Dialect
		idx  int
		want string
	}{
		{desc: "duckdb uses bare ?", d: dialect.DuckDB{}, idx: 0, want: "?"},
		{desc: "duckdb placeholder ignores index", d: dialect.DuckDB{}, idx: 4, want: "?"},
		{desc: "postgres is 1-indexed", d: dialect.Postgres{}, idx: 0, want: "$1"},
		{desc: "postgres second param", d: dialect.Postgres{}, idx: 1, want: "$2"},
		{desc: "bigquery is 0-indexed", d: dialect.BigQuery{}, idx: 0, want: "@p0"},
		{desc: "bigquery third param", d: dialect.BigQuery{}, idx: 2, want: "@p2"},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			if got := tc.d.Placeholder(tc.idx); got != tc.want {
				t.Errorf("Placeholder(%d) = %q, want %q", tc.idx, got, tc.want)
			}
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	tcs := []struct {
		desc string
		d    dialect.Dialect
		name string
		want string
	}{
		{desc: "duckdb double-quotes", d: dialect.DuckDB{}, name: "order", want: `"order"`},
		{desc: "postgres double-quotes", d: dialect.Postgres{}, name: "order", want: `"order"`},
		{desc: "bigquery backticks", d: dialect.BigQuery{}, name: "order", want: "`order`"},
		{desc: "duckdb escapes embedded quote", d: dialect.DuckDB{}, name: `we"ird`, want: `"we""ird"`},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			if got := tc.d.QuoteIdent(tc.name); got != tc.want {
				t.Errorf("QuoteIdent(%q) = %q, want %q", tc.name, got, tc.want)
			}
		})
	}
}

func TestSupportsFilteredAggregates(t *testing.T) {
	tcs := []struct {
		desc string
		d    dialect.Dialect
		want bool
	}{
		{desc: "duckdb supports FILTER", d: dialect.DuckDB{}, want: true},
		{desc: "postgres supports FILTER", d: dialect.Postgres{}, want: true},
		{desc: "bigquery does not support FILTER", d: dialect.BigQuery{}, want: false},
	}
	for _, tc := range tcs {
		t.Run(tc.desc, func(t *testing.T) {
			if got := tc.d.SupportsFilteredAggregates(); got != tc.want {
				t.Errorf("SupportsFilteredAggregates() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestRenderFunctionPosition(t *testing.T) {
	call := expr.FuncCall{Func: expr.FuncPosition, Args: []expr.Expr{expr.Column{Name: "needle"}, expr.Column{Name: "haystack"}}}
	args := []string{"needle", "haystack"}

	if got, want := (dialect.DuckDB{}).RenderFunction(call, args), "position(needle IN haystack)"; got != want {
		t.Errorf("duckdb position(needle, haystack) = %q, want %q", got, want)
	}
	if got, want := (dialect.BigQuery{}).RenderFunction(call, args), "STRPOS(haystack, needle)"; got != want {
		t.Errorf("bigquery position reverses arguments: got %q, want %q", got, want)
	}
}

func TestRenderCast(t *testing.T) {
	if got, want := (dialect.DuckDB{}).RenderCast(true, "x", "INT"), "TRY_CAST(x AS INT)"; got != want {
		t.Errorf("duckdb try_cast = %q, want %q", got, want)
	}
	if got, want := (dialect.BigQuery{}).RenderCast(true, "x", "INT64"), "SAFE_CAST(x AS INT64)"; got != want {
		t.Errorf("bigquery try_cast = %q, want %q", got, want)
	}
}

func TestRenderAggregationApproxCountDistinct(t *testing.T) {
	// Postgres has no native approx-count-distinct and falls back to exact.
	got := dialect.Postgres{}.RenderAggregation(expr.AggApproxCountDistinct, "user_id", nil)
	want := "COUNT(DISTINCT user_id)"
	if got != want {
		t.Errorf("postgres approx_count_distinct fallback = %q, want %q", got, want)
	}
}

func TestRenderLiteralEscapesQuotes(t *testing.T) {
	got := dialect.DuckDB{}.RenderLiteral("O'Brien")
	want := "'O''Brien'"
	if got != want {
		t.Errorf("RenderLiteral(%q) = %q, want %q", "O'Brien", got, want)
	}
}
