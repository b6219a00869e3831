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

// Package dialect declares the engine-specific spelling of SQL fragments.
// Each dialect is a small, closed capability record; the renderer in
// internal/sqlir is the only caller.
package dialect

import (
	"fmt"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
)

// Dialect is a capability record: how to spell identifiers, placeholders,
// functions, aggregations, and literals for one SQL engine, plus whether it
// supports FILTER(WHERE ...) on aggregates.
type Dialect interface {
	Name() string
	QuoteIdent(name string) string
	Placeholder(idx int) string
	SupportsFilteredAggregates() bool
	RenderFunction(call expr.FuncCall, args []string) string
	RenderCast(tryCast bool, arg, dataType string) string
	RenderAggregation(agg expr.Aggregation, rendered string, stringAggSep *string) string
	RenderLiteral(value any) string
}

// RenderLiteralDefault is the shared literal-rendering rule every dialect
// inherits unchanged: null -> NULL, bool -> true/false, numbers as-is,
// strings single-quoted with '\'' doubled, arrays comma-joined recursively,
// objects JSON-stringified and quoted.
func RenderLiteralDefault(d Dialect, value any) string {
	switch v := value.(type) {
	case nil:
		return "NULL"
	case bool:
		if v {
			return "true"
		}
		return "false"
	case string:
		return quoteString(v)
	case int:
		return fmt.Sprintf("%d", v)
	case int64:
		return fmt.Sprintf("%d", v)
	case float64:
		return formatFloat(v)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = d.RenderLiteral(item)
		}
		return join(parts, ", ")
	default:
		return quoteString(fmt.Sprintf("%v", v))
	}
}

func quoteString(s string) string {
	escaped := ""
	for _, r := range s {
		if r == '\'' {
			escaped += "''"
		} else {
			escaped += string(r)
		}
	}
	return "'" + escaped + "'"
}

func formatFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func join(parts []string, sep string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += sep
		}
		out += p
	}
	return out
}

// GrainToStr renders a TimeGrain in lowercase (duckdb/postgres spelling).
func GrainToStr(g expr.TimeGrain) string {
	return string(g)
}

// RenderAggregationDefault covers every Aggregation tag with standard-SQL
// spellings; dialects override the ones that diverge (first/last, median,
// approx-count-distinct, string-agg separator escaping).
func RenderAggregationDefault(d Dialect, agg expr.Aggregation, rendered string, stringAggSep *string) string {
	switch agg {
	case expr.AggSum:
		return fmt.Sprintf("SUM(%s)", rendered)
	case expr.AggCount:
		return fmt.Sprintf("COUNT(%s)", rendered)
	case expr.AggCountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", rendered)
	case expr.AggMin:
		return fmt.Sprintf("MIN(%s)", rendered)
	case expr.AggMax:
		return fmt.Sprintf("MAX(%s)", rendered)
	case expr.AggAvg:
		return fmt.Sprintf("AVG(%s)", rendered)
	case expr.AggMedian:
		return fmt.Sprintf("PERCENTILE_CONT(0.5) WITHIN GROUP (ORDER BY %s)", rendered)
	case expr.AggStddev:
		return fmt.Sprintf("STDDEV_POP(%s)", rendered)
	case expr.AggStddevSamp:
		return fmt.Sprintf("STDDEV_SAMP(%s)", rendered)
	case expr.AggVariance:
		return fmt.Sprintf("VAR_POP(%s)", rendered)
	case expr.AggVarianceSamp:
		return fmt.Sprintf("VAR_SAMP(%s)", rendered)
	case expr.AggStringAgg:
		sep := ","
		if stringAggSep != nil {
			sep = *stringAggSep
		}
		return fmt.Sprintf("STRING_AGG(%s, %s)", rendered, quoteString(sep))
	case expr.AggArrayAgg:
		return fmt.Sprintf("ARRAY_AGG(%s)", rendered)
	case expr.AggApproxCountDistinct:
		return fmt.Sprintf("APPROX_COUNT_DISTINCT(%s)", rendered)
	case expr.AggFirst:
		return fmt.Sprintf("FIRST(%s)", rendered)
	case expr.AggLast:
		return fmt.Sprintf("LAST(%s)", rendered)
	default:
		return fmt.Sprintf("%s(%s)", agg, rendered)
	}
}
