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

package dialect

import (
	"fmt"
	"strings"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
)

// DuckDB is engine A: double-quote identifiers, "?" placeholders, supports
// FILTER(WHERE ...).
type DuckDB struct{}

var _ Dialect = DuckDB{}

func (DuckDB) Name() string { return "duckdb" }

func (DuckDB) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (DuckDB) Placeholder(idx int) string { return "?" }

func (DuckDB) SupportsFilteredAggregates() bool { return true }

func (d DuckDB) RenderLiteral(value any) string { return RenderLiteralDefault(d, value) }

func (d DuckDB) RenderAggregation(agg expr.Aggregation, rendered string, sep *string) string {
	switch agg {
	case expr.AggFirst:
		return fmt.Sprintf("FIRST(%s)", rendered)
	case expr.AggLast:
		return fmt.Sprintf("LAST(%s)", rendered)
	case expr.AggApproxCountDistinct:
		return fmt.Sprintf("APPROX_COUNT_DISTINCT(%s)", rendered)
	default:
		return RenderAggregationDefault(d, agg, rendered, sep)
	}
}

func (DuckDB) RenderCast(tryCast bool, arg, dataType string) string {
	if tryCast {
		return fmt.Sprintf("TRY_CAST(%s AS %s)", arg, dataType)
	}
	return fmt.Sprintf("CAST(%s AS %s)", arg, dataType)
}

func (d DuckDB) RenderFunction(c expr.FuncCall, args []string) string {
	fn := c.Func
	switch fn {
	case expr.FuncDateTrunc:
		if len(args) == 1 {
			return fmt.Sprintf("date_trunc('%s', %s)", GrainToStr(c.Grain), args[0])
		}
		return "NULL"
	case expr.FuncDatePart:
		if len(args) == 1 {
			return fmt.Sprintf("date_part('%s', %s)", c.Field, args[0])
		}
		return "NULL"
	case expr.FuncNow:
		return "now()"
	case expr.FuncCurrentDate:
		return "current_date"
	case expr.FuncCurrentTimestamp:
		return "current_timestamp"
	case expr.FuncDateAdd:
		// duckdb: date + (amount * INTERVAL '1 unit')
		if len(args) == 2 {
			return fmt.Sprintf("(%s + (%s * INTERVAL '1 %s'))", args[1], args[0], GrainToStr(c.Grain))
		}
		return "NULL"
	case expr.FuncDateDiff:
		if len(args) == 2 {
			return fmt.Sprintf("date_diff('%s', %s, %s)", GrainToStr(c.Grain), args[0], args[1])
		}
		return "NULL"
	case expr.FuncExtract:
		if len(args) == 1 {
			return fmt.Sprintf("extract(%s FROM %s)", c.Field, args[0])
		}
		return "NULL"
	case expr.FuncLower:
		return call("lower", args)
	case expr.FuncUpper:
		return call("upper", args)
	case expr.FuncConcat:
		return call("concat", args)
	case expr.FuncConcatWs:
		return fmt.Sprintf("concat_ws('%s', %s)", strings.ReplaceAll(c.Sep, "'", "''"), strings.Join(args, ", "))
	case expr.FuncSubstring:
		switch len(args) {
		case 3:
			return fmt.Sprintf("substring(%s FROM %s FOR %s)", args[0], args[1], args[2])
		case 2:
			return fmt.Sprintf("substring(%s FROM %s)", args[0], args[1])
		default:
			return "NULL"
		}
	case expr.FuncLength:
		return call("length", args)
	case expr.FuncTrim:
		return call("trim", args)
	case expr.FuncLtrim:
		return call("ltrim", args)
	case expr.FuncRtrim:
		return call("rtrim", args)
	case expr.FuncLeft:
		return call("left", args)
	case expr.FuncRight:
		return call("right", args)
	case expr.FuncReplace:
		return call("replace", args)
	case expr.FuncPosition:
		if len(args) == 2 {
			return fmt.Sprintf("position(%s IN %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncReverse:
		return call("reverse", args)
	case expr.FuncRepeat:
		return call("repeat", args)
	case expr.FuncStartsWith:
		return call("starts_with", args)
	case expr.FuncEndsWith:
		if len(args) == 2 {
			return fmt.Sprintf("ends_with(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncContains:
		if len(args) == 2 {
			return fmt.Sprintf("contains(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncCoalesce:
		return call("coalesce", args)
	case expr.FuncIfNull:
		if len(args) == 2 {
			return fmt.Sprintf("coalesce(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncNullIf:
		if len(args) == 2 {
			return fmt.Sprintf("nullif(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncGreatest:
		return call("greatest", args)
	case expr.FuncLeast:
		return call("least", args)
	case expr.FuncSafeDivide:
		if len(args) == 2 {
			return fmt.Sprintf("%s / NULLIF(%s, 0)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncAbs:
		return call("abs", args)
	case expr.FuncCeil:
		return call("ceil", args)
	case expr.FuncFloor:
		return call("floor", args)
	case expr.FuncRound:
		return call("round", args)
	case expr.FuncPower:
		return call("power", args)
	case expr.FuncSqrt:
		return call("sqrt", args)
	case expr.FuncLn:
		return call("ln", args)
	case expr.FuncLog10:
		return call("log", args)
	case expr.FuncLog:
		if len(args) == 2 {
			return fmt.Sprintf("log(%s, %s)", args[0], args[1])
		}
		if len(args) == 1 {
			return fmt.Sprintf("ln(%s)", args[0])
		}
		return "NULL"
	case expr.FuncExp:
		return call("exp", args)
	case expr.FuncSign:
		return call("sign", args)
	default:
		return "NULL"
	}
}

func call(name string, args []string) string {
	return fmt.Sprintf("%s(%s)", name, strings.Join(args, ", "))
}
