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

// Postgres is engine B: double-quote identifiers, "$N" placeholders, supports
// FILTER(WHERE ...), uses PERCENTILE_CONT for median, no native
// approx-count-distinct (falls back to exact COUNT(DISTINCT)).
type Postgres struct{}

var _ Dialect = Postgres{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (Postgres) Placeholder(idx int) string { return fmt.Sprintf("$%d", idx+1) }

func (Postgres) SupportsFilteredAggregates() bool { return true }

func (d Postgres) RenderLiteral(value any) string { return RenderLiteralDefault(d, value) }

func (d Postgres) RenderAggregation(agg expr.Aggregation, rendered string, sep *string) string {
	switch agg {
	case expr.AggFirst:
		return fmt.Sprintf("(array_agg(%s))[1]", rendered)
	case expr.AggLast:
		return fmt.Sprintf("(array_agg(%s))[array_length(array_agg(%s), 1)]", rendered, rendered)
	case expr.AggApproxCountDistinct:
		return fmt.Sprintf("COUNT(DISTINCT %s)", rendered)
	default:
		return RenderAggregationDefault(d, agg, rendered, sep)
	}
}

func (Postgres) RenderCast(tryCast bool, arg, dataType string) string {
	// Postgres has no TRY_CAST; fall back to a plain CAST (errors on bad input).
	return fmt.Sprintf("CAST(%s AS %s)", arg, dataType)
}

func pgIntervalUnit(g expr.TimeGrain) string {
	switch g {
	case expr.GrainQuarter:
		return "month" // caller multiplies by 3
	default:
		return string(g)
	}
}

func (d Postgres) RenderFunction(c expr.FuncCall, args []string) string {
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
		if len(args) == 2 {
			unit := pgIntervalUnit(c.Grain)
			amount := args[0]
			if c.Grain == expr.GrainQuarter {
				amount = fmt.Sprintf("(%s * 3)", amount)
			}
			return fmt.Sprintf("%s + (%s * INTERVAL '1 %s')", args[1], amount, unit)
		}
		return "NULL"
	case expr.FuncDateDiff:
		if len(args) == 2 {
			return fmt.Sprintf("date_part('%s', %s - %s)", GrainToStr(c.Grain), args[1], args[0])
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
		if len(args) == 2 {
			return fmt.Sprintf("left(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncRight:
		if len(args) == 2 {
			return fmt.Sprintf("right(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncReplace:
		if len(args) == 3 {
			return fmt.Sprintf("replace(%s, %s, %s)", args[0], args[1], args[2])
		}
		return "NULL"
	case expr.FuncPosition:
		if len(args) == 2 {
			return fmt.Sprintf("position(%s IN %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncReverse:
		return call("reverse", args)
	case expr.FuncRepeat:
		if len(args) == 2 {
			return fmt.Sprintf("repeat(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncStartsWith:
		if len(args) == 2 {
			return fmt.Sprintf("starts_with(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncEndsWith:
		// postgres has no ends_with(): compare right(expr, length(suffix)) = suffix
		if len(args) == 2 {
			return fmt.Sprintf("right(%s, length(%s)) = %s", args[0], args[1], args[1])
		}
		return "NULL"
	case expr.FuncContains:
		if len(args) == 2 {
			return fmt.Sprintf("position(%s IN %s) > 0", args[1], args[0])
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
		switch len(args) {
		case 2:
			return fmt.Sprintf("round(%s, %s)", args[0], args[1])
		case 1:
			return fmt.Sprintf("round(%s)", args[0])
		default:
			return "NULL"
		}
	case expr.FuncPower:
		if len(args) == 2 {
			return fmt.Sprintf("power(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncSqrt:
		return call("sqrt", args)
	case expr.FuncLn:
		return call("ln", args)
	case expr.FuncLog10:
		// postgres log() is base-10 by default
		return call("log", args)
	case expr.FuncLog:
		switch len(args) {
		case 2:
			return fmt.Sprintf("log(%s, %s)", args[0], args[1])
		case 1:
			return fmt.Sprintf("ln(%s)", args[0])
		default:
			return "NULL"
		}
	case expr.FuncExp:
		return call("exp", args)
	case expr.FuncSign:
		return call("sign", args)
	default:
		return "NULL"
	}
}
