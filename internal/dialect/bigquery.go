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

// BigQuery is engine C: backtick identifiers, "@pN" placeholders (0-indexed),
// does not support FILTER(WHERE ...), prefers SAFE_* builtins.
type BigQuery struct{}

var _ Dialect = BigQuery{}

func (BigQuery) Name() string { return "bigquery" }

func (BigQuery) QuoteIdent(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

func (BigQuery) Placeholder(idx int) string { return fmt.Sprintf("@p%d", idx) }

func (BigQuery) SupportsFilteredAggregates() bool { return false }

func (d BigQuery) RenderLiteral(value any) string { return RenderLiteralDefault(d, value) }

func (d BigQuery) RenderAggregation(agg expr.Aggregation, rendered string, sep *string) string {
	switch agg {
	case expr.AggFirst:
		return fmt.Sprintf("ARRAY_AGG(%s)[OFFSET(0)]", rendered)
	case expr.AggLast:
		return fmt.Sprintf("ARRAY_AGG(%s)[ORDINAL(ARRAY_LENGTH(ARRAY_AGG(%s)))]", rendered, rendered)
	case expr.AggApproxCountDistinct:
		return fmt.Sprintf("APPROX_COUNT_DISTINCT(%s)", rendered)
	case expr.AggMedian:
		return fmt.Sprintf("APPROX_QUANTILES(%s, 100)[OFFSET(50)]", rendered)
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
	case expr.AggStddev:
		return fmt.Sprintf("STDDEV_POP(%s)", rendered)
	case expr.AggStddevSamp:
		return fmt.Sprintf("STDDEV_SAMP(%s)", rendered)
	case expr.AggVariance:
		return fmt.Sprintf("VAR_POP(%s)", rendered)
	case expr.AggVarianceSamp:
		return fmt.Sprintf("VAR_SAMP(%s)", rendered)
	case expr.AggStringAgg:
		s := ","
		if sep != nil {
			s = *sep
		}
		return fmt.Sprintf("STRING_AGG(%s, %s)", rendered, quoteString(s))
	case expr.AggArrayAgg:
		return fmt.Sprintf("ARRAY_AGG(%s)", rendered)
	default:
		return fmt.Sprintf("%s(%s)", strings.ToUpper(string(agg)), rendered)
	}
}

func (BigQuery) RenderCast(tryCast bool, arg, dataType string) string {
	if tryCast {
		return fmt.Sprintf("SAFE_CAST(%s AS %s)", arg, dataType)
	}
	return fmt.Sprintf("CAST(%s AS %s)", arg, dataType)
}

func bqGrainToStr(g expr.TimeGrain) string {
	return strings.ToUpper(string(g))
}

func (d BigQuery) RenderFunction(c expr.FuncCall, args []string) string {
	fn := c.Func
	switch fn {
	case expr.FuncDateTrunc:
		if len(args) == 1 {
			return fmt.Sprintf("TIMESTAMP_TRUNC(%s, %s)", args[0], bqGrainToStr(c.Grain))
		}
		return "NULL"
	case expr.FuncDatePart:
		if len(args) == 1 {
			return fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(c.Field), args[0])
		}
		return "NULL"
	case expr.FuncNow:
		return "CURRENT_TIMESTAMP()"
	case expr.FuncCurrentDate:
		return "CURRENT_DATE()"
	case expr.FuncCurrentTimestamp:
		return "CURRENT_TIMESTAMP()"
	case expr.FuncDateAdd:
		if len(args) == 2 {
			return fmt.Sprintf("DATE_ADD(%s, INTERVAL %s %s)", args[1], args[0], bqGrainToStr(c.Grain))
		}
		return "NULL"
	case expr.FuncDateDiff:
		if len(args) == 2 {
			return fmt.Sprintf("DATE_DIFF(%s, %s, %s)", args[1], args[0], bqGrainToStr(c.Grain))
		}
		return "NULL"
	case expr.FuncExtract:
		if len(args) == 1 {
			return fmt.Sprintf("EXTRACT(%s FROM %s)", strings.ToUpper(c.Field), args[0])
		}
		return "NULL"
	case expr.FuncLower:
		return call("LOWER", args)
	case expr.FuncUpper:
		return call("UPPER", args)
	case expr.FuncConcat:
		return call("CONCAT", args)
	case expr.FuncConcatWs:
		// BigQuery has no concat_ws; emulate with ARRAY_TO_STRING.
		return fmt.Sprintf("ARRAY_TO_STRING([%s], '%s')", strings.Join(args, ", "), strings.ReplaceAll(c.Sep, "'", "\\'"))
	case expr.FuncSubstring:
		switch len(args) {
		case 3:
			return fmt.Sprintf("SUBSTR(%s, %s, %s)", args[0], args[1], args[2])
		case 2:
			return fmt.Sprintf("SUBSTR(%s, %s)", args[0], args[1])
		default:
			return "NULL"
		}
	case expr.FuncLength:
		return call("LENGTH", args)
	case expr.FuncTrim:
		return call("TRIM", args)
	case expr.FuncLtrim:
		return call("LTRIM", args)
	case expr.FuncRtrim:
		return call("RTRIM", args)
	case expr.FuncLeft:
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, 1, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncRight:
		if len(args) == 2 {
			return fmt.Sprintf("SUBSTR(%s, -%s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncReplace:
		if len(args) == 3 {
			return fmt.Sprintf("REPLACE(%s, %s, %s)", args[0], args[1], args[2])
		}
		return "NULL"
	case expr.FuncPosition:
		// BigQuery convention is STRPOS(haystack, needle) -- opposite argument
		// order from the needle-first convention duckdb/postgres render with.
		if len(args) == 2 {
			return fmt.Sprintf("STRPOS(%s, %s)", args[1], args[0])
		}
		return "NULL"
	case expr.FuncReverse:
		return call("REVERSE", args)
	case expr.FuncRepeat:
		if len(args) == 2 {
			return fmt.Sprintf("REPEAT(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncStartsWith:
		if len(args) == 2 {
			return fmt.Sprintf("STARTS_WITH(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncEndsWith:
		if len(args) == 2 {
			return fmt.Sprintf("ENDS_WITH(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncContains:
		if len(args) == 2 {
			return fmt.Sprintf("STRPOS(%s, %s) > 0", args[0], args[1])
		}
		return "NULL"
	case expr.FuncCoalesce:
		return call("COALESCE", args)
	case expr.FuncIfNull:
		if len(args) == 2 {
			return fmt.Sprintf("IFNULL(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncNullIf:
		if len(args) == 2 {
			return fmt.Sprintf("NULLIF(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncGreatest:
		return call("GREATEST", args)
	case expr.FuncLeast:
		return call("LEAST", args)
	case expr.FuncSafeDivide:
		if len(args) == 2 {
			return fmt.Sprintf("SAFE_DIVIDE(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncAbs:
		return call("ABS", args)
	case expr.FuncCeil:
		return call("CEIL", args)
	case expr.FuncFloor:
		return call("FLOOR", args)
	case expr.FuncRound:
		switch len(args) {
		case 2:
			return fmt.Sprintf("ROUND(%s, %s)", args[0], args[1])
		case 1:
			return fmt.Sprintf("ROUND(%s)", args[0])
		default:
			return "NULL"
		}
	case expr.FuncPower:
		if len(args) == 2 {
			return fmt.Sprintf("POWER(%s, %s)", args[0], args[1])
		}
		return "NULL"
	case expr.FuncSqrt:
		return call("SQRT", args)
	case expr.FuncLn:
		return call("LN", args)
	case expr.FuncLog10:
		return call("LOG10", args)
	case expr.FuncLog:
		// BigQuery LOG(x, base) -- argument order is reversed vs duckdb/postgres.
		switch len(args) {
		case 2:
			return fmt.Sprintf("LOG(%s, %s)", args[1], args[0])
		case 1:
			return fmt.Sprintf("LN(%s)", args[0])
		default:
			return "NULL"
		}
	case expr.FuncExp:
		return call("EXP", args)
	case expr.FuncSign:
		return call("SIGN", args)
	default:
		return "NULL"
	}
}
