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

package registry

import (
	"context"
	"fmt"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"
	"github.com/goccy/go-yaml"
)

// rawDimension mirrors Dimension's YAML shape before expression shorthand
// expansion: "expression" may be a bare string ("orders.status") or a tagged
// mapping ({kind: column|measure_ref, ...}).
type rawDimension struct {
	Expression  any     `yaml:"expression"`
	DataType    *string `yaml:"data_type"`
	Description *string `yaml:"description"`
}

// UnmarshalYAML expands Dimension's "expression" shorthand: a bare scalar
// string is parsed as a freeform expression (column reference or function
// call); anything else must already be a tagged expr.Expr mapping.
func (d *Dimension) UnmarshalYAML(ctx context.Context, b []byte) error {
	var raw rawDimension
	if err := yaml.UnmarshalContext(ctx, b, &raw); err != nil {
		return err
	}
	e, err := decodeExprValue(raw.Expression, false)
	if err != nil {
		return fmt.Errorf("dimension expression: %w", err)
	}
	d.Expression = e
	d.DataType = raw.DataType
	d.Description = raw.Description
	return nil
}

type rawMeasure struct {
	Expr        any              `yaml:"expr"`
	Agg         expr.Aggregation `yaml:"agg"`
	Filter      any              `yaml:"filter"`
	PostExpr    any              `yaml:"post_expr"`
	StringAgg   *string          `yaml:"string_agg_separator"`
	DataType    *string          `yaml:"data_type"`
	Description *string          `yaml:"description"`
}

// UnmarshalYAML expands Measure's "expr"/"filter"/"post_expr" shorthand: bare
// strings are parsed as freeform expressions. post_expr parses with the
// measure-reference heuristic enabled (a bare identifier there names another
// measure, not a column).
func (m *Measure) UnmarshalYAML(ctx context.Context, b []byte) error {
	var raw rawMeasure
	if err := yaml.UnmarshalContext(ctx, b, &raw); err != nil {
		return err
	}
	baseExpr, err := decodeExprValue(raw.Expr, false)
	if err != nil {
		return fmt.Errorf("measure expr: %w", err)
	}
	m.Expr = baseExpr
	m.Agg = raw.Agg
	m.StringAgg = raw.StringAgg
	m.DataType = raw.DataType
	m.Description = raw.Description

	if raw.Filter != nil {
		f, err := decodeExprValue(raw.Filter, false)
		if err != nil {
			return fmt.Errorf("measure filter: %w", err)
		}
		m.Filter = f
	}
	if raw.PostExpr != nil {
		p, err := decodeExprValue(raw.PostExpr, true)
		if err != nil {
			return fmt.Errorf("measure post_expr: %w", err)
		}
		m.PostExpr = p
	}
	return nil
}

// decodeExprValue expands a decoded YAML value into an expr.Expr. A plain
// string is parsed via the freeform parser (measureHeuristic controls
// bare-identifier resolution); a map must carry a "kind" discriminator.
func decodeExprValue(v any, measureHeuristic bool) (expr.Expr, error) {
	if v == nil {
		return nil, nil
	}
	switch t := v.(type) {
	case string:
		return expr.ParseFreeform(t, measureHeuristic)
	case map[string]any:
		kind, _ := t["kind"].(string)
		switch kind {
		case "column":
			name, _ := t["name"].(string)
			return expr.Column{Name: name}, nil
		case "measure_ref":
			name, _ := t["name"].(string)
			return expr.MeasureRef{Name: name}, nil
		default:
			return nil, fmt.Errorf("unsupported expression kind %q", kind)
		}
	default:
		return nil, fmt.Errorf("unsupported expression value %v (%T)", v, v)
	}
}
