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

// Package registry holds the in-memory semantic model — tables and flows —
// plus the thin YAML loader at its external boundary and introspection
// helpers used by callers that want to describe a flow before querying it.
package registry

import "github.com/SemaFlow-labs/SemaFlow-sub000/internal/expr"

// SemanticTable is a named view of a physical table exposing curated
// dimensions and measures.
type SemanticTable struct {
	Name               string               `yaml:"name" validate:"required"`
	Table              string               `yaml:"table" validate:"required"`
	DataSource         string               `yaml:"data_source" validate:"required"`
	PrimaryKey         string               `yaml:"primary_key" validate:"required"`
	TimeDimension      *string              `yaml:"time_dimension,omitempty"`
	SmallestTimeGrain  *expr.TimeGrain      `yaml:"smallest_time_grain,omitempty"`
	Dimensions         map[string]Dimension `yaml:"dimensions"`
	Measures           map[string]Measure   `yaml:"measures"`
	Description        *string              `yaml:"description,omitempty"`
}

// Dimension is a grouping expression: a column or a function of columns.
type Dimension struct {
	Expression  expr.Expr `yaml:"expression" validate:"required"`
	DataType    *string   `yaml:"data_type,omitempty"`
	Description *string   `yaml:"description,omitempty"`
}

// Measure is an aggregation: base (Expr+Agg), filtered (+Filter), or derived
// (PostExpr computing on top of other measures' aggregates).
type Measure struct {
	Expr        expr.Expr       `yaml:"expr" validate:"required"`
	Agg         expr.Aggregation `yaml:"agg" validate:"required"`
	Filter      expr.Expr       `yaml:"filter,omitempty"`
	PostExpr    expr.Expr       `yaml:"post_expr,omitempty"`
	StringAgg   *string         `yaml:"string_agg_separator,omitempty"`
	DataType    *string         `yaml:"data_type,omitempty"`
	Description *string         `yaml:"description,omitempty"`
}

// Cardinality is the relationship shape between two joined tables; drives
// pre-agg selection in the planner.
type Cardinality string

const (
	ManyToOne  Cardinality = "many_to_one"
	OneToMany  Cardinality = "one_to_many"
	OneToOne   Cardinality = "one_to_one"
	ManyToMany Cardinality = "many_to_many"
	Unknown    Cardinality = "unknown"
)

// FlowTableRef names a semantic table and the local alias a flow uses for it.
type FlowTableRef struct {
	SemanticTable string `yaml:"semantic_table" validate:"required"`
	Alias         string `yaml:"alias" validate:"required"`
}

// JoinKey is one equality condition of a join: ToTable-side column = this
// join's own column.
type JoinKey struct {
	Left  string `yaml:"left" validate:"required"`
	Right string `yaml:"right" validate:"required"`
}

// JoinType is one of inner/left/right/full.
type JoinType string

const (
	JoinInner JoinType = "inner"
	JoinLeft  JoinType = "left"
	JoinRight JoinType = "right"
	JoinFull  JoinType = "full"
)

// FlowJoin is one edge of the join DAG rooted at the flow's base table.
type FlowJoin struct {
	SemanticTable string       `yaml:"semantic_table" validate:"required"`
	Alias         string       `yaml:"alias" validate:"required"`
	ToTable       string       `yaml:"to_table" validate:"required"`
	JoinType      JoinType     `yaml:"join_type" validate:"required,oneof=inner left right full"`
	JoinKeys      []JoinKey    `yaml:"join_keys" validate:"required,min=1"`
	Cardinality   *Cardinality `yaml:"cardinality,omitempty"`
	Description   *string      `yaml:"description,omitempty"`
}

// SemanticFlow is a base table plus a graph of named joins.
type SemanticFlow struct {
	Name        string              `yaml:"name" validate:"required"`
	BaseTable   FlowTableRef        `yaml:"base_table" validate:"required"`
	Joins       map[string]FlowJoin `yaml:"joins"`
	Description *string             `yaml:"description,omitempty"`
}

// FilterOp is one of the comparison/membership operators a request filter
// may use.
type FilterOp string

const (
	FilterEq    FilterOp = "=="
	FilterNeq   FilterOp = "!="
	FilterGt    FilterOp = ">"
	FilterGte   FilterOp = ">="
	FilterLt    FilterOp = "<"
	FilterLte   FilterOp = "<="
	FilterIn    FilterOp = "in"
	FilterNotIn FilterOp = "not in"
	FilterLike  FilterOp = "like"
	FilterILike FilterOp = "ilike"
)

// Filter is one request-level row filter.
type Filter struct {
	Field string   `json:"field"`
	Op    FilterOp `json:"op"`
	Value any      `json:"value"`
}

// SortDirection is asc/desc.
type SortDirection string

const (
	Asc  SortDirection = "asc"
	Desc SortDirection = "desc"
)

// OrderItem is one request-level ORDER BY term.
type OrderItem struct {
	Column    string        `json:"column"`
	Direction SortDirection `json:"direction"`
}

// QueryRequest is the caller-facing request: a flow plus the dimensions,
// measures, filters, and ordering to compile into SQL.
type QueryRequest struct {
	Flow       string      `json:"flow"`
	Dimensions []string    `json:"dimensions"`
	Measures   []string    `json:"measures"`
	Filters    []Filter    `json:"filters"`
	Order      []OrderItem `json:"order"`
	Limit      *uint32     `json:"limit,omitempty"`
	Offset     *uint32     `json:"offset,omitempty"`
}
