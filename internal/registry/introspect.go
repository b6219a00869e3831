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
	"fmt"
	"sort"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// FlowSummary is the one-line description of a flow returned by
// ListFlowSummaries, used by callers browsing the model before querying it.
type FlowSummary struct {
	Name        string
	Description string
}

// ListFlowSummaries returns every flow's name and description, sorted by
// name.
func (r *FlowRegistry) ListFlowSummaries() []FlowSummary {
	out := make([]FlowSummary, 0, len(r.flows))
	for _, f := range r.flows {
		desc := ""
		if f.Description != nil {
			desc = *f.Description
		}
		out = append(out, FlowSummary{Name: f.Name, Description: desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// DimensionInfo describes one dimension reachable from a flow, qualified by
// the alias it is reached through.
type DimensionInfo struct {
	Name          string
	QualifiedName string
	Description   string
	DataType      string
	SemanticTable string
	TableAlias    string
}

// MeasureInfo describes one measure reachable from a flow.
type MeasureInfo struct {
	Name          string
	QualifiedName string
	Description   string
	DataType      string
	SemanticTable string
	TableAlias    string
	Agg           string
	Filtered      bool
	Derived       bool
}

// FlowSchema is the full set of dimensions and measures a flow exposes,
// assembled by walking the base table and every join.
type FlowSchema struct {
	Flow       string
	Dimensions []DimensionInfo
	Measures   []MeasureInfo
}

// FlowSchema describes every dimension and measure the named flow exposes
// across its base table and joins.
func (r *FlowRegistry) FlowSchema(name string) (FlowSchema, error) {
	flow, ok := r.GetFlow(name)
	if !ok {
		return FlowSchema{}, util.NewValidationErrorf("unknown flow %q", name)
	}

	schema := FlowSchema{Flow: name}

	baseTable, ok := r.GetTable(flow.BaseTable.SemanticTable)
	if !ok {
		return FlowSchema{}, util.NewValidationErrorf("flow %q: unknown semantic table %q", name, flow.BaseTable.SemanticTable)
	}
	dims, meas, err := collectFields(baseTable, flow.BaseTable.Alias)
	if err != nil {
		return FlowSchema{}, err
	}
	schema.Dimensions = append(schema.Dimensions, dims...)
	schema.Measures = append(schema.Measures, meas...)

	aliases := make([]string, 0, len(flow.Joins))
	for alias := range flow.Joins {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		j := flow.Joins[alias]
		t, ok := r.GetTable(j.SemanticTable)
		if !ok {
			return FlowSchema{}, util.NewValidationErrorf("flow %q: join %q references unknown semantic table %q", name, alias, j.SemanticTable)
		}
		dims, meas, err := collectFields(t, j.Alias)
		if err != nil {
			return FlowSchema{}, err
		}
		schema.Dimensions = append(schema.Dimensions, dims...)
		schema.Measures = append(schema.Measures, meas...)
	}

	sort.Slice(schema.Dimensions, func(i, j int) bool { return schema.Dimensions[i].QualifiedName < schema.Dimensions[j].QualifiedName })
	sort.Slice(schema.Measures, func(i, j int) bool { return schema.Measures[i].QualifiedName < schema.Measures[j].QualifiedName })
	return schema, nil
}

func collectFields(t SemanticTable, alias string) ([]DimensionInfo, []MeasureInfo, error) {
	dims := make([]DimensionInfo, 0, len(t.Dimensions))
	for name, d := range t.Dimensions {
		dt := ""
		if d.DataType != nil {
			dt = *d.DataType
		}
		desc := ""
		if d.Description != nil {
			desc = *d.Description
		}
		dims = append(dims, DimensionInfo{
			Name:          name,
			QualifiedName: fmt.Sprintf("%s.%s", alias, name),
			Description:   desc,
			DataType:      dt,
			SemanticTable: t.Name,
			TableAlias:    alias,
		})
	}
	meas := make([]MeasureInfo, 0, len(t.Measures))
	for name, m := range t.Measures {
		dt := ""
		if m.DataType != nil {
			dt = *m.DataType
		}
		desc := ""
		if m.Description != nil {
			desc = *m.Description
		}
		meas = append(meas, MeasureInfo{
			Name:          name,
			QualifiedName: fmt.Sprintf("%s.%s", alias, name),
			Description:   desc,
			DataType:      dt,
			SemanticTable: t.Name,
			TableAlias:    alias,
			Agg:           string(m.Agg),
			Filtered:      m.Filter != nil,
			Derived:       m.PostExpr != nil,
		})
	}
	return dims, meas, nil
}
