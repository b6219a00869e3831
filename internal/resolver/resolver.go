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

// Package resolver disambiguates bare and qualified dimension/measure names
// against a flow's base table and joins.
package resolver

import (
	"fmt"
	"sort"
	"strings"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// FieldKind distinguishes a resolved field as a dimension or a measure.
type FieldKind int

const (
	KindDimension FieldKind = iota
	KindMeasure
)

// Resolved is one successfully resolved dimension or measure reference.
type Resolved struct {
	Kind  FieldKind
	Alias string // table alias the field was found on
	Name  string // bare field name
}

// AliasEntry is one alias in a flow's join graph, mapping it back to the
// semantic table it names.
type AliasEntry struct {
	Alias         string
	SemanticTable string
}

// BuildAliasMap returns every alias in the flow (base plus joins) mapped to
// its semantic table name.
func BuildAliasMap(reg *registry.FlowRegistry, flow registry.SemanticFlow) (map[string]string, error) {
	m := map[string]string{flow.BaseTable.Alias: flow.BaseTable.SemanticTable}
	for alias, j := range flow.Joins {
		if _, exists := m[alias]; exists {
			return nil, util.NewValidationErrorf("flow %q: duplicate alias %q", flow.Name, alias)
		}
		m[alias] = j.SemanticTable
	}
	return m, nil
}

// ParseQualified splits "alias.field" into its two parts. ok is false for a
// bare name or a malformed qualifier (either side empty).
func ParseQualified(name string) (alias, field string, ok bool) {
	idx := strings.IndexByte(name, '.')
	if idx <= 0 || idx == len(name)-1 {
		return "", "", false
	}
	return name[:idx], name[idx+1:], true
}

// ResolveDimension resolves a bare or qualified dimension name against the
// flow's alias map.
func ResolveDimension(reg *registry.FlowRegistry, aliasMap map[string]string, baseAlias, name string) (Resolved, error) {
	r, ok, err := resolveField(reg, aliasMap, baseAlias, name, KindDimension)
	if err != nil {
		return Resolved{}, err
	}
	if !ok {
		return Resolved{}, util.NewValidationErrorf("unknown dimension %q", name)
	}
	return r, nil
}

// ResolveMeasure resolves a bare or qualified measure name against the
// flow's alias map.
func ResolveMeasure(reg *registry.FlowRegistry, aliasMap map[string]string, baseAlias, name string) (Resolved, error) {
	r, ok, err := resolveField(reg, aliasMap, baseAlias, name, KindMeasure)
	if err != nil {
		return Resolved{}, err
	}
	if !ok {
		return Resolved{}, util.NewValidationErrorf("unknown measure %q", name)
	}
	return r, nil
}

// ResolveField tries a dimension first, then a measure; used when a filter
// or order term's kind is not known ahead of time.
func ResolveField(reg *registry.FlowRegistry, aliasMap map[string]string, baseAlias, name string) (Resolved, error) {
	if r, ok, err := resolveField(reg, aliasMap, baseAlias, name, KindDimension); err != nil {
		return Resolved{}, err
	} else if ok {
		return r, nil
	}
	if r, ok, err := resolveField(reg, aliasMap, baseAlias, name, KindMeasure); err != nil {
		return Resolved{}, err
	} else if ok {
		return r, nil
	}
	return Resolved{}, util.NewValidationErrorf("unknown field %q", name)
}

func hasField(t registry.SemanticTable, kind FieldKind, field string) bool {
	if kind == KindDimension {
		_, ok := t.Dimensions[field]
		return ok
	}
	_, ok := t.Measures[field]
	return ok
}

// resolveField implements the qualified/bare disambiguation rule: a
// qualified name is checked directly against its named alias; a bare name is
// checked against every alias in the flow and must match exactly one.
func resolveField(reg *registry.FlowRegistry, aliasMap map[string]string, baseAlias, name string, kind FieldKind) (Resolved, bool, error) {
	if alias, field, ok := ParseQualified(name); ok {
		tableName, exists := aliasMap[alias]
		if !exists {
			return Resolved{}, false, nil
		}
		t, ok := reg.GetTable(tableName)
		if !ok {
			return Resolved{}, false, util.NewValidationErrorf("alias %q: unknown semantic table %q", alias, tableName)
		}
		if !hasField(t, kind, field) {
			return Resolved{}, false, nil
		}
		return Resolved{Kind: kind, Alias: alias, Name: field}, true, nil
	}

	var matches []Resolved
	aliases := make([]string, 0, len(aliasMap))
	for alias := range aliasMap {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		tableName := aliasMap[alias]
		t, ok := reg.GetTable(tableName)
		if !ok {
			continue
		}
		if hasField(t, kind, name) {
			matches = append(matches, Resolved{Kind: kind, Alias: alias, Name: name})
		}
	}
	switch len(matches) {
	case 0:
		return Resolved{}, false, nil
	case 1:
		return matches[0], true, nil
	default:
		aliasNames := make([]string, len(matches))
		for i, m := range matches {
			aliasNames[i] = m.Alias
		}
		return Resolved{}, false, util.NewValidationErrorf(
			"ambiguous field %q: present on %s, qualify with alias.field", name, strings.Join(aliasNames, ", "))
	}
}

// String renders a Resolved back into its qualified form, for error
// messages.
func (r Resolved) String() string {
	return fmt.Sprintf("%s.%s", r.Alias, r.Name)
}
