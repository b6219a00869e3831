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
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
	"github.com/goccy/go-yaml"
)

// FlowRegistry is the loaded semantic model: every semantic table and flow
// known to the compiler, keyed by name.
type FlowRegistry struct {
	tables map[string]SemanticTable
	flows  map[string]SemanticFlow
}

// NewFlowRegistry returns an empty registry; used by tests that build the
// model in-process rather than from YAML files.
func NewFlowRegistry() *FlowRegistry {
	return &FlowRegistry{tables: map[string]SemanticTable{}, flows: map[string]SemanticFlow{}}
}

// AddTable registers a semantic table, overwriting any existing entry with
// the same name.
func (r *FlowRegistry) AddTable(t SemanticTable) { r.tables[t.Name] = t }

// AddFlow registers a semantic flow, overwriting any existing entry with the
// same name.
func (r *FlowRegistry) AddFlow(f SemanticFlow) { r.flows[f.Name] = f }

// GetTable returns the named semantic table.
func (r *FlowRegistry) GetTable(name string) (SemanticTable, bool) {
	t, ok := r.tables[name]
	return t, ok
}

// GetFlow returns the named semantic flow.
func (r *FlowRegistry) GetFlow(name string) (SemanticFlow, bool) {
	f, ok := r.flows[name]
	return f, ok
}

// Tables returns every loaded semantic table.
func (r *FlowRegistry) Tables() map[string]SemanticTable { return r.tables }

// LoadFromDir loads a registry from a directory tree with "tables/" and
// "flows/" subdirectories, each holding one *.yml/*.yaml file per semantic
// table or flow.
func LoadFromDir(ctx context.Context, root string) (*FlowRegistry, error) {
	r := NewFlowRegistry()
	if err := loadTables(ctx, filepath.Join(root, "tables"), r); err != nil {
		return nil, err
	}
	if err := loadFlows(ctx, filepath.Join(root, "flows"), r); err != nil {
		return nil, err
	}
	if len(r.tables) == 0 {
		return nil, util.NewIOError(fmt.Sprintf("no semantic tables loaded from %s", root), nil)
	}
	if len(r.flows) == 0 {
		return nil, util.NewIOError(fmt.Sprintf("no semantic flows loaded from %s", root), nil)
	}
	return r, nil
}

func loadTables(ctx context.Context, dir string, r *FlowRegistry) error {
	files, err := globYAML(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		var t SemanticTable
		if err := decodeYAMLFile(ctx, f, &t); err != nil {
			return fmt.Errorf("loading table %s: %w", f, err)
		}
		if t.Name == "" {
			return util.NewValidationErrorf("semantic table file %s is missing a name", f)
		}
		r.AddTable(t)
	}
	return nil
}

func loadFlows(ctx context.Context, dir string, r *FlowRegistry) error {
	files, err := globYAML(dir)
	if err != nil {
		return err
	}
	for _, f := range files {
		var fl SemanticFlow
		if err := decodeYAMLFile(ctx, f, &fl); err != nil {
			return fmt.Errorf("loading flow %s: %w", f, err)
		}
		if fl.Name == "" {
			return util.NewValidationErrorf("semantic flow file %s is missing a name", f)
		}
		r.AddFlow(fl)
	}
	return nil
}

func globYAML(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, util.NewIOError(fmt.Sprintf("reading directory %s", dir), err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yml" || ext == ".yaml" {
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

func decodeYAMLFile(ctx context.Context, path string, out any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return util.NewIOError(fmt.Sprintf("reading %s", path), err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	if err := dec.DecodeContext(ctx, out); err != nil {
		return util.NewIOError(fmt.Sprintf("parsing %s", path), err)
	}
	return nil
}
