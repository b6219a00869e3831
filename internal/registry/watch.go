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
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher watches a registry root's tables/ and flows/ directories and calls
// onReload with a freshly loaded registry whenever a *.yml/*.yaml file
// changes. Rapid successive writes are debounced into a single reload.
type Watcher struct {
	watcher     *fsnotify.Watcher
	root        string
	debounceDur time.Duration
	stopCh      chan struct{}
	doneCh      chan struct{}
}

// NewWatcher starts watching root's tables/ and flows/ subdirectories.
func NewWatcher(root string) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, sub := range []string{"tables", "flows"} {
		if err := w.Add(filepath.Join(root, sub)); err != nil {
			w.Close()
			return nil, err
		}
	}
	return &Watcher{
		watcher:     w,
		root:        root,
		debounceDur: 500 * time.Millisecond,
		stopCh:      make(chan struct{}),
		doneCh:      make(chan struct{}),
	}, nil
}

// Start runs the watch loop until ctx is cancelled or Stop is called,
// reloading the registry from root and invoking onReload for every settled
// batch of changes. A reload that fails to load is logged and does not
// invoke onReload — the caller keeps serving the last good registry.
func (w *Watcher) Start(ctx context.Context, onReload func(*FlowRegistry)) {
	defer close(w.doneCh)

	var pending *time.Timer
	for {
		var pendingCh <-chan time.Time
		if pending != nil {
			pendingCh = pending.C
		}
		select {
		case <-ctx.Done():
			return
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Ext(event.Name) != ".yml" && filepath.Ext(event.Name) != ".yaml" {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.NewTimer(w.debounceDur)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("registry watcher error", "error", err)
		case <-pendingCh:
			pending = nil
			reg, err := LoadFromDir(ctx, w.root)
			if err != nil {
				slog.Warn("registry reload failed, keeping previous registry", "root", w.root, "error", err)
				continue
			}
			slog.Info("registry reloaded", "root", w.root)
			onReload(reg)
		}
	}
}

// Stop ends the watch loop and releases the underlying filesystem watches.
func (w *Watcher) Stop() {
	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}
