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

package backend_test

import (
	"context"
	"errors"
	"testing"

	"github.com/cenkalti/backoff/v5"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/backend"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
)

func TestRetryFetchSchemaSucceedsFirstTry(t *testing.T) {
	calls := 0
	want := schemacache.TableSchema{PrimaryKeys: []string{"id"}}
	got, err := backend.RetryFetchSchema(context.Background(), func() (schemacache.TableSchema, error) {
		calls++
		return want, nil
	})
	if err != nil {
		t.Fatalf("RetryFetchSchema: unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry needed)", calls)
	}
	if len(got.PrimaryKeys) != 1 || got.PrimaryKeys[0] != "id" {
		t.Errorf("got = %+v, want %+v", got, want)
	}
}

func TestRetryFetchSchemaRetriesTransientFailure(t *testing.T) {
	calls := 0
	want := schemacache.TableSchema{PrimaryKeys: []string{"id"}}
	got, err := backend.RetryFetchSchema(context.Background(), func() (schemacache.TableSchema, error) {
		calls++
		if calls < 3 {
			return schemacache.TableSchema{}, errors.New("transient connection error")
		}
		return want, nil
	})
	if err != nil {
		t.Fatalf("RetryFetchSchema: unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3 (two failures then a success)", calls)
	}
	if len(got.PrimaryKeys) != 1 || got.PrimaryKeys[0] != "id" {
		t.Errorf("got = %+v, want %+v", got, want)
	}
}

func TestRetryFetchSchemaPermanentErrorStopsImmediately(t *testing.T) {
	calls := 0
	permanent := backoff.Permanent(errors.New("unauthorized"))
	_, err := backend.RetryFetchSchema(context.Background(), func() (schemacache.TableSchema, error) {
		calls++
		return schemacache.TableSchema{}, permanent
	})
	if err == nil {
		t.Fatal("expected RetryFetchSchema to return the permanent error")
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (a Permanent error must not be retried)", calls)
	}
}

func TestRetryFetchSchemaRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := backend.RetryFetchSchema(ctx, func() (schemacache.TableSchema, error) {
		return schemacache.TableSchema{}, errors.New("would retry forever")
	})
	if err == nil {
		t.Fatal("expected RetryFetchSchema to stop once the context is cancelled")
	}
}
