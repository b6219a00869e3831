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

package schemacache_test

import (
	"testing"
	"time"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/schemacache"
)

func TestInsertAndGet(t *testing.T) {
	c := schemacache.New()
	schema := schemacache.TableSchema{Columns: []schemacache.ColumnSchema{{Name: "id", DataType: "INT64"}}, PrimaryKeys: []string{"id"}}
	c.Insert("main", "orders", schema)

	got, ok := c.Get("main", "orders")
	if !ok {
		t.Fatal("Get: expected a hit after Insert")
	}
	if len(got.Columns) != 1 || got.Columns[0].Name != "id" {
		t.Errorf("Get returned %+v, want the inserted schema", got)
	}
}

func TestGetMissForUnknownKey(t *testing.T) {
	c := schemacache.New()
	if _, ok := c.Get("main", "nope"); ok {
		t.Error("Get should miss for a table that was never inserted")
	}
}

func TestContainsMirrorsGet(t *testing.T) {
	c := schemacache.New()
	if c.Contains("main", "orders") {
		t.Error("Contains should be false before Insert")
	}
	c.Insert("main", "orders", schemacache.TableSchema{})
	if !c.Contains("main", "orders") {
		t.Error("Contains should be true after Insert")
	}
}

func TestEntryExpiresPastTTL(t *testing.T) {
	c := schemacache.WithConfig(schemacache.Config{TTL: 10 * time.Millisecond, MaxSize: 10})
	c.Insert("main", "orders", schemacache.TableSchema{})

	if !c.Contains("main", "orders") {
		t.Fatal("expected a live entry immediately after Insert")
	}

	time.Sleep(25 * time.Millisecond)

	if c.Contains("main", "orders") {
		t.Error("expected the entry to be treated as a miss past its TTL")
	}
}

func TestEvictExpiredSweepsStaleEntries(t *testing.T) {
	c := schemacache.WithConfig(schemacache.Config{TTL: 10 * time.Millisecond, MaxSize: 10})
	c.Insert("main", "orders", schemacache.TableSchema{})
	time.Sleep(25 * time.Millisecond)
	c.Insert("main", "customers", schemacache.TableSchema{})

	c.EvictExpired()

	if c.Len() != 1 {
		t.Errorf("Len() = %d after EvictExpired, want 1 (only the fresh entry survives)", c.Len())
	}
	if !c.Contains("main", "customers") {
		t.Error("the fresh entry should survive EvictExpired")
	}
}

func TestInsertEvictsOldestWhenAtBound(t *testing.T) {
	c := schemacache.WithConfig(schemacache.Config{TTL: time.Hour, MaxSize: 2})
	c.Insert("main", "a", schemacache.TableSchema{})
	time.Sleep(2 * time.Millisecond)
	c.Insert("main", "b", schemacache.TableSchema{})
	time.Sleep(2 * time.Millisecond)
	c.Insert("main", "c", schemacache.TableSchema{})

	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2 (bounded at MaxSize)", c.Len())
	}
	if c.Contains("main", "a") {
		t.Error("expected the oldest entry (a) to have been evicted")
	}
	if !c.Contains("main", "b") || !c.Contains("main", "c") {
		t.Error("expected b and c to remain after evicting the oldest")
	}
}

func TestInsertOverwriteDoesNotEvict(t *testing.T) {
	c := schemacache.WithConfig(schemacache.Config{TTL: time.Hour, MaxSize: 1})
	c.Insert("main", "a", schemacache.TableSchema{Columns: []schemacache.ColumnSchema{{Name: "v1"}}})
	c.Insert("main", "a", schemacache.TableSchema{Columns: []schemacache.ColumnSchema{{Name: "v2"}}})

	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	got, ok := c.Get("main", "a")
	if !ok || len(got.Columns) != 1 || got.Columns[0].Name != "v2" {
		t.Errorf("Get() = %+v, want the overwritten schema", got)
	}
}

func TestLenAndIsEmpty(t *testing.T) {
	c := schemacache.New()
	if !c.IsEmpty() {
		t.Error("IsEmpty should be true for a fresh cache")
	}
	c.Insert("main", "orders", schemacache.TableSchema{})
	if c.IsEmpty() {
		t.Error("IsEmpty should be false after Insert")
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestClearRemovesEverything(t *testing.T) {
	c := schemacache.New()
	c.Insert("main", "orders", schemacache.TableSchema{})
	c.Insert("main", "customers", schemacache.TableSchema{})
	c.Clear()
	if !c.IsEmpty() {
		t.Error("expected an empty cache after Clear")
	}
}

func TestDataSourceDistinguishesSameTableName(t *testing.T) {
	c := schemacache.New()
	c.Insert("warehouse", "orders", schemacache.TableSchema{Columns: []schemacache.ColumnSchema{{Name: "a"}}})
	c.Insert("staging", "orders", schemacache.TableSchema{Columns: []schemacache.ColumnSchema{{Name: "b"}}})

	a, ok := c.Get("warehouse", "orders")
	if !ok || a.Columns[0].Name != "a" {
		t.Errorf("Get(warehouse, orders) = %+v, want column a", a)
	}
	b, ok := c.Get("staging", "orders")
	if !ok || b.Columns[0].Name != "b" {
		t.Errorf("Get(staging, orders) = %+v, want column b", b)
	}
}
