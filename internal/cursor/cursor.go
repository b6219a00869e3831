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

// Package cursor encodes and decodes opaque pagination cursors: an
// offset-based form for SQL backends, and a job/page-token form for
// backends (like BigQuery) that hand back their own continuation token.
package cursor

import (
	"encoding/base64"
	"encoding/json"
	"hash/fnv"
	"sort"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/registry"
	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/util"
)

// Kind distinguishes the two cursor shapes.
type Kind string

const (
	KindSQL    Kind = "sql"
	KindNative Kind = "native"
)

// Cursor is the decoded form of a pagination token.
type Cursor struct {
	Kind      Kind
	Offset    uint64
	QueryHash string
	JobID     string
	PageToken string
}

type wireCursor struct {
	Kind      Kind   `json:"kind"`
	Offset    uint64 `json:"offset,omitempty"`
	QueryHash string `json:"query_hash"`
	JobID     string `json:"job_id,omitempty"`
	PageToken string `json:"page_token,omitempty"`
}

// QueryHash computes a stable hash over the parts of a request that define
// its result set (flow, dimensions, measures, filters, order, limit) —
// excluding offset, page size, and the cursor itself — so a cursor minted
// for one query can never silently be replayed against a different one.
func QueryHash(req registry.QueryRequest) string {
	dims := append([]string(nil), req.Dimensions...)
	sort.Strings(dims)
	meas := append([]string(nil), req.Measures...)
	sort.Strings(meas)

	canon := struct {
		Flow       string               `json:"flow"`
		Dimensions []string             `json:"dimensions"`
		Measures   []string             `json:"measures"`
		Filters    []registry.Filter    `json:"filters"`
		Order      []registry.OrderItem `json:"order"`
		Limit      *uint32              `json:"limit,omitempty"`
	}{
		Flow:       req.Flow,
		Dimensions: dims,
		Measures:   meas,
		Filters:    req.Filters,
		Order:      req.Order,
		Limit:      req.Limit,
	}
	b, _ := json.Marshal(canon)

	h := fnv.New64a()
	_, _ = h.Write(b)
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}

// EncodeSQL builds an offset-based cursor for a SQL backend.
func EncodeSQL(req registry.QueryRequest, offset uint64) string {
	return encode(wireCursor{Kind: KindSQL, Offset: offset, QueryHash: QueryHash(req)})
}

// EncodeNative builds a job/page-token cursor for a backend that returns its
// own continuation token.
func EncodeNative(req registry.QueryRequest, jobID, pageToken string) string {
	return encode(wireCursor{Kind: KindNative, QueryHash: QueryHash(req), JobID: jobID, PageToken: pageToken})
}

func encode(w wireCursor) string {
	b, _ := json.Marshal(w)
	return base64.RawURLEncoding.EncodeToString(b)
}

// Decode parses and validates a cursor against the request that is about to
// reuse it: a mismatched query hash means the request changed since the
// cursor was minted, which Decode rejects as a Validation error rather than
// silently returning a page from a different query.
func Decode(token string, req registry.QueryRequest) (Cursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, util.NewValidationErrorf("malformed cursor: %v", err)
	}
	var w wireCursor
	if err := json.Unmarshal(raw, &w); err != nil {
		return Cursor{}, util.NewValidationErrorf("malformed cursor: %v", err)
	}
	if w.QueryHash != QueryHash(req) {
		return Cursor{}, util.NewValidationError("cursor does not match the request it is being applied to")
	}
	return Cursor{Kind: w.Kind, Offset: w.Offset, QueryHash: w.QueryHash, JobID: w.JobID, PageToken: w.PageToken}, nil
}
