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

package log_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/SemaFlow-labs/SemaFlow-sub000/internal/log"
)

func TestNewLoggerStandardFormat(t *testing.T) {
	l, err := log.NewLogger("standard", "INFO", &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewLogger: unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("NewLogger returned a nil Logger")
	}
}

func TestNewLoggerJSONFormat(t *testing.T) {
	l, err := log.NewLogger("json", "DEBUG", &bytes.Buffer{}, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewLogger: unexpected error: %v", err)
	}
	if l == nil {
		t.Fatal("NewLogger returned a nil Logger")
	}
}

func TestNewLoggerRejectsUnknownFormat(t *testing.T) {
	if _, err := log.NewLogger("xml", "INFO", &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected NewLogger to reject an unsupported format")
	}
}

func TestNewLoggerRejectsUnknownLevel(t *testing.T) {
	if _, err := log.NewLogger("standard", "VERBOSE", &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected NewLogger to reject an unsupported level")
	}
}

func TestStdLoggerRoutesInfoToOutAndErrorToErr(t *testing.T) {
	var out, errOut bytes.Buffer
	l, err := log.NewLogger("standard", "DEBUG", &out, &errOut)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}

	l.InfoContext(context.Background(), "informational message")
	l.ErrorContext(context.Background(), "error message")

	if !strings.Contains(out.String(), "informational message") {
		t.Errorf("out = %q, want it to contain the info message", out.String())
	}
	if strings.Contains(out.String(), "error message") {
		t.Errorf("out = %q, error message should route to err, not out", out.String())
	}
	if !strings.Contains(errOut.String(), "error message") {
		t.Errorf("errOut = %q, want it to contain the error message", errOut.String())
	}
}

func TestStructuredLoggerEmitsJSONWithSeverity(t *testing.T) {
	var out bytes.Buffer
	l, err := log.NewLogger("json", "DEBUG", &out, &bytes.Buffer{})
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	l.InfoContext(context.Background(), "hello")

	got := out.String()
	if !strings.Contains(got, `"severity":"INFO"`) {
		t.Errorf("json log line = %q, want a severity:INFO field", got)
	}
	if !strings.Contains(got, `"message":"hello"`) {
		t.Errorf("json log line = %q, want a message:hello field", got)
	}
}

func TestSlogLoggerRoutesByLevel(t *testing.T) {
	var out, errOut bytes.Buffer
	l, err := log.NewLogger("standard", "DEBUG", &out, &errOut)
	if err != nil {
		t.Fatalf("NewLogger: %v", err)
	}
	sl := l.SlogLogger()
	sl.Info("via slog info")
	sl.Warn("via slog warn")

	if !strings.Contains(out.String(), "via slog info") {
		t.Errorf("out = %q, want the info record", out.String())
	}
	if !strings.Contains(errOut.String(), "via slog warn") {
		t.Errorf("errOut = %q, want the warn record", errOut.String())
	}
}

func TestSeverityToLevelRoundTrip(t *testing.T) {
	tcs := []string{"DEBUG", "INFO", "WARN", "ERROR"}
	for _, s := range tcs {
		if _, err := log.SeverityToLevel(s); err != nil {
			t.Errorf("SeverityToLevel(%q): unexpected error: %v", s, err)
		}
	}
}

func TestSeverityToLevelRejectsUnknown(t *testing.T) {
	if _, err := log.SeverityToLevel("TRACE"); err == nil {
		t.Fatal("expected an error for an unrecognized severity")
	}
}
