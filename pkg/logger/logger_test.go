package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
)

func TestContextFieldsPropagate(t *testing.T) {
	var buf bytes.Buffer
	logg := New(Options{ServiceName: "test", Output: &buf})

	ctx := logg.WithWorkflow(context.Background(), "upload-dispatch")
	ctx = logg.WithOrderNumber(ctx, "X-1001")
	logg.Info(ctx, "claimed order")

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("log output is not JSON: %v", err)
	}
	if entry["workflow"] != "upload-dispatch" {
		t.Fatalf("missing workflow field: %v", entry)
	}
	if entry["order_number"] != "X-1001" {
		t.Fatalf("missing order_number field: %v", entry)
	}
	if entry["service"] != "test" {
		t.Fatalf("missing service field: %v", entry)
	}
}

func TestParseLevelFallsBackToInfo(t *testing.T) {
	if got := ParseLevel("nonsense"); got.String() != "info" {
		t.Fatalf("expected info fallback, got %s", got)
	}
	if got := ParseLevel("debug"); got.String() != "debug" {
		t.Fatalf("expected debug, got %s", got)
	}
}
