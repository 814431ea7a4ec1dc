package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := Wrap(CodeDependency, cause, "shipstation list orders failed")

	if !errors.Is(err, cause) {
		t.Fatal("wrapped error should match its cause")
	}
	if err.Code() != CodeDependency {
		t.Fatalf("unexpected code: %s", err.Code())
	}
	if got := err.Error(); got != "DEPENDENCY_ERROR: shipstation list orders failed" {
		t.Fatalf("unexpected error string: %s", got)
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeEnvBlocked, "uploads disabled outside production")
	outer := fmt.Errorf("dispatch order: %w", inner)

	typed := As(outer)
	if typed == nil {
		t.Fatal("expected typed error in chain")
	}
	if typed.Code() != CodeEnvBlocked {
		t.Fatalf("unexpected code: %s", typed.Code())
	}
}

func TestMetadataForUnknownCode(t *testing.T) {
	meta := MetadataFor(Code("SOMETHING_ELSE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("unknown codes should map to internal metadata, got %d", meta.HTTPStatus)
	}
}

func TestIsRetryable(t *testing.T) {
	if IsRetryable(New(CodeValidation, "bad sku")) {
		t.Fatal("validation failures are permanent")
	}
	if IsRetryable(New(CodeEnvBlocked, "blocked")) {
		t.Fatal("environment blocks are permanent")
	}
	if !IsRetryable(New(CodeDependency, "timeout")) {
		t.Fatal("dependency failures are retryable")
	}
	if !IsRetryable(errors.New("plain")) {
		t.Fatal("unknown errors default to retryable")
	}
}
