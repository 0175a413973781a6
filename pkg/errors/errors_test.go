package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
	}{
		{CodeValidation, http.StatusBadRequest, false},
		{CodeOutOfStock, http.StatusConflict, false},
		{CodeEmptyCart, http.StatusBadRequest, false},
		{CodeConcurrentModification, http.StatusConflict, true},
		{CodeInsufficientData, http.StatusOK, false},
		{CodeInternal, http.StatusInternalServerError, true},
	}
	for _, tc := range tests {
		meta := MetadataFor(tc.code)
		if meta.HTTPStatus != tc.status {
			t.Fatalf("%s: expected status %d, got %d", tc.code, tc.status, meta.HTTPStatus)
		}
		if meta.Retryable != tc.retryable {
			t.Fatalf("%s: expected retryable=%v", tc.code, tc.retryable)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOPE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestWrapPreservesChain(t *testing.T) {
	cause := stdErrors.New("root cause")
	err := Wrap(CodeDependency, cause, "load product")

	if !stdErrors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be findable with errors.Is")
	}
	if got := As(fmt.Errorf("outer: %w", err)); got == nil || got.Code() != CodeDependency {
		t.Fatalf("expected typed error through the chain, got %v", got)
	}
}

func TestHasCode(t *testing.T) {
	err := New(CodeOutOfStock, "insufficient stock").WithDetails(map[string]any{"requested": 5})
	if !HasCode(err, CodeOutOfStock) {
		t.Fatal("expected HasCode to match")
	}
	if HasCode(err, CodeEmptyCart) {
		t.Fatal("expected HasCode mismatch for other code")
	}
	if HasCode(stdErrors.New("plain"), CodeOutOfStock) {
		t.Fatal("plain errors carry no code")
	}
}

func TestDumpFlattensChain(t *testing.T) {
	err := Wrap(CodeInternal, stdErrors.New("disk on fire"), "save order")
	d := Dump(err)
	if d.Code != CodeInternal {
		t.Fatalf("expected code in dump, got %q", d.Code)
	}
	if len(d.Chain) < 2 {
		t.Fatalf("expected full chain, got %v", d.Chain)
	}
}
