package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(CodeDependency, cause, "load order")

	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to survive errors.Is")
	}
	if As(err).Code() != CodeDependency {
		t.Fatalf("unexpected code: %v", As(err).Code())
	}
}

func TestAsFindsTypedErrorInChain(t *testing.T) {
	inner := New(CodeOutOfStock, "unit sold out")
	wrapped := fmt.Errorf("checkout: %w", inner)

	typed := As(wrapped)
	if typed == nil {
		t.Fatal("expected typed error")
	}
	if typed.Code() != CodeOutOfStock {
		t.Fatalf("unexpected code: %v", typed.Code())
	}
}

func TestOutOfStockDetails(t *testing.T) {
	err := OutOfStock("unit-1", "Blue Mug", 3, 2)

	details, ok := err.Details().(map[string]any)
	if !ok {
		t.Fatalf("expected map details, got %T", err.Details())
	}
	if details["available"] != 2 || details["requested"] != 3 {
		t.Fatalf("unexpected details: %v", details)
	}
	if details["unit_name"] != "Blue Mug" {
		t.Fatalf("unexpected unit name: %v", details["unit_name"])
	}
}

func TestMetadataFor(t *testing.T) {
	if MetadataFor(CodeSignature).HTTPStatus != http.StatusBadRequest {
		t.Fatal("signature errors must map to 400 for webhook callers")
	}
	if MetadataFor(CodeGateway).Retryable != true {
		t.Fatal("gateway errors should be retryable")
	}
	if MetadataFor(Code("unknown")).HTTPStatus != http.StatusInternalServerError {
		t.Fatal("unknown codes fall back to internal")
	}
}
