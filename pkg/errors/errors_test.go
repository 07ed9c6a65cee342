package errors

import (
	"errors"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	cases := map[Code]int{
		CodeValidation:    http.StatusBadRequest,
		CodeNotFound:      http.StatusNotFound,
		CodeConflict:      http.StatusConflict,
		CodeStateConflict: http.StatusUnprocessableEntity,
		CodeConcurrency:   http.StatusConflict,
		CodeDependency:    http.StatusServiceUnavailable,
	}
	for code, status := range cases {
		if got := MetadataFor(code).HTTPStatus; got != status {
			t.Fatalf("code %s: expected status %d got %d", code, status, got)
		}
	}
}

func TestMetadataForUnknownCodeFallsBack(t *testing.T) {
	meta := MetadataFor(Code("NOT_A_CODE"))
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal fallback, got %d", meta.HTTPStatus)
	}
}

func TestConcurrencyIsRetryable(t *testing.T) {
	if !MetadataFor(CodeConcurrency).Retryable {
		t.Fatal("concurrent modification should be retryable")
	}
	if MetadataFor(CodeStateConflict).Retryable {
		t.Fatal("state conflict should not be retryable")
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("db down")
	err := Wrap(CodeDependency, cause, "load order")
	if !errors.Is(err, cause) {
		t.Fatal("expected wrapped cause to be reachable via errors.Is")
	}
	typed := As(err)
	if typed == nil || typed.Code() != CodeDependency {
		t.Fatalf("unexpected typed error %v", typed)
	}
}

func TestAsReturnsNilForForeignError(t *testing.T) {
	if As(errors.New("plain")) != nil {
		t.Fatal("expected nil for non-taxonomy error")
	}
}

func TestWithDetails(t *testing.T) {
	err := New(CodeStateConflict, "scan precondition unmet").
		WithDetails(map[string]string{"expected": "awaiting_pickup_customer", "actual": "arrived_at_facility"})
	details, ok := err.Details().(map[string]string)
	if !ok || details["expected"] != "awaiting_pickup_customer" {
		t.Fatalf("unexpected details %v", err.Details())
	}
}
