package faults

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
)

func TestCategoryRetryable(t *testing.T) {
	tests := []struct {
		category  Category
		retryable bool
	}{
		{CategoryValidation, false},
		{CategoryTransient, true},
		{CategoryPermanent, false},
		{CategoryShutdown, true},
		{CategoryInternal, false},
	}

	for _, tt := range tests {
		if got := tt.category.IsRetryable(); got != tt.retryable {
			t.Errorf("%s.IsRetryable() = %v, want %v", tt.category, got, tt.retryable)
		}
	}
}

func TestCodeDefaultCategory(t *testing.T) {
	tests := []struct {
		code     Code
		category Category
	}{
		{CodeInvalidTask, CategoryValidation},
		{CodeInvalidConfig, CategoryValidation},
		{CodeInvalidTransition, CategoryValidation},
		{CodeQueueTimeout, CategoryTransient},
		{CodeQueueClosed, CategoryPermanent},
		{CodeUnknownStrategy, CategoryPermanent},
		{CodeProcessing, CategoryPermanent},
		{CodeForcedShutdown, CategoryShutdown},
		{CodeInternal, CategoryInternal},
	}

	for _, tt := range tests {
		if got := tt.code.DefaultCategory(); got != tt.category {
			t.Errorf("%s.DefaultCategory() = %s, want %s", tt.code, got, tt.category)
		}
	}
}

func TestNewFault(t *testing.T) {
	f := New(CodeInvalidTask, "empty kind", WithTaskID("t-1"))

	if f.Code() != CodeInvalidTask {
		t.Errorf("Code = %s, want %s", f.Code(), CodeInvalidTask)
	}
	if f.Category() != CategoryValidation {
		t.Errorf("Category = %s, want %s", f.Category(), CategoryValidation)
	}
	if f.TaskID() != "t-1" {
		t.Errorf("TaskID = %s, want t-1", f.TaskID())
	}
	if f.Retryable() {
		t.Error("validation fault should not be retryable")
	}
	if f.Timestamp().IsZero() {
		t.Error("expected non-zero timestamp")
	}
}

func TestFaultErrorMessage(t *testing.T) {
	cause := errors.New("disk full")
	f := New(CodeProcessing, "strategy failed", WithCause(cause))

	want := "strategy failed: disk full"
	if f.Error() != want {
		t.Errorf("Error() = %q, want %q", f.Error(), want)
	}
	if !errors.Is(f, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestWithRetryableOverride(t *testing.T) {
	f := New(CodeProcessing, "flaky downstream", WithRetryable(true))
	if !f.Retryable() {
		t.Error("explicit retryable override not honored")
	}
}

func TestWrapPreservesFault(t *testing.T) {
	inner := Processing("t-9", "resize", errors.New("boom"))
	wrapped := Wrap(fmt.Errorf("worker loop: %w", inner), "task execution failed")

	if wrapped.Code() != CodeProcessing {
		t.Errorf("wrapped code = %s, want %s", wrapped.Code(), CodeProcessing)
	}
	if wrapped.TaskID() != "t-9" {
		t.Errorf("wrapped task ID = %s, want t-9", wrapped.TaskID())
	}
	if !errors.Is(wrapped, inner) {
		t.Error("wrap broke the error chain")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, "nothing") != nil {
		t.Error("Wrap(nil) should return nil")
	}
}

func TestWrapUnknownError(t *testing.T) {
	wrapped := Wrap(errors.New("plain"), "context")
	if wrapped.Code() != CodeInternal {
		t.Errorf("plain error should wrap to %s, got %s", CodeInternal, wrapped.Code())
	}
}

func TestJSONRoundTrip(t *testing.T) {
	f := ForcedShutdown("t-42", "sleep")

	data, err := json.Marshal(f)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var got Fault
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.Code() != CodeForcedShutdown {
		t.Errorf("code = %s, want %s", got.Code(), CodeForcedShutdown)
	}
	if got.Category() != CategoryShutdown {
		t.Errorf("category = %s, want %s", got.Category(), CategoryShutdown)
	}
	if got.TaskID() != "t-42" {
		t.Errorf("task ID = %s, want t-42", got.TaskID())
	}
	if got.Kind() != "sleep" {
		t.Errorf("kind = %s, want sleep", got.Kind())
	}
	if !got.Retryable() {
		t.Error("forced shutdown should survive round-trip as retryable")
	}
}

func TestIsCode(t *testing.T) {
	f := UnknownStrategy("t-1", "mystery")
	chained := fmt.Errorf("run: %w", f)

	if !IsCode(chained, CodeUnknownStrategy) {
		t.Error("IsCode should see through wrapping")
	}
	if IsCode(chained, CodeProcessing) {
		t.Error("IsCode matched the wrong code")
	}
	if IsCode(errors.New("plain"), CodeInternal) {
		t.Error("IsCode should reject non-fault errors")
	}
}

func TestGetCode(t *testing.T) {
	if got := GetCode(FromCode(CodeQueueClosed)); got != CodeQueueClosed {
		t.Errorf("GetCode = %s, want %s", got, CodeQueueClosed)
	}
	if got := GetCode(errors.New("plain")); got != CodeInternal {
		t.Errorf("GetCode for plain error = %s, want %s", got, CodeInternal)
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(FromCode(CodeQueueTimeout)) {
		t.Error("queue timeout should be retryable")
	}
	if IsRetryable(UnknownStrategy("t-1", "x")) {
		t.Error("unknown strategy should not be retryable")
	}
	if IsRetryable(errors.New("plain")) {
		t.Error("plain errors should not be retryable")
	}
}
