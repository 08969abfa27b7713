package errors

import (
	stdErrors "errors"
	"testing"
)

func TestErrorIncludesInternal(t *testing.T) {
	internal := stdErrors.New("boom")
	err := Wrap(internal, "failed")

	if err.Error() != "failed: boom" {
		t.Fatalf("unexpected error string: %s", err.Error())
	}
}

func TestWithInternalCopies(t *testing.T) {
	base := New("TEST", "test", 400)
	with := base.WithInternal(stdErrors.New("oops"))

	if with == base {
		t.Fatal("expected WithInternal to return a copy")
	}

	if base.Internal != nil {
		t.Fatal("expected original error to remain unchanged")
	}

	if with.Internal == nil {
		t.Fatal("expected internal error to be set")
	}
}

func TestFromError(t *testing.T) {
	appErr := ErrNotFound
	if out := FromError(appErr); out != appErr {
		t.Fatal("expected FromError to return the same AppError instance")
	}

	raw := stdErrors.New("raw")
	out := FromError(raw)
	if out.Code != ErrInternalServer.Code {
		t.Fatalf("expected internal server code, got %s", out.Code)
	}
	if out.Internal == nil {
		t.Fatal("expected internal error to be attached")
	}
}

func TestNewBadRequest(t *testing.T) {
	err := NewBadRequest("invalid payload")
	if err.Code != ErrBadRequest.Code {
		t.Fatalf("expected %s, got %s", ErrBadRequest.Code, err.Code)
	}
	if err.Message != "invalid payload" {
		t.Fatalf("unexpected message: %s", err.Message)
	}
	if err.StatusCode != ErrBadRequest.StatusCode {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
}

func TestNewValidationUsesFirstFieldMessage(t *testing.T) {
	fields := FieldErrors{}
	fields.Add("phone_number", "Phone number is taken")
	fields.Add("email", "Email is taken")

	err := NewValidation(fields)
	if err.Code != ErrValidation.Code {
		t.Fatalf("expected %s, got %s", ErrValidation.Code, err.Code)
	}
	if err.Message != "Email is taken" {
		t.Fatalf("unexpected summary message: %s", err.Message)
	}
	if len(err.Fields["phone_number"]) != 1 {
		t.Fatalf("expected phone number message, got %v", err.Fields)
	}
}

func TestNewFieldErrorNonField(t *testing.T) {
	err := NewFieldError(NonFieldErrors, "Invalid credentials")
	if err.StatusCode != 400 {
		t.Fatalf("unexpected status: %d", err.StatusCode)
	}
	if got := err.Fields[NonFieldErrors]; len(got) != 1 || got[0] != "Invalid credentials" {
		t.Fatalf("unexpected fields: %v", err.Fields)
	}
}

func TestIsMatchesCopies(t *testing.T) {
	wrapped := ErrNotFound.WithInternal(stdErrors.New("missing row"))
	if !stdErrors.Is(wrapped, ErrNotFound) {
		t.Fatal("expected copy to match sentinel")
	}
	if stdErrors.Is(wrapped, ErrForbidden) {
		t.Fatal("did not expect forbidden to match")
	}
}
