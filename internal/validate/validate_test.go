package validate

import (
	"strings"
	"testing"

	"github.com/aumarche/aumarche/internal/apperr"
)

func TestPhone(t *testing.T) {
	valid := []string{"+2250700000000", "07000000", "123456789012345"}
	invalid := []string{"", "+", "0700", "+225 07 00 00 00", "1234567890123456", "++22507000000", "abcdefghi"}
	for _, p := range valid {
		if !Phone(p) {
			t.Fatalf("expected %q to be valid", p)
		}
	}
	for _, p := range invalid {
		if Phone(p) {
			t.Fatalf("expected %q to be invalid", p)
		}
	}
}

func TestOTPCode(t *testing.T) {
	if !OTPCode("000123") {
		t.Fatalf("leading zeros are allowed")
	}
	for _, c := range []string{"12345", "1234567", "12a456", " 12345"} {
		if OTPCode(c) {
			t.Fatalf("expected %q to be rejected", c)
		}
	}
}

type signupForm struct {
	Email string `json:"email" validate:"required,email"`
	Phone string `json:"phone" validate:"required,phone"`
}

func TestStructNamesJSONFields(t *testing.T) {
	err := Struct(signupForm{Email: "not-an-email", Phone: "12"})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !apperr.Has(err, apperr.KindValidation) {
		t.Fatalf("expected validation kind, got %v", err)
	}
	if !strings.Contains(err.Error(), "email") || !strings.Contains(err.Error(), "phone") {
		t.Fatalf("expected field names in %q", err.Error())
	}

	if err := Struct(signupForm{Email: "awa@example.ci", Phone: "+2250700000000"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
