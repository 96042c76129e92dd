package checkout

import (
	"strings"
	"testing"
	"time"
)

func fixedClock() time.Time {
	return time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)
}

func TestLuhn(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"4532015112830366", true},
		{"4532015112830367", false},
		{"79927398713", true},
		{"0000000000000", true},
		{"", false},
		{"4532-0151", false},
	}
	for _, tt := range tests {
		if got := Luhn(tt.in); got != tt.want {
			t.Errorf("Luhn(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestLuhn_MatchesChecksumForAllLengths(t *testing.T) {
	base := "4532015112830366123"
	for n := 13; n <= 19; n++ {
		prefix := base[:n-1]
		valid := 0
		for d := byte('0'); d <= '9'; d++ {
			if ValidCardNumber(prefix + string(d)) {
				valid++
			}
		}
		if valid != 1 {
			t.Fatalf("length %d: %d check digits accepted, want exactly 1", n, valid)
		}
	}
}

func TestValidCardNumber(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"4532 0151 1283 0366", true},
		{"4532015112830367", false},
		{"453201511283", false},
		{"45320151128303661234", false},
		{"abcd015112830366", false},
	}
	for _, tt := range tests {
		if got := ValidCardNumber(tt.in); got != tt.want {
			t.Errorf("ValidCardNumber(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestExpiryNotPast(t *testing.T) {
	now := fixedClock()
	tests := []struct {
		in   string
		want bool
	}{
		{"12/99", true},
		{"10/26", true},
		{"09/26", false},
		{"01/20", false},
		{"13/25", false},
		{"1/27", false},
		{"12-27", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := ExpiryNotPast(tt.in, now); got != tt.want {
			t.Errorf("ExpiryNotPast(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestValidator_AccumulatesEveryField(t *testing.T) {
	v := NewValidator(WithClock(fixedClock))

	errs := v.Validate(Form{CardNumber: "4532015112830367", Expiry: "01/20", CVV: "12", HolderName: "   "})
	for _, key := range []string{"cardNumber", "expiry", "cvv", "holderName"} {
		if errs[key] == "" {
			t.Fatalf("missing error for %q in %v", key, errs)
		}
	}
	if len(errs) != 4 {
		t.Fatalf("errors = %v, want 4 fields", errs)
	}
	if !strings.Contains(errs["cardNumber"], "no es válido") {
		t.Fatalf("cardNumber error = %q, want checksum message", errs["cardNumber"])
	}

	errs = v.Validate(Form{CardNumber: "1234", Expiry: "12/99", CVV: "123", HolderName: "Ana"})
	if len(errs) != 1 || !strings.Contains(errs["cardNumber"], "13 y 19") {
		t.Fatalf("errors = %v, want only the length message", errs)
	}
}

func TestValidator_AcceptsValidForm(t *testing.T) {
	v := NewValidator(WithClock(fixedClock))
	errs := v.Validate(Form{CardNumber: "4532 0151 1283 0366", Expiry: "12/99", CVV: "123", HolderName: "Ana Pérez"})
	if len(errs) != 0 {
		t.Fatalf("errors = %v, want none", errs)
	}
}

func TestForm_PaymentStripsCardSpaces(t *testing.T) {
	p := Form{CardNumber: "4532 0151 1283 0366", Expiry: " 12/99", CVV: "123 ", HolderName: " Ana "}.Payment()
	if p.CardNumber != "4532015112830366" || p.Expiry != "12/99" || p.CVV != "123" || p.HolderName != "Ana" {
		t.Fatalf("payment = %+v, want trimmed fields", p)
	}
}
