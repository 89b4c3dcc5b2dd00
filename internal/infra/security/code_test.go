package security

import (
	"strings"
	"testing"
)

func TestGenerateNumericCode(t *testing.T) {
	code, err := GenerateNumericCode(4)
	if err != nil {
		t.Fatalf("GenerateNumericCode returned error: %v", err)
	}
	if len(code) != 4 {
		t.Fatalf("expected 4 digits, got %q", code)
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			t.Fatalf("expected numeric code, got %q", code)
		}
	}
}

func TestGenerateNumericCode_RejectsNonPositiveLength(t *testing.T) {
	if _, err := GenerateNumericCode(0); err == nil {
		t.Fatalf("expected error for zero length")
	}
	if _, err := GenerateNumericCode(-3); err == nil {
		t.Fatalf("expected error for negative length")
	}
}

func TestGenerateAlphanumericCode(t *testing.T) {
	code, err := GenerateAlphanumericCode(6)
	if err != nil {
		t.Fatalf("GenerateAlphanumericCode returned error: %v", err)
	}
	if len(code) != 6 {
		t.Fatalf("expected 6 characters, got %q", code)
	}
	for _, c := range code {
		if !strings.ContainsRune(alphanumericAlphabet, c) {
			t.Fatalf("character %q outside alphabet in code %q", c, code)
		}
	}
}

func TestGenerateSecureToken(t *testing.T) {
	token, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	// 32 random bytes encode to 43 base64url characters.
	if len(token) != 43 {
		t.Fatalf("expected 43 characters, got %d (%q)", len(token), token)
	}

	other, err := GenerateSecureToken(32)
	if err != nil {
		t.Fatalf("GenerateSecureToken returned error: %v", err)
	}
	if token == other {
		t.Fatalf("expected distinct tokens")
	}
}

func TestHashToken_Deterministic(t *testing.T) {
	first := HashToken("abc")
	second := HashToken("abc")
	if first != second {
		t.Fatalf("expected deterministic hash, got %q and %q", first, second)
	}
	if len(first) != 64 {
		t.Fatalf("expected 64 hex characters, got %d", len(first))
	}
	if HashToken("abd") == first {
		t.Fatalf("expected different inputs to hash differently")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals("1234", "1234") {
		t.Fatalf("expected equal codes to match")
	}
	if ConstantTimeEquals("1234", "1235") {
		t.Fatalf("expected different codes not to match")
	}
	if ConstantTimeEquals("1234", "12345") {
		t.Fatalf("expected different lengths not to match")
	}
}
