package service

import (
	"encoding/base32"
	"strings"
	"testing"
	"time"
)

// RFC 6238 appendix B vectors for SHA1 with 8 digits truncated to the
// last 6 (the vector codes share the low-order digits).
func TestHOTPCode_RFCVectors(t *testing.T) {
	secret := []byte("12345678901234567890")

	cases := []struct {
		unix int64
		code string
	}{
		{59, "287082"},
		{1111111109, "081804"},
		{1111111111, "050471"},
		{1234567890, "005924"},
		{2000000000, "279037"},
	}

	for _, tc := range cases {
		counter := tc.unix / totpPeriod
		if got := hotpCode(secret, counter); got != tc.code {
			t.Fatalf("t=%d: expected %s, got %s", tc.unix, tc.code, got)
		}
	}
}

func TestVerifyTOTPCode_AcceptsAdjacentStep(t *testing.T) {
	raw := []byte("12345678901234567890")
	secret := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw)

	now := time.Unix(1111111109, 0)
	code := hotpCode(raw, now.Unix()/totpPeriod)

	if !verifyTOTPCode(secret, code, now) {
		t.Fatalf("expected current-step code to verify")
	}
	// One period later the previous code is still inside the skew window.
	if !verifyTOTPCode(secret, code, now.Add(totpPeriod*time.Second)) {
		t.Fatalf("expected previous-step code to verify within skew")
	}
	// Two periods later it must not.
	if verifyTOTPCode(secret, code, now.Add(2*totpPeriod*time.Second)) {
		t.Fatalf("expected stale code to be rejected")
	}
}

func TestVerifyTOTPCode_RejectsMalformedInput(t *testing.T) {
	secret, err := generateTOTPSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		if verifyTOTPCode(secret, code, time.Now()) {
			t.Fatalf("expected %q to be rejected", code)
		}
	}
}

func TestGenerateTOTPSecret_Base32NoPadding(t *testing.T) {
	secret, err := generateTOTPSecret()
	if err != nil {
		t.Fatalf("generate secret: %v", err)
	}
	if strings.Contains(secret, "=") {
		t.Fatalf("secret must not be padded: %q", secret)
	}
	if _, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(secret); err != nil {
		t.Fatalf("secret is not valid base32: %v", err)
	}
}

func TestTOTPProvisionURI(t *testing.T) {
	uri := totpProvisionURI("ABC234", "selfserve", "user@example.com")

	if !strings.HasPrefix(uri, "otpauth://totp/") {
		t.Fatalf("unexpected scheme: %q", uri)
	}
	if !strings.Contains(uri, "secret=ABC234") {
		t.Fatalf("secret missing from uri: %q", uri)
	}
	if !strings.Contains(uri, "issuer=selfserve") {
		t.Fatalf("issuer missing from uri: %q", uri)
	}
}
