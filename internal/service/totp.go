package service

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/subtle"
	"encoding/base32"
	"encoding/binary"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// RFC 6238 TOTP, SHA1 / 6 digits / 30s period, one step of clock skew
// either way. That is what every mainstream authenticator app expects.
const (
	totpSecretBytes = 20
	totpDigits      = 6
	totpPeriod      = 30
	totpSkew        = 1
)

var totpEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

func generateTOTPSecret() (string, error) {
	raw := make([]byte, totpSecretBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("failed to generate totp secret: %w", err)
	}

	return totpEncoding.EncodeToString(raw), nil
}

func totpProvisionURI(secret, issuer, account string) string {
	label := url.PathEscape(issuer + ":" + account)

	v := url.Values{}
	v.Set("secret", secret)
	v.Set("issuer", issuer)
	v.Set("period", fmt.Sprintf("%d", totpPeriod))
	v.Set("digits", fmt.Sprintf("%d", totpDigits))
	v.Set("algorithm", "SHA1")

	return "otpauth://totp/" + label + "?" + v.Encode()
}

func verifyTOTPCode(secret, code string, now time.Time) bool {
	trimmed := strings.TrimSpace(code)
	if len(trimmed) != totpDigits || !isNumeric(trimmed) {
		return false
	}

	raw, err := totpEncoding.DecodeString(strings.ToUpper(secret))
	if err != nil || len(raw) == 0 {
		return false
	}

	baseCounter := now.Unix() / totpPeriod
	for step := -totpSkew; step <= totpSkew; step++ {
		counter := baseCounter + int64(step)
		if counter < 0 {
			continue
		}
		if subtle.ConstantTimeCompare([]byte(hotpCode(raw, counter)), []byte(trimmed)) == 1 {
			return true
		}
	}

	return false
}

func hotpCode(secret []byte, counter int64) string {
	var msg [8]byte
	binary.BigEndian.PutUint64(msg[:], uint64(counter))

	mac := hmac.New(sha1.New, secret)
	mac.Write(msg[:])
	sum := mac.Sum(nil)

	offset := sum[len(sum)-1] & 0x0f
	bin := (int(sum[offset])&0x7f)<<24 |
		(int(sum[offset+1])&0xff)<<16 |
		(int(sum[offset+2])&0xff)<<8 |
		(int(sum[offset+3]) & 0xff)

	mod := 1
	for i := 0; i < totpDigits; i++ {
		mod *= 10
	}

	return fmt.Sprintf("%0*d", totpDigits, bin%mod)
}

func isNumeric(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
