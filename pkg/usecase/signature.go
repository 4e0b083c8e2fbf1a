package usecase

import (
	"crypto/hmac"
	"crypto/sha1" // #nosec G505 -- X-Hub-Signature is defined as HMAC-SHA1
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha1="

// VerifySignature checks an X-Hub-Signature header ("sha1=<hex>") against the raw request body.
// The body must be the exact bytes received; any re-encoded form will not match.
// An empty secret, or a missing or malformed signature, is never authentic.
func VerifySignature(secret string, body []byte, signature string) bool {
	if secret == "" || !strings.HasPrefix(signature, signaturePrefix) {
		return false
	}

	actualMAC, err := hex.DecodeString(strings.TrimPrefix(signature, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	expectedMAC := mac.Sum(nil)

	return subtle.ConstantTimeCompare(expectedMAC, actualMAC) == 1
}

// Sign computes the X-Hub-Signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write(body)
	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}
