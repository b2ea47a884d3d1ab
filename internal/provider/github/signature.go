package github

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// SignatureHeader is the HTTP header that contains the HMAC-SHA256 signature
// of the request body.
const SignatureHeader = "X-Hub-Signature-256"

const signaturePrefix = "sha256="

// ExpectedSignature returns the signature header value that GitHub sends for
// body when the webhook is configured with secret.
func ExpectedSignature(body, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	_, _ = mac.Write(body)

	return signaturePrefix + hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature returns true if signatureHeader is the HMAC-SHA256
// signature of body, created with secret.
// The comparison is done in constant time.
// An empty signatureHeader is always invalid. An empty secret is not
// treated specially, the signature must match an HMAC with an empty key.
func VerifySignature(body, secret []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}

	return hmac.Equal(
		[]byte(ExpectedSignature(body, secret)),
		[]byte(signatureHeader),
	)
}
