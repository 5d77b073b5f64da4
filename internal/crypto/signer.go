// Package crypto provides the cryptographic primitives behind attendance
// certificates: HMAC signing of verification tokens and generation of the
// random identifiers that make certificates unique and verifiable.
package crypto

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"time"
)

// Signer computes and checks HMAC-SHA256 signatures over certificate
// verification tokens. The key is the application secret, injected once at
// construction and never exposed.
type Signer struct {
	key []byte
}

// NewSigner creates a Signer keyed with the application secret
func NewSigner(secret string) *Signer {
	return &Signer{key: []byte(secret)}
}

// Sign computes the HMAC-SHA256 of token and returns it hex-encoded
// (64 lowercase hex characters)
func (s *Signer) Sign(token string) string {
	mac := hmac.New(sha256.New, s.key)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the valid HMAC of token under the
// signer's key. The comparison is constant-time.
func (s *Signer) Verify(token, signature string) bool {
	expected := s.Sign(token)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// GenerateVerificationToken generates a 256-bit random verification token,
// hex-encoded (64 lowercase hex characters)
func GenerateVerificationToken() (string, error) {
	buf := make([]byte, 32) // 256 bits
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate verification token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// GenerateCertificateNumber generates a human-readable certificate number in
// the form CERT-<epoch-millis>-<8 uppercase hex chars>
func GenerateCertificateNumber() (string, error) {
	buf := make([]byte, 4)
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return "", fmt.Errorf("failed to generate certificate number: %w", err)
	}
	return fmt.Sprintf("CERT-%d-%s", time.Now().UnixMilli(), strings.ToUpper(hex.EncodeToString(buf))), nil
}
