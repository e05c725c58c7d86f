package service

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strings"

	"payuni-gateway/pkg/apperror"
)

const envelopeSeparator = ":::"

const sealIVSize = 16

// SealService implements ports.SealCodec using AES-256-GCM with a fixed
// merchant key/IV pair, matching the gateway's own sealing contract: both
// sides hold the same key and IV out of band, so there is no per-message
// nonce to exchange.
type SealService struct {
	key []byte // 32 bytes, used directly (not hex-decoded) — ASCII merchant secret
	iv  []byte // 16 bytes, the AES-GCM nonce
}

// NewSealService creates a seal codec from the merchant's literal key/IV
// strings. key must be 32 bytes and iv must be 16 bytes once taken as raw
// ASCII bytes.
func NewSealService(key, iv string) (*SealService, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("seal key must be 32 bytes, got %d", len(key))
	}
	if len(iv) != sealIVSize {
		return nil, fmt.Errorf("seal iv must be %d bytes, got %d", sealIVSize, len(iv))
	}
	return &SealService{key: []byte(key), iv: []byte(iv)}, nil
}

func (s *SealService) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(s.key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, sealIVSize)
}

// Seal encrypts plaintext and returns hex(base64(ciphertext) + ":::" +
// base64(tag)).
func (s *SealService) Seal(plaintext string) (string, error) {
	aesGCM, err := s.gcm()
	if err != nil {
		return "", apperror.ErrEncodingError(err)
	}

	sealed := aesGCM.Seal(nil, s.iv, []byte(plaintext), nil)
	tagLen := aesGCM.Overhead()
	ciphertext := sealed[:len(sealed)-tagLen]
	tag := sealed[len(sealed)-tagLen:]

	body := base64.StdEncoding.EncodeToString(ciphertext) + envelopeSeparator + base64.StdEncoding.EncodeToString(tag)
	return hex.EncodeToString([]byte(body)), nil
}

// Open decrypts an envelope built by Seal (or by the gateway using the same
// key/IV pair).
func (s *SealService) Open(envelope string) (string, error) {
	raw, err := hex.DecodeString(envelope)
	if err != nil {
		return "", apperror.ErrInvalidEnvelope(err)
	}

	parts := strings.SplitN(string(raw), envelopeSeparator, 2)
	if len(parts) != 2 {
		return "", apperror.ErrInvalidEnvelope(fmt.Errorf("missing separator"))
	}

	ciphertext, err := base64.StdEncoding.DecodeString(parts[0])
	if err != nil {
		return "", apperror.ErrInvalidEnvelope(err)
	}
	tag, err := base64.StdEncoding.DecodeString(parts[1])
	if err != nil {
		return "", apperror.ErrInvalidEnvelope(err)
	}

	aesGCM, err := s.gcm()
	if err != nil {
		return "", apperror.ErrEncodingError(err)
	}

	plaintext, err := aesGCM.Open(nil, s.iv, append(ciphertext, tag...), nil)
	if err != nil {
		return "", apperror.ErrInvalidEnvelope(err)
	}

	return string(plaintext), nil
}

// Hash returns the gateway-compatible envelope signature:
// uppercase hex of SHA256(asciiKey || envelope || asciiIV). This is a plain
// digest, not an HMAC — it lets the gateway authenticate a request it never
// decrypts, by recomputing the same digest with the shared key/IV.
func (s *SealService) Hash(envelope string) string {
	h := sha256.New()
	h.Write(s.key)
	h.Write([]byte(envelope))
	h.Write(s.iv)
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// EqualsCT compares two byte slices in constant time, short-circuiting only
// on length (never on content) so a timing side channel can't leak position
// of the first differing byte.
func (s *SealService) EqualsCT(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
