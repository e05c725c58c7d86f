package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSealKey = "01234567890123456789012345678901" // 32 bytes... trimmed below
	testSealIV  = "0123456789012345"                  // 16 bytes
)

func key32() string { return "abcdefghijklmnopqrstuvwxyz012345" } // 32 bytes

func TestNewSealService_InvalidLengths(t *testing.T) {
	_, err := NewSealService("shortkey", testSealIV)
	assert.Error(t, err)

	_, err = NewSealService(key32(), "short")
	assert.Error(t, err)
}

func TestSealService_SealOpenRoundTrip(t *testing.T) {
	svc, err := NewSealService(key32(), testSealIV)
	require.NoError(t, err)

	plaintext := "MerchantID=MS123&Amt=1000&Email=a@b.com"
	envelope, err := svc.Seal(plaintext)
	require.NoError(t, err)
	assert.NotEqual(t, plaintext, envelope)

	decoded, err := svc.Open(envelope)
	require.NoError(t, err)
	assert.Equal(t, plaintext, decoded)
}

func TestSealService_TamperedEnvelopeFailsOpen(t *testing.T) {
	svc, err := NewSealService(key32(), testSealIV)
	require.NoError(t, err)

	envelope, err := svc.Seal("payload")
	require.NoError(t, err)

	tampered := envelope[:len(envelope)-2] + "ff"
	_, err = svc.Open(tampered)
	assert.Error(t, err)
}

func TestSealService_HashIsDeterministicAndUppercaseHex(t *testing.T) {
	svc, err := NewSealService(key32(), testSealIV)
	require.NoError(t, err)

	envelope, err := svc.Seal("payload")
	require.NoError(t, err)

	h1 := svc.Hash(envelope)
	h2 := svc.Hash(envelope)
	assert.Equal(t, h1, h2)
	assert.Equal(t, 64, len(h1)) // sha256 -> 32 bytes -> 64 hex chars
	assert.Equal(t, h1, toUpperASCII(h1))
}

func TestSealService_HashChangesWithEnvelope(t *testing.T) {
	svc, err := NewSealService(key32(), testSealIV)
	require.NoError(t, err)

	e1, _ := svc.Seal("payload-a")
	e2, _ := svc.Seal("payload-b")
	assert.NotEqual(t, svc.Hash(e1), svc.Hash(e2))
}

func TestSealService_EqualsCT(t *testing.T) {
	svc, err := NewSealService(key32(), testSealIV)
	require.NoError(t, err)

	assert.True(t, svc.EqualsCT([]byte("same"), []byte("same")))
	assert.False(t, svc.EqualsCT([]byte("same"), []byte("diff")))
	assert.False(t, svc.EqualsCT([]byte("short"), []byte("longer-value")))
}

func toUpperASCII(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'a' && c <= 'z' {
			b[i] = c - 32
		}
	}
	return string(b)
}
