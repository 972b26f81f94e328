package kms_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fabriziosalmi/newsportal/internal/kms"
)

const testKey = "0000000000000000000000000000000000000000000000000000000000000000"

var testAAD = []byte("summaries/user-1/2025/11/01/20251002T000000Z_deadbeef.ndjson.gz")

func newTestSealer(t *testing.T) *kms.Sealer {
	t.Helper()
	s, err := kms.New(testKey)
	require.NoError(t, err)
	return s
}

func TestNew_InvalidHex(t *testing.T) {
	_, err := kms.New("not-valid-hex")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode key")
}

func TestNew_WrongLength(t *testing.T) {
	// 16 bytes = 32 hex chars – too short for AES-256.
	_, err := kms.New(strings.Repeat("0", 32))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "32 bytes")
}

func TestSealOpen_RoundTrip(t *testing.T) {
	s := newTestSealer(t)
	plaintext := []byte(`{"id":"s1","title":"archived"}` + "\n")

	sealed, err := s.Seal(plaintext, testAAD)
	require.NoError(t, err)
	assert.False(t, bytes.Contains(sealed, plaintext))

	recovered, err := s.Open(sealed, testAAD)
	require.NoError(t, err)
	assert.Equal(t, plaintext, recovered)
}

func TestSeal_Nondeterministic(t *testing.T) {
	// Random nonce: sealing the same blob twice must differ.
	s := newTestSealer(t)
	c1, err := s.Seal([]byte("same"), testAAD)
	require.NoError(t, err)
	c2, err := s.Seal([]byte("same"), testAAD)
	require.NoError(t, err)
	assert.NotEqual(t, c1, c2)
}

func TestOpen_WrongKeyBinding(t *testing.T) {
	s := newTestSealer(t)
	sealed, err := s.Seal([]byte("payload"), testAAD)
	require.NoError(t, err)

	_, err = s.Open(sealed, []byte("summaries/user-2/other.ndjson.gz"))
	require.Error(t, err, "a blob moved to another key must not open")
}

func TestOpen_Tampered(t *testing.T) {
	s := newTestSealer(t)
	sealed, err := s.Seal([]byte("sensitive-value"), testAAD)
	require.NoError(t, err)

	sealed[len(sealed)/2] ^= 0xff
	_, err = s.Open(sealed, testAAD)
	require.Error(t, err, "tampered ciphertext must fail decryption")
}

func TestOpen_TooShort(t *testing.T) {
	s := newTestSealer(t)
	_, err := s.Open([]byte{1, 2, 3}, testAAD)
	require.Error(t, err)
}

func TestSealOpen_Empty(t *testing.T) {
	s := newTestSealer(t)
	sealed, err := s.Seal(nil, testAAD)
	require.NoError(t, err)

	recovered, err := s.Open(sealed, testAAD)
	require.NoError(t, err)
	assert.Empty(t, recovered)
}
