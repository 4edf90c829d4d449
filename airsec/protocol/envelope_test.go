package protocol

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Captured from a seeded session encrypting "hello world" under nonce ABCD1235.
const helloEnvelope = "ABCD1235" +
	"B9D01E601BC26CD707D23B3882B1EA6D" +
	"83D66902D7BFD225F19BDE99E84AA3E2D64845569F720483B7E6AD492791D888"

func TestParseEnvelopeFields(t *testing.T) {
	env, err := ParseEnvelope(helloEnvelope)
	require.NoError(t, err)

	assert.Equal(t, "ABCD1235", env.Nonce)
	assert.Equal(t, "B9D01E601BC26CD707D23B3882B1EA6D", env.Ciphertext)
	assert.Len(t, env.Checksum, ChecksumSize)
	assert.True(t, env.Verify())
	assert.Equal(t, helloEnvelope, env.Encode())
}

func TestParseEnvelopeTooShort(t *testing.T) {
	_, err := ParseEnvelope(strings.Repeat("0", NonceSize+ChecksumSize-1))
	assert.ErrorIs(t, err, ErrEnvelopeTooShort)

	env, err := ParseEnvelope(strings.Repeat("0", NonceSize+ChecksumSize))
	require.NoError(t, err)
	assert.Empty(t, env.Ciphertext)
	_, err = env.CiphertextBytes()
	assert.ErrorIs(t, err, ErrInvalidEnvelope)
}

func TestEnvelopeVerifyDetectsTampering(t *testing.T) {
	env, err := ParseEnvelope(helloEnvelope)
	require.NoError(t, err)

	tampered := env
	tampered.Ciphertext = "C" + env.Ciphertext[1:]
	assert.False(t, tampered.Verify())

	tampered = env
	tampered.Checksum = strings.Repeat("0", ChecksumSize)
	assert.False(t, tampered.Verify())

	tampered = env
	tampered.Nonce = "ABCD1236"
	assert.False(t, tampered.Verify())
}

func TestCiphertextBytes(t *testing.T) {
	tests := []struct {
		name string
		ct   string
		ok   bool
	}{
		{name: "one block", ct: strings.Repeat("AB", 16), ok: true},
		{name: "two blocks lowercase", ct: strings.Repeat("ab", 32), ok: true},
		{name: "partial block", ct: strings.Repeat("AB", 15)},
		{name: "not hex", ct: strings.Repeat("ZZ", 16)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Envelope{Ciphertext: tt.ct}.CiphertextBytes()
			if !tt.ok {
				assert.ErrorIs(t, err, ErrInvalidEnvelope)
				return
			}
			require.NoError(t, err)
			assert.Len(t, raw, len(tt.ct)/2)
		})
	}
}

func TestNewEnvelope(t *testing.T) {
	env := NewEnvelope("0000000A", []byte{0xde, 0xad, 0xbe, 0xef})
	assert.Equal(t, "DEADBEEF", env.Ciphertext)
	assert.True(t, env.Verify())
	assert.Equal(t, "0000000ADEADBEEF"+env.Checksum, env.String())
}
