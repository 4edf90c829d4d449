package crypto

import (
	"errors"

	"github.com/TheusHen/airsec/airsec/crypto/counter"
	"github.com/TheusHen/airsec/airsec/protocol"
)

var (
	ErrSessionKeyNotSet = counter.ErrUnseeded
	ErrDigestMismatch   = errors.New("crypto: envelope digest mismatch")
)

// EncryptionContext is the Protocol B cipher state for one device session.
// It starts Unseeded; SetSessionKey seeds the nonce counter from the
// handshake response. Encrypt requires a seeded context, Decrypt does not.
//
// A context belongs to a single session and must not be shared between
// concurrent requests.
type EncryptionContext struct {
	salt  []byte
	nonce counter.Counter
}

// NewEncryptionContext returns an unseeded context using the firmware salt.
func NewEncryptionContext() *EncryptionContext {
	return NewEncryptionContextWithSalt([]byte(FirmwareSalt))
}

// NewEncryptionContextWithSalt returns an unseeded context deriving keys from salt.
func NewEncryptionContextWithSalt(salt []byte) *EncryptionContext {
	return &EncryptionContext{salt: append([]byte(nil), salt...)}
}

// SetSessionKey seeds the nonce counter. It may be called once.
func (c *EncryptionContext) SetSessionKey(key string) error {
	seed, err := counter.ParseSeed(key)
	if err != nil {
		return err
	}
	return c.nonce.Seed(seed)
}

// Seeded reports whether SetSessionKey has been called.
func (c *EncryptionContext) Seeded() bool {
	return c.nonce.State() == counter.Seeded
}

// Encrypt advances the nonce and seals plaintext into an envelope.
func (c *EncryptionContext) Encrypt(plaintext []byte) (protocol.Envelope, error) {
	nonce, err := c.nonce.Next()
	if err != nil {
		return protocol.Envelope{}, err
	}
	key, iv := DeriveKeyIV(c.salt, nonce)
	ct, err := EncryptCBC(key, iv, Pad(plaintext))
	if err != nil {
		return protocol.Envelope{}, err
	}
	return protocol.NewEnvelope(nonce, ct), nil
}

// Decrypt verifies and opens an envelope. The checksum is checked before any
// ciphertext reaches the block cipher. The key is derived from the nonce
// carried in the envelope; local counter state is neither read nor advanced.
func (c *EncryptionContext) Decrypt(envelope string) ([]byte, error) {
	env, err := protocol.ParseEnvelope(envelope)
	if err != nil {
		return nil, err
	}
	if !env.Verify() {
		return nil, ErrDigestMismatch
	}
	ct, err := env.CiphertextBytes()
	if err != nil {
		return nil, err
	}
	key, iv := DeriveKeyIV(c.salt, env.Nonce)
	padded, err := DecryptCBC(key, iv, ct)
	if err != nil {
		return nil, err
	}
	return Unpad(padded)
}
