package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"encoding/base64"
	"errors"
	"fmt"
)

// BodyPrefixSize is the number of leading bytes Protocol A prepends to every
// decrypted body before the JSON document.
const BodyPrefixSize = 2

var (
	ErrInvalidPadding    = errors.New("crypto: invalid PKCS#7 padding")
	ErrInvalidCiphertext = errors.New("crypto: ciphertext is not a whole number of blocks")
	ErrInvalidKeySize    = errors.New("crypto: invalid AES key size")
	ErrBodyTooShort      = errors.New("crypto: decrypted body shorter than its prefix")
)

// zeroIV is a firmware quirk of Protocol A: every CBC operation there starts
// from an all-zero IV. It is not configurable.
var zeroIV = make([]byte, aes.BlockSize)

// Pad applies PKCS#7 padding to the AES block size.
func Pad(b []byte) []byte {
	n := aes.BlockSize - len(b)%aes.BlockSize
	out := make([]byte, len(b), len(b)+n)
	copy(out, b)
	for i := 0; i < n; i++ {
		out = append(out, byte(n))
	}
	return out
}

// Unpad removes PKCS#7 padding and fails closed on anything malformed.
func Unpad(b []byte) ([]byte, error) {
	if len(b) == 0 || len(b)%aes.BlockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > aes.BlockSize {
		return nil, ErrInvalidPadding
	}
	for _, c := range b[len(b)-n:] {
		if int(c) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}

func newBlock(key []byte) (cipher.Block, error) {
	if len(key) != 16 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidKeySize, len(key))
	}
	return aes.NewCipher(key)
}

// EncryptCBC encrypts already padded plaintext.
func EncryptCBC(key, iv, plaintext []byte) ([]byte, error) {
	if len(plaintext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(plaintext))
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(out, plaintext)
	return out, nil
}

// DecryptCBC decrypts ciphertext without touching the padding.
func DecryptCBC(key, iv, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}
	block, err := newBlock(key)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv).CryptBlocks(out, ciphertext)
	return out, nil
}

// UnwrapKey recovers the Protocol A session key. The wrapped key is
// decrypted under the DH shared key with a zero IV and no unpadding; the
// first 16 bytes are the session key.
func UnwrapKey(wrapped, sharedKey []byte) ([]byte, error) {
	plain, err := DecryptCBC(sharedKey, zeroIV, wrapped)
	if err != nil {
		return nil, err
	}
	return plain[:SharedKeySize], nil
}

// DecryptBody decodes a Protocol A base64 body, decrypts it under key with a
// zero IV, strips PKCS#7 padding and the fixed two-byte prefix.
func DecryptBody(body string, key []byte) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(body)
	if err != nil {
		return nil, fmt.Errorf("crypto: decode body: %w", err)
	}
	padded, err := DecryptCBC(key, zeroIV, raw)
	if err != nil {
		return nil, err
	}
	plain, err := Unpad(padded)
	if err != nil {
		return nil, err
	}
	if len(plain) < BodyPrefixSize {
		return nil, ErrBodyTooShort
	}
	return plain[BodyPrefixSize:], nil
}

// EncryptBody is the inverse of DecryptBody. The appliance never needs it
// from this side; it exists for device simulators and tests.
func EncryptBody(plaintext, key []byte) (string, error) {
	prefixed := make([]byte, BodyPrefixSize, BodyPrefixSize+len(plaintext))
	prefixed = append(prefixed, plaintext...)
	ct, err := EncryptCBC(key, zeroIV, Pad(prefixed))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(ct), nil
}

// WrapKey encrypts a 16-byte session key under sharedKey, as the device does.
func WrapKey(sessionKey, sharedKey []byte) ([]byte, error) {
	return EncryptCBC(sharedKey, zeroIV, sessionKey)
}
