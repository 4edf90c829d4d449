package protocol

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/cryptobyte"
)

const (
	// NonceSize is the width of the leading nonce field.
	NonceSize = 8
	// ChecksumSize is the width of the trailing checksum field.
	ChecksumSize = 2 * sha256.Size
	// blockHexSize is one AES block rendered as hex.
	blockHexSize = 32
)

var (
	ErrEnvelopeTooShort = errors.New("protocol: envelope too short")
	ErrInvalidEnvelope  = errors.New("protocol: invalid envelope ciphertext")
)

// Envelope is one Protocol B message on the wire.
// Format (ASCII, no separators):
//
//	8 chars:  nonce (uppercase hex counter)
//	2n chars: ciphertext (uppercase hex)
//	64 chars: checksum, uppercase hex SHA-256 over nonce || ciphertext
//
// The checksum carries no secret. It detects corruption only.
type Envelope struct {
	Nonce      string
	Ciphertext string
	Checksum   string
}

// Checksum computes the envelope checksum for a nonce and hex ciphertext.
func Checksum(nonce, ciphertext string) string {
	h := sha256.New()
	h.Write([]byte(nonce))
	h.Write([]byte(ciphertext))
	return strings.ToUpper(hex.EncodeToString(h.Sum(nil)))
}

// NewEnvelope frames raw ciphertext under nonce and fills in the checksum.
func NewEnvelope(nonce string, ciphertext []byte) Envelope {
	ct := strings.ToUpper(hex.EncodeToString(ciphertext))
	return Envelope{
		Nonce:      nonce,
		Ciphertext: ct,
		Checksum:   Checksum(nonce, ct),
	}
}

// ParseEnvelope splits s into its fixed-position fields. It does not verify
// the checksum or decode the ciphertext.
func ParseEnvelope(s string) (Envelope, error) {
	if len(s) < NonceSize+ChecksumSize {
		return Envelope{}, fmt.Errorf("%w: %d characters", ErrEnvelopeTooShort, len(s))
	}
	in := cryptobyte.String(s)
	var nonce, ct, sum []byte
	if !in.ReadBytes(&nonce, NonceSize) ||
		!in.ReadBytes(&ct, len(in)-ChecksumSize) ||
		!in.ReadBytes(&sum, ChecksumSize) ||
		!in.Empty() {
		return Envelope{}, ErrEnvelopeTooShort
	}
	return Envelope{
		Nonce:      string(nonce),
		Ciphertext: string(ct),
		Checksum:   string(sum),
	}, nil
}

// Verify recomputes the checksum and compares it with the transmitted one.
func (e Envelope) Verify() bool {
	want := Checksum(e.Nonce, e.Ciphertext)
	return subtle.ConstantTimeCompare([]byte(e.Checksum), []byte(want)) == 1
}

// CiphertextBytes decodes the ciphertext field. It must hold at least one
// whole AES block.
func (e Envelope) CiphertextBytes() ([]byte, error) {
	if len(e.Ciphertext) == 0 || len(e.Ciphertext)%blockHexSize != 0 {
		return nil, fmt.Errorf("%w: %d hex characters", ErrInvalidEnvelope, len(e.Ciphertext))
	}
	raw, err := hex.DecodeString(e.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	return raw, nil
}

// Encode renders the envelope in wire form.
func (e Envelope) Encode() string {
	b := cryptobyte.NewBuilder(make([]byte, 0, len(e.Nonce)+len(e.Ciphertext)+len(e.Checksum)))
	b.AddBytes([]byte(e.Nonce))
	b.AddBytes([]byte(e.Ciphertext))
	b.AddBytes([]byte(e.Checksum))
	return string(b.BytesOrPanic())
}

func (e Envelope) String() string { return e.Encode() }
