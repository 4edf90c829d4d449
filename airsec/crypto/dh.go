package crypto

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
)

const (
	// PrivateExponentBits is the entropy drawn for each private exponent.
	PrivateExponentBits = 256
	// SharedKeySize is the length the shared secret is truncated to.
	SharedKeySize = 16
)

var (
	ErrInvalidPublicValue = errors.New("crypto: invalid DH public value")
	ErrModulusTooSmall    = errors.New("crypto: DH modulus too small for a 16-byte key")
)

// DHParameters is a finite-field Diffie-Hellman group.
type DHParameters struct {
	Modulus *big.Int
	Base    *big.Int
}

// ByteLen is the fixed width used to serialize group elements.
func (p DHParameters) ByteLen() int {
	return (p.Modulus.BitLen() + 7) / 8
}

// DefaultParameters is the 1024-bit group from RFC 5114 section 2.1, which is
// what the appliance firmware hard-codes. It is never mutated.
var DefaultParameters = DHParameters{
	Modulus: mustHex("" +
		"B10B8F96A080E01DDE92DE5EAE5D54EC52C99FBCFB06A3C69A6A9DCA52D23B61" +
		"6073E28675A23D189838EF1E2EE652C013ECB4AEA906112324975C3CD49B83BF" +
		"ACCBDD7D90C4BD7098488E9C219A73724EFFD6FAE5644738FAA31A4FF55BCCC0" +
		"A151AF5F0DC8B4BD45BF37DF365C1A65E68CFDA76D4DA708DF1FB2BC2E4A4371"),
	Base: mustHex("" +
		"A4D1CBD5C3FD34126765A442EFB99905F8104DD258AC507FD6406CFF14266D31" +
		"266FEA1E5C41564B777E690F5504F213160217B4B01B886A5E91547F9E2749F4" +
		"D7FBD7D3B9A92EE1909D0D2263F80A76A6A24C087A091F531DBF0A0169B6A28A" +
		"D662A4D18E73AFA32D779D5918D08BC8858F4DCEF97C2A24855E6EEB22B3B2E5"),
}

func mustHex(s string) *big.Int {
	n, ok := new(big.Int).SetString(s, 16)
	if !ok {
		panic("crypto: bad DH constant")
	}
	return n
}

// DHKeyPair is an ephemeral key pair. It is generated per exchange and never reused.
type DHKeyPair struct {
	params  DHParameters
	private *big.Int
	Public  *big.Int
}

// GenerateDH draws a fresh private exponent from crypto/rand.
func GenerateDH(params DHParameters) (*DHKeyPair, error) {
	return GenerateDHFrom(rand.Reader, params)
}

// GenerateDHFrom draws the private exponent from r.
func GenerateDHFrom(r io.Reader, params DHParameters) (*DHKeyPair, error) {
	buf := make([]byte, PrivateExponentBits/8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	return NewDHKeyPair(params, new(big.Int).SetBytes(buf))
}

// NewDHKeyPair builds a key pair around a known private exponent.
func NewDHKeyPair(params DHParameters, private *big.Int) (*DHKeyPair, error) {
	if params.ByteLen() < SharedKeySize {
		return nil, ErrModulusTooSmall
	}
	return &DHKeyPair{
		params:  params,
		private: new(big.Int).Set(private),
		Public:  new(big.Int).Exp(params.Base, private, params.Modulus),
	}, nil
}

// PublicHex renders the public value as lowercase hex without leading zeros.
func (kp *DHKeyPair) PublicHex() string {
	return kp.Public.Text(16)
}

// SharedKey combines the private exponent with the peer's public value and
// returns the first 16 bytes of the fixed-width big-endian shared secret.
func (kp *DHKeyPair) SharedKey(peerPublic *big.Int) ([]byte, error) {
	one := big.NewInt(1)
	pMinusOne := new(big.Int).Sub(kp.params.Modulus, one)
	if peerPublic == nil || peerPublic.Cmp(one) <= 0 || peerPublic.Cmp(pMinusOne) >= 0 {
		return nil, ErrInvalidPublicValue
	}
	s := new(big.Int).Exp(peerPublic, kp.private, kp.params.Modulus)
	secret := s.FillBytes(make([]byte, kp.params.ByteLen()))
	key := make([]byte, SharedKeySize)
	copy(key, secret[:SharedKeySize])
	ZeroBytes(secret)
	return key, nil
}

// ZeroBytes overwrites b with zeros.
func ZeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
