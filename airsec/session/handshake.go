package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/TheusHen/airsec/airsec/crypto"
	"github.com/TheusHen/airsec/airsec/protocol"
)

var (
	ErrKeyExchange = errors.New("session: key exchange failed")
)

// Transport is a request/response channel to one device. Send is a PUT for
// Protocol A and a POST for Protocol B. Close must be safe to call more than
// once and must unblock any in-flight request.
type Transport interface {
	Get(ctx context.Context, path string) ([]byte, error)
	Send(ctx context.Context, path string, body []byte) ([]byte, error)
	Close() error
}

// HandshakeOptions tunes key negotiation. The zero value matches the firmware.
type HandshakeOptions struct {
	// Params is the DH group for Protocol A. Zero means crypto.DefaultParameters.
	Params crypto.DHParameters
	// Rand is the entropy source for exponents and sync tokens. Nil means crypto/rand.
	Rand io.Reader
	// Salt is the Protocol B derivation salt. Nil means crypto.FirmwareSalt.
	Salt []byte
}

func (o HandshakeOptions) params() crypto.DHParameters {
	if o.Params.Modulus == nil || o.Params.Base == nil {
		return crypto.DefaultParameters
	}
	return o.Params
}

func keyExchangeError(step string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrKeyExchange, step, err)
}

// NegotiateKey runs the Protocol A exchange and returns the 16-byte session
// key. A fresh private exponent is drawn on every call. Any transport error
// or malformed reply is returned as ErrKeyExchange; nothing is retried.
func NegotiateKey(ctx context.Context, t Transport, opts HandshakeOptions) ([]byte, error) {
	var (
		kp  *crypto.DHKeyPair
		err error
	)
	if opts.Rand != nil {
		kp, err = crypto.GenerateDHFrom(opts.Rand, opts.params())
	} else {
		kp, err = crypto.GenerateDH(opts.params())
	}
	if err != nil {
		return nil, keyExchangeError("generate key pair", err)
	}

	req, err := protocol.EncodeKeyExchangeRequest(kp.PublicHex())
	if err != nil {
		return nil, keyExchangeError("encode request", err)
	}
	body, err := t.Send(ctx, protocol.SecurityPath, req)
	if err != nil {
		return nil, keyExchangeError("send public value", err)
	}

	resp, err := protocol.DecodeKeyExchangeResponse(body)
	if err != nil {
		return nil, keyExchangeError("decode reply", err)
	}
	peer, err := resp.PeerPublic()
	if err != nil {
		return nil, keyExchangeError("decode reply", err)
	}
	wrapped, err := resp.WrappedKey()
	if err != nil {
		return nil, keyExchangeError("decode reply", err)
	}

	shared, err := kp.SharedKey(peer)
	if err != nil {
		return nil, keyExchangeError("shared secret", err)
	}
	defer crypto.ZeroBytes(shared)

	key, err := crypto.UnwrapKey(wrapped, shared)
	if err != nil {
		return nil, keyExchangeError("unwrap session key", err)
	}
	return key, nil
}

// Handle is an open Protocol B session: a transport plus the cipher context
// seeded from the handshake.
type Handle struct {
	conn   Transport
	cipher *crypto.EncryptionContext
}

// Open performs the Protocol B handshake: a random token is posted to the
// sync endpoint and the reply seeds the session nonce. The handshake itself
// is not encrypted.
func Open(ctx context.Context, t Transport, opts HandshakeOptions) (*Handle, error) {
	token, err := protocol.NewSyncToken(opts.Rand)
	if err != nil {
		return nil, keyExchangeError("sync token", err)
	}
	body, err := t.Send(ctx, protocol.SyncPath, []byte(token))
	if err != nil {
		return nil, keyExchangeError("sync", err)
	}

	salt := opts.Salt
	if salt == nil {
		salt = []byte(crypto.FirmwareSalt)
	}
	c := crypto.NewEncryptionContextWithSalt(salt)
	if err := c.SetSessionKey(strings.TrimSpace(string(body))); err != nil {
		return nil, keyExchangeError("seed session key", err)
	}
	return &Handle{conn: t, cipher: c}, nil
}

// Cipher exposes the seeded cipher context.
func (h *Handle) Cipher() *crypto.EncryptionContext { return h.cipher }

// Status fetches and decrypts the device state, returning state.reported.
func (h *Handle) Status(ctx context.Context) (protocol.State, error) {
	body, err := h.conn.Get(ctx, protocol.StatusPath)
	if err != nil {
		return nil, err
	}
	plain, err := h.cipher.Decrypt(strings.TrimSpace(string(body)))
	if err != nil {
		return nil, err
	}
	return protocol.DecodeReported(plain)
}

// Control encrypts a command setting values and sends it to the device.
func (h *Handle) Control(ctx context.Context, values map[string]any) error {
	doc, err := protocol.EncodeControl(values)
	if err != nil {
		return err
	}
	env, err := h.cipher.Encrypt(doc)
	if err != nil {
		return err
	}
	body, err := h.conn.Send(ctx, protocol.ControlPath, []byte(env.Encode()))
	if err != nil {
		return err
	}
	return protocol.CheckControlResponse(body)
}
