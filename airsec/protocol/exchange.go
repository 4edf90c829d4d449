package protocol

import (
	"bytes"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
)

// SyncTokenSize is the number of random bytes sent in a Protocol B handshake.
const SyncTokenSize = 4

var (
	ErrMissingField    = errors.New("protocol: missing field")
	ErrMalformedField  = errors.New("protocol: malformed field")
	ErrMissingReported = errors.New("protocol: payload has no state.reported object")
	ErrCommandRejected = errors.New("protocol: device rejected command")
)

const controlSuccessValue = "success"

// KeyExchangeRequest carries the local DH public value for Protocol A.
type KeyExchangeRequest struct {
	Diffie string `json:"diffie"`
}

// KeyExchangeResponse is the device reply: its public value and the session
// key wrapped under the shared secret.
type KeyExchangeResponse struct {
	Key     string `json:"key"`
	Hellman string `json:"hellman"`
}

func EncodeKeyExchangeRequest(publicHex string) ([]byte, error) {
	return json.Marshal(KeyExchangeRequest{Diffie: publicHex})
}

// DecodeKeyExchangeResponse parses the device reply. Missing fields are errors.
func DecodeKeyExchangeResponse(b []byte) (KeyExchangeResponse, error) {
	var r KeyExchangeResponse
	if err := json.Unmarshal(b, &r); err != nil {
		return KeyExchangeResponse{}, fmt.Errorf("%w: %v", ErrMalformedField, err)
	}
	if r.Key == "" {
		return KeyExchangeResponse{}, fmt.Errorf("%w: key", ErrMissingField)
	}
	if r.Hellman == "" {
		return KeyExchangeResponse{}, fmt.Errorf("%w: hellman", ErrMissingField)
	}
	return r, nil
}

// PeerPublic parses the hellman field.
func (r KeyExchangeResponse) PeerPublic() (*big.Int, error) {
	n, ok := new(big.Int).SetString(r.Hellman, 16)
	if !ok || n.Sign() <= 0 {
		return nil, fmt.Errorf("%w: hellman", ErrMalformedField)
	}
	return n, nil
}

// WrappedKey decodes the key field.
func (r KeyExchangeResponse) WrappedKey() ([]byte, error) {
	raw, err := hex.DecodeString(r.Key)
	if err != nil || len(raw) < 16 || len(raw)%16 != 0 {
		return nil, fmt.Errorf("%w: key", ErrMalformedField)
	}
	return raw, nil
}

// NewSyncToken returns SyncTokenSize random bytes as uppercase hex.
func NewSyncToken(r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, SyncTokenSize)
	if _, err := io.ReadFull(r, buf); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// State is a decoded device document. Field names are the firmware's own
// and values are passed through untouched.
type State map[string]any

func decodeJSON(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

// DecodeState parses a flat Protocol A document.
func DecodeState(b []byte) (State, error) {
	var s State
	if err := decodeJSON(b, &s); err != nil {
		return nil, fmt.Errorf("protocol: decode state: %w", err)
	}
	return s, nil
}

// DecodeReported extracts state.reported from a Protocol B document.
func DecodeReported(b []byte) (State, error) {
	var doc struct {
		State struct {
			Reported State `json:"reported"`
		} `json:"state"`
	}
	if err := decodeJSON(b, &doc); err != nil {
		return nil, fmt.Errorf("protocol: decode state: %w", err)
	}
	if doc.State.Reported == nil {
		return nil, ErrMissingReported
	}
	return doc.State.Reported, nil
}

// EncodeControl builds a Protocol B control document setting values.
func EncodeControl(values map[string]any) ([]byte, error) {
	desired := map[string]any{
		"CommandType": "app",
		"DeviceId":    "",
		"EnduserId":   "",
	}
	for k, v := range values {
		desired[k] = v
	}
	return json.Marshal(map[string]any{
		"state": map[string]any{"desired": desired},
	})
}

// CheckControlResponse reports ErrCommandRejected unless the device answered
// with a success status.
func CheckControlResponse(b []byte) error {
	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(b, &resp); err != nil || resp.Status != controlSuccessValue {
		return fmt.Errorf("%w: %q", ErrCommandRejected, b)
	}
	return nil
}
