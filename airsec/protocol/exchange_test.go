package protocol

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyExchangeRequest(t *testing.T) {
	b, err := EncodeKeyExchangeRequest("266facc807c3aa8f7e9888015babecc6")
	require.NoError(t, err)
	assert.JSONEq(t, `{"diffie":"266facc807c3aa8f7e9888015babecc6"}`, string(b))
}

func TestDecodeKeyExchangeResponse(t *testing.T) {
	r, err := DecodeKeyExchangeResponse([]byte(`{"key":"23a4d1c18fb19c779c3bcfb874f84b88","hellman":"28bdc7dd672c69700fd92831b9f98cdf"}`))
	require.NoError(t, err)

	pub, err := r.PeerPublic()
	require.NoError(t, err)
	assert.Equal(t, "28bdc7dd672c69700fd92831b9f98cdf", pub.Text(16))

	key, err := r.WrappedKey()
	require.NoError(t, err)
	assert.Len(t, key, 16)
}

func TestDecodeKeyExchangeResponseFailures(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "not json", body: `<html>`, want: ErrMalformedField},
		{name: "missing key", body: `{"hellman":"ff"}`, want: ErrMissingField},
		{name: "missing hellman", body: `{"key":"00"}`, want: ErrMissingField},
		{name: "null", body: `null`, want: ErrMissingField},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeKeyExchangeResponse([]byte(tt.body))
			assert.ErrorIs(t, err, tt.want)
		})
	}

	_, err := KeyExchangeResponse{Key: "xyz", Hellman: "ff"}.WrappedKey()
	assert.ErrorIs(t, err, ErrMalformedField)
	_, err = KeyExchangeResponse{Key: "00", Hellman: "ff"}.WrappedKey()
	assert.ErrorIs(t, err, ErrMalformedField)
	_, err = KeyExchangeResponse{Key: "00", Hellman: "nothex"}.PeerPublic()
	assert.ErrorIs(t, err, ErrMalformedField)
}

func TestNewSyncToken(t *testing.T) {
	tok, err := NewSyncToken(bytes.NewReader([]byte{0x0a, 0xbc, 0xde, 0xf0}))
	require.NoError(t, err)
	assert.Equal(t, "0ABCDEF0", tok)

	tok, err = NewSyncToken(nil)
	require.NoError(t, err)
	assert.Len(t, tok, 2*SyncTokenSize)
}

func TestDecodeReported(t *testing.T) {
	s, err := DecodeReported([]byte(`{"state":{"reported":{"pwr":"1","pm25":7}}}`))
	require.NoError(t, err)
	assert.Equal(t, "1", s["pwr"])
	assert.Equal(t, json.Number("7"), s["pm25"])

	_, err = DecodeReported([]byte(`{"state":{}}`))
	assert.ErrorIs(t, err, ErrMissingReported)

	_, err = DecodeReported([]byte(`{"state":`))
	assert.Error(t, err)
}

func TestDecodeState(t *testing.T) {
	s, err := DecodeState([]byte(`{"om":"s","iaql":1}`))
	require.NoError(t, err)
	assert.Equal(t, "s", s["om"])
	assert.Equal(t, json.Number("1"), s["iaql"])
}

func TestEncodeControl(t *testing.T) {
	b, err := EncodeControl(map[string]any{"pwr": "0"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"state":{"desired":{"CommandType":"app","DeviceId":"","EnduserId":"","pwr":"0"}}}`, string(b))
}

func TestCheckControlResponse(t *testing.T) {
	assert.NoError(t, CheckControlResponse([]byte(`{"status":"success"}`)))
	assert.ErrorIs(t, CheckControlResponse([]byte(`{"status":"failed"}`)), ErrCommandRejected)
	assert.ErrorIs(t, CheckControlResponse([]byte(``)), ErrCommandRejected)
}
