package target

import (
	"testing"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Target
	}{
		{name: "living", raw: "coap://192.168.1.20", want: Target{Name: "living", Host: "192.168.1.20", Protocol: protocol.KindCoAP}},
		{name: "", raw: "http://purifier.lan:8080", want: Target{Name: "purifier.lan", Host: "purifier.lan", Port: 8080, Protocol: protocol.KindHTTP}},
		{name: "v6", raw: "COAP://[fe80::1]:5684", want: Target{Name: "v6", Host: "fe80::1", Port: 5684, Protocol: protocol.KindCoAP}},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := Parse(tt.name, tt.raw)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseErrors(t *testing.T) {
	_, err := Parse("x", "mqtt://10.0.0.1")
	assert.ErrorIs(t, err, ErrUnknownProtocol)
	assert.Contains(t, err.Error(), "http, coap")

	_, err = Parse("x", "coap://")
	assert.ErrorIs(t, err, ErrMissingHost)

	_, err = Parse("x", "http://10.0.0.1:99999")
	assert.Error(t, err)
}

func TestString(t *testing.T) {
	assert.Equal(t, "coap://10.0.0.1", Target{Host: "10.0.0.1", Protocol: protocol.KindCoAP}.String())
	assert.Equal(t, "http://[fe80::1]:80", Target{Host: "fe80::1", Port: 80, Protocol: protocol.KindHTTP}.String())
}
