package coap

import (
	"bytes"
	"context"
	"io"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/mux"
	coapnet "github.com/plgd-dev/go-coap/v3/net"
	"github.com/plgd-dev/go-coap/v3/options"
	"github.com/plgd-dev/go-coap/v3/udp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seenRequest is what the device observed about one request.
type seenRequest struct {
	path       string
	typ        message.Type
	observe    uint32
	hasObserve bool
}

type device struct {
	port int

	mu   sync.Mutex
	seen []seenRequest
}

func (d *device) record(path string, req *mux.Message) {
	obs, err := req.Observe()
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen = append(d.seen, seenRequest{path: path, typ: req.Type(), observe: obs, hasObserve: err == nil})
}

func (d *device) requests() []seenRequest {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]seenRequest(nil), d.seen...)
}

// startDevice serves the Protocol B resources on a loopback UDP port.
func startDevice(t *testing.T) *device {
	t.Helper()
	d := &device{}
	r := mux.NewRouter()
	require.NoError(t, r.Handle(protocol.SyncPath, mux.HandlerFunc(func(w mux.ResponseWriter, req *mux.Message) {
		d.record(protocol.SyncPath, req)
		body, _ := io.ReadAll(req.Body())
		if len(body) != 2*protocol.SyncTokenSize {
			_ = w.SetResponse(codes.BadRequest, message.TextPlain, nil)
			return
		}
		_ = w.SetResponse(codes.Content, message.TextPlain, bytes.NewReader([]byte("000000FF")))
	})))
	require.NoError(t, r.Handle(protocol.StatusPath, mux.HandlerFunc(func(w mux.ResponseWriter, req *mux.Message) {
		d.record(protocol.StatusPath, req)
		_ = w.SetResponse(codes.Content, message.TextPlain, bytes.NewReader([]byte("ENVELOPE")))
	})))

	l, err := coapnet.NewListenUDP("udp4", "127.0.0.1:0")
	require.NoError(t, err)
	s := udp.NewServer(options.WithMux(r))
	go func() { _ = s.Serve(l) }()
	t.Cleanup(func() {
		s.Stop()
		_ = l.Close()
	})

	_, p, err := net.SplitHostPort(l.LocalAddr().String())
	require.NoError(t, err)
	d.port, err = strconv.Atoi(p)
	require.NoError(t, err)
	return d
}

func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestClientRoundTrip(t *testing.T) {
	d := startDevice(t)
	ctx := testContext(t)
	c, err := Dial(ctx, "127.0.0.1", Options{Port: d.port})
	require.NoError(t, err)
	defer c.Close()

	seed, err := c.Send(ctx, protocol.SyncPath, []byte("0A0B0C0D"))
	require.NoError(t, err)
	assert.Equal(t, "000000FF", string(seed))

	body, err := c.Get(ctx, protocol.StatusPath)
	require.NoError(t, err)
	assert.Equal(t, "ENVELOPE", string(body))

	_, err = c.Send(ctx, protocol.SyncPath, []byte("short"))
	assert.ErrorIs(t, err, ErrStatus)
}

func TestRequestsAreNonConfirmable(t *testing.T) {
	d := startDevice(t)
	ctx := testContext(t)
	c, err := Dial(ctx, "127.0.0.1", Options{Port: d.port})
	require.NoError(t, err)
	defer c.Close()

	_, err = c.Send(ctx, protocol.SyncPath, []byte("0A0B0C0D"))
	require.NoError(t, err)
	_, err = c.Get(ctx, protocol.StatusPath)
	require.NoError(t, err)

	seen := d.requests()
	require.Len(t, seen, 2)
	for _, r := range seen {
		assert.Equal(t, message.NonConfirmable, r.typ, r.path)
	}

	assert.Equal(t, protocol.SyncPath, seen[0].path)
	assert.False(t, seen[0].hasObserve)

	assert.Equal(t, protocol.StatusPath, seen[1].path)
	assert.True(t, seen[1].hasObserve)
	assert.Equal(t, uint32(0), seen[1].observe)
}

func TestDialResolvesHostname(t *testing.T) {
	d := startDevice(t)
	ctx := testContext(t)
	c, err := Dial(ctx, "localhost", Options{Port: d.port})
	require.NoError(t, err)
	defer c.Close()

	body, err := c.Get(ctx, protocol.StatusPath)
	require.NoError(t, err)
	assert.Equal(t, "ENVELOPE", string(body))
}

func TestDialHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := Dial(ctx, "purifier.invalid", Options{})
	assert.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)
}

func TestCloseIdempotent(t *testing.T) {
	d := startDevice(t)
	c, err := Dial(testContext(t), "127.0.0.1", Options{Port: d.port})
	require.NoError(t, err)
	first := c.Close()
	assert.Equal(t, first, c.Close())
}
