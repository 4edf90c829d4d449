package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/TheusHen/airsec/airsec/crypto"
	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/TheusHen/airsec/airsec/task"
	"github.com/sirupsen/logrus"
)

// DeviceSession fetches the decoded state of one appliance. Every call runs
// the full handshake-then-fetch sequence; nothing is reused across calls and
// nothing is retried. At most one call per device may be in flight.
type DeviceSession interface {
	FetchState(ctx context.Context) (protocol.State, error)
}

// Dialer opens a transport to the device. It runs inside the bounded task
// and must return once ctx is done, including during name resolution.
type Dialer func(ctx context.Context) (Transport, error)

// Options configures a session. The zero value is usable.
type Options struct {
	// Timeout bounds one whole sequence. Zero means task.DefaultTimeout.
	Timeout   time.Duration
	Handshake HandshakeOptions
	Logger    *logrus.Entry
}

func (o Options) logger(host string, kind protocol.Kind) *logrus.Entry {
	l := o.Logger
	if l == nil {
		l = logrus.NewEntry(logrus.StandardLogger())
	}
	return l.WithFields(logrus.Fields{
		"host":     host,
		"protocol": kind.String(),
	})
}

// run dials and runs fn as one bounded task. The abort hook closes the
// transport if the dial has already produced one.
func run[T any](ctx context.Context, dial Dialer, timeout time.Duration, log *logrus.Entry, fn func(context.Context, Transport) (T, error)) (T, error) {
	var (
		mu      sync.Mutex
		conn    Transport
		aborted bool
	)
	start := time.Now()
	v, err := task.Run(ctx, timeout, func() {
		log.Debug("Deadline reached, closing transport")
		mu.Lock()
		aborted = true
		c := conn
		mu.Unlock()
		if c != nil {
			_ = c.Close()
		}
	}, func(ctx context.Context) (T, error) {
		var zero T
		t, err := dial(ctx)
		if err != nil {
			return zero, err
		}
		defer t.Close()

		mu.Lock()
		conn = t
		late := aborted
		mu.Unlock()
		if late {
			return zero, ctx.Err()
		}
		return fn(ctx, t)
	})
	log.WithFields(logrus.Fields{
		"elapsed": time.Since(start).String(),
		"ok":      err == nil,
	}).Debug("Device exchange finished")
	return v, err
}

// HTTPSession is a DeviceSession for Protocol A.
type HTTPSession struct {
	dial Dialer
	opts Options
	log  *logrus.Entry
}

func NewHTTPSession(host string, dial Dialer, opts Options) *HTTPSession {
	return &HTTPSession{dial: dial, opts: opts, log: opts.logger(host, protocol.KindHTTP)}
}

// FetchState negotiates a session key and reads the air status document.
func (s *HTTPSession) FetchState(ctx context.Context) (protocol.State, error) {
	return s.read(ctx, protocol.AirPath)
}

// FetchFilters negotiates a session key and reads the filter document.
func (s *HTTPSession) FetchFilters(ctx context.Context) (protocol.State, error) {
	return s.read(ctx, protocol.FiltersPath)
}

func (s *HTTPSession) read(ctx context.Context, path string) (protocol.State, error) {
	log := s.log.WithField("path", path)
	return run(ctx, s.dial, s.opts.Timeout, log, func(ctx context.Context, t Transport) (protocol.State, error) {
		key, err := NegotiateKey(ctx, t, s.opts.Handshake)
		if err != nil {
			return nil, err
		}
		defer crypto.ZeroBytes(key)
		log.Debug("Session key negotiated")

		body, err := t.Get(ctx, path)
		if err != nil {
			return nil, err
		}
		plain, err := crypto.DecryptBody(strings.TrimSpace(string(body)), key)
		if err != nil {
			return nil, err
		}
		return protocol.DecodeState(plain)
	})
}

// CoAPSession is a DeviceSession for Protocol B.
type CoAPSession struct {
	dial Dialer
	opts Options
	log  *logrus.Entry
}

func NewCoAPSession(host string, dial Dialer, opts Options) *CoAPSession {
	return &CoAPSession{dial: dial, opts: opts, log: opts.logger(host, protocol.KindCoAP)}
}

// FetchState syncs with the device and reads state.reported.
func (s *CoAPSession) FetchState(ctx context.Context) (protocol.State, error) {
	return run(ctx, s.dial, s.opts.Timeout, s.log, func(ctx context.Context, t Transport) (protocol.State, error) {
		h, err := Open(ctx, t, s.opts.Handshake)
		if err != nil {
			return nil, err
		}
		s.log.Debug("Synced with device")
		return h.Status(ctx)
	})
}

// SetValues syncs with the device and sends one encrypted control command.
func (s *CoAPSession) SetValues(ctx context.Context, values map[string]any) error {
	_, err := run(ctx, s.dial, s.opts.Timeout, s.log, func(ctx context.Context, t Transport) (struct{}, error) {
		h, err := Open(ctx, t, s.opts.Handshake)
		if err != nil {
			return struct{}{}, err
		}
		s.log.WithField("keys", len(values)).Debug("Sending control command")
		return struct{}{}, h.Control(ctx, values)
	})
	return err
}
