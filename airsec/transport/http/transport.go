// Package http is the Protocol A transport: plain HTTP to the appliance.
package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	nethttp "net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// MaxBodySize limits a single response body.
const MaxBodySize = 1 << 20 // 1 MiB

var (
	ErrStatus       = errors.New("http: unexpected response status")
	ErrBodyTooLarge = errors.New("http: response body too large")
)

// Options configures a Client. The zero value talks to port 80 with a
// dedicated http.Client.
type Options struct {
	Port   int
	Client *nethttp.Client
	Logger *logrus.Entry
}

// Client sends requests to one device. Close aborts in-flight requests.
type Client struct {
	base   string
	hc     *nethttp.Client
	log    *logrus.Entry
	closed context.Context
	close  context.CancelFunc
}

// Dial prepares a client for host. No connection is made until the first request.
func Dial(host string, opts Options) *Client {
	hostport := host
	if opts.Port != 0 {
		hostport = net.JoinHostPort(host, strconv.Itoa(opts.Port))
	}
	hc := opts.Client
	if hc == nil {
		hc = &nethttp.Client{Transport: &nethttp.Transport{DisableKeepAlives: true}}
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	closed, cancel := context.WithCancel(context.Background())
	return &Client{
		base:   "http://" + hostport,
		hc:     hc,
		log:    log.WithField("transport", "http"),
		closed: closed,
		close:  cancel,
	}
}

// Get issues a GET for path.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, nethttp.MethodGet, path, nil)
}

// Send issues a PUT for path; the security endpoint only accepts PUT.
func (c *Client) Send(ctx context.Context, path string, body []byte) ([]byte, error) {
	return c.do(ctx, nethttp.MethodPut, path, body)
}

// Close aborts in-flight requests and drops idle connections. It is idempotent.
func (c *Client) Close() error {
	c.close()
	c.hc.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(c.closed, cancel)
	defer stop()

	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := nethttp.NewRequestWithContext(ctx, method, c.base+path, rd)
	if err != nil {
		return nil, err
	}

	c.log.WithFields(logrus.Fields{
		"method": method,
		"url":    req.URL.String(),
	}).Debug("Sending request")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s %s: %s", ErrStatus, method, path, resp.Status)
	}
	out, err := io.ReadAll(io.LimitReader(resp.Body, MaxBodySize+1))
	if err != nil {
		return nil, err
	}
	if len(out) > MaxBodySize {
		return nil, ErrBodyTooLarge
	}
	return out, nil
}
