// Package coap is the Protocol B transport: CoAP over UDP to the appliance.
//
// The firmware expects non-confirmable requests, and the status resource is
// read with an observe registration of 0. Close tears down the UDP
// connection, which also unblocks a request stuck in go-coap's resend loop.
package coap

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/plgd-dev/go-coap/v3/message"
	"github.com/plgd-dev/go-coap/v3/message/codes"
	"github.com/plgd-dev/go-coap/v3/message/pool"
	"github.com/plgd-dev/go-coap/v3/udp"
	"github.com/plgd-dev/go-coap/v3/udp/client"
	"github.com/sirupsen/logrus"
)

// DefaultPort is the appliance CoAP port.
const DefaultPort = protocol.DefaultCoAPPort

var (
	ErrStatus    = errors.New("coap: unexpected response code")
	ErrNoAddress = errors.New("coap: host has no addresses")
)

type Options struct {
	Port   int
	Logger *logrus.Entry
}

type Client struct {
	conn *client.Conn
	log  *logrus.Entry
	once sync.Once
	err  error
}

// Dial resolves host under ctx and opens a UDP CoAP connection to it.
func Dial(ctx context.Context, host string, opts Options) (*Client, error) {
	port := opts.Port
	if port == 0 {
		port = DefaultPort
	}
	ip, err := resolve(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("coap: resolve %s: %w", host, err)
	}
	addr := net.JoinHostPort(ip, strconv.Itoa(port))
	conn, err := udp.Dial(addr)
	if err != nil {
		return nil, fmt.Errorf("coap: dial %s: %w", addr, err)
	}
	log := opts.Logger
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Client{
		conn: conn,
		log:  log.WithFields(logrus.Fields{"transport": "coap", "addr": addr}),
	}, nil
}

func resolve(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return "", err
	}
	if len(addrs) == 0 {
		return "", ErrNoAddress
	}
	for _, a := range addrs {
		if a.IP.To4() != nil {
			return a.IP.String(), nil
		}
	}
	return addrs[0].IP.String(), nil
}

// Get reads path with observe=0.
func (c *Client) Get(ctx context.Context, path string) ([]byte, error) {
	req, err := c.conn.NewGetRequest(ctx, path)
	if err != nil {
		return nil, err
	}
	defer c.conn.ReleaseMessage(req)
	req.SetObserve(0)
	return c.do(req, path)
}

// Send posts body to path as plain text.
func (c *Client) Send(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := c.conn.NewPostRequest(ctx, path, message.TextPlain, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer c.conn.ReleaseMessage(req)
	return c.do(req, path)
}

func (c *Client) do(req *pool.Message, path string) ([]byte, error) {
	req.SetType(message.NonConfirmable)
	c.log.WithFields(logrus.Fields{
		"code": req.Code().String(),
		"path": path,
	}).Debug("Sending request")

	resp, err := c.conn.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.Code() >= codes.BadRequest {
		return nil, fmt.Errorf("%w: %s %s", ErrStatus, resp.Code(), path)
	}
	body, err := resp.ReadBody()
	if err != nil {
		return nil, err
	}
	return body, nil
}

// Close shuts the connection down. It is idempotent.
func (c *Client) Close() error {
	c.once.Do(func() {
		c.err = c.conn.Close()
	})
	return c.err
}
