// Package target describes the appliances a process talks to.
package target

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/TheusHen/airsec/airsec/protocol"
)

var (
	ErrUnknownProtocol = errors.New("target: unknown protocol")
	ErrMissingHost     = errors.New("target: missing host")
)

// Target is one appliance: a name for reporting, where it lives, and which
// secured protocol it speaks. Port 0 means the protocol default.
type Target struct {
	Name     string
	Host     string
	Port     int
	Protocol protocol.Kind
}

// KnownProtocols lists the protocol names accepted by ParseProtocol.
func KnownProtocols() []string {
	return []string{protocol.KindHTTP.String(), protocol.KindCoAP.String()}
}

func ParseProtocol(s string) (protocol.Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "http":
		return protocol.KindHTTP, nil
	case "coap":
		return protocol.KindCoAP, nil
	default:
		return 0, fmt.Errorf("%w %q, known: %s", ErrUnknownProtocol, s, strings.Join(KnownProtocols(), ", "))
	}
}

// Parse reads a target from a URL such as coap://192.168.1.20 or
// http://purifier.lan:8080.
func Parse(name, raw string) (Target, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return Target{}, err
	}
	kind, err := ParseProtocol(u.Scheme)
	if err != nil {
		return Target{}, err
	}
	host := u.Hostname()
	if host == "" {
		return Target{}, ErrMissingHost
	}
	t := Target{Name: name, Host: host, Protocol: kind}
	if p := u.Port(); p != "" {
		port, err := strconv.ParseUint(p, 10, 16)
		if err != nil {
			return Target{}, fmt.Errorf("target: bad port %q: %w", p, err)
		}
		t.Port = int(port)
	}
	if t.Name == "" {
		t.Name = host
	}
	return t, nil
}

func (t Target) String() string {
	host := t.Host
	if t.Port != 0 {
		host = net.JoinHostPort(t.Host, strconv.Itoa(t.Port))
	}
	return t.Protocol.String() + "://" + host
}
