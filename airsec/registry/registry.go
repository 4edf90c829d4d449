// Package registry maps protocol kinds to session constructors and keeps the
// set of configured targets.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/TheusHen/airsec/airsec/session"
	"github.com/TheusHen/airsec/airsec/target"
	"github.com/TheusHen/airsec/airsec/transport/coap"
	"github.com/TheusHen/airsec/airsec/transport/http"
)

var ErrNotFound = errors.New("registry: target not found")

// Creator builds a session for a target.
type Creator func(t target.Target, opts session.Options) session.DeviceSession

// Registry maps protocol kinds to Creators.
type Registry struct {
	mu       sync.RWMutex
	creators map[protocol.Kind]Creator
}

func New() *Registry {
	return &Registry{creators: map[protocol.Kind]Creator{}}
}

// Default returns a registry wired to the real HTTP and CoAP transports.
func Default() *Registry {
	r := New()
	r.Register(protocol.KindHTTP, NewHTTP)
	r.Register(protocol.KindCoAP, NewCoAP)
	return r
}

func (r *Registry) Register(kind protocol.Kind, c Creator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[kind] = c
}

// New builds a session for t, failing for protocols nobody registered.
func (r *Registry) New(t target.Target, opts session.Options) (session.DeviceSession, error) {
	r.mu.RLock()
	c, ok := r.creators[t.Protocol]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q for target %q", target.ErrUnknownProtocol, t.Protocol.String(), t.Name)
	}
	return c(t, opts), nil
}

// NewHTTP builds a Protocol A session over net/http.
func NewHTTP(t target.Target, opts session.Options) session.DeviceSession {
	return session.NewHTTPSession(t.Host, func(context.Context) (session.Transport, error) {
		return http.Dial(t.Host, http.Options{Port: t.Port, Logger: opts.Logger}), nil
	}, opts)
}

// NewCoAP builds a Protocol B session over CoAP/UDP.
func NewCoAP(t target.Target, opts session.Options) session.DeviceSession {
	return session.NewCoAPSession(t.Host, func(ctx context.Context) (session.Transport, error) {
		return coap.Dial(ctx, t.Host, coap.Options{Port: t.Port, Logger: opts.Logger})
	}, opts)
}

// Targets is an in-memory set of named targets.
type Targets struct {
	mu      sync.RWMutex
	targets map[string]target.Target
}

func NewTargets() *Targets {
	return &Targets{targets: map[string]target.Target{}}
}

func (s *Targets) Add(t target.Target) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.targets[t.Name] = t
}

func (s *Targets) Lookup(name string) (target.Target, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.targets[name]
	if !ok {
		return target.Target{}, ErrNotFound
	}
	return t, nil
}

// List returns the targets sorted by name.
func (s *Targets) List() []target.Target {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]target.Target, 0, len(s.targets))
	for _, t := range s.targets {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
