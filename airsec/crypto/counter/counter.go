package counter

import (
	"errors"
	"fmt"
	"strconv"
	"sync"
)

// Size is the length of a rendered nonce in characters.
const Size = 8

var (
	ErrUnseeded      = errors.New("counter: session key not set")
	ErrAlreadySeeded = errors.New("counter: already seeded")
	ErrInvalidSeed   = errors.New("counter: seed must be 1 to 8 hex digits")
)

// State is the seeding state of a Counter.
type State uint8

const (
	Unseeded State = iota
	Seeded
)

func (s State) String() string {
	switch s {
	case Unseeded:
		return "UNSEEDED"
	case Seeded:
		return "SEEDED"
	default:
		return "UNKNOWN"
	}
}

// Counter is the per-session nonce. The zero value is Unseeded.
type Counter struct {
	mu    sync.Mutex
	state State
	value uint32
}

// ParseSeed parses a handshake value into a counter seed.
func ParseSeed(s string) (uint32, error) {
	if len(s) == 0 || len(s) > Size {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeed, s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSeed, s)
	}
	return uint32(v), nil
}

// Format renders v the way it travels on the wire.
func Format(v uint32) string {
	return fmt.Sprintf("%08X", v)
}

// Seed moves the counter from Unseeded to Seeded. It is the only transition.
func (c *Counter) Seed(v uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Unseeded {
		return ErrAlreadySeeded
	}
	c.state = Seeded
	c.value = v
	return nil
}

// Next advances the counter and returns the nonce for the next message.
func (c *Counter) Next() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != Seeded {
		return "", ErrUnseeded
	}
	c.value++
	return Format(c.value), nil
}

// State reports whether the counter has been seeded.
func (c *Counter) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}
