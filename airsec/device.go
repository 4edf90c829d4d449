package airsec

import (
	"context"
	"errors"
	"fmt"

	"github.com/TheusHen/airsec/airsec/protocol"
	"github.com/TheusHen/airsec/airsec/registry"
	"github.com/TheusHen/airsec/airsec/session"
	"github.com/TheusHen/airsec/airsec/status"
	"github.com/TheusHen/airsec/airsec/target"
)

var ErrReadOnly = errors.New("airsec: protocol does not accept control commands")

// filterFetcher is implemented by sessions that keep filter state in a
// separate document.
type filterFetcher interface {
	FetchFilters(ctx context.Context) (protocol.State, error)
}

type controller interface {
	SetValues(ctx context.Context, values map[string]any) error
}

// Device is a high-level helper combining a target with its session.
type Device struct {
	Target  target.Target
	session session.DeviceSession
}

// NewDevice resolves the session for t using the default registry.
func NewDevice(t target.Target, opts session.Options) (*Device, error) {
	return NewDeviceWith(registry.Default(), t, opts)
}

func NewDeviceWith(r *registry.Registry, t target.Target, opts session.Options) (*Device, error) {
	s, err := r.New(t, opts)
	if err != nil {
		return nil, err
	}
	return &Device{Target: t, session: s}, nil
}

// FetchState returns the decoded device document.
func (d *Device) FetchState(ctx context.Context) (protocol.State, error) {
	return d.session.FetchState(ctx)
}

// FetchReading fetches the device state, plus the filter document where the
// protocol keeps it separately, and interprets the result.
func (d *Device) FetchReading(ctx context.Context) (status.Reading, error) {
	state, err := d.session.FetchState(ctx)
	if err != nil {
		return status.Reading{}, err
	}
	if ff, ok := d.session.(filterFetcher); ok {
		filters, err := ff.FetchFilters(ctx)
		if err != nil {
			return status.Reading{}, err
		}
		merged := make(protocol.State, len(state)+len(filters))
		for k, v := range state {
			merged[k] = v
		}
		for k, v := range filters {
			merged[k] = v
		}
		state = merged
	}
	return status.Parse(state)
}

// SetValues sends a control command. Only CoAP devices accept one.
func (d *Device) SetValues(ctx context.Context, values map[string]any) error {
	c, ok := d.session.(controller)
	if !ok {
		return fmt.Errorf("%w: %s", ErrReadOnly, d.Target)
	}
	return c.SetValues(ctx, values)
}
