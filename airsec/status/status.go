// Package status gives a typed view of a decoded device document.
package status

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/TheusHen/airsec/airsec/protocol"
)

var ErrUnknownFanSpeed = errors.New("status: unknown fan speed code")

var fanSpeeds = map[string]int{"s": 0, "1": 1, "2": 2, "3": 3, "t": 4}

type AirQuality struct {
	IAQL float64 // allergen index
	PM25 float64
}

type ControlInfo struct {
	FanSpeed int
	IsManual bool
	IsOn     bool
}

type Filter struct {
	Hours float64 // remaining before replacement
	Type  string
}

// Reading is what one device reports. Sections the device did not send are nil.
type Reading struct {
	AirQuality *AirQuality
	Control    *ControlInfo
	Filters    map[string]Filter
}

// Parse interprets the firmware field names: om (fan speed), pwr, mode,
// iaql, pm25, and fltsts<N>/fltt<N> pairs.
func Parse(s protocol.State) (Reading, error) {
	var r Reading

	iaql, okI := number(s["iaql"])
	pm25, okP := number(s["pm25"])
	if okI && okP {
		r.AirQuality = &AirQuality{IAQL: iaql, PM25: pm25}
	}

	if om, ok := s["om"]; ok {
		speed, known := fanSpeeds[text(om)]
		if !known {
			return Reading{}, fmt.Errorf("%w: %v", ErrUnknownFanSpeed, om)
		}
		r.Control = &ControlInfo{
			FanSpeed: speed,
			IsManual: text(s["mode"]) == "M",
			IsOn:     text(s["pwr"]) == "1",
		}
	}

	filters, err := parseFilters(s)
	if err != nil {
		return Reading{}, err
	}
	r.Filters = filters
	return r, nil
}

func parseFilters(s protocol.State) (map[string]Filter, error) {
	var out map[string]Filter
	for key, v := range s {
		id, ok := strings.CutPrefix(key, "fltsts")
		if !ok {
			continue
		}
		hours, ok := number(v)
		if !ok {
			return nil, fmt.Errorf("status: filter %s: not a number: %v", id, v)
		}
		if out == nil {
			out = map[string]Filter{}
		}
		out[id] = Filter{Hours: hours, Type: text(s["fltt"+id])}
	}
	return out, nil
}

// FilterIDs returns the filter identifiers in order.
func (r Reading) FilterIDs() []string {
	ids := make([]string, 0, len(r.Filters))
	for id := range r.Filters {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
