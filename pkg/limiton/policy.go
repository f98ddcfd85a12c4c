package limiton

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// OverflowMode selects what a full registry does with a new request.
type OverflowMode int

const (
	// OverflowReject refuses new instances once the registry is full.
	// A capacity-one registry hands back its resident instance instead.
	OverflowReject OverflowMode = iota

	// OverflowPump admits every request and evicts the oldest instance
	// to stay within capacity.
	OverflowPump
)

// String returns the mode name.
func (m OverflowMode) String() string {
	switch m {
	case OverflowReject:
		return "reject"
	case OverflowPump:
		return "pump"
	default:
		return "unknown"
	}
}

// ParseOverflowMode converts "reject" or "pump" (any case) to an OverflowMode.
// The empty string selects OverflowReject.
func ParseOverflowMode(s string) (OverflowMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "reject":
		return OverflowReject, nil
	case "pump":
		return OverflowPump, nil
	}
	return 0, &ConfigurationError{Field: "overflow", Value: s, Err: ErrInvalidOverflowMode}
}

// Policy fixes how many instances a registry retains and what happens
// when a request arrives at full occupancy.
type Policy struct {
	// Capacity is the maximum number of resident instances. Must be at least 1.
	Capacity int

	// Overflow selects reject or pump behavior at full occupancy.
	Overflow OverflowMode

	// StrictArgs makes a capacity-one reject registry fail with
	// ArgumentMismatchError instead of silently reusing its instance
	// when the requested arguments differ from the resident ones.
	StrictArgs bool
}

// Singleton returns the classic one-instance reject policy.
func Singleton() Policy {
	return Policy{Capacity: 1, Overflow: OverflowReject}
}

// Validate reports a ConfigurationError for a capacity below one or an
// unknown overflow mode.
func (p Policy) Validate() error {
	if p.Capacity < 1 {
		return &ConfigurationError{Field: "capacity", Value: p.Capacity, Err: ErrInvalidCapacity}
	}
	if p.Overflow != OverflowReject && p.Overflow != OverflowPump {
		return &ConfigurationError{Field: "overflow", Value: int(p.Overflow), Err: ErrInvalidOverflowMode}
	}
	return nil
}

// ParseCapacity coerces v into a capacity.
//
// Accepts:
//   - any signed or unsigned integer type
//   - float32/float64 with no fractional part
//   - json.Number and decimal strings holding an integer
//
// Values that are not integral, or integral but below one, return a
// ConfigurationError wrapping ErrInvalidCapacity.
func ParseCapacity(v any) (int, error) {
	n, ok := toInt(v)
	if !ok || n < 1 {
		return 0, &ConfigurationError{Field: "capacity", Value: v, Err: ErrInvalidCapacity}
	}
	return n, nil
}

func toInt(v any) (int, bool) {
	switch val := v.(type) {
	case int:
		return val, true
	case int8:
		return int(val), true
	case int16:
		return int(val), true
	case int32:
		return int(val), true
	case int64:
		if val > math.MaxInt || val < math.MinInt {
			return 0, false
		}
		return int(val), true
	case uint:
		if val > math.MaxInt {
			return 0, false
		}
		return int(val), true
	case uint8:
		return int(val), true
	case uint16:
		return int(val), true
	case uint32:
		return int(val), true
	case uint64:
		if val > math.MaxInt {
			return 0, false
		}
		return int(val), true
	case float32:
		return floatToInt(float64(val))
	case float64:
		return floatToInt(val)
	case json.Number:
		return toInt(string(val))
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(val))
		if err != nil {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f >= math.MaxInt || f < math.MinInt {
		return 0, false
	}
	return int(f), true
}

// String renders the policy as "capacity=N overflow=mode".
func (p Policy) String() string {
	s := fmt.Sprintf("capacity=%d overflow=%s", p.Capacity, p.Overflow)
	if p.StrictArgs {
		s += " strict_args"
	}
	return s
}
