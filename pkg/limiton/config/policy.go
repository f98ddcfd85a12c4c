package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/caarlos0/env/v11"

	"github.com/randalmurphal/limiton/pkg/limiton"
)

// RegistriesKey is the top-level key holding named registry policies.
const RegistriesKey = "registries"

// Policy decodes the policy stored under registries.<name>.
//
// The entry is either a map or a bare capacity. Recognized fields:
//   - capacity (alias maxlen): anything limiton.ParseCapacity accepts; default 1
//   - overflow: "reject" or "pump"; default "reject"
//   - pump: boolean shorthand for overflow: pump
//   - strict_args: boolean; default false
//
// The decoded policy is validated the same way limiton.New validates it.
func (c Config) Policy(name string) (limiton.Policy, error) {
	registries := c.Section(RegistriesKey)
	if !registries.Has(name) {
		return limiton.Policy{}, fmt.Errorf("%s: %w", name, ErrPolicyNotFound)
	}
	section := registries.Section(name)
	if !isMap(registries.Any(name, nil)) {
		// Scalar shorthand: "db: 4" is a capacity.
		section = New(map[string]any{"capacity": registries.Any(name, nil)})
	}
	p, err := DecodePolicy(section)
	if err != nil {
		return limiton.Policy{}, fmt.Errorf("registry %s: %w", name, err)
	}
	return p, nil
}

func isMap(v any) bool {
	switch v.(type) {
	case map[string]any, map[any]any:
		return true
	}
	return false
}

// Policies decodes every policy under the registries section.
func (c Config) Policies() (map[string]limiton.Policy, error) {
	registries := c.Section(RegistriesKey)
	out := make(map[string]limiton.Policy, len(registries.Raw()))
	for _, name := range registries.Keys() {
		p, err := c.Policy(name)
		if err != nil {
			return nil, err
		}
		out[name] = p
	}
	return out, nil
}

// DecodePolicy decodes a single policy section.
//
// A field that is present with the wrong type is a ConfigurationError,
// never a silent default.
func DecodePolicy(section Config) (limiton.Policy, error) {
	raw := section.Any("capacity", section.Any("maxlen", 1))
	capacity, err := limiton.ParseCapacity(raw)
	if err != nil {
		return limiton.Policy{}, err
	}

	overflow := limiton.OverflowReject
	if section.Has("overflow") {
		s, ok := section.Any("overflow", nil).(string)
		if !ok {
			return limiton.Policy{}, &limiton.ConfigurationError{
				Field: "overflow",
				Value: section.Any("overflow", nil),
				Err:   limiton.ErrInvalidOverflowMode,
			}
		}
		if overflow, err = limiton.ParseOverflowMode(s); err != nil {
			return limiton.Policy{}, err
		}
	} else {
		pump, err := flag(section, "pump")
		if err != nil {
			return limiton.Policy{}, err
		}
		if pump {
			overflow = limiton.OverflowPump
		}
	}

	strict, err := flag(section, "strict_args")
	if err != nil {
		return limiton.Policy{}, err
	}

	p := limiton.Policy{
		Capacity:   capacity,
		Overflow:   overflow,
		StrictArgs: strict,
	}
	if err := p.Validate(); err != nil {
		return limiton.Policy{}, err
	}
	return p, nil
}

// flag reads an optional boolean field. Missing means false.
func flag(section Config, key string) (bool, error) {
	if !section.Has(key) {
		return false, nil
	}
	b, ok := section.Any(key, nil).(bool)
	if !ok {
		return false, &limiton.ConfigurationError{
			Field: key,
			Value: section.Any(key, nil),
			Err:   ErrInvalidFlag,
		}
	}
	return b, nil
}

// envPolicy mirrors limiton.Policy for environment parsing. Capacity is
// read as a string so that invalid values surface as ConfigurationError.
type envPolicy struct {
	Capacity   string `env:"CAPACITY" envDefault:"1"`
	Overflow   string `env:"OVERFLOW" envDefault:"reject"`
	StrictArgs bool   `env:"STRICT_ARGS" envDefault:"false"`
}

// PolicyFromEnv reads a policy from <prefix>CAPACITY, <prefix>OVERFLOW and
// <prefix>STRICT_ARGS.
//
// Example:
//
//	// LIMITON_DB_CAPACITY=4 LIMITON_DB_OVERFLOW=pump
//	p, err := config.PolicyFromEnv("LIMITON_DB_")
func PolicyFromEnv(prefix string) (limiton.Policy, error) {
	var ep envPolicy
	if err := env.ParseWithOptions(&ep, env.Options{Prefix: prefix}); err != nil {
		return limiton.Policy{}, fmt.Errorf("parse env: %w", err)
	}

	capacity, err := limiton.ParseCapacity(ep.Capacity)
	if err != nil {
		return limiton.Policy{}, err
	}
	overflow, err := limiton.ParseOverflowMode(ep.Overflow)
	if err != nil {
		return limiton.Policy{}, err
	}
	return limiton.Policy{
		Capacity:   capacity,
		Overflow:   overflow,
		StrictArgs: ep.StrictArgs,
	}, nil
}

// EnvPrefix builds the conventional environment prefix for a registry
// name: "LIMITON_" followed by the upper-cased name with every
// non-alphanumeric rune replaced by an underscore, then "_".
func EnvPrefix(name string) string {
	var b strings.Builder
	b.WriteString("LIMITON_")
	for _, r := range strings.ToUpper(name) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		} else {
			b.WriteByte('_')
		}
	}
	b.WriteByte('_')
	return b.String()
}

// EnvVars renders p as the variables PolicyFromEnv reads for prefix.
func EnvVars(prefix string, p limiton.Policy) map[string]string {
	return map[string]string{
		prefix + "CAPACITY":    strconv.Itoa(p.Capacity),
		prefix + "OVERFLOW":    p.Overflow.String(),
		prefix + "STRICT_ARGS": strconv.FormatBool(p.StrictArgs),
	}
}
