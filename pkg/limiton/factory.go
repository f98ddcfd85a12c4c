package limiton

import (
	"context"
	"fmt"
	"reflect"
	"sync/atomic"
)

// factorySeq numbers factories for their default registry names.
var factorySeq atomic.Uint64

// Factory wraps a constructor so that every call goes through its own
// registry. Two factories for the same type never share instances.
//
// Example:
//
//	newClient, err := limiton.NewFactory(dialClient,
//	    limiton.WithCapacity(3),
//	    limiton.WithOverflow(limiton.OverflowPump),
//	)
//	h, err := newClient.New(ctx, "cache-1:6379")
type Factory[T, A any] struct {
	build    func(ctx context.Context, args A) (*T, error)
	registry *Registry[T]
}

// factoryConfig collects factory options before the registry is built.
type factoryConfig struct {
	policy   Policy
	registry []Option
}

// FactoryOption configures a Factory.
type FactoryOption func(*factoryConfig)

// WithCapacity sets the factory capacity. Default: 1.
func WithCapacity(n int) FactoryOption {
	return func(c *factoryConfig) {
		c.policy.Capacity = n
	}
}

// WithOverflow sets the factory overflow mode. Default: OverflowReject.
func WithOverflow(mode OverflowMode) FactoryOption {
	return func(c *factoryConfig) {
		c.policy.Overflow = mode
	}
}

// WithStrictArgs makes a capacity-one factory reject requests whose
// arguments differ from those of its resident instance.
func WithStrictArgs(strict bool) FactoryOption {
	return func(c *factoryConfig) {
		c.policy.StrictArgs = strict
	}
}

// WithPolicy replaces capacity, overflow and strictness at once,
// typically with a policy loaded from configuration.
func WithPolicy(p Policy) FactoryOption {
	return func(c *factoryConfig) {
		c.policy = p
	}
}

// WithRegistryOptions passes options through to the factory's registry.
func WithRegistryOptions(opts ...Option) FactoryOption {
	return func(c *factoryConfig) {
		c.registry = append(c.registry, opts...)
	}
}

// NewFactory creates a Factory around build.
// Returns ErrNilConstructor for a nil build and a ConfigurationError for
// an invalid capacity or overflow mode.
func NewFactory[T, A any](build func(ctx context.Context, args A) (*T, error), opts ...FactoryOption) (*Factory[T, A], error) {
	if build == nil {
		return nil, ErrNilConstructor
	}

	cfg := factoryConfig{policy: Singleton()}
	for _, opt := range opts {
		opt(&cfg)
	}

	name := fmt.Sprintf("%s/factory-%d", reflect.TypeFor[T]().String(), factorySeq.Add(1))
	regOpts := append([]Option{WithName(name)}, cfg.registry...)

	reg, err := New[T](cfg.policy, regOpts...)
	if err != nil {
		return nil, err
	}
	return &Factory[T, A]{build: build, registry: reg}, nil
}

// New acquires an instance through the factory's registry, building it
// from args when the policy admits a new instance.
func (f *Factory[T, A]) New(ctx context.Context, args A) (Handle[T], error) {
	return AcquireWith(ctx, f.registry, f.build, args)
}

// Registry returns the factory's registry for introspection.
func (f *Factory[T, A]) Registry() *Registry[T] {
	return f.registry
}
