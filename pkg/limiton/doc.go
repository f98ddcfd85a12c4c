/*
Package limiton caps how many live instances of a product type may exist
at once.

# Overview

A Registry owns up to Capacity instances of one type, in the order they
were admitted, and hands out Handles that observe those instances
without keeping them alive. What happens when a full registry is asked
for another instance depends on its OverflowMode:

  - OverflowReject: capacity one returns the resident instance (the
    classic singleton); larger capacities fail with
    CapacityExceededError.
  - OverflowPump: a new instance is always built and the oldest one is
    evicted. Handles to the evicted instance expire immediately.

# Basic Usage

	reg, err := limiton.New[Conn](limiton.Policy{
	    Capacity: 4,
	    Overflow: limiton.OverflowPump,
	})
	if err != nil {
	    log.Fatal(err) // *ConfigurationError for capacity < 1
	}

	h, err := reg.Acquire(ctx, func(ctx context.Context) (*Conn, error) {
	    return dial(ctx, addr)
	})
	if err != nil {
	    return err
	}

	err = h.Do(func(c *Conn) error {
	    return c.Ping()
	})
	if errors.Is(err, limiton.ErrExpired) {
	    // the connection was evicted by a newer one
	}

# Type-Level Policies

A type can carry its own policy by implementing Limited. A Catalog keeps
one registry per type:

	type Printer struct{ device string }

	func (Printer) LimitPolicy() limiton.Policy { return limiton.Singleton() }

	catalog := limiton.NewCatalog()
	if err := limiton.Declare[Printer](catalog); err != nil {
	    log.Fatal(err)
	}
	h, err := limiton.Construct(ctx, catalog, newPrinter)

# Factories

A Factory binds a constructor to a private registry:

	newClient, err := limiton.NewFactory(dialClient,
	    limiton.WithCapacity(3),
	    limiton.WithOverflow(limiton.OverflowPump),
	)
	h, err := newClient.New(ctx, "cache-1:6379")

# Arguments

AcquireWith records the arguments an instance was built with. When a
singleton is reused with different arguments the registry logs a warning
and emits an args.mismatched event; with Policy.StrictArgs it returns an
ArgumentMismatchError instead.

# Error Handling

Registry creation returns *ConfigurationError. Acquire may return:
  - *CapacityExceededError: full reject-mode registry
  - *ConstructorError: the constructor failed; the registry is unchanged
  - *PanicError: the constructor panicked
  - *ArgumentMismatchError: strict singleton reuse with different arguments
  - ErrNilContext, ErrNilConstructor, ErrNilInstance

# Observability

Registries accept WithLogger, WithMetrics, WithTracing and WithEvents.
All are disabled by default. Lifecycle events can be journaled with the
journal package.

# Thread Safety

A Registry is safe for concurrent use. The capacity check, the
constructor call and the admission run under one lock, so constructors
must not acquire from the registry that is calling them. Handles are
values and may be shared freely.
*/
package limiton
