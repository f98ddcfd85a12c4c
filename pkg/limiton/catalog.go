package limiton

import (
	"context"
	"fmt"
	"reflect"

	"github.com/randalmurphal/limiton/pkg/limiton/table"
)

// Limited is implemented by product types that carry their own policy.
// LimitPolicy must not depend on the receiver's fields; it is called on
// the zero value. For pointer product types it is called on a pointer to
// a zero value, never on nil.
//
// Example:
//
//	type Printer struct{ queue chan Job }
//
//	func (Printer) LimitPolicy() limiton.Policy { return limiton.Singleton() }
type Limited interface {
	LimitPolicy() Policy
}

// Catalog holds one registry per product type.
//
// There is no implicit global catalog: a process that wants one shared
// table creates a Catalog once and passes it around.
type Catalog struct {
	entries *table.Table[reflect.Type, any]
	opts    []Option
}

// NewCatalog creates an empty catalog. opts apply to every registry the
// catalog creates; each registry is named after its product type.
func NewCatalog(opts ...Option) *Catalog {
	return &Catalog{
		entries: table.New[reflect.Type, any](),
		opts:    opts,
	}
}

// Len returns the number of declared types.
func (c *Catalog) Len() int {
	return c.entries.Len()
}

// Types returns the declared product types in no particular order.
func (c *Catalog) Types() []reflect.Type {
	return c.entries.Keys()
}

// policyHolder is satisfied by every *Registry[T].
type policyHolder interface {
	Policy() Policy
}

// Policies returns the policy of every declared type.
func (c *Catalog) Policies() map[reflect.Type]Policy {
	out := make(map[reflect.Type]Policy, c.entries.Len())
	c.entries.Range(func(key reflect.Type, v any) bool {
		out[key] = v.(policyHolder).Policy()
		return true
	})
	return out
}

// Declared reports whether T has a registry in the catalog.
func Declared[T any](c *Catalog) bool {
	return c.entries.Has(reflect.TypeFor[T]())
}

// Adopt places an existing registry in the catalog as the registry for T,
// keeping its name and options. Returns ErrAlreadyDeclared if T already
// has one.
func Adopt[T any](c *Catalog, reg *Registry[T]) error {
	key := reflect.TypeFor[T]()
	if reg == nil {
		return fmt.Errorf("%s: nil registry: %w", key, ErrUndeclared)
	}
	if _, inserted := c.entries.Insert(key, reg); !inserted {
		return fmt.Errorf("%s: %w", key, ErrAlreadyDeclared)
	}
	return nil
}

// Declare validates T's policy and creates its registry.
// Declaring the same type again is a no-op; if T was already declared
// with a different policy, Declare returns ErrPolicyConflict.
func Declare[T Limited](c *Catalog) error {
	p, ok := limitPolicyOf[T]()
	if !ok {
		return fmt.Errorf("%s: no policy on zero value: %w", reflect.TypeFor[T](), ErrUndeclared)
	}
	return DeclarePolicy[T](c, p)
}

// DeclarePolicy registers T with an explicit policy, for types that
// cannot implement Limited. Redeclaring with an equal policy is a no-op;
// a different policy returns ErrPolicyConflict.
func DeclarePolicy[T any](c *Catalog, p Policy) error {
	reg, err := declare[T](c, p)
	if err != nil {
		return err
	}
	if reg.Policy() != p {
		return fmt.Errorf("%s: %w", reg.Name(), ErrPolicyConflict)
	}
	return nil
}

// limitPolicyOf returns the policy T declares through Limited.
// For a pointer type *P the method is called on a pointer to a zero P,
// so value receivers on P never see a nil pointer.
func limitPolicyOf[T any]() (Policy, bool) {
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Pointer {
		limited, ok := reflect.New(t.Elem()).Interface().(Limited)
		if !ok {
			return Policy{}, false
		}
		return limited.LimitPolicy(), true
	}

	var zero T
	limited, ok := any(zero).(Limited)
	if !ok {
		return Policy{}, false
	}
	return limited.LimitPolicy(), true
}

func declare[T any](c *Catalog, p Policy) (*Registry[T], error) {
	key := reflect.TypeFor[T]()
	v, _, err := c.entries.LoadOrCreate(key, func() (any, error) {
		opts := make([]Option, 0, len(c.opts)+1)
		opts = append(opts, c.opts...)
		opts = append(opts, WithName(key.String()))
		reg, err := New[T](p, opts...)
		if err != nil {
			return nil, err
		}
		return reg, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Registry[T]), nil
}

// RegistryOf returns the registry for T.
// Types implementing Limited are declared on first use; any other
// undeclared type returns ErrUndeclared.
func RegistryOf[T any](c *Catalog) (*Registry[T], error) {
	key := reflect.TypeFor[T]()
	if v, ok := c.entries.Lookup(key); ok {
		return v.(*Registry[T]), nil
	}

	p, ok := limitPolicyOf[T]()
	if !ok {
		return nil, fmt.Errorf("%s: %w", key, ErrUndeclared)
	}
	return declare[T](c, p)
}

// Construct acquires an instance of T through the catalog.
func Construct[T any](ctx context.Context, c *Catalog, ctor Constructor[T]) (Handle[T], error) {
	reg, err := RegistryOf[T](c)
	if err != nil {
		return Handle[T]{}, err
	}
	return reg.Acquire(ctx, ctor)
}

// ConstructWith acquires an instance of T through the catalog, building
// it from args when the policy admits a new instance.
func ConstructWith[T, A any](ctx context.Context, c *Catalog, build func(ctx context.Context, args A) (*T, error), args A) (Handle[T], error) {
	reg, err := RegistryOf[T](c)
	if err != nil {
		return Handle[T]{}, err
	}
	return AcquireWith(ctx, reg, build, args)
}
