package retry

import (
	"context"

	"github.com/randalmurphal/limiton/pkg/limiton"
)

// Constructor wraps ctor so that transient failures are retried.
// A final failure is returned as a *CategorizedError, which the registry
// in turn wraps in a *limiton.ConstructorError.
//
// Example:
//
//	h, err := reg.Acquire(ctx, retry.Constructor(retry.Default, dial))
func Constructor[T any](cfg Config, ctor limiton.Constructor[T]) limiton.Constructor[T] {
	if ctor == nil {
		return nil
	}
	return func(ctx context.Context) (*T, error) {
		res := Do(ctx, cfg, func(ctx context.Context) (*T, error) {
			return ctor(ctx)
		})
		return res.Value, res.Err
	}
}

// Builder is Constructor for constructors that take arguments, for use
// with limiton.AcquireWith and limiton.NewFactory.
func Builder[T, A any](cfg Config, build func(ctx context.Context, args A) (*T, error)) func(ctx context.Context, args A) (*T, error) {
	if build == nil {
		return nil
	}
	return func(ctx context.Context, args A) (*T, error) {
		res := Do(ctx, cfg, func(ctx context.Context) (*T, error) {
			return build(ctx, args)
		})
		return res.Value, res.Err
	}
}
