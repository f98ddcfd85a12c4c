package limiton

import (
	"context"
	"log/slog"
	"reflect"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/randalmurphal/limiton/pkg/limiton/event"
	"github.com/randalmurphal/limiton/pkg/limiton/observability"
)

// Constructor builds a new product instance.
//
// Constructors run while the registry lock is held and must not acquire
// from the same registry.
type Constructor[T any] func(ctx context.Context) (*T, error)

// Acquire outcomes recorded on spans.
const (
	outcomeAdmitted = "admitted"
	outcomeReused   = "reused"
	outcomeRejected = "rejected"
	outcomeMismatch = "mismatch"
	outcomeFailed   = "failed"
)

// Registry caps the number of live instances of T.
//
// It owns up to Policy.Capacity instances in admission order and hands
// out Handles that reference them without extending their lifetime.
// Instances leave the registry only through pump eviction or when the
// registry itself is garbage collected.
//
// A Registry is safe for concurrent use.
type Registry[T any] struct {
	mu      sync.Mutex
	policy  Policy
	slots   []*slot[T] // oldest first
	nextSeq uint64

	name   string
	cfg    registryConfig
	logger *slog.Logger
}

// InstanceInfo describes a resident instance.
type InstanceInfo struct {
	ID         string
	Sequence   uint64
	AdmittedAt time.Time
}

// New creates a registry for T governed by policy.
// Returns a ConfigurationError if the policy is invalid.
//
// Example:
//
//	reg, err := limiton.New[Conn](limiton.Policy{Capacity: 4, Overflow: limiton.OverflowPump})
//	if err != nil {
//	    return err
//	}
//	h, err := reg.Acquire(ctx, dialConn)
func New[T any](policy Policy, opts ...Option) (*Registry[T], error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}

	cfg := defaultRegistryConfig()
	cfg.name = reflect.TypeFor[T]().String()
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Registry[T]{
		policy: policy,
		slots:  make([]*slot[T], 0, policy.Capacity),
		name:   cfg.name,
		cfg:    cfg,
		logger: observability.EnrichLogger(cfg.logger, cfg.name, policy.Capacity, policy.Overflow.String()),
	}, nil
}

// Acquire returns a handle to an instance of T.
//
// With room left, or in pump mode, ctor builds a new instance that is
// admitted at the tail; in pump mode a full registry first evicts its
// oldest instance, whose handles expire immediately. A full reject-mode
// registry returns its resident instance when its capacity is one and
// a CapacityExceededError otherwise, without calling ctor.
//
// Constructor errors are returned wrapped in a ConstructorError and
// leave the registry unchanged.
func (r *Registry[T]) Acquire(ctx context.Context, ctor Constructor[T]) (Handle[T], error) {
	return r.acquire(ctx, ctor, nil, false)
}

// AcquireWith is Acquire for constructors that take arguments.
//
// The arguments are recorded with the admitted instance. When a
// capacity-one reject registry reuses its resident instance, differing
// arguments are logged and counted, or rejected with an
// ArgumentMismatchError if the policy sets StrictArgs. Arguments are
// compared with reflect.DeepEqual.
func AcquireWith[T, A any](ctx context.Context, r *Registry[T], build func(ctx context.Context, args A) (*T, error), args A) (Handle[T], error) {
	if build == nil {
		return Handle[T]{}, ErrNilConstructor
	}
	return r.acquire(ctx, func(ctx context.Context) (*T, error) {
		return build(ctx, args)
	}, args, true)
}

func (r *Registry[T]) acquire(ctx context.Context, ctor Constructor[T], args any, hasArgs bool) (h Handle[T], err error) {
	if ctx == nil {
		return Handle[T]{}, ErrNilContext
	}
	if ctor == nil {
		return Handle[T]{}, ErrNilConstructor
	}

	spanCtx, span := r.cfg.spans.StartAcquireSpan(ctx, r.name, r.policy.Capacity, r.policy.Overflow.String())

	var (
		outcome string
		pending []event.Event
	)
	defer func() {
		r.cfg.spans.EndSpanWithOutcome(span, outcome, err)
		r.publish(ctx, pending)
	}()

	r.mu.Lock()
	defer r.mu.Unlock()

	full := len(r.slots) >= r.policy.Capacity

	if !full || r.policy.Overflow == OverflowPump {
		inst, cerr := r.construct(spanCtx, ctor)
		if cerr != nil {
			outcome = outcomeFailed
			return Handle[T]{}, cerr
		}

		if full {
			pending = append(pending, r.evictOldest(spanCtx))
		}

		s := r.admit(inst, args, hasArgs)
		pending = append(pending, r.newEvent(event.TypeAdmitted, s))
		observability.LogAdmit(r.logger, s.id, s.seq, len(r.slots))
		r.cfg.metrics.RecordAdmission(spanCtx, r.name)

		outcome = outcomeAdmitted
		return newHandle(s), nil
	}

	if r.policy.Capacity == 1 {
		s := r.slots[0]
		if hasArgs && s.hasArgs && !reflect.DeepEqual(s.args, args) {
			observability.LogArgMismatch(r.logger, s.id, r.policy.StrictArgs)
			r.cfg.metrics.RecordMismatch(spanCtx, r.name)
			pending = append(pending, r.newEvent(event.TypeMismatched, s))
			if r.policy.StrictArgs {
				outcome = outcomeMismatch
				return Handle[T]{}, &ArgumentMismatchError{
					Registry:  r.name,
					Resident:  s.args,
					Requested: args,
				}
			}
		}

		observability.LogReuse(r.logger, s.id)
		r.cfg.metrics.RecordReuse(spanCtx, r.name)
		pending = append(pending, r.newEvent(event.TypeReused, s))

		outcome = outcomeReused
		return newHandle(s), nil
	}

	observability.LogReject(r.logger, len(r.slots))
	r.cfg.metrics.RecordRejection(spanCtx, r.name)
	pending = append(pending, event.New(event.TypeRejected, r.name,
		event.WithOccupancy(len(r.slots), r.policy.Capacity),
	))

	outcome = outcomeRejected
	return Handle[T]{}, &CapacityExceededError{Registry: r.name, Capacity: r.policy.Capacity}
}

// construct runs ctor, converting a panic into a PanicError.
// Must be called with r.mu held.
func (r *Registry[T]) construct(ctx context.Context, ctor Constructor[T]) (inst *T, err error) {
	done := observability.TimedOperation()

	defer func() {
		if p := recover(); p != nil {
			inst = nil
			err = &PanicError{
				Registry: r.name,
				Value:    p,
				Stack:    string(debug.Stack()),
			}
		}
		elapsed := done()
		r.cfg.metrics.RecordConstruction(ctx, r.name, elapsed, err)
		if err != nil {
			observability.LogConstructError(r.logger, err, observability.Milliseconds(elapsed))
		}
	}()

	inst, err = ctor(ctx)
	if err != nil {
		return nil, &ConstructorError{Registry: r.name, Err: err}
	}
	if inst == nil {
		return nil, ErrNilInstance
	}
	return inst, nil
}

// admit appends inst as the newest slot. Must be called with r.mu held.
func (r *Registry[T]) admit(inst *T, args any, hasArgs bool) *slot[T] {
	r.nextSeq++
	s := &slot[T]{
		id:         uuid.NewString(),
		seq:        r.nextSeq,
		admittedAt: time.Now(),
		args:       args,
		hasArgs:    hasArgs,
	}
	s.value.Store(inst)
	r.slots = append(r.slots, s)
	return s
}

// evictOldest drops the head slot and returns its eviction event.
// Must be called with r.mu held and at least one slot resident.
func (r *Registry[T]) evictOldest(ctx context.Context) event.Event {
	old := r.slots[0]
	n := copy(r.slots, r.slots[1:])
	r.slots[n] = nil
	r.slots = r.slots[:n]
	old.evict()

	observability.LogEvict(r.logger, old.id, old.seq)
	r.cfg.metrics.RecordEviction(ctx, r.name)
	r.cfg.spans.AddSpanEvent(ctx, "instance.evicted",
		attribute.String("instance.id", old.id),
		attribute.Int64("instance.sequence", int64(old.seq)),
	)
	return r.newEvent(event.TypeEvicted, old)
}

func (r *Registry[T]) newEvent(typ event.Type, s *slot[T]) event.Event {
	return event.New(typ, r.name,
		event.WithInstance(s.id, s.seq),
		event.WithOccupancy(len(r.slots), r.policy.Capacity),
	)
}

// publish delivers events to the configured sink. Runs without r.mu held.
// The state change has already happened, so delivery ignores cancellation
// of the caller's context.
func (r *Registry[T]) publish(ctx context.Context, events []event.Event) {
	if r.cfg.events == nil || len(events) == 0 {
		return
	}
	ctx = context.WithoutCancel(ctx)
	for _, evt := range events {
		if err := r.cfg.events.Publish(ctx, evt); err != nil {
			observability.LogPublishError(r.logger, string(evt.Type), err)
		}
	}
}

// Name returns the registry name.
func (r *Registry[T]) Name() string {
	return r.name
}

// Policy returns the policy the registry was created with.
func (r *Registry[T]) Policy() Policy {
	return r.policy
}

// Capacity returns the maximum number of resident instances.
func (r *Registry[T]) Capacity() int {
	return r.policy.Capacity
}

// Len returns the number of resident instances.
func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

// Instances describes the resident instances, oldest first.
func (r *Registry[T]) Instances() []InstanceInfo {
	r.mu.Lock()
	defer r.mu.Unlock()

	infos := make([]InstanceInfo, len(r.slots))
	for i, s := range r.slots {
		infos[i] = InstanceInfo{
			ID:         s.id,
			Sequence:   s.seq,
			AdmittedAt: s.admittedAt,
		}
	}
	return infos
}
