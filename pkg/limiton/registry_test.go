package limiton

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidPolicy(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr error
	}{
		{"zero capacity", Policy{Capacity: 0}, ErrInvalidCapacity},
		{"negative capacity", Policy{Capacity: -1, Overflow: OverflowPump}, ErrInvalidCapacity},
		{"unknown overflow", Policy{Capacity: 2, Overflow: OverflowMode(3)}, ErrInvalidOverflowMode},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg, err := New[widget](tt.policy)
			require.Error(t, err)
			assert.Nil(t, reg)
			assert.ErrorIs(t, err, tt.wantErr)

			var cfgErr *ConfigurationError
			assert.True(t, errors.As(err, &cfgErr))
		})
	}
}

func TestNew_Defaults(t *testing.T) {
	reg := mustRegistry(t, Policy{Capacity: 3, Overflow: OverflowPump})

	assert.Equal(t, "limiton.widget", reg.Name())
	assert.Equal(t, 3, reg.Capacity())
	assert.Equal(t, Policy{Capacity: 3, Overflow: OverflowPump}, reg.Policy())
	assert.Equal(t, 0, reg.Len())
	assert.Empty(t, reg.Instances())
}

func TestNew_WithName(t *testing.T) {
	reg := mustRegistry(t, Singleton(), WithName("printer"))
	assert.Equal(t, "printer", reg.Name())

	reg = mustRegistry(t, Singleton(), WithName(""))
	assert.Equal(t, "limiton.widget", reg.Name(), "empty name keeps the default")
}

// Capacity one, reject: both handles refer to one instance.
func TestAcquire_Singleton(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Singleton())
	c := &counter{}

	h1, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)
	h2, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)

	assert.Same(t, mustGet(t, h1), mustGet(t, h2))
	assert.Equal(t, h1.ID(), h2.ID())
	assert.Equal(t, 1, c.count())
	assert.Equal(t, 1, reg.Len())
}

func TestAcquire_SingletonLaw(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Singleton())
	c := &counter{}

	first, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)
	want := mustGet(t, first)

	for i := 0; i < 50; i++ {
		h, err := reg.Acquire(ctx, c.ctor)
		require.NoError(t, err)
		assert.Same(t, want, mustGet(t, h))
	}
	assert.Equal(t, 1, c.count())
}

// Capacity three, reject: the fourth call fails and occupancy stays three.
func TestAcquire_RejectAtCapacity(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 3}, WithName("pool"))
	c := &counter{}

	seen := make(map[*widget]bool)
	for i := 0; i < 3; i++ {
		h, err := reg.Acquire(ctx, c.ctor)
		require.NoError(t, err)
		seen[mustGet(t, h)] = true
	}
	assert.Len(t, seen, 3, "each call below capacity constructs a new instance")

	h, err := reg.Acquire(ctx, c.ctor)
	require.Error(t, err)
	assert.True(t, h.Expired())
	assert.ErrorIs(t, err, ErrCapacityExceeded)

	var capErr *CapacityExceededError
	require.True(t, errors.As(err, &capErr))
	assert.Equal(t, "pool", capErr.Registry)
	assert.Equal(t, 3, capErr.Capacity)

	assert.Equal(t, 3, reg.Len())
	assert.Equal(t, 3, c.count(), "constructor not called on rejection")
}

// Capacity two, pump: the third call evicts the first instance.
func TestAcquire_PumpEvictsOldest(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 2, Overflow: OverflowPump})
	c := &counter{}

	h1, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)
	h2, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)
	h3, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)

	assert.True(t, h1.Expired())
	_, err = h1.Get()
	assert.ErrorIs(t, err, ErrExpired)

	assert.Equal(t, 2, mustGet(t, h2).id)
	assert.Equal(t, 3, mustGet(t, h3).id)

	infos := reg.Instances()
	require.Len(t, infos, 2)
	assert.Equal(t, h2.ID(), infos[0].ID)
	assert.Equal(t, h3.ID(), infos[1].ID)
	assert.Equal(t, []uint64{2, 3}, []uint64{infos[0].Sequence, infos[1].Sequence})
}

func TestAcquire_PumpLaw(t *testing.T) {
	ctx := context.Background()

	for _, capacity := range []int{1, 2, 5} {
		t.Run(fmt.Sprintf("capacity=%d", capacity), func(t *testing.T) {
			reg := mustRegistry(t, Policy{Capacity: capacity, Overflow: OverflowPump})
			c := &counter{}

			var handles []Handle[widget]
			for i := 0; i < capacity; i++ {
				h, err := reg.Acquire(ctx, c.ctor)
				require.NoError(t, err)
				handles = append(handles, h)
			}

			h, err := reg.Acquire(ctx, c.ctor)
			require.NoError(t, err)
			assert.False(t, h.Expired())
			assert.Equal(t, capacity+1, c.count(), "pump always constructs")
			assert.True(t, handles[0].Expired(), "oldest instance evicted")
			for _, other := range handles[1:] {
				assert.False(t, other.Expired())
			}
			assert.Equal(t, capacity, reg.Len())
		})
	}
}

// Pump at capacity one replaces the instance on every call.
func TestAcquire_PumpSingletonReplaces(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 1, Overflow: OverflowPump})
	c := &counter{}

	h1, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)
	h2, err := reg.Acquire(ctx, c.ctor)
	require.NoError(t, err)

	assert.True(t, h1.Expired())
	assert.Equal(t, 2, mustGet(t, h2).id)
	assert.Equal(t, 1, reg.Len())
}

func TestAcquire_OccupancyInvariant(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 4, Overflow: OverflowPump})
	c := &counter{}

	admissions, evictions := 0, 0
	for i := 0; i < 20; i++ {
		before := reg.Len()
		_, err := reg.Acquire(ctx, c.ctor)
		require.NoError(t, err)
		admissions++
		if before == reg.Capacity() {
			evictions++
		}
		assert.Equal(t, admissions-evictions, reg.Len())
		assert.LessOrEqual(t, reg.Len(), reg.Capacity())
	}
	assert.Equal(t, 16, evictions)
}

func TestAcquire_ConstructorError(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("dial refused")

	t.Run("below capacity", func(t *testing.T) {
		reg := mustRegistry(t, Policy{Capacity: 2}, WithName("pool"))

		h, err := reg.Acquire(ctx, func(context.Context) (*widget, error) {
			return nil, boom
		})
		require.Error(t, err)
		assert.True(t, h.Expired())
		assert.ErrorIs(t, err, boom)

		var ctorErr *ConstructorError
		require.True(t, errors.As(err, &ctorErr))
		assert.Equal(t, "pool", ctorErr.Registry)
		assert.Equal(t, 0, reg.Len())
	})

	t.Run("pump does not evict on failure", func(t *testing.T) {
		reg := mustRegistry(t, Policy{Capacity: 1, Overflow: OverflowPump})
		c := &counter{}

		h1, err := reg.Acquire(ctx, c.ctor)
		require.NoError(t, err)

		_, err = reg.Acquire(ctx, func(context.Context) (*widget, error) {
			return nil, boom
		})
		require.ErrorIs(t, err, boom)

		assert.False(t, h1.Expired())
		assert.Equal(t, 1, reg.Len())
		assert.Equal(t, []uint64{1}, []uint64{reg.Instances()[0].Sequence})
	})

	t.Run("nil instance", func(t *testing.T) {
		reg := mustRegistry(t, Singleton())

		_, err := reg.Acquire(ctx, func(context.Context) (*widget, error) {
			return nil, nil
		})
		assert.ErrorIs(t, err, ErrNilInstance)
		assert.Equal(t, 0, reg.Len())
	})
}

func TestAcquire_ConstructorPanic(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 2}, WithName("pool"))

	_, err := reg.Acquire(ctx, func(context.Context) (*widget, error) {
		panic("unexpected nil")
	})
	require.Error(t, err)

	var panicErr *PanicError
	require.True(t, errors.As(err, &panicErr))
	assert.Equal(t, "pool", panicErr.Registry)
	assert.Equal(t, "unexpected nil", panicErr.Value)
	assert.Contains(t, panicErr.Stack, "goroutine")
	assert.Equal(t, 0, reg.Len())

	// The registry stays usable after a panic.
	c := &counter{}
	_, err = reg.Acquire(ctx, c.ctor)
	assert.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
}

func TestAcquire_InvalidArguments(t *testing.T) {
	reg := mustRegistry(t, Singleton())
	c := &counter{}

	//nolint:staticcheck // nil context is the point of the test
	_, err := reg.Acquire(nil, c.ctor)
	assert.ErrorIs(t, err, ErrNilContext)

	_, err = reg.Acquire(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilConstructor)

	_, err = AcquireWith[widget, string](context.Background(), reg, nil, "x")
	assert.ErrorIs(t, err, ErrNilConstructor)

	assert.Equal(t, 0, c.count())
	assert.Equal(t, 0, reg.Len())
}

func TestAcquire_PassesContext(t *testing.T) {
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "tenant-a")
	reg := mustRegistry(t, Singleton())

	var got any
	_, err := reg.Acquire(ctx, func(ctx context.Context) (*widget, error) {
		got = ctx.Value(key{})
		return &widget{}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", got)
}

func TestAcquireWith_RecordsArguments(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 2})
	c := &counter{}

	h1, err := AcquireWith(ctx, reg, c.build, "lp0")
	require.NoError(t, err)
	h2, err := AcquireWith(ctx, reg, c.build, "lp1")
	require.NoError(t, err)

	assert.Equal(t, "lp0", mustGet(t, h1).label)
	assert.Equal(t, "lp1", mustGet(t, h2).label)
}

func TestAcquireWith_SingletonArgumentMismatch(t *testing.T) {
	ctx := context.Background()

	t.Run("lenient reuses", func(t *testing.T) {
		logs := &logCapture{}
		reg := mustRegistry(t, Singleton(), WithLogger(logs.logger()))
		c := &counter{}

		h1, err := AcquireWith(ctx, reg, c.build, "lp0")
		require.NoError(t, err)
		h2, err := AcquireWith(ctx, reg, c.build, "lp1")
		require.NoError(t, err)

		assert.Same(t, mustGet(t, h1), mustGet(t, h2))
		assert.Equal(t, "lp0", mustGet(t, h2).label)
		assert.Equal(t, 1, c.count())
		assert.Contains(t, logs.messages(t), "arguments differ from resident instance")
	})

	t.Run("strict rejects", func(t *testing.T) {
		reg := mustRegistry(t, Policy{Capacity: 1, StrictArgs: true})
		c := &counter{}

		_, err := AcquireWith(ctx, reg, c.build, "lp0")
		require.NoError(t, err)

		h, err := AcquireWith(ctx, reg, c.build, "lp1")
		require.Error(t, err)
		assert.True(t, h.Expired())
		assert.ErrorIs(t, err, ErrArgumentMismatch)

		var mismatch *ArgumentMismatchError
		require.True(t, errors.As(err, &mismatch))
		assert.Equal(t, "lp0", mismatch.Resident)
		assert.Equal(t, "lp1", mismatch.Requested)
		assert.Equal(t, 1, c.count())
		assert.Equal(t, 1, reg.Len())
	})

	t.Run("strict accepts equal arguments", func(t *testing.T) {
		type opts struct {
			Addr string
			Tags []string
		}
		reg := mustRegistry(t, Policy{Capacity: 1, StrictArgs: true})
		build := func(_ context.Context, o opts) (*widget, error) {
			return &widget{label: o.Addr}, nil
		}

		h1, err := AcquireWith(ctx, reg, build, opts{Addr: "a", Tags: []string{"x"}})
		require.NoError(t, err)
		h2, err := AcquireWith(ctx, reg, build, opts{Addr: "a", Tags: []string{"x"}})
		require.NoError(t, err)
		assert.Same(t, mustGet(t, h1), mustGet(t, h2))
	})

	t.Run("plain acquire never compares", func(t *testing.T) {
		reg := mustRegistry(t, Policy{Capacity: 1, StrictArgs: true})
		c := &counter{}

		_, err := AcquireWith(ctx, reg, c.build, "lp0")
		require.NoError(t, err)
		_, err = reg.Acquire(ctx, c.ctor)
		assert.NoError(t, err)
	})
}

func TestAcquire_SequenceAndIDs(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 3, Overflow: OverflowPump})
	c := &counter{}

	ids := make(map[string]bool)
	for i := 1; i <= 5; i++ {
		h, err := reg.Acquire(ctx, c.ctor)
		require.NoError(t, err)
		assert.Equal(t, uint64(i), h.Sequence())
		assert.NotEmpty(t, h.ID())
		ids[h.ID()] = true
	}
	assert.Len(t, ids, 5)

	infos := reg.Instances()
	require.Len(t, infos, 3)
	for i, info := range infos {
		assert.Equal(t, uint64(i+3), info.Sequence)
		assert.False(t, info.AdmittedAt.IsZero())
	}
}

func TestAcquire_ConcurrentReject(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 5})
	c := &counter{}

	var (
		wg        sync.WaitGroup
		succeeded atomic.Int64
		rejected  atomic.Int64
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Acquire(ctx, c.ctor)
			switch {
			case err == nil:
				succeeded.Add(1)
			case errors.Is(err, ErrCapacityExceeded):
				rejected.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(5), succeeded.Load())
	assert.Equal(t, int64(59), rejected.Load())
	assert.Equal(t, 5, c.count())
	assert.Equal(t, 5, reg.Len())
}

func TestAcquire_ConcurrentSingleton(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Singleton())
	c := &counter{}

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		results = make(map[*widget]bool)
	)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h, err := reg.Acquire(ctx, c.ctor)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			w, err := h.Get()
			if err != nil {
				t.Errorf("get: %v", err)
				return
			}
			mu.Lock()
			results[w] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, results, 1)
	assert.Equal(t, 1, c.count())
}

func TestAcquire_ConcurrentPump(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 3, Overflow: OverflowPump})
	c := &counter{}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := reg.Acquire(ctx, c.ctor); err != nil {
				t.Errorf("acquire: %v", err)
			}
			assert.LessOrEqual(t, reg.Len(), 3)
		}()
	}
	wg.Wait()

	assert.Equal(t, 100, c.count())
	assert.Equal(t, 3, reg.Len())

	infos := reg.Instances()
	assert.Equal(t, []uint64{98, 99, 100},
		[]uint64{infos[0].Sequence, infos[1].Sequence, infos[2].Sequence})
}

// acquireFromDroppedRegistry returns a handle whose registry is unreachable.
func acquireFromDroppedRegistry(t *testing.T) Handle[widget] {
	t.Helper()
	reg := mustRegistry(t, Singleton())
	h, err := reg.Acquire(context.Background(), (&counter{}).ctor)
	require.NoError(t, err)
	require.False(t, h.Expired())
	return h
}

func TestHandle_ExpiresWhenRegistryCollected(t *testing.T) {
	h := acquireFromDroppedRegistry(t)

	require.Eventually(t, func() bool {
		runtime.GC()
		return h.Expired()
	}, 2*time.Second, 10*time.Millisecond)

	_, err := h.Get()
	assert.ErrorIs(t, err, ErrExpired)
}

func TestHandle_DoesNotKeepEvictedInstanceAlive(t *testing.T) {
	ctx := context.Background()
	reg := mustRegistry(t, Policy{Capacity: 1, Overflow: OverflowPump})

	var collected atomic.Bool
	h1, err := reg.Acquire(ctx, func(context.Context) (*widget, error) {
		w := &widget{id: 1}
		runtime.AddCleanup(w, func(flag *atomic.Bool) { flag.Store(true) }, &collected)
		return w, nil
	})
	require.NoError(t, err)

	_, err = reg.Acquire(ctx, (&counter{}).ctor)
	require.NoError(t, err)
	require.True(t, h1.Expired())

	require.Eventually(t, func() bool {
		runtime.GC()
		return collected.Load()
	}, 2*time.Second, 10*time.Millisecond)
	runtime.KeepAlive(h1)
}
