package walletmutex_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/darkswap-network/darkswap-daemon/internal/core/application/walletmutex"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	require.Equal(t, "1:0xabc", walletmutex.Key(1, "0xABC"))
	require.Equal(t, walletmutex.Key(1, "0xabc"), walletmutex.Key(1, " 0xAbC "))
	require.NotEqual(t, walletmutex.Key(1, "0xabc"), walletmutex.Key(2, "0xabc"))
}

func TestWithLockSerializesSameWallet(t *testing.T) {
	registry := walletmutex.NewRegistry()
	ctx := context.Background()

	var inside, maxInside int32
	wg := &sync.WaitGroup{}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := registry.WithLock(ctx, 1, "0xWallet", func(context.Context) error {
				n := atomic.AddInt32(&inside, 1)
				for {
					m := atomic.LoadInt32(&maxInside)
					if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
						break
					}
				}
				time.Sleep(time.Millisecond)
				atomic.AddInt32(&inside, -1)
				return nil
			})
			require.NoError(t, err)
		}()
	}
	wg.Wait()

	require.Equal(t, int32(1), maxInside)
	require.Equal(t, 1, registry.Len())
}

func TestWithLockDistinctWalletsDoNotContend(t *testing.T) {
	registry := walletmutex.NewRegistry()
	ctx := context.Background()

	release, err := registry.Acquire(ctx, 1, "0xa")
	require.NoError(t, err)
	defer release()

	done := make(chan struct{})
	go func() {
		defer close(done)
		err := registry.WithLock(ctx, 1, "0xb", func(context.Context) error {
			return nil
		})
		require.NoError(t, err)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("lock of a distinct wallet blocked")
	}
}

func TestWithLockReleasesOnErrorAndPanic(t *testing.T) {
	registry := walletmutex.NewRegistry()
	ctx := context.Background()
	expectedErr := errors.New("boom")

	err := registry.WithLock(ctx, 1, "0xa", func(context.Context) error {
		return expectedErr
	})
	require.ErrorIs(t, err, expectedErr)

	require.Panics(t, func() {
		// nolint
		registry.WithLock(ctx, 1, "0xa", func(context.Context) error {
			panic("boom")
		})
	})

	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	err = registry.WithLock(ctx, 1, "0xa", func(context.Context) error {
		return nil
	})
	require.NoError(t, err)
}

func TestAcquireHonoursContext(t *testing.T) {
	registry := walletmutex.NewRegistry()

	release, err := registry.Acquire(context.Background(), 1, "0xa")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = registry.Acquire(ctx, 1, "0xa")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestWarm(t *testing.T) {
	registry := walletmutex.NewRegistry()
	registry.Warm(1, []string{"0xa", "0xB", "0xb"})
	require.Equal(t, 2, registry.Len())
}
