// Package walletmutex serializes every chain-mutating flow of a wallet on a
// chain. Distinct wallets never contend.
package walletmutex

import (
	"context"
	"fmt"
	"sync"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

type Registry struct {
	lock  *sync.Mutex
	locks map[string]*semaphore.Weighted
}

func NewRegistry() *Registry {
	return &Registry{
		lock:  &sync.Mutex{},
		locks: make(map[string]*semaphore.Weighted),
	}
}

// Key returns the identifier of the lock guarding the given wallet.
func Key(chainID uint64, wallet string) string {
	return fmt.Sprintf("%d:%s", chainID, domain.NormalizeAddress(wallet))
}

// Warm creates the locks for the given wallets in advance.
func (r *Registry) Warm(chainID uint64, wallets []string) {
	for _, w := range wallets {
		r.get(Key(chainID, w))
	}
	log.Debugf("warmed %d wallet locks for chain %d", len(wallets), chainID)
}

// Acquire blocks until the lock of the wallet is held or ctx is done. The
// returned func releases the lock and must be called exactly once.
func (r *Registry) Acquire(
	ctx context.Context, chainID uint64, wallet string,
) (func(), error) {
	key := Key(chainID, wallet)
	sem := r.get(key)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring lock for %s: %w", key, err)
	}

	once := &sync.Once{}
	return func() {
		once.Do(func() { sem.Release(1) })
	}, nil
}

// WithLock runs fn while holding the lock of the wallet. The lock is released
// on every exit path of fn, panics included.
func (r *Registry) WithLock(
	ctx context.Context, chainID uint64, wallet string,
	fn func(ctx context.Context) error,
) error {
	release, err := r.Acquire(ctx, chainID, wallet)
	if err != nil {
		return err
	}
	defer release()

	return fn(ctx)
}

// Len returns the number of locks created so far.
func (r *Registry) Len() int {
	r.lock.Lock()
	defer r.lock.Unlock()
	return len(r.locks)
}

func (r *Registry) get(key string) *semaphore.Weighted {
	r.lock.Lock()
	defer r.lock.Unlock()

	sem, ok := r.locks[key]
	if !ok {
		sem = semaphore.NewWeighted(1)
		r.locks[key] = sem
	}
	return sem
}
