package simchain

import (
	"fmt"

	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
)

// FailNext makes the next n operations of the given kind revert.
func (c *Chain) FailNext(kind ports.TxKind, n int) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.failNext[kind] += n
}

// SetStuckReceipts makes WaitForReceipt block until its context is done.
// Operations are still applied on Execute.
func (c *Chain) SetStuckReceipts(stuck bool) {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.stuck = stuck
}

// SetNoteStatus forces the on-chain status of a note, as if changed by
// another client of the same wallet.
func (c *Chain) SetNoteStatus(
	commitment string, status ports.NoteOnChainStatus,
) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	n, ok := c.notes[commitment]
	if !ok {
		return fmt.Errorf("unknown note %s", commitment)
	}
	n.status = status
	return nil
}

// TxCount returns the number of executed operations of the given kind,
// reverted ones included.
func (c *Chain) TxCount(kind ports.TxKind) int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.txCount[kind]
}

func (c *Chain) TotalTxCount() int {
	c.lock.Lock()
	defer c.lock.Unlock()

	count := 0
	for _, n := range c.txCount {
		count += n
	}
	return count
}

// MaxInputs returns the largest number of inputs seen in one operation.
func (c *Chain) MaxInputs() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.maxInputs
}

// DoubleSpends returns how many operations tried to consume a note that was
// already spent.
func (c *Chain) DoubleSpends() int {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.doubleSpends
}
