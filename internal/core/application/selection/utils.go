package selection

import (
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/holiman/uint256"
)

func sortByAmountDesc(notes []domain.Note) {
	sort.SliceStable(notes, func(i, j int) bool {
		cmp := notes[i].Amount.Cmp(&notes[j].Amount)
		if cmp == 0 {
			return notes[i].Commitment < notes[j].Commitment
		}
		return cmp > 0
	})
}

// findExactMatch looks for a note of exactly target amount. Only the prefix
// of notes not smaller than target is scanned.
func findExactMatch(notes []domain.Note, target *uint256.Int) *domain.Note {
	for i := range notes {
		cmp := notes[i].Amount.Cmp(target)
		if cmp < 0 {
			return nil
		}
		if cmp == 0 {
			note := notes[i]
			return &note
		}
	}
	return nil
}

// coveringPrefix returns the shortest prefix whose total is at least target.
// A total that overflows 256 bits covers any target.
func coveringPrefix(notes []domain.Note, target *uint256.Int) ([]domain.Note, bool) {
	sum := new(uint256.Int)
	for i := range notes {
		if _, overflow := sum.AddOverflow(sum, &notes[i].Amount); overflow {
			return notes[:i+1], true
		}
		if sum.Cmp(target) >= 0 {
			return notes[:i+1], true
		}
	}
	return nil, false
}

// exactSumPrefix returns the largest-first prefix of the notes smaller than
// target that adds up to exactly target, if it has at least two and at most
// MaxJoinInputs notes.
func exactSumPrefix(notes []domain.Note, target *uint256.Int) ([]domain.Note, bool) {
	start := 0
	for start < len(notes) && notes[start].Amount.Cmp(target) >= 0 {
		start++
	}

	sum := new(uint256.Int)
	for i := start; i < len(notes) && i-start < MaxJoinInputs; i++ {
		if _, overflow := sum.AddOverflow(sum, &notes[i].Amount); overflow {
			return nil, false
		}
		cmp := sum.Cmp(target)
		if cmp > 0 {
			return nil, false
		}
		if cmp == 0 {
			if i == start {
				return nil, false
			}
			return notes[start : i+1], true
		}
	}
	return nil, false
}
