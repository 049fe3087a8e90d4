package ledger

import (
	"sort"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
)

func aggregateBalances(notes []domain.Note) []Balance {
	balanceByAsset := make(map[string]*Balance)
	for i := range notes {
		n := notes[i]
		if n.Status != domain.NoteStatusActive && n.Status != domain.NoteStatusLocked {
			continue
		}

		b, ok := balanceByAsset[n.Asset]
		if !ok {
			b = &Balance{Asset: n.Asset}
			balanceByAsset[n.Asset] = b
		}
		if n.Status == domain.NoteStatusActive {
			b.Active.Add(&b.Active, &n.Amount)
		} else {
			b.Locked.Add(&b.Locked, &n.Amount)
		}
	}

	balances := make([]Balance, 0, len(balanceByAsset))
	for _, b := range balanceByAsset {
		balances = append(balances, *b)
	}
	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Asset < balances[j].Asset
	})
	return balances
}
