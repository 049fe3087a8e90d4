package domain

import (
	"fmt"
	"strings"

	"github.com/holiman/uint256"
)

const (
	NoteStatusCreated NoteStatus = iota
	NoteStatusActive
	NoteStatusSpent
	NoteStatusLocked
)

const (
	NoteTypeBalance NoteType = iota
	NoteTypeOrder
)

var noteStatusLabels = map[NoteStatus]string{
	NoteStatusCreated: "CREATED",
	NoteStatusActive:  "ACTIVE",
	NoteStatusSpent:   "SPENT",
	NoteStatusLocked:  "LOCKED",
}

// NoteStatus is the lifecycle state of a note as known by the ledger.
type NoteStatus int

func (s NoteStatus) String() string {
	if label, ok := noteStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("UNKNOWN(%d)", int(s))
}

// NoteStatusFromString parses a status label, case sensitive.
func NoteStatusFromString(label string) (NoteStatus, bool) {
	for status, l := range noteStatusLabels {
		if l == label {
			return status, true
		}
	}
	return 0, false
}

// NoteType distinguishes plain balance notes from notes created as order
// collateral.
type NoteType int

// Note is a unit of value owned by a wallet on a chain. The commitment is the
// on-chain identity of the note and never changes.
type Note struct {
	Commitment    string
	ChainID       uint64
	Wallet        string
	PublicKey     string
	Type          NoteType
	Asset         string
	Amount        uint256.Int
	Rho           string
	FeeRatio      uint64
	Status        NoteStatus
	TxHashCreated string
	CreatedAt     int64
	UpdatedAt     int64
}

// NormalizeAddress returns the canonical (lower-cased) form of an address.
func NormalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}

// AmountString returns the decimal representation of the note amount.
func (n Note) AmountString() string {
	return n.Amount.Dec()
}

func (n Note) IsSpendable() bool {
	return n.Status == NoteStatusActive
}

func (n Note) BelongsTo(wallet string, chainID uint64) bool {
	return n.ChainID == chainID && n.Wallet == NormalizeAddress(wallet)
}
