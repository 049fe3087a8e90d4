package db_test

import (
	"crypto/rand"
	"encoding/hex"
	"testing"

	"github.com/darkswap-network/darkswap-daemon/internal/core/domain"
	"github.com/darkswap-network/darkswap-daemon/internal/core/ports"
	dbbadger "github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/darkswap-network/darkswap-daemon/internal/infrastructure/storage/db/inmemory"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/require"
)

type repoManager struct {
	Name string
	ports.RepoManager
}

func createRepoManagers(t *testing.T) []repoManager {
	inmemoryRepoManager := inmemory.NewRepoManager()
	badgerRepoManager, err := dbbadger.NewRepoManager("", nil)
	require.NoError(t, err)
	t.Cleanup(badgerRepoManager.Close)

	return []repoManager{
		{Name: "badger", RepoManager: badgerRepoManager},
		{Name: "inmemory", RepoManager: inmemoryRepoManager},
	}
}

func makeRandomNote(wallet string, chainID uint64, asset string, amount uint64) domain.Note {
	note, _ := domain.NewNote(
		randomHex(32), chainID, wallet, randomHex(16), asset,
		uint256.NewInt(amount), randomHex(16),
	)
	return *note
}

func makeRandomOrder() domain.Order {
	order := domain.NewOrder("", domain.OrderTypeLimit)
	order.ChainID = 1
	order.Wallet = randomAddress()
	order.AssetPairID = randomHex(8)
	order.NoteCommitment = randomHex(32)
	order.AmountOut.SetUint64(100)
	order.AmountIn.SetUint64(50)
	return *order
}

func randomAddress() string {
	return "0x" + randomHex(20)
}

func randomHex(len int) string {
	return hex.EncodeToString(randomBytes(len))
}

func randomBytes(len int) []byte {
	b := make([]byte, len)
	//nolint
	rand.Read(b)
	return b
}
