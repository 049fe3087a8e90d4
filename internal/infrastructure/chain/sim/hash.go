package simchain

import (
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"

	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"github.com/holiman/uint256"
)

// mimcHash hashes the given parts with MiMC over the bn254 scalar field.
// Every part is reduced to a field element first.
func mimcHash(parts ...[]byte) string {
	h := mimc.NewMiMC()
	for _, p := range parts {
		var e fr.Element
		e.SetBytes(p)
		b := e.Bytes()
		//nolint
		h.Write(b[:])
	}
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func noteCommitment(
	chainID uint64, wallet, asset string, amount *uint256.Int, rho string,
) string {
	amountBytes := amount.Bytes32()
	return mimcHash(
		uint64Bytes(chainID), []byte(wallet), []byte(asset), amountBytes[:],
		[]byte(rho),
	)
}

func noteNullifier(commitment, rho string) string {
	return mimcHash([]byte(commitment), []byte(rho))
}

func txHash(chainID, nonce uint64) string {
	return mimcHash([]byte("tx"), uint64Bytes(chainID), uint64Bytes(nonce))
}

func uint64Bytes(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func randomRho() string {
	b := make([]byte, 31)
	//nolint
	rand.Read(b)
	return "0x" + hex.EncodeToString(b)
}
