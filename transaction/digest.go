package transaction

import (
	"github.com/btcsuite/btcutil/base58"
	"golang.org/x/crypto/blake2b"
)

const digestSalt = "TransactionData::"

// Digest computes the transaction digest of a BCS-encoded TransactionData
// payload: base58(blake2b256(salt || bytes)).
func Digest(transactionDataBytes []byte) string {
	hasher, _ := blake2b.New256(nil)
	hasher.Write([]byte(digestSalt))
	hasher.Write(transactionDataBytes)
	return base58.Encode(hasher.Sum(nil))
}
