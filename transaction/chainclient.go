package transaction

import (
	"context"

	"github.com/openmove/ptb-core/types"
	"github.com/openmove/ptb-core/typetag"
)

// OwnerKind classifies who (or what) owns an on-chain object, as reported
// by a ChainClient's object lookup.
type OwnerKind int

const (
	OwnerUnknown OwnerKind = iota
	OwnerAddress
	OwnerObject
	OwnerShared
	OwnerImmutable
	OwnerConsensusAddress
)

// ObjectMetadata is the subset of an object's on-chain state the resolution
// pipeline needs: its current version/digest and how it is owned.
type ObjectMetadata struct {
	ID           types.ObjectID
	Version      uint64
	Digest       types.Digest
	OwnerKind    OwnerKind
	OwnerVersion *uint64
}

// MoveFunction is a Move entry or public function's normalized signature.
type MoveFunction struct {
	Parameters []typetag.OpenMoveTypeSignature
}

// CoinBalance is a single gas coin candidate as reported by a ChainClient's
// coin listing.
type CoinBalance struct {
	ObjectRef types.ObjectRef
	Balance   uint64
}

// DryRunEffects is the subset of a dry run's reported effects the gas
// budget stage needs to compute an estimate.
type DryRunEffects struct {
	ComputationCost         uint64
	StorageCost             uint64
	StorageRebate           uint64
	NonRefundableStorageFee uint64
}

// ChainClient is the read-only view of a chain a resolution pipeline needs:
// reference gas price, coin listing, object and Move-function lookups, dry
// running, and protocol limits. It is implemented by whatever RPC transport
// a caller wires in; this package never talks to a network directly.
type ChainClient interface {
	GetReferenceGasPrice(ctx context.Context) (uint64, error)
	GetCoins(ctx context.Context, owner types.Address, coinType string) ([]CoinBalance, error)
	MultiGetObjects(ctx context.Context, ids []string) ([]ObjectMetadata, error)
	GetNormalizedMoveFunction(ctx context.Context, pkg, module, function string) (*MoveFunction, error)
	DryRunTransactionBlock(ctx context.Context, txBytes []byte) (*DryRunEffects, error)
	GetProtocolConfig(ctx context.Context) (map[string]uint64, error)
}
