package transaction

import (
	"context"

	"github.com/openmove/ptb-core/types"
)

const defaultGasCoinType = "0x2::sui::SUI"

// setGasPriceStage fills in the gas price from the chain's reference gas
// price if the caller has not already pinned one.
func setGasPriceStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	if state.Gas.Price != nil {
		return state, nil
	}
	if opts.Client == nil {
		return nil, ErrResolverRequired
	}

	price, err := opts.Client.GetReferenceGasPrice(ctx)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	next.Gas.Price = &price
	return next, nil
}

// setGasBudgetStage fills in the gas budget, when unset, by dry running the
// transaction with the maximum budget (and an empty payment list when no
// payment is set yet) and deriving the budget from the
// reported computation and storage costs. The formula is exact: overhead is
// 1000 times the gas price (the price defaults to 1 if somehow still
// unset), the base is computation cost plus that overhead, the budget adds
// storage cost and subtracts storage rebate from the base, and the final
// figure is floored at the base so a large rebate can never under-fund
// computation.
func setGasBudgetStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	if state.Gas.Budget != nil {
		return state, nil
	}
	if opts.Client == nil {
		return nil, ErrResolverRequired
	}
	if state.Sender == nil {
		return nil, ErrSenderRequired
	}
	price := uint64(1)
	if state.Gas.Price != nil && *state.Gas.Price != 0 {
		price = *state.Gas.Price
	}

	owner := *state.Sender
	if state.Gas.Owner != nil {
		owner = *state.Gas.Owner
	}

	probe := state.Clone()
	probe.Gas.Owner = &owner
	if probe.Gas.Price == nil {
		probe.Gas.Price = &price
	}
	if len(probe.Gas.Payment) == 0 {
		probe.Gas.Payment = []types.ObjectRef{}
	}
	maxBudget := opts.Limits.MaxTxGas
	probe.Gas.Budget = &maxBudget

	_, txBytes, _, err := probe.Build(BuildParams{})
	if err != nil {
		return nil, err
	}

	effects, err := opts.Client.DryRunTransactionBlock(ctx, txBytes)
	if err != nil {
		return nil, &DryRunFailed{Cause: err}
	}

	overhead := 1000 * price
	baseWithOver := effects.ComputationCost + overhead
	raw := int64(baseWithOver) + int64(effects.StorageCost) - int64(effects.StorageRebate)
	budget := baseWithOver
	if raw > int64(baseWithOver) {
		budget = uint64(raw)
	}

	next := state.Clone()
	next.Gas.Owner = &owner
	next.Gas.Budget = &budget
	return next, nil
}

// setGasPaymentStage fills in the gas payment coins, when unset, by
// listing the gas owner's SUI coins (the sender's when no gas owner is
// set), excluding any whose id is already an object input (owned, shared
// or receiving), and taking the first maxGasObjects-1
// of what remains. It does not attempt to cover the budget; a transaction
// whose selected coins fall short simply fails on-chain, the same as a
// caller-supplied payment would. TooManyGasCoins is reserved for a payment
// the caller (or an earlier SetGasPayment call) already supplied that
// exceeds the protocol's object-count ceiling.
func setGasPaymentStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	if len(state.Gas.Payment) > 0 {
		if len(state.Gas.Payment) > opts.Limits.MaxGasObjects {
			return nil, &TooManyGasCoins{Max: opts.Limits.MaxGasObjects}
		}
		return state, nil
	}
	if opts.Client == nil {
		return nil, ErrResolverRequired
	}
	owner := state.Gas.Owner
	if owner == nil {
		owner = state.Sender
	}
	if owner == nil || state.Gas.Budget == nil {
		return nil, &ValidationFailed{Path: "gas", Reason: "gas owner (or sender) and budget must be resolved before selecting payment"}
	}

	excluded := usedObjectIDs(state)

	coins, err := opts.Client.GetCoins(ctx, *owner, defaultGasCoinType)
	if err != nil {
		return nil, err
	}

	maxCoins := opts.Limits.MaxGasObjects - 1
	if maxCoins < 1 {
		maxCoins = 1
	}

	var selected []types.ObjectRef
	for _, coin := range coins {
		if excluded[coin.ObjectRef.ObjectID] {
			continue
		}
		selected = append(selected, coin.ObjectRef)
		if len(selected) >= maxCoins {
			break
		}
	}

	if len(selected) == 0 {
		return nil, ErrNoGasPayment
	}

	next := state.Clone()
	next.Gas.Payment = selected
	return next, nil
}

func usedObjectIDs(state *TransactionState) map[types.Address]bool {
	used := make(map[types.Address]bool)
	for _, in := range state.Inputs {
		if in.Object == nil {
			continue
		}
		switch {
		case in.Object.ImmOrOwnedObject != nil:
			used[in.Object.ImmOrOwnedObject.ObjectID] = true
		case in.Object.SharedObject != nil:
			used[in.Object.SharedObject.ObjectID] = true
		case in.Object.Receiving != nil:
			used[in.Object.Receiving.ObjectID] = true
		}
	}
	return used
}
