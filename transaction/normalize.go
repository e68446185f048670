package transaction

import (
	"context"
	"fmt"

	bcs "github.com/iotaledger/bcs-go"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/openmove/ptb-core/typetag"
	"github.com/openmove/ptb-core/utils"
)

type moveCallTarget struct {
	Package  string
	Module   string
	Function string
}

func (t moveCallTarget) key() string {
	return t.Package + "::" + t.Module + "::" + t.Function
}

// normalizeInputsStage force-encodes SplitCoins amounts (as u64) and
// TransferObjects recipients (as address) independent of any Move call,
// since those command kinds fix their argument shapes themselves, then
// resolves every remaining RawValue input that is bound to a Move call
// argument into either a Pure input (encoded against the parameter's
// normalized signature) or an UnresolvedObject input carrying the
// signatures it was seen under, ready for resolveObjectReferences.
func normalizeInputsStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	hasTransientArgs := false
	for _, in := range state.Inputs {
		if in.RawValue != nil {
			hasTransientArgs = true
			break
		}
	}
	if !hasTransientArgs {
		return state, nil
	}

	next := state.Clone()

	for _, cmd := range next.Commands {
		switch {
		case cmd.SplitCoins != nil:
			for _, amount := range cmd.SplitCoins.Amounts {
				if err := normalizeRawArgument(next, amount, encodeRawAsU64); err != nil {
					return nil, err
				}
			}
		case cmd.TransferObjects != nil:
			if err := normalizeRawArgument(next, cmd.TransferObjects.Address, encodeRawAsAddress); err != nil {
				return nil, err
			}
		}
	}

	stillTransient := false
	for _, in := range next.Inputs {
		if in.RawValue != nil {
			stillTransient = true
			break
		}
	}
	if !stillTransient {
		return next, nil
	}

	if opts.Client == nil {
		return nil, ErrResolverRequired
	}

	targets := collectMoveCallTargets(next)
	if len(targets) == 0 {
		return nil, &ValidationFailed{Path: "inputs", Reason: "raw value input is not bound to any move call"}
	}

	signatures, err := fetchNormalizedFunctions(ctx, opts.Client, targets)
	if err != nil {
		return nil, err
	}

	signaturesByInput := make(map[int][]typetag.OpenMoveTypeSignature)

	for _, cmd := range next.Commands {
		if cmd.MoveCall == nil {
			continue
		}
		target := moveCallTarget{
			Package:  cmd.MoveCall.Package.String(),
			Module:   cmd.MoveCall.Module,
			Function: cmd.MoveCall.Function,
		}
		fn, ok := signatures[target.key()]
		if !ok {
			continue
		}
		params := fn.Parameters
		if n := len(params); n > 0 {
			if st := params[n-1].Body.Struct; st != nil && st.Module == "tx_context" && st.Name == "TxContext" {
				params = params[:n-1]
			}
		}
		if len(cmd.MoveCall.Arguments) != len(params) {
			return nil, &ArityMismatch{Call: target.key(), Expected: len(params), Got: len(cmd.MoveCall.Arguments)}
		}
		for i, arg := range cmd.MoveCall.Arguments {
			if arg.Input == nil {
				continue
			}
			idx := int(*arg.Input)
			signaturesByInput[idx] = append(signaturesByInput[idx], params[i])
		}
	}

	for idx, sigs := range signaturesByInput {
		if idx < 0 || idx >= len(next.Inputs) {
			continue
		}
		in := next.Inputs[idx]
		if in.RawValue == nil {
			continue
		}
		resolved, err := resolveRawValue(*in.RawValue, sigs)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", idx, err)
		}
		next.Inputs[idx] = resolved
	}

	return next, nil
}

func resolveRawValue(raw RawValue, sigs []typetag.OpenMoveTypeSignature) (CallArg, error) {
	if len(sigs) == 0 {
		return CallArg{}, &ValidationFailed{Path: "inputs", Reason: "raw value input has no bound signature"}
	}
	primary := sigs[0]

	if raw.Type == RawValueTypeObject || (raw.Type == "" && !primary.Body.IsPure()) {
		id, ok := raw.Value.(string)
		if !ok {
			return CallArg{}, fmt.Errorf("object input value must be an object id string, got %T", raw.Value)
		}
		normalized, err := utils.NormalizeAddress(id)
		if err != nil {
			return CallArg{}, err
		}
		return CallArg{UnresolvedObject: &UnresolvedObject{ObjectID: normalized, TypeSignatures: append([]typetag.OpenMoveTypeSignature(nil), sigs...)}}, nil
	}

	if primary.Body.Address != nil {
		return encodeRawAsAddress(raw)
	}
	bytes, err := typetag.EncodePure(primary.Body, raw.Value)
	if err != nil {
		return CallArg{}, err
	}
	return CallArg{Pure: &Pure{Bytes: bytes}}, nil
}

// normalizeRawArgument force-encodes the input arg points at, if it is
// still a RawValue, using encode. Arguments that don't reference an input
// (a Result, the gas coin, ...) and inputs that are already resolved are
// left untouched.
func normalizeRawArgument(state *TransactionState, arg Argument, encode func(RawValue) (CallArg, error)) error {
	if arg.Input == nil {
		return nil
	}
	idx := int(*arg.Input)
	if idx < 0 || idx >= len(state.Inputs) {
		return nil
	}
	in := state.Inputs[idx]
	if in.RawValue == nil {
		return nil
	}

	resolved, err := encode(*in.RawValue)
	if err != nil {
		return fmt.Errorf("input %d: %w", idx, err)
	}
	state.Inputs[idx] = resolved
	return nil
}

func encodeRawAsU64(raw RawValue) (CallArg, error) {
	bytes, err := typetag.EncodePure(typetag.OpenMoveTypeSignatureBody{U64: &struct{}{}}, raw.Value)
	if err != nil {
		return CallArg{}, err
	}
	return CallArg{Pure: &Pure{Bytes: bytes}}, nil
}

// encodeRawAsAddress force-encodes a recipient address. It cannot go
// through typetag.EncodePure, which refuses address bodies, so it parses
// and marshals the address directly, the same path PureAddress uses.
func encodeRawAsAddress(raw RawValue) (CallArg, error) {
	id, ok := raw.Value.(string)
	if !ok {
		return CallArg{}, fmt.Errorf("address input value must be a string, got %T", raw.Value)
	}
	addr, err := utils.ParseAddress(id)
	if err != nil {
		return CallArg{}, err
	}
	bytes, err := bcs.Marshal(&addr)
	if err != nil {
		return CallArg{}, err
	}
	return CallArg{Pure: &Pure{Bytes: bytes}}, nil
}

func collectMoveCallTargets(state *TransactionState) []moveCallTarget {
	var targets []moveCallTarget
	for _, cmd := range state.Commands {
		if cmd.MoveCall == nil {
			continue
		}
		targets = append(targets, moveCallTarget{
			Package:  cmd.MoveCall.Package.String(),
			Module:   cmd.MoveCall.Module,
			Function: cmd.MoveCall.Function,
		})
	}
	return lo.UniqBy(targets, moveCallTarget.key)
}

// fetchNormalizedFunctions looks up every distinct Move call target
// concurrently, bounded by the number of distinct targets.
func fetchNormalizedFunctions(ctx context.Context, client ChainClient, targets []moveCallTarget) (map[string]*MoveFunction, error) {
	results := make([]*MoveFunction, len(targets))

	g, gctx := errgroup.WithContext(ctx)
	for i, target := range targets {
		i, target := i, target
		g.Go(func() error {
			fn, err := client.GetNormalizedMoveFunction(gctx, target.Package, target.Module, target.Function)
			if err != nil {
				return fmt.Errorf("resolve move function %s: %w", target.key(), err)
			}
			results[i] = fn
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]*MoveFunction, len(targets))
	for i, target := range targets {
		out[target.key()] = results[i]
	}
	return out, nil
}
