package transaction

import (
	"encoding/json"
	"fmt"

	"github.com/openmove/ptb-core/types"
)

// StateV1 is the legacy on-disk transaction-builder shape: inputs are
// positional placeholders (kind + raw value) rather than CallArg variants,
// and commands reference inputs and results by plain integer index without
// the IntentResult distinction. ToV2 converts this into the current
// TransactionState (serializeState in facade.go writes the reverse
// direction), and an unrecognized v1 "intent" command becomes a
// TransactionIntent command on ingest.
type StateV1 struct {
	Version  int            `json:"version"`
	Sender   *string        `json:"sender,omitempty"`
	Expir    *stateV1Expiry `json:"expiration,omitempty"`
	GasOwner *string        `json:"gasOwner,omitempty"`
	GasPrice *uint64        `json:"gasPrice,omitempty"`
	GasBudget *uint64       `json:"gasBudget,omitempty"`
	GasPayment []stateV1ObjectRef `json:"gasPayment,omitempty"`
	Inputs   []stateV1Input `json:"inputs"`
	Commands []stateV1Command `json:"commands"`
}

type stateV1Expiry struct {
	Epoch *uint64 `json:"epoch,omitempty"`
}

type stateV1ObjectRef struct {
	ObjectID string `json:"objectId"`
	Version  uint64 `json:"version"`
	Digest   string `json:"digest"`
}

// stateV1Input mirrors the pre-CallArg positional input shape: Kind names
// "pure" or "object", Pure carries the pure bytes (base64 via json) and
// Object the object reference fields.
type stateV1Input struct {
	Kind   string            `json:"kind"`
	Pure   []byte            `json:"pure,omitempty"`
	Object *stateV1ObjectArg `json:"object,omitempty"`
}

type stateV1ObjectArg struct {
	ObjectID             string  `json:"objectId"`
	Version              *uint64 `json:"version,omitempty"`
	Digest               *string `json:"digest,omitempty"`
	InitialSharedVersion *uint64 `json:"initialSharedVersion,omitempty"`
	Mutable              *bool   `json:"mutable,omitempty"`
	Receiving            bool    `json:"receiving,omitempty"`
}

// stateV1Argument mirrors the pre-split Argument shape: a single "kind"
// discriminator plus the fields relevant to it.
type stateV1Argument struct {
	Kind        string `json:"kind"`
	Index       *uint16 `json:"index,omitempty"`
	ResultIndex *uint16 `json:"resultIndex,omitempty"`
}

// stateV1Command carries every v2 command's fields flattened onto one
// struct, tagged by Kind; unknown kinds round-trip as TransactionIntent.
type stateV1Command struct {
	Kind          string              `json:"kind"`
	Package       *string             `json:"package,omitempty"`
	Module        *string             `json:"module,omitempty"`
	Function      *string             `json:"function,omitempty"`
	TypeArguments []string            `json:"typeArguments,omitempty"`
	Arguments     []stateV1Argument   `json:"arguments,omitempty"`
	Address       *stateV1Argument    `json:"address,omitempty"`
	Coin          *stateV1Argument    `json:"coin,omitempty"`
	Amounts       []stateV1Argument   `json:"amounts,omitempty"`
	Destination   *stateV1Argument    `json:"destination,omitempty"`
	Sources       []stateV1Argument   `json:"sources,omitempty"`
	ElementType   *string             `json:"elementType,omitempty"`
	Modules       [][]byte            `json:"modules,omitempty"`
	Dependencies  []string            `json:"dependencies,omitempty"`
	Ticket        *stateV1Argument    `json:"ticket,omitempty"`
	IntentName    *string             `json:"intentName,omitempty"`
	IntentData    []byte              `json:"intentData,omitempty"`
}

func restoreState(raw []byte) (*TransactionState, error) {
	var probe struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("transaction: invalid serialized state: %w", err)
	}

	switch probe.Version {
	case 0, 1:
		var v1 StateV1
		if err := json.Unmarshal(raw, &v1); err != nil {
			return nil, fmt.Errorf("transaction: invalid v1 state: %w", err)
		}
		return v1.ToV2()
	case 2:
		var v2 serializedStateV2
		if err := json.Unmarshal(raw, &v2); err != nil {
			return nil, fmt.Errorf("transaction: invalid v2 state: %w", err)
		}
		return v2.toState()
	default:
		return nil, fmt.Errorf("transaction: unsupported state version %d", probe.Version)
	}
}

// ToV2 migrates a legacy v1 state into the current TransactionState,
// translating positional inputs into CallArg variants and folding any
// unrecognized command kind into a TransactionIntent.
func (v1 StateV1) ToV2() (*TransactionState, error) {
	state := NewTransactionState()

	if v1.Sender != nil {
		addr, err := parseAddressField(*v1.Sender)
		if err != nil {
			return nil, err
		}
		state.Sender = &addr
	}
	if v1.Expir != nil && v1.Expir.Epoch != nil {
		expiry := ExpirationEpoch(*v1.Expir.Epoch)
		state.Expiration = &expiry
	} else {
		none := ExpirationNone()
		state.Expiration = &none
	}
	if v1.GasOwner != nil {
		owner, err := parseAddressField(*v1.GasOwner)
		if err != nil {
			return nil, err
		}
		state.Gas.Owner = &owner
	}
	state.Gas.Price = v1.GasPrice
	state.Gas.Budget = v1.GasBudget
	for _, p := range v1.GasPayment {
		ref, err := p.toObjectRef()
		if err != nil {
			return nil, err
		}
		state.Gas.Payment = append(state.Gas.Payment, ref)
	}

	for _, in := range v1.Inputs {
		arg, err := in.toCallArg()
		if err != nil {
			return nil, err
		}
		state.Inputs = append(state.Inputs, arg)
	}

	for _, cmd := range v1.Commands {
		converted, err := cmd.toCommand()
		if err != nil {
			return nil, err
		}
		state.Commands = append(state.Commands, converted)
	}

	return state, nil
}

func (r stateV1ObjectRef) toObjectRef() (types.ObjectRef, error) {
	addr, err := parseAddressField(r.ObjectID)
	if err != nil {
		return types.ObjectRef{}, err
	}
	digest, err := parseDigestField(r.Digest)
	if err != nil {
		return types.ObjectRef{}, err
	}
	return types.ObjectRef{ObjectID: addr, Version: r.Version, Digest: digest}, nil
}

func (in stateV1Input) toCallArg() (CallArg, error) {
	switch in.Kind {
	case "pure":
		return CallArg{Pure: &Pure{Bytes: append([]byte(nil), in.Pure...)}}, nil
	case "object":
		if in.Object == nil {
			return CallArg{}, &ValidationFailed{Path: "inputs", Reason: "object input missing object payload"}
		}
		addr, err := parseAddressField(in.Object.ObjectID)
		if err != nil {
			return CallArg{}, err
		}
		switch {
		case in.Object.InitialSharedVersion != nil:
			mutable := false
			if in.Object.Mutable != nil {
				mutable = *in.Object.Mutable
			}
			return CallArg{Object: &ObjectArg{SharedObject: &types.SharedObjectRef{
				ObjectID:             addr,
				InitialSharedVersion: *in.Object.InitialSharedVersion,
				Mutable:              mutable,
			}}}, nil
		case in.Object.Version != nil && in.Object.Digest != nil:
			digest, err := parseDigestField(*in.Object.Digest)
			if err != nil {
				return CallArg{}, err
			}
			ref := &types.ObjectRef{ObjectID: addr, Version: *in.Object.Version, Digest: digest}
			if in.Object.Receiving {
				return CallArg{Object: &ObjectArg{Receiving: ref}}, nil
			}
			return CallArg{Object: &ObjectArg{ImmOrOwnedObject: ref}}, nil
		default:
			return CallArg{UnresolvedObject: &UnresolvedObject{ObjectID: addr.String()}}, nil
		}
	default:
		return CallArg{}, &ValidationFailed{Path: "inputs", Reason: "unknown v1 input kind " + in.Kind}
	}
}

func (a stateV1Argument) toArgument() Argument {
	switch a.Kind {
	case "gasCoin":
		return Argument{GasCoin: &struct{}{}}
	case "input":
		idx := *a.Index
		return Argument{Input: &idx}
	case "result":
		idx := *a.Index
		return Argument{Result: &idx}
	case "nestedResult":
		idx := *a.Index
		res := *a.ResultIndex
		return Argument{NestedResult: &NestedResult{Index: idx, ResultIndex: res}}
	default:
		return Argument{}
	}
}

func argumentToV1(a Argument) stateV1Argument {
	switch {
	case a.GasCoin != nil:
		return stateV1Argument{Kind: "gasCoin"}
	case a.Input != nil:
		idx := *a.Input
		return stateV1Argument{Kind: "input", Index: &idx}
	case a.Result != nil:
		idx := *a.Result
		return stateV1Argument{Kind: "result", Index: &idx}
	case a.NestedResult != nil:
		idx := a.NestedResult.Index
		res := a.NestedResult.ResultIndex
		return stateV1Argument{Kind: "nestedResult", Index: &idx, ResultIndex: &res}
	default:
		// IntentResult/NestedIntentResult have no v1 analog; callers must
		// resolve intents before migrating a state down to v1.
		return stateV1Argument{Kind: "unresolvedIntentResult"}
	}
}

func argsToV1(args []Argument) []stateV1Argument {
	if args == nil {
		return nil
	}
	out := make([]stateV1Argument, len(args))
	for i, a := range args {
		out[i] = argumentToV1(a)
	}
	return out
}

func (c stateV1Command) toCommand() (Command, error) {
	switch c.Kind {
	case "moveCall":
		if c.Package == nil || c.Module == nil || c.Function == nil {
			return Command{}, &ValidationFailed{Path: "commands", Reason: "move call missing target"}
		}
		mc := MoveCall{
			Package:       *c.Package,
			Module:        *c.Module,
			Function:      *c.Function,
			TypeArguments: c.TypeArguments,
		}
		call, err := mc.toProgrammableMoveCall(New())
		if err != nil {
			return Command{}, err
		}
		call.Arguments = argsFromV1(c.Arguments)
		return Command{MoveCall: &call}, nil
	case "transferObjects":
		return Command{TransferObjects: &TransferObjects{
			Objects: argsFromV1(c.Arguments),
			Address: c.Address.toArgument(),
		}}, nil
	case "splitCoins":
		return Command{SplitCoins: &SplitCoins{
			Coin:    c.Coin.toArgument(),
			Amounts: argsFromV1(c.Amounts),
		}}, nil
	case "mergeCoins":
		return Command{MergeCoins: &MergeCoins{
			Destination: c.Destination.toArgument(),
			Sources:     argsFromV1(c.Sources),
		}}, nil
	case "makeMoveVec":
		mv := MakeMoveVecInput{Type: c.ElementType}
		cmd, err := mv.toCommand(New())
		if err != nil {
			return Command{}, err
		}
		cmd.Elements = argsFromV1(c.Arguments)
		return Command{MakeMoveVec: &cmd}, nil
	case "publish":
		pub := PublishInput{Modules: c.Modules, Dependencies: c.Dependencies}
		cmd, err := pub.toCommand(New())
		if err != nil {
			return Command{}, err
		}
		return Command{Publish: &cmd}, nil
	case "upgrade":
		var ticket Argument
		if c.Ticket != nil {
			ticket = c.Ticket.toArgument()
		}
		up := UpgradeInput{Modules: c.Modules, Dependencies: c.Dependencies, Ticket: ticket}
		if c.Package != nil {
			up.Package = *c.Package
		}
		cmd, err := up.toCommand(New())
		if err != nil {
			return Command{}, err
		}
		return Command{Upgrade: &cmd}, nil
	default:
		name := c.Kind
		if c.IntentName != nil {
			name = *c.IntentName
		}
		return Command{TransactionIntent: &TransactionIntent{
			Name: name,
			Data: append([]byte(nil), c.IntentData...),
		}}, nil
	}
}

func argsFromV1(args []stateV1Argument) []Argument {
	if args == nil {
		return nil
	}
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = a.toArgument()
	}
	return out
}

func parseAddressField(value string) (types.Address, error) {
	var addr types.Address
	if err := (&addr).UnmarshalJSON([]byte(`"` + value + `"`)); err != nil {
		return types.Address{}, err
	}
	return addr, nil
}

func parseDigestField(value string) (types.Digest, error) {
	var digest types.Digest
	if err := (&digest).UnmarshalJSON([]byte(`"` + value + `"`)); err != nil {
		return nil, err
	}
	return digest, nil
}

// serializedStateV2 is the current on-disk shape, a thin JSON projection of
// TransactionState.
type serializedStateV2 struct {
	Version    int               `json:"version"`
	Features   []string          `json:"features,omitempty"`
	Sender     *string           `json:"sender,omitempty"`
	Expiration *stateV1Expiry    `json:"expiration,omitempty"`
	GasOwner   *string           `json:"gasOwner,omitempty"`
	GasPrice   *uint64           `json:"gasPrice,omitempty"`
	GasBudget  *uint64           `json:"gasBudget,omitempty"`
	GasPayment []stateV1ObjectRef `json:"gasPayment,omitempty"`
	Inputs     []stateV1Input    `json:"inputs"`
	Commands   []stateV1Command `json:"commands"`
}

func (v2 serializedStateV2) toState() (*TransactionState, error) {
	v1 := StateV1{
		Version:    2,
		Sender:     v2.Sender,
		Expir:      v2.Expiration,
		GasOwner:   v2.GasOwner,
		GasPrice:   v2.GasPrice,
		GasBudget:  v2.GasBudget,
		GasPayment: v2.GasPayment,
		Inputs:     v2.Inputs,
		Commands:   v2.Commands,
	}
	state, err := v1.ToV2()
	if err != nil {
		return nil, err
	}
	state.Features = append([]string(nil), v2.Features...)
	return state, nil
}
