package transaction

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"

	bcs "github.com/iotaledger/bcs-go"

	"github.com/openmove/ptb-core/types"
	"github.com/openmove/ptb-core/typetag"
	"github.com/openmove/ptb-core/utils"
)

// Transaction is the caller-facing builder: a thin, ergonomic layer over a
// TransactionState that accumulates inputs and commands as methods are
// called, then runs the resolution pipeline on Build.
type Transaction struct {
	state     *TransactionState
	resolvers map[string]IntentResolver
}

// New returns an empty transaction builder.
func New() *Transaction {
	return &Transaction{state: NewTransactionState()}
}

// SetSender sets the transaction's sender address.
func (t *Transaction) SetSender(address string) error {
	addr, err := utils.ParseAddress(address)
	if err != nil {
		return err
	}
	t.state.Sender = &addr
	return nil
}

// SetExpirationEpoch bounds the transaction's validity to the given epoch.
func (t *Transaction) SetExpirationEpoch(epoch uint64) {
	expiry := ExpirationEpoch(epoch)
	t.state.Expiration = &expiry
}

// SetGasPrice pins the gas price, skipping setGasPrice's chain lookup.
func (t *Transaction) SetGasPrice(price uint64) {
	t.state.Gas.Price = &price
}

// SetGasBudget pins the gas budget, skipping setGasBudget's dry run.
func (t *Transaction) SetGasBudget(budget uint64) {
	t.state.Gas.Budget = &budget
}

// SetGasOwner pins the gas owner address, defaulting to the sender if left
// unset at build time.
func (t *Transaction) SetGasOwner(address string) error {
	addr, err := utils.ParseAddress(address)
	if err != nil {
		return err
	}
	t.state.Gas.Owner = &addr
	return nil
}

// SetGasPayment pins the gas payment coins, skipping setGasPayment's coin
// selection.
func (t *Transaction) SetGasPayment(payment []types.ObjectRef) {
	t.state.Gas.Payment = append([]types.ObjectRef(nil), payment...)
}

// RegisterIntentResolver registers a resolver the resolveIntents stage will
// use to expand any TransactionIntent command carrying its name.
func (t *Transaction) RegisterIntentResolver(r IntentResolver) {
	if t.resolvers == nil {
		t.resolvers = make(map[string]IntentResolver)
	}
	t.resolvers[r.Name()] = r
}

// Gas returns the gas coin argument.
func (t *Transaction) Gas() Argument {
	return Argument{GasCoin: &struct{}{}}
}

// ArgumentProducer lazily builds an Argument using the transaction builder
// itself — a closure a command shorthand invokes with this, in place of a
// pre-built Argument, to stage new inputs as it resolves its own value.
type ArgumentProducer func(t *Transaction) Argument

// Object returns an argument for an object input, deduping by object id
// against any existing input: a repeated id returns the same input index,
// OR-ing in any stronger mutable flag a shared object carries, rather than
// appending a second entry (spec's object-input dedup invariant). Accepts a
// bare object id string (whose version/digest/ownership resolveObjectReferences
// fills in at build time), an already-resolved CallArg, an Argument already
// addressing an input, or an ArgumentProducer invoked with this transaction.
func (t *Transaction) Object(value any) Argument {
	switch v := value.(type) {
	case string:
		normalized, err := utils.NormalizeAddress(v)
		if err != nil {
			normalized = v
		}
		return t.addObjectInput(CallArg{UnresolvedObject: &UnresolvedObject{ObjectID: normalized}})
	case CallArg:
		return t.addObjectInput(v)
	case Argument:
		return v
	case Result:
		return v.Arg()
	case ArgumentProducer:
		return v(t)
	case func(*Transaction) Argument:
		return ArgumentProducer(v)(t)
	default:
		idx := t.state.AddInput(CallArg{RawValue: &RawValue{Value: value, Type: RawValueTypeObject}})
		return Argument{Input: &idx}
	}
}

// ObjectRef returns an argument for an already-resolved owned object,
// deduped by object id the same way Object is.
func (t *Transaction) ObjectRef(ref types.ObjectRef) Argument {
	return t.addObjectInput(CallArg{Object: &ObjectArg{ImmOrOwnedObject: &ref}})
}

// SharedObject returns an argument for an already-resolved shared object,
// deduped by object id the same way Object is; a second call with a
// stronger mutable flag upgrades the existing input in place.
func (t *Transaction) SharedObject(ref types.SharedObjectRef) Argument {
	return t.addObjectInput(CallArg{Object: &ObjectArg{SharedObject: &ref}})
}

// ReceivingObject returns an argument for an object to be received via
// transfer-to-object, deduped by object id the same way Object is.
func (t *Transaction) ReceivingObject(ref types.ObjectRef) Argument {
	return t.addObjectInput(CallArg{Object: &ObjectArg{Receiving: &ref}})
}

// objectIDOf extracts the normalized object id a CallArg's object-shaped
// variants (UnresolvedObject, or a resolved Object of any ownership kind)
// carry, the key addObjectInput dedupes on.
func objectIDOf(arg CallArg) (string, bool) {
	if arg.UnresolvedObject != nil {
		return arg.UnresolvedObject.ObjectID, true
	}
	if arg.Object != nil {
		switch {
		case arg.Object.ImmOrOwnedObject != nil:
			return arg.Object.ImmOrOwnedObject.ObjectID.String(), true
		case arg.Object.SharedObject != nil:
			return arg.Object.SharedObject.ObjectID.String(), true
		case arg.Object.Receiving != nil:
			return arg.Object.Receiving.ObjectID.String(), true
		}
	}
	return "", false
}

// addObjectInput appends an object-shaped CallArg, unless an existing input
// already carries the same object id, in which case it returns that
// input's index instead — OR-ing in a stronger mutable flag when arg is a
// shared object and the existing input is too.
func (t *Transaction) addObjectInput(arg CallArg) Argument {
	id, ok := objectIDOf(arg)
	if !ok {
		idx := t.state.AddInput(arg)
		return Argument{Input: &idx}
	}

	for i, existing := range t.state.Inputs {
		existingID, ok := objectIDOf(existing)
		if !ok || existingID != id {
			continue
		}
		if arg.Object != nil && arg.Object.SharedObject != nil && arg.Object.SharedObject.Mutable &&
			existing.Object != nil && existing.Object.SharedObject != nil && !existing.Object.SharedObject.Mutable {
			merged := *existing.Object.SharedObject
			merged.Mutable = true
			t.state.Inputs[i] = CallArg{Object: &ObjectArg{SharedObject: &merged}}
		}
		idx := uint16(i)
		return Argument{Input: &idx}
	}

	idx := t.state.AddInput(arg)
	return Argument{Input: &idx}
}

// Raw returns an argument for a value whose pure/object shape is not yet
// known; normalizeInputs binds it once it sees which Move call parameter
// consumes it.
func (t *Transaction) Raw(value any) Argument {
	idx := t.state.AddInput(CallArg{RawValue: &RawValue{Value: value}})
	return Argument{Input: &idx}
}

func (t *Transaction) pure(bytes []byte) Argument {
	idx := t.state.AddInput(CallArg{Pure: &Pure{Bytes: bytes}})
	return Argument{Input: &idx}
}

func (t *Transaction) PureBytes(bytes []byte) Argument {
	return t.pure(append([]byte(nil), bytes...))
}

func (t *Transaction) PureBool(value bool) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

func (t *Transaction) PureU8(value uint8) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

func (t *Transaction) PureU16(value uint16) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

func (t *Transaction) PureU32(value uint32) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

func (t *Transaction) PureU64(value uint64) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

func (t *Transaction) PureU128(value *big.Int) Argument {
	bytes, _ := bcs.Marshal(value)
	return t.pure(bytes)
}

func (t *Transaction) PureU256(value *big.Int) Argument {
	bytes, _ := typetag.EncodePure(typetag.OpenMoveTypeSignatureBody{U256: &struct{}{}}, value)
	return t.pure(bytes)
}

func (t *Transaction) PureString(value string) Argument {
	bytes, _ := bcs.Marshal(&value)
	return t.pure(bytes)
}

// PureAddress parses and encodes a Sui address as a pure argument.
func (t *Transaction) PureAddress(address string) Argument {
	addr, err := utils.ParseAddress(address)
	if err != nil {
		return t.pure(nil)
	}
	bytes, _ := bcs.Marshal(&addr)
	return t.pure(bytes)
}

// toArgument recognizes the shapes that are already arguments: a bare
// Argument, a command Result, or an ArgumentProducer invoked with this
// transaction. It is the strict core every looser coercion below falls
// back to before trying its own command-specific interpretation.
func (t *Transaction) toArgument(value any) (Argument, error) {
	switch v := value.(type) {
	case Argument:
		return v, nil
	case Result:
		return v.Arg(), nil
	case ArgumentProducer:
		return v(t), nil
	case func(*Transaction) Argument:
		return ArgumentProducer(v)(t), nil
	default:
		return Argument{}, fmt.Errorf("transaction: unsupported argument type %T", value)
	}
}

// toCallArgument marshals a single MoveCall/MakeMoveVec element: an
// Argument-like value is used as-is, anything else is staged as a Raw
// input for normalizeInputs to type once it sees the parameter it binds
// to.
func (t *Transaction) toCallArgument(value any) Argument {
	if arg, err := t.toArgument(value); err == nil {
		return arg
	}
	return t.Raw(value)
}

func (t *Transaction) toCallArguments(values []any) []Argument {
	if values == nil {
		return nil
	}
	out := make([]Argument, len(values))
	for i, v := range values {
		out[i] = t.toCallArgument(v)
	}
	return out
}

// toAmountArgument marshals a SplitCoins amount slot: an Argument-like
// value is used as-is; a bare number, bigint, or numeric string is
// force-encoded as pure.u64.
func (t *Transaction) toAmountArgument(value any) (Argument, error) {
	if arg, err := t.toArgument(value); err == nil {
		return arg, nil
	}
	switch v := value.(type) {
	case uint64:
		return t.PureU64(v), nil
	case uint32:
		return t.PureU64(uint64(v)), nil
	case uint16:
		return t.PureU64(uint64(v)), nil
	case uint8:
		return t.PureU64(uint64(v)), nil
	case int:
		if v < 0 {
			return Argument{}, fmt.Errorf("transaction: negative split-coins amount")
		}
		return t.PureU64(uint64(v)), nil
	case int64:
		if v < 0 {
			return Argument{}, fmt.Errorf("transaction: negative split-coins amount")
		}
		return t.PureU64(uint64(v)), nil
	case *big.Int:
		if v.Sign() < 0 || !v.IsUint64() {
			return Argument{}, fmt.Errorf("transaction: split-coins amount out of u64 range")
		}
		return t.PureU64(v.Uint64()), nil
	case string:
		parsed, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return Argument{}, fmt.Errorf("transaction: invalid split-coins amount %q: %w", v, err)
		}
		return t.PureU64(parsed), nil
	default:
		return Argument{}, fmt.Errorf("transaction: unsupported split-coins amount type %T", value)
	}
}

func (t *Transaction) toAmountArguments(values []any) ([]Argument, error) {
	out := make([]Argument, len(values))
	for i, v := range values {
		arg, err := t.toAmountArgument(v)
		if err != nil {
			return nil, fmt.Errorf("amount %d: %w", i, err)
		}
		out[i] = arg
	}
	return out, nil
}

// toRecipientArgument marshals a TransferObjects recipient: an
// Argument-like value is used as-is; a bare string is force-encoded as
// pure.address.
func (t *Transaction) toRecipientArgument(value any) (Argument, error) {
	if arg, err := t.toArgument(value); err == nil {
		return arg, nil
	}
	id, ok := value.(string)
	if !ok {
		return Argument{}, fmt.Errorf("transaction: unsupported recipient type %T", value)
	}
	return t.PureAddress(id), nil
}

// toObjectArgument marshals an object-shaped slot (SplitCoins.Coin,
// MergeCoins' destination/sources, TransferObjects.Objects, Upgrade's
// ticket): an Argument-like value is used as-is; a bare object id string or
// CallArg goes through Object, picking up its dedup behavior.
func (t *Transaction) toObjectArgument(value any) (Argument, error) {
	if arg, err := t.toArgument(value); err == nil {
		return arg, nil
	}
	switch value.(type) {
	case string, CallArg:
		return t.Object(value), nil
	default:
		return Argument{}, fmt.Errorf("transaction: unsupported object type %T", value)
	}
}

func (t *Transaction) toObjectArguments(values []any) ([]Argument, error) {
	out := make([]Argument, len(values))
	for i, v := range values {
		arg, err := t.toObjectArgument(v)
		if err != nil {
			return nil, fmt.Errorf("object %d: %w", i, err)
		}
		out[i] = arg
	}
	return out, nil
}

// MoveCall adds a MoveCall command and returns its Result handle.
func (t *Transaction) MoveCall(call MoveCall) (Result, error) {
	converted, err := call.toProgrammableMoveCall(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{MoveCall: &converted}), nil
}

// TransferObjects adds a TransferObjects command and returns its Result
// handle.
func (t *Transaction) TransferObjects(input TransferObjectsInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{TransferObjects: &converted}), nil
}

// SplitCoins adds a SplitCoins command and returns its Result handle; use
// Result.At(i) to reference the i-th split coin.
func (t *Transaction) SplitCoins(input SplitCoinsInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{SplitCoins: &converted}), nil
}

// MergeCoins adds a MergeCoins command and returns its Result handle.
func (t *Transaction) MergeCoins(input MergeCoinsInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{MergeCoins: &converted}), nil
}

// MakeMoveVec adds a MakeMoveVec command and returns its Result handle.
func (t *Transaction) MakeMoveVec(input MakeMoveVecInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{MakeMoveVec: &converted}), nil
}

// Publish adds a Publish command and returns its Result handle (the
// resulting upgrade capability).
func (t *Transaction) Publish(input PublishInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{Publish: &converted}), nil
}

// Upgrade adds an Upgrade command and returns its Result handle (the
// resulting upgrade receipt).
func (t *Transaction) Upgrade(input UpgradeInput) (Result, error) {
	converted, err := input.toCommand(t)
	if err != nil {
		return Result{}, err
	}
	return t.state.AddCommand(Command{Upgrade: &converted}), nil
}

// Intent adds a named TransactionIntent command, to be expanded by a
// resolver registered under the same name at build time.
func (t *Transaction) Intent(name string, inputs map[string]IntentInputValue, data []byte) Result {
	return t.state.AddCommand(Command{TransactionIntent: &TransactionIntent{
		Name:   name,
		Inputs: inputs,
		Data:   append([]byte(nil), data...),
	}})
}

// BuildOptions configures a Build call: the chain client collaborator,
// protocol limits (defaulted if zero), a maximum serialized size, whether
// to produce kind bytes alone, and overrides to apply to a full build.
type BuildOptions struct {
	Client              ChainClient
	Limits              ProtocolLimits
	MaxSizeBytes        int
	OnlyTransactionKind bool
	Overrides           *BuildOverrides
}

// BuildResult is everything a successful Build produces.
type BuildResult struct {
	KindBytes         []byte
	TransactionBytes  []byte
	Digest            string
	ResolvedInputArgs []CallArg
	ResolvedCommands  []Command
}

// Build runs the resolution pipeline to completion and serializes the
// result. When opts.OnlyTransactionKind is set, the gas stages are skipped
// and only KindBytes is populated; neither a sender nor a chain client's
// gas-related calls are required in that mode.
func (t *Transaction) Build(ctx context.Context, opts BuildOptions) (BuildResult, error) {
	limits := opts.Limits
	if limits == (ProtocolLimits{}) {
		limits = DefaultProtocolLimits()
	}

	pipeline := NewPipeline()
	resolved, err := pipeline.Run(ctx, t.state.Clone(), StageOptions{
		Client:              opts.Client,
		Limits:              limits,
		IntentResolvers:     t.resolvers,
		OnlyTransactionKind: opts.OnlyTransactionKind,
	})
	if err != nil {
		return BuildResult{}, err
	}

	maxSize := opts.MaxSizeBytes
	if maxSize == 0 {
		maxSize = limits.MaxTxSizeBytes
	}

	kindBytes, txBytes, digest, err := resolved.Build(BuildParams{
		OnlyTransactionKind: opts.OnlyTransactionKind,
		Overrides:           opts.Overrides,
		MaxSizeBytes:        maxSize,
	})
	if err != nil {
		return BuildResult{}, err
	}

	return BuildResult{
		KindBytes:         kindBytes,
		TransactionBytes:  txBytes,
		Digest:            digest,
		ResolvedInputArgs: append([]CallArg(nil), resolved.Inputs...),
		ResolvedCommands:  append([]Command(nil), resolved.Commands...),
	}, nil
}

// GetDigest runs Build and returns only the resulting digest.
func (t *Transaction) GetDigest(ctx context.Context, opts BuildOptions) (string, error) {
	result, err := t.Build(ctx, opts)
	if err != nil {
		return "", err
	}
	return result.Digest, nil
}

// Serialize returns the current (possibly still-unresolved) state as the
// canonical v2 JSON form, suitable for Restore.
func (t *Transaction) Serialize() ([]byte, error) {
	return json.Marshal(serializeState(t.state))
}

// ToJSON is an alias for Serialize, matching common SDK naming.
func (t *Transaction) ToJSON() ([]byte, error) {
	return t.Serialize()
}

// FromSerialized reconstructs a Transaction builder from a previously
// serialized state, migrating legacy v1 payloads transparently.
func FromSerialized(raw []byte) (*Transaction, error) {
	state, err := Restore(raw)
	if err != nil {
		return nil, err
	}
	return &Transaction{state: state}, nil
}

func serializeState(s *TransactionState) serializedStateV2 {
	out := serializedStateV2{
		Version:  2,
		Features: s.Features,
		Inputs:   make([]stateV1Input, len(s.Inputs)),
		Commands: make([]stateV1Command, len(s.Commands)),
	}
	if s.Sender != nil {
		sender := s.Sender.String()
		out.Sender = &sender
	}
	if s.Expiration != nil && s.Expiration.Epoch != nil {
		out.Expiration = &stateV1Expiry{Epoch: s.Expiration.Epoch}
	}
	if s.Gas.Owner != nil {
		owner := s.Gas.Owner.String()
		out.GasOwner = &owner
	}
	out.GasPrice = s.Gas.Price
	out.GasBudget = s.Gas.Budget
	for _, p := range s.Gas.Payment {
		out.GasPayment = append(out.GasPayment, stateV1ObjectRef{
			ObjectID: p.ObjectID.String(),
			Version:  p.Version,
			Digest:   p.Digest.String(),
		})
	}
	for i, in := range s.Inputs {
		out.Inputs[i] = callArgToV1(in)
	}
	for i, cmd := range s.Commands {
		out.Commands[i] = commandToV1(cmd)
	}
	return out
}

func callArgToV1(arg CallArg) stateV1Input {
	switch {
	case arg.Pure != nil:
		return stateV1Input{Kind: "pure", Pure: append([]byte(nil), arg.Pure.Bytes...)}
	case arg.Object != nil:
		obj := arg.Object
		v1 := &stateV1ObjectArg{}
		switch {
		case obj.ImmOrOwnedObject != nil:
			v1.ObjectID = obj.ImmOrOwnedObject.ObjectID.String()
			v1.Version = &obj.ImmOrOwnedObject.Version
			digest := obj.ImmOrOwnedObject.Digest.String()
			v1.Digest = &digest
		case obj.SharedObject != nil:
			v1.ObjectID = obj.SharedObject.ObjectID.String()
			v1.InitialSharedVersion = &obj.SharedObject.InitialSharedVersion
			v1.Mutable = &obj.SharedObject.Mutable
		case obj.Receiving != nil:
			v1.ObjectID = obj.Receiving.ObjectID.String()
			v1.Version = &obj.Receiving.Version
			digest := obj.Receiving.Digest.String()
			v1.Digest = &digest
			v1.Receiving = true
		}
		return stateV1Input{Kind: "object", Object: v1}
	case arg.UnresolvedObject != nil:
		return stateV1Input{Kind: "object", Object: &stateV1ObjectArg{ObjectID: arg.UnresolvedObject.ObjectID}}
	default:
		return stateV1Input{Kind: "pure"}
	}
}

func commandToV1(cmd Command) stateV1Command {
	switch {
	case cmd.MoveCall != nil:
		mc := cmd.MoveCall
		pkg := mc.Package.String()
		typeArgs := make([]string, len(mc.TypeArguments))
		for i, ta := range mc.TypeArguments {
			typeArgs[i] = ta.String()
		}
		return stateV1Command{
			Kind: "moveCall", Package: &pkg, Module: &mc.Module, Function: &mc.Function,
			TypeArguments: typeArgs, Arguments: argsToV1(mc.Arguments),
		}
	case cmd.TransferObjects != nil:
		to := cmd.TransferObjects
		address := argumentToV1(to.Address)
		return stateV1Command{Kind: "transferObjects", Arguments: argsToV1(to.Objects), Address: &address}
	case cmd.SplitCoins != nil:
		sc := cmd.SplitCoins
		coin := argumentToV1(sc.Coin)
		return stateV1Command{Kind: "splitCoins", Coin: &coin, Amounts: argsToV1(sc.Amounts)}
	case cmd.MergeCoins != nil:
		mc := cmd.MergeCoins
		dest := argumentToV1(mc.Destination)
		return stateV1Command{Kind: "mergeCoins", Destination: &dest, Sources: argsToV1(mc.Sources)}
	case cmd.MakeMoveVec != nil:
		mv := cmd.MakeMoveVec
		var elemType *string
		if !mv.Type.None {
			s := mv.Type.Some.String()
			elemType = &s
		}
		return stateV1Command{Kind: "makeMoveVec", ElementType: elemType, Arguments: argsToV1(mv.Elements)}
	case cmd.Publish != nil:
		p := cmd.Publish
		deps := make([]string, len(p.Dependencies))
		for i, d := range p.Dependencies {
			deps[i] = d.String()
		}
		return stateV1Command{Kind: "publish", Modules: p.Modules, Dependencies: deps}
	case cmd.Upgrade != nil:
		u := cmd.Upgrade
		pkg := u.Package.String()
		deps := make([]string, len(u.Dependencies))
		for i, d := range u.Dependencies {
			deps[i] = d.String()
		}
		ticket := argumentToV1(u.Ticket)
		return stateV1Command{Kind: "upgrade", Package: &pkg, Modules: u.Modules, Dependencies: deps, Ticket: &ticket}
	case cmd.TransactionIntent != nil:
		intent := cmd.TransactionIntent
		return stateV1Command{Kind: "intent", IntentName: &intent.Name, IntentData: intent.Data}
	default:
		return stateV1Command{Kind: "unknown"}
	}
}
