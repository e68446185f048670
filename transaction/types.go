package transaction

import (
	"github.com/iotaledger/bcs-go"

	"github.com/openmove/ptb-core/types"
	"github.com/openmove/ptb-core/typetag"
)

// Pure is an opaque BCS-encoded scalar input.
type Pure struct {
	Bytes []byte
}

// ObjectArg is the resolved, wire-encodable form of an object input.
type ObjectArg struct {
	ImmOrOwnedObject *types.ObjectRef
	SharedObject     *types.SharedObjectRef
	Receiving        *types.ObjectRef
}

func (ObjectArg) IsBcsEnum() {}

// UnresolvedObject is a transient input: an object id (and the parameter
// signatures it has been seen bound to) awaiting resolveObjectReferences.
// It must never survive to the wire form.
type UnresolvedObject struct {
	ObjectID       string
	TypeSignatures []typetag.OpenMoveTypeSignature
}

// RawValue is a transient input: an untyped value awaiting normalizeInputs
// to bind it to a parameter's concrete pure/object shape. It must never
// survive to the wire form.
type RawValue struct {
	Value any
	// Type narrows how the value should eventually be interpreted when the
	// call site that produced it already knows ("pure" or "object"), absent
	// when unknown.
	Type string
}

const (
	RawValueTypePure   = "pure"
	RawValueTypeObject = "object"
)

// CallArg is a top-level transaction input. Pure and Object are the only
// variants BCS ever sees; UnresolvedObject and RawValue are pipeline-internal
// and must be resolved away before a build succeeds.
type CallArg struct {
	Pure             *Pure
	Object           *ObjectArg
	UnresolvedObject *UnresolvedObject
	RawValue         *RawValue
}

func (CallArg) IsBcsEnum() {}

// IsTransient reports whether this input still needs pipeline work before
// it can be serialized.
func (c CallArg) IsTransient() bool {
	return c.UnresolvedObject != nil || c.RawValue != nil
}

// NestedResult addresses the j-th value produced by command i.
type NestedResult struct {
	Index       uint16
	ResultIndex uint16
}

// Argument is a reference to an input or to a command's result. IntentResult
// and NestedIntentResult are pipeline-internal placeholders produced while a
// TransactionIntent command has not yet been expanded; they must not appear
// in built output.
type Argument struct {
	GasCoin            *struct{}
	Input              *uint16
	Result             *uint16
	NestedResult       *NestedResult
	IntentResult       *uint16
	NestedIntentResult *NestedResult
}

func (Argument) IsBcsEnum() {}

// ProgrammableMoveCall represents a Move call command.
type ProgrammableMoveCall struct {
	Package       types.Address
	Module        string
	Function      string
	TypeArguments []typetag.TypeTag
	Arguments     []Argument
}

// TransferObjects represents a TransferObjects command.
type TransferObjects struct {
	Objects []Argument
	Address Argument
}

// SplitCoins represents a SplitCoins command.
type SplitCoins struct {
	Coin    Argument
	Amounts []Argument
}

// MergeCoins represents a MergeCoins command.
type MergeCoins struct {
	Destination Argument
	Sources     []Argument
}

// MakeMoveVec represents a MakeMoveVec command. Type is absent when the
// element type can be inferred on-chain from the first element.
type MakeMoveVec struct {
	Type     bcs.Option[typetag.TypeTag]
	Elements []Argument
}

// Publish represents a Publish command.
type Publish struct {
	Modules      [][]byte
	Dependencies []types.Address
}

// Upgrade represents an Upgrade command.
type Upgrade struct {
	Modules      [][]byte
	Dependencies []types.Address
	Package      types.Address
	Ticket       Argument
}

// TransactionIntent is a higher-level, named command that must be rewritten
// into primitive commands by a registered IntentResolver before build. Data
// carries resolver-private opaque configuration that the resolver alone
// interprets.
type TransactionIntent struct {
	Name   string
	Inputs map[string]IntentInputValue
	Data   []byte
}

// IntentInputValue is either a single Argument or a list of Arguments, the
// two shapes a TransactionIntent's named inputs may take.
type IntentInputValue struct {
	Single *Argument
	List   []Argument
}

// SingleValue wraps one Argument as an IntentInputValue.
func SingleValue(arg Argument) IntentInputValue {
	return IntentInputValue{Single: &arg}
}

// ListValue wraps a slice of Arguments as an IntentInputValue.
func ListValue(args []Argument) IntentInputValue {
	return IntentInputValue{List: append([]Argument(nil), args...)}
}

// Command is a single step of a programmable transaction. Field order fixes
// the BCS discriminant: MoveCall=0, TransferObjects=1, SplitCoins=2,
// MergeCoins=3, MakeMoveVec=4, Publish=5, Upgrade=6, TransactionIntent=7.
type Command struct {
	MoveCall          *ProgrammableMoveCall
	TransferObjects   *TransferObjects
	SplitCoins        *SplitCoins
	MergeCoins        *MergeCoins
	MakeMoveVec       *MakeMoveVec
	Publish           *Publish
	Upgrade           *Upgrade
	TransactionIntent *TransactionIntent
}

func (Command) IsBcsEnum() {}

// ProgrammableTransaction represents a programmable transaction.
type ProgrammableTransaction struct {
	Inputs   []CallArg
	Commands []Command
}

// TransactionKind represents the kind of transaction.
type TransactionKind struct {
	ProgrammableTransaction *ProgrammableTransaction
	ChangeEpoch             *struct{}
	Genesis                 *struct{}
	ConsensusCommitPrologue *struct{}
}

func (TransactionKind) IsBcsEnum() {}

// TransactionExpiration represents the transaction expiration.
type TransactionExpiration struct {
	None  *struct{}
	Epoch *uint64
}

func (TransactionExpiration) IsBcsEnum() {}

// ExpirationNone returns a TransactionExpiration with None set.
func ExpirationNone() TransactionExpiration {
	return TransactionExpiration{None: &struct{}{}}
}

// ExpirationEpoch returns a TransactionExpiration with the given epoch.
func ExpirationEpoch(epoch uint64) TransactionExpiration {
	e := epoch
	return TransactionExpiration{Epoch: &e}
}

// GasData is the fully-resolved, wire-encodable gas configuration. Field
// order fixes the BCS layout: payment, owner, price, budget.
type GasData struct {
	Payment []types.ObjectRef
	Owner   types.Address
	Price   uint64
	Budget  uint64
}

// TransactionDataV1 represents version 1 of transaction data.
type TransactionDataV1 struct {
	Sender     types.Address
	Expiration TransactionExpiration
	GasData    GasData
	Kind       TransactionKind
}

// TransactionData represents the transaction data to be signed.
type TransactionData struct {
	V1 *TransactionDataV1
}

func (TransactionData) IsBcsEnum() {}

// gasState is the in-progress, partially-specified gas configuration a
// TransactionState carries before the gas stages of the pipeline run.
type gasState struct {
	Payment []types.ObjectRef
	Owner   *types.Address
	Price   *uint64
	Budget  *uint64
}

func (g gasState) clone() gasState {
	clone := gasState{Price: g.Price, Budget: g.Budget}
	if g.Owner != nil {
		owner := *g.Owner
		clone.Owner = &owner
	}
	clone.Payment = append([]types.ObjectRef(nil), g.Payment...)
	return clone
}

// TransactionState is the versioned, mutable in-memory representation a
// BlockDataBuilder owns. Version 2 stores CallArg/Command directly; see
// migration.go for the v1 on-disk shape and the conversion between them.
type TransactionState struct {
	Version    int
	Features   []string
	Sender     *types.Address
	Expiration *TransactionExpiration
	Gas        gasState
	Inputs     []CallArg
	Commands   []Command
}

const currentStateVersion = 2

// NewTransactionState returns an empty, version-2 state.
func NewTransactionState() *TransactionState {
	return &TransactionState{Version: currentStateVersion}
}

// Clone returns a copy with its own Features, Inputs, Commands and
// Gas.Payment slices and its own Sender, Expiration and Gas.Owner values.
// The CallArg and Command elements still point at the same variant structs
// as the receiver's, and Gas.Price and Gas.Budget point at the same values.
func (s *TransactionState) Clone() *TransactionState {
	if s == nil {
		return NewTransactionState()
	}
	clone := &TransactionState{
		Version:  s.Version,
		Features: append([]string(nil), s.Features...),
		Gas:      s.Gas.clone(),
		Inputs:   append([]CallArg(nil), s.Inputs...),
		Commands: append([]Command(nil), s.Commands...),
	}
	if s.Sender != nil {
		sender := *s.Sender
		clone.Sender = &sender
	}
	if s.Expiration != nil {
		expiration := *s.Expiration
		clone.Expiration = &expiration
	}
	return clone
}

// HasCompleteGasConfig reports whether price, budget, and a non-empty
// payment set are all present.
func (s *TransactionState) HasCompleteGasConfig() bool {
	return s.Gas.Price != nil && s.Gas.Budget != nil && len(s.Gas.Payment) > 0
}
