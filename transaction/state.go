package transaction

import (
	bcs "github.com/iotaledger/bcs-go"

	"github.com/openmove/ptb-core/types"
)

// AddInput appends a CallArg and returns the index it was stored at.
func (s *TransactionState) AddInput(arg CallArg) uint16 {
	s.Inputs = append(s.Inputs, arg)
	return uint16(len(s.Inputs) - 1)
}

// AddCommand appends a Command and returns a Result handle addressing its
// output values.
func (s *TransactionState) AddCommand(cmd Command) Result {
	s.Commands = append(s.Commands, cmd)
	return Result{Index: uint16(len(s.Commands) - 1)}
}

// Snapshot returns a copy of the state made by Clone, named for its use at
// pipeline stage boundaries where callers want to diff before/after rather
// than mutate in place. The copy shares what Clone shares (see Clone).
func (s *TransactionState) Snapshot() *TransactionState {
	return s.Clone()
}

// argumentVisitor is called once per Argument reachable from a command,
// in traversal order, and returns the (possibly rewritten) Argument to
// substitute in its place.
type argumentVisitor func(arg Argument) Argument

// MapArguments rewrites every Argument referenced by every command through
// visit, following the fixed per-command-variant traversal schema. It is
// used by ReplaceCommand to shift indices.
func (s *TransactionState) MapArguments(visit argumentVisitor) {
	for i := range s.Commands {
		s.Commands[i] = mapCommandArguments(s.Commands[i], visit)
	}
}

func mapCommandArguments(cmd Command, visit argumentVisitor) Command {
	switch {
	case cmd.MoveCall != nil:
		call := *cmd.MoveCall
		call.Arguments = mapArgSlice(call.Arguments, visit)
		cmd.MoveCall = &call
	case cmd.TransferObjects != nil:
		t := *cmd.TransferObjects
		t.Objects = mapArgSlice(t.Objects, visit)
		t.Address = visit(t.Address)
		cmd.TransferObjects = &t
	case cmd.SplitCoins != nil:
		sp := *cmd.SplitCoins
		sp.Coin = visit(sp.Coin)
		sp.Amounts = mapArgSlice(sp.Amounts, visit)
		cmd.SplitCoins = &sp
	case cmd.MergeCoins != nil:
		m := *cmd.MergeCoins
		m.Destination = visit(m.Destination)
		m.Sources = mapArgSlice(m.Sources, visit)
		cmd.MergeCoins = &m
	case cmd.MakeMoveVec != nil:
		mv := *cmd.MakeMoveVec
		mv.Elements = mapArgSlice(mv.Elements, visit)
		cmd.MakeMoveVec = &mv
	case cmd.Upgrade != nil:
		u := *cmd.Upgrade
		u.Ticket = visit(u.Ticket)
		cmd.Upgrade = &u
	case cmd.TransactionIntent != nil:
		intent := *cmd.TransactionIntent
		if len(intent.Inputs) > 0 {
			remapped := make(map[string]IntentInputValue, len(intent.Inputs))
			for name, v := range intent.Inputs {
				remapped[name] = mapIntentInputValue(v, visit)
			}
			intent.Inputs = remapped
		}
		cmd.TransactionIntent = &intent
	case cmd.Publish != nil:
		// Publish carries no Arguments.
	}
	return cmd
}

func mapArgSlice(args []Argument, visit argumentVisitor) []Argument {
	if args == nil {
		return nil
	}
	out := make([]Argument, len(args))
	for i, a := range args {
		out[i] = visit(a)
	}
	return out
}

func mapIntentInputValue(v IntentInputValue, visit argumentVisitor) IntentInputValue {
	if v.Single != nil {
		mapped := visit(*v.Single)
		return IntentInputValue{Single: &mapped}
	}
	return IntentInputValue{List: mapArgSlice(v.List, visit)}
}

// ReplaceCommand replaces the command at index i with the commands in
// replacement, splicing them into its place. Every Result/NestedResult and
// IntentResult/NestedIntentResult reference to a command at index j
// elsewhere in the transaction is
// shifted by k-1 (k = len(replacement)) when j > i, and left unchanged
// when j <= i, preserving argument addressing across the splice.
func (s *TransactionState) ReplaceCommand(i int, replacement []Command) error {
	if i < 0 || i >= len(s.Commands) {
		return &ValidationFailed{Path: "commands", Reason: "replace index out of range"}
	}
	shift := len(replacement) - 1

	shiftIndex := func(idx uint16) uint16 {
		if int(idx) > i {
			return uint16(int(idx) + shift)
		}
		return idx
	}

	rewrite := func(arg Argument) Argument {
		switch {
		case arg.Result != nil:
			idx := shiftIndex(*arg.Result)
			return Argument{Result: &idx}
		case arg.NestedResult != nil:
			nr := *arg.NestedResult
			nr.Index = shiftIndex(nr.Index)
			return Argument{NestedResult: &nr}
		case arg.IntentResult != nil:
			idx := shiftIndex(*arg.IntentResult)
			return Argument{IntentResult: &idx}
		case arg.NestedIntentResult != nil:
			nr := *arg.NestedIntentResult
			nr.Index = shiftIndex(nr.Index)
			return Argument{NestedIntentResult: &nr}
		default:
			return arg
		}
	}

	next := make([]Command, 0, len(s.Commands)-1+len(replacement))
	next = append(next, s.Commands[:i]...)
	next = append(next, replacement...)
	next = append(next, s.Commands[i+1:]...)
	s.Commands = next

	s.MapArguments(rewrite)
	return nil
}

// resolvedInputsAndCommands returns the wire-ready inputs and commands a
// fully resolved state carries, failing with ValidationFailed if any input
// is still transient/unresolved or an intent result placeholder remains,
// and with UnexpectedCommandKind if a TransactionIntent command remains;
// callers should run the pipeline to completion first.
func (s *TransactionState) resolvedInputsAndCommands() ([]CallArg, []Command, error) {
	inputs := make([]CallArg, len(s.Inputs))
	for i, in := range s.Inputs {
		if in.IsTransient() {
			return nil, nil, &ValidationFailed{Path: "inputs", Reason: "unresolved input remains"}
		}
		inputs[i] = in
	}

	commands := make([]Command, len(s.Commands))
	for i, cmd := range s.Commands {
		if cmd.TransactionIntent != nil {
			return nil, nil, &UnexpectedCommandKind{Kind: "TransactionIntent"}
		}
		if argumentsContainIntentPlaceholders(cmd) {
			return nil, nil, &ValidationFailed{Path: "commands", Reason: "intent result placeholder remains"}
		}
		commands[i] = cmd
	}

	return inputs, commands, nil
}

// toTransactionKind assembles the TransactionKind alone, requiring neither
// sender nor gas configuration — the shape onlyTransactionKind builds need.
func (s *TransactionState) toTransactionKind() (TransactionKind, error) {
	inputs, commands, err := s.resolvedInputsAndCommands()
	if err != nil {
		return TransactionKind{}, err
	}
	return TransactionKind{
		ProgrammableTransaction: &ProgrammableTransaction{
			Inputs:   inputs,
			Commands: commands,
		},
	}, nil
}

// ToTransactionData assembles the wire-ready TransactionData from a fully
// resolved state, requiring sender, gas price, gas budget, and gas payment
// to all be present (a non-nil, empty payment list counts as present; the
// setGasBudget dry run builds with one). It fails as
// resolvedInputsAndCommands does if any input or command is still
// transient/unresolved; callers should run the pipeline to completion first.
func (s *TransactionState) ToTransactionData() (TransactionData, error) {
	if s.Sender == nil {
		return TransactionData{}, ErrSenderRequired
	}
	if s.Gas.Price == nil {
		return TransactionData{}, ErrGasPriceRequired
	}
	if s.Gas.Budget == nil {
		return TransactionData{}, ErrGasBudgetRequired
	}
	if s.Gas.Payment == nil {
		return TransactionData{}, ErrGasPaymentRequired
	}

	kind, err := s.toTransactionKind()
	if err != nil {
		return TransactionData{}, err
	}

	expiration := ExpirationNone()
	if s.Expiration != nil {
		expiration = *s.Expiration
	}

	owner := *s.Sender
	if s.Gas.Owner != nil {
		owner = *s.Gas.Owner
	}

	return TransactionData{
		V1: &TransactionDataV1{
			Sender:     *s.Sender,
			Expiration: expiration,
			GasData: GasData{
				Payment: append([]types.ObjectRef(nil), s.Gas.Payment...),
				Owner:   owner,
				Price:   *s.Gas.Price,
				Budget:  *s.Gas.Budget,
			},
			Kind: kind,
		},
	}, nil
}

func argumentsContainIntentPlaceholders(cmd Command) bool {
	found := false
	mapCommandArguments(cmd, func(arg Argument) Argument {
		if arg.IntentResult != nil || arg.NestedIntentResult != nil {
			found = true
		}
		return arg
	})
	return found
}

// BuildOverrides stamps final values onto a clone of the state immediately
// before a full build, leaving the builder's own state untouched. A nil
// field is left as whatever the state already carries.
type BuildOverrides struct {
	Sender     *types.Address
	Expiration *TransactionExpiration
	GasPrice   *uint64
	GasBudget  *uint64
	GasOwner   *types.Address
	GasPayment []types.ObjectRef
}

func (o *BuildOverrides) apply(s *TransactionState) {
	if o == nil {
		return
	}
	if o.Sender != nil {
		sender := *o.Sender
		s.Sender = &sender
	}
	if o.Expiration != nil {
		expiration := *o.Expiration
		s.Expiration = &expiration
	}
	if o.GasPrice != nil {
		price := *o.GasPrice
		s.Gas.Price = &price
	}
	if o.GasBudget != nil {
		budget := *o.GasBudget
		s.Gas.Budget = &budget
	}
	if o.GasOwner != nil {
		owner := *o.GasOwner
		s.Gas.Owner = &owner
	}
	if o.GasPayment != nil {
		s.Gas.Payment = append([]types.ObjectRef(nil), o.GasPayment...)
	}
}

// BuildParams configures TransactionState.Build. OnlyTransactionKind
// produces kind bytes alone, requiring neither sender nor gas. Overrides
// apply only to a full build, after the pipeline has run and before
// TransactionData is assembled. MaxSizeBytes, when non-zero, bounds
// whichever of kind bytes (onlyTransactionKind) or transaction bytes (full)
// was actually produced.
type BuildParams struct {
	OnlyTransactionKind bool
	Overrides           *BuildOverrides
	MaxSizeBytes        int
}

// Build serializes the state's TransactionKind to BCS bytes (the "kind
// bytes") and, unless OnlyTransactionKind is set, its full TransactionData
// to BCS bytes (the "transaction bytes"), returning both plus the input
// digest of the transaction bytes. Kind bytes are always computed first and
// alone require no sender or gas configuration, mirroring how a build can
// serialize a bare TransactionKind::ProgrammableTransaction without a fully
// configured gas/sender state.
func (s *TransactionState) Build(params BuildParams) (kindBytes []byte, txBytes []byte, digest string, err error) {
	kind, err := s.toTransactionKind()
	if err != nil {
		return nil, nil, "", err
	}

	kindBytes, err = bcs.Marshal(&kind)
	if err != nil {
		return nil, nil, "", err
	}

	if params.OnlyTransactionKind {
		if params.MaxSizeBytes > 0 && len(kindBytes) > params.MaxSizeBytes {
			return nil, nil, "", &TransactionTooLarge{Got: len(kindBytes), Max: params.MaxSizeBytes}
		}
		return kindBytes, nil, "", nil
	}

	target := s
	if params.Overrides != nil {
		target = s.Clone()
		params.Overrides.apply(target)
	}

	data, err := target.ToTransactionData()
	if err != nil {
		return nil, nil, "", err
	}

	txBytes, err = bcs.Marshal(&data)
	if err != nil {
		return nil, nil, "", err
	}
	if params.MaxSizeBytes > 0 && len(txBytes) > params.MaxSizeBytes {
		return nil, nil, "", &TransactionTooLarge{Got: len(txBytes), Max: params.MaxSizeBytes}
	}

	return kindBytes, txBytes, Digest(txBytes), nil
}

// FromBytes reconstructs a TransactionState from BCS-encoded
// TransactionData bytes.
func FromBytes(data []byte) (*TransactionState, error) {
	var txData TransactionData
	if _, err := bcs.UnmarshalInto(data, &txData); err != nil {
		return nil, err
	}
	return fromTransactionData(txData)
}

// FromKindBytes reconstructs a TransactionState from BCS-encoded
// TransactionKind bytes alone, with no sender/gas configuration.
func FromKindBytes(data []byte) (*TransactionState, error) {
	var kind TransactionKind
	if _, err := bcs.UnmarshalInto(data, &kind); err != nil {
		return nil, err
	}
	if kind.ProgrammableTransaction == nil {
		return nil, ErrMissingProgrammableKind
	}
	state := NewTransactionState()
	state.Inputs = append([]CallArg(nil), kind.ProgrammableTransaction.Inputs...)
	state.Commands = append([]Command(nil), kind.ProgrammableTransaction.Commands...)
	return state, nil
}

func fromTransactionData(data TransactionData) (*TransactionState, error) {
	if data.V1 == nil {
		return nil, ErrMissingProgrammableKind
	}
	v1 := data.V1
	if v1.Kind.ProgrammableTransaction == nil {
		return nil, ErrMissingProgrammableKind
	}

	state := NewTransactionState()
	sender := v1.Sender
	state.Sender = &sender
	expiration := v1.Expiration
	state.Expiration = &expiration
	state.Gas = gasState{
		Payment: append([]types.ObjectRef(nil), v1.GasData.Payment...),
		Owner:   &v1.GasData.Owner,
		Price:   &v1.GasData.Price,
		Budget:  &v1.GasData.Budget,
	}
	state.Inputs = append([]CallArg(nil), v1.Kind.ProgrammableTransaction.Inputs...)
	state.Commands = append([]Command(nil), v1.Kind.ProgrammableTransaction.Commands...)
	return state, nil
}

// Restore reconstructs a TransactionState from a previously serialized
// state blob, which may be either the current v2 JSON shape or a legacy v1
// shape; v1 input is migrated transparently. See migration.go.
func Restore(raw []byte) (*TransactionState, error) {
	return restoreState(raw)
}
