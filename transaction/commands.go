package transaction

import (
	"fmt"

	bcs "github.com/iotaledger/bcs-go"
	"github.com/openmove/ptb-core/types"
	"github.com/openmove/ptb-core/typetag"
	"github.com/openmove/ptb-core/utils"
)

// MoveCall is the facade-level input for a MoveCall command. Arguments may
// be a mix of Argument/Result values, ArgumentProducer closures, and bare
// Go values (numbers, strings, ...); anything not already an argument is
// staged as a Raw input for normalizeInputs to type once it sees the
// parameter it binds to.
type MoveCall struct {
	Target        string
	Package       string
	Module        string
	Function      string
	TypeArguments []string
	Arguments     []any
}

// MakeMoveVecInput represents the input for a MakeMoveVec command. Elements
// follow the same marshaling rule as MoveCall.Arguments.
type MakeMoveVecInput struct {
	Type     *string
	Elements []any
}

type PublishInput struct {
	Modules      [][]byte
	Dependencies []string
}

// UpgradeInput represents the input for an Upgrade command. Ticket may be
// an Argument/Result/ArgumentProducer or an object id string.
type UpgradeInput struct {
	Modules      [][]byte
	Dependencies []string
	Package      string
	Ticket       any
}

// SplitCoinsInput is the facade-level input for a SplitCoins command. Coin
// may be any object-like argument (an Argument, Result, object id string,
// ...); each amount may be a bare Go number, a numeric string, or an
// argument already bound to a u64 value.
type SplitCoinsInput struct {
	Coin    any
	Amounts []any
}

// TransferObjectsInput is the facade-level input for a TransferObjects
// command. Address may be a bare recipient address string or an argument.
type TransferObjectsInput struct {
	Objects []any
	Address any
}

// MergeCoinsInput is the facade-level input for a MergeCoins command.
type MergeCoinsInput struct {
	Destination any
	Sources     []any
}

func (m MoveCall) toProgrammableMoveCall(t *Transaction) (ProgrammableMoveCall, error) {
	pkg := m.Package
	mod := m.Module
	fn := m.Function
	if m.Target != "" {
		parsedPkg, parsedMod, parsedFn, err := utils.ParseMoveCallTarget(m.Target)
		if err != nil {
			return ProgrammableMoveCall{}, err
		}

		pkg = parsedPkg
		mod = parsedMod
		fn = parsedFn
	}

	if pkg == "" || mod == "" || fn == "" {
		return ProgrammableMoveCall{}, ErrMissingMoveCallTarget
	}

	address, err := utils.ParseAddress(pkg)
	if err != nil {
		return ProgrammableMoveCall{}, err
	}

	parsedTypeArgs := make([]typetag.TypeTag, len(m.TypeArguments))
	for i, arg := range m.TypeArguments {
		parsed, err := utils.ParseTypeTag(arg)
		if err != nil {
			return ProgrammableMoveCall{}, err
		}
		parsedTypeArgs[i] = parsed
	}

	return ProgrammableMoveCall{
		Package:       address,
		Module:        mod,
		Function:      fn,
		TypeArguments: parsedTypeArgs,
		Arguments:     t.toCallArguments(m.Arguments),
	}, nil
}

func (m MakeMoveVecInput) toCommand(t *Transaction) (MakeMoveVec, error) {
	var tag *typetag.TypeTag
	if m.Type != nil {
		parsed, err := utils.ParseTypeTag(*m.Type)
		if err != nil {
			return MakeMoveVec{}, err
		}
		tag = &parsed
	}
	return MakeMoveVec{
		Type:     optionTypeTag(tag),
		Elements: t.toCallArguments(m.Elements),
	}, nil
}

func (p PublishInput) toCommand(t *Transaction) (Publish, error) {
	deps, err := parseAddresses(p.Dependencies)
	if err != nil {
		return Publish{}, err
	}

	return Publish{
		Modules:      cloneModules(p.Modules),
		Dependencies: deps,
	}, nil
}

func (u UpgradeInput) toCommand(t *Transaction) (Upgrade, error) {
	deps, err := parseAddresses(u.Dependencies)
	if err != nil {
		return Upgrade{}, err
	}

	pkg, err := utils.ParseAddress(u.Package)
	if err != nil {
		return Upgrade{}, err
	}

	ticket, err := t.toObjectArgument(u.Ticket)
	if err != nil {
		return Upgrade{}, fmt.Errorf("ticket: %w", err)
	}

	return Upgrade{
		Modules:      cloneModules(u.Modules),
		Dependencies: deps,
		Package:      pkg,
		Ticket:       ticket,
	}, nil
}

func (s SplitCoinsInput) toCommand(t *Transaction) (SplitCoins, error) {
	coin, err := t.toObjectArgument(s.Coin)
	if err != nil {
		return SplitCoins{}, fmt.Errorf("coin: %w", err)
	}
	amounts, err := t.toAmountArguments(s.Amounts)
	if err != nil {
		return SplitCoins{}, err
	}
	return SplitCoins{Coin: coin, Amounts: amounts}, nil
}

func (o TransferObjectsInput) toCommand(t *Transaction) (TransferObjects, error) {
	objects, err := t.toObjectArguments(o.Objects)
	if err != nil {
		return TransferObjects{}, err
	}
	address, err := t.toRecipientArgument(o.Address)
	if err != nil {
		return TransferObjects{}, fmt.Errorf("address: %w", err)
	}
	return TransferObjects{Objects: objects, Address: address}, nil
}

func (m MergeCoinsInput) toCommand(t *Transaction) (MergeCoins, error) {
	destination, err := t.toObjectArgument(m.Destination)
	if err != nil {
		return MergeCoins{}, fmt.Errorf("destination: %w", err)
	}
	sources, err := t.toObjectArguments(m.Sources)
	if err != nil {
		return MergeCoins{}, err
	}
	return MergeCoins{Destination: destination, Sources: sources}, nil
}

func optionTypeTag(tag *typetag.TypeTag) bcs.Option[typetag.TypeTag] {
	if tag == nil {
		return bcs.Option[typetag.TypeTag]{None: true}
	}

	return bcs.Option[typetag.TypeTag]{Some: *tag}
}

func parseAddresses(addresses []string) ([]types.Address, error) {
	if len(addresses) == 0 {
		return nil, nil
	}

	parsed := make([]types.Address, len(addresses))
	for i, addr := range addresses {
		parsedAddr, err := utils.ParseAddress(addr)
		if err != nil {
			return nil, err
		}

		parsed[i] = parsedAddr
	}

	return parsed, nil
}

func cloneModules(modules [][]byte) [][]byte {
	if len(modules) == 0 {
		return nil
	}

	cloned := make([][]byte, len(modules))
	for i, module := range modules {
		cloned[i] = append([]byte(nil), module...)
	}

	return cloned
}
