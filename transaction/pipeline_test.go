package transaction

import (
	"context"
	"errors"
	"testing"

	bcs "github.com/iotaledger/bcs-go"

	"github.com/openmove/ptb-core/types"
	"github.com/openmove/ptb-core/typetag"
)

type stubChainClient struct {
	price   uint64
	coins   []CoinBalance
	objects map[string]ObjectMetadata
	fns     map[string]*MoveFunction
	effects *DryRunEffects
}

func (s *stubChainClient) GetReferenceGasPrice(context.Context) (uint64, error) {
	return s.price, nil
}

func (s *stubChainClient) GetCoins(context.Context, types.Address, string) ([]CoinBalance, error) {
	return s.coins, nil
}

func (s *stubChainClient) MultiGetObjects(_ context.Context, ids []string) ([]ObjectMetadata, error) {
	out := make([]ObjectMetadata, 0, len(ids))
	for _, id := range ids {
		meta, ok := s.objects[id]
		if !ok {
			return nil, errors.New("missing object")
		}
		out = append(out, meta)
	}
	return out, nil
}

func (s *stubChainClient) GetNormalizedMoveFunction(_ context.Context, pkg, module, fn string) (*MoveFunction, error) {
	key := pkg + "::" + module + "::" + fn
	f, ok := s.fns[key]
	if !ok {
		return nil, errors.New("unknown function")
	}
	return f, nil
}

func (s *stubChainClient) DryRunTransactionBlock(context.Context, []byte) (*DryRunEffects, error) {
	if s.effects == nil {
		return &DryRunEffects{ComputationCost: 1000, StorageCost: 500, StorageRebate: 100}, nil
	}
	return s.effects, nil
}

func (s *stubChainClient) GetProtocolConfig(context.Context) (map[string]uint64, error) {
	return nil, nil
}

func TestResolveObjectReferencesSharedMutable(t *testing.T) {
	sharedVersion := uint64(1)
	objID, err := parseAddressField("0x1")
	if err != nil {
		t.Fatalf("parse address: %v", err)
	}

	client := &stubChainClient{
		objects: map[string]ObjectMetadata{
			objID.String(): {ID: objID, Version: 10, OwnerKind: OwnerShared, OwnerVersion: &sharedVersion},
		},
		fns: map[string]*MoveFunction{
			"0x0000000000000000000000000000000000000000000000000000000000000002::foo::bar": {
				Parameters: []typetag.OpenMoveTypeSignature{
					{Ref: typetag.ReferenceMutable, Body: typetag.OpenMoveTypeSignatureBody{Struct: &typetag.OpenMoveStructSignature{}}},
				},
			},
		},
	}

	tx := New()
	if _, err := tx.MoveCall(MoveCall{Target: "0x2::foo::bar", Arguments: []any{tx.Object("0x1")}}); err != nil {
		t.Fatalf("move call: %v", err)
	}

	result, err := tx.Build(context.Background(), BuildOptions{Client: client, OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(result.ResolvedInputArgs) != 1 {
		t.Fatalf("expected 1 resolved input")
	}
	arg := result.ResolvedInputArgs[0]
	if arg.Object == nil || arg.Object.SharedObject == nil {
		t.Fatalf("expected shared object input")
	}
	if !arg.Object.SharedObject.Mutable {
		t.Fatalf("expected mutable shared object")
	}
}

func TestGasStagesFillInOrder(t *testing.T) {
	payment := types.ObjectRef{ObjectID: mustAddress(t, "0x9"), Version: 1, Digest: make(types.Digest, 32)}
	client := &stubChainClient{
		price: 7,
		coins: []CoinBalance{{ObjectRef: payment, Balance: 1_000_000_000}},
	}

	tx := New()
	if err := tx.SetSender("0x1"); err != nil {
		t.Fatalf("set sender: %v", err)
	}
	if _, err := tx.MoveCall(MoveCall{Target: "0x2::foo::bar"}); err != nil {
		t.Fatalf("move call: %v", err)
	}

	result, err := tx.Build(context.Background(), BuildOptions{Client: client})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var data TransactionData
	if _, err := bcs.UnmarshalInto(result.TransactionBytes, &data); err != nil {
		t.Fatalf("unmarshal transaction data: %v", err)
	}
	if data.V1.GasData.Price != 7 {
		t.Fatalf("unexpected gas price: %d", data.V1.GasData.Price)
	}
	if len(data.V1.GasData.Payment) != 1 || data.V1.GasData.Payment[0].ObjectID != payment.ObjectID {
		t.Fatalf("unexpected gas payment: %+v", data.V1.GasData.Payment)
	}
	if data.V1.GasData.Budget == 0 {
		t.Fatalf("expected non-zero estimated gas budget")
	}
}

func TestResolveIntentsExpandsAndShiftsIndices(t *testing.T) {
	tx := New()
	first, err := tx.SplitCoins(SplitCoinsInput{Coin: tx.Gas(), Amounts: []any{tx.PureU64(1)}})
	if err != nil {
		t.Fatalf("split coins: %v", err)
	}
	tx.Intent("stake", map[string]IntentInputValue{"coin": SingleValue(first.At(0))}, nil)
	if _, err := tx.TransferObjects(TransferObjectsInput{Objects: []any{first.At(0)}, Address: tx.PureAddress("0x2")}); err != nil {
		t.Fatalf("transfer objects: %v", err)
	}

	tx.RegisterIntentResolver(IntentResolverFunc{
		IntentName: "stake",
		Fn: func(_ context.Context, state *TransactionState, intent TransactionIntent) ([]Command, error) {
			coin := intent.Inputs["coin"].Single
			call := ProgrammableMoveCall{
				Package: mustAddress(t, "0x3"), Module: "staking", Function: "deposit",
				Arguments: []Argument{*coin},
			}
			return []Command{{MoveCall: &call}}, nil
		},
	})

	result, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	var kind TransactionKind
	if _, err := bcs.UnmarshalInto(result.KindBytes, &kind); err != nil {
		t.Fatalf("unmarshal kind: %v", err)
	}
	cmds := kind.ProgrammableTransaction.Commands
	if len(cmds) != 3 {
		t.Fatalf("expected 3 commands after expansion, got %d", len(cmds))
	}
	if cmds[0].SplitCoins == nil {
		t.Fatalf("expected split coins first")
	}
	if cmds[1].MoveCall == nil {
		t.Fatalf("expected expanded move call second")
	}
	transfer := cmds[2].TransferObjects
	if transfer == nil {
		t.Fatalf("expected transfer objects third")
	}
	ref := transfer.Objects[0].NestedResult
	if ref == nil || ref.Index != 0 {
		t.Fatalf("expected transfer to still reference split coins at command index 0, got %+v", ref)
	}
}

func TestReplaceCommandShiftsOnlyLaterIndices(t *testing.T) {
	state := NewTransactionState()
	zero := uint16(0)
	one := uint16(1)
	two := uint16(2)
	state.Commands = []Command{
		{SplitCoins: &SplitCoins{Coin: Argument{GasCoin: &struct{}{}}, Amounts: []Argument{{Result: &zero}}}},
		{TransactionIntent: &TransactionIntent{Name: "noop"}},
		{TransferObjects: &TransferObjects{
			Objects: []Argument{{Result: &zero}, {Result: &one}, {Result: &two}},
			Address: Argument{GasCoin: &struct{}{}},
		}},
	}

	if err := state.ReplaceCommand(1, []Command{{Publish: &Publish{}}, {Publish: &Publish{}}}); err != nil {
		t.Fatalf("replace command: %v", err)
	}
	if len(state.Commands) != 4 {
		t.Fatalf("expected 4 commands after splicing in 2 for 1, got %d", len(state.Commands))
	}

	transfer := state.Commands[3].TransferObjects
	if transfer == nil {
		t.Fatalf("expected transfer objects to remain last")
	}
	if *transfer.Objects[0].Result != 0 {
		t.Fatalf("reference to command 0 (j<=i) must stay unshifted, got %d", *transfer.Objects[0].Result)
	}
	if *transfer.Objects[1].Result != 1 {
		t.Fatalf("reference to command 1 (j<=i, the replaced command itself) must stay unshifted, got %d", *transfer.Objects[1].Result)
	}
	if *transfer.Objects[2].Result != 3 {
		t.Fatalf("reference to command 2 (j>i) must shift by len(replacement)-1=1, got %d", *transfer.Objects[2].Result)
	}
}

func TestUnresolvedIntentFailsBuild(t *testing.T) {
	tx := New()
	tx.Intent("unknown-intent", nil, nil)

	_, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	var unresolved *UnresolvedIntent
	if !errors.As(err, &unresolved) {
		t.Fatalf("expected UnresolvedIntent error, got %v", err)
	}
}
