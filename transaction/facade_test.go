package transaction

import (
	"context"
	"encoding/base64"
	"math/big"
	"testing"

	bcs "github.com/iotaledger/bcs-go"

	"github.com/openmove/ptb-core/types"
)

func TestPureSerialization(t *testing.T) {
	tx := New()

	tx.PureU8(1)
	tx.PureU16(1)
	tx.PureU32(1)
	tx.PureU64(1)
	tx.PureU128(big.NewInt(1))
	tx.PureBool(true)
	tx.PureString("foo")
	tx.PureAddress("0x2")

	result, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build transaction: %v", err)
	}

	expected := []string{
		"AQ==",
		"AQA=",
		"AQAAAA==",
		"AQAAAAAAAAA=",
		"AQAAAAAAAAAAAAAAAAAAAA==",
		"AQ==",
		"A2Zvbw==",
		"AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAI=",
	}

	if len(result.ResolvedInputArgs) != len(expected) {
		t.Fatalf("expected %d inputs, got %d", len(expected), len(result.ResolvedInputArgs))
	}
	for i, arg := range result.ResolvedInputArgs {
		if arg.Pure == nil {
			t.Fatalf("input %d missing pure bytes", i)
		}
		encoded := base64.StdEncoding.EncodeToString(arg.Pure.Bytes)
		if encoded != expected[i] {
			t.Fatalf("input %d bytes mismatch: got %s want %s", i, encoded, expected[i])
		}
	}
}

func TestSplitCoinsRoundTrip(t *testing.T) {
	tx := New()
	result, err := tx.SplitCoins(SplitCoinsInput{
		Coin:    tx.Gas(),
		Amounts: []any{tx.PureU64(1000)},
	})
	if err != nil {
		t.Fatalf("split coins: %v", err)
	}
	if result.Index != 0 {
		t.Fatalf("expected first command index 0")
	}

	built, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build split coins: %v", err)
	}
	if len(built.KindBytes) == 0 {
		t.Fatalf("expected kind bytes")
	}

	state, err := FromKindBytes(built.KindBytes)
	if err != nil {
		t.Fatalf("decode kind bytes: %v", err)
	}
	if len(state.Commands) != 1 || state.Commands[0].SplitCoins == nil {
		t.Fatalf("expected single split coins command after round trip")
	}
}

func TestTransferObjectsAndMergeCoinsBuild(t *testing.T) {
	digest := types.Digest(make([]byte, 32))
	for i := range digest {
		digest[i] = 1
	}

	tx := New()
	if _, err := tx.TransferObjects(TransferObjectsInput{
		Objects: []any{
			tx.ObjectRef(types.ObjectRef{ObjectID: mustAddress(t, "0x1"), Version: 123, Digest: digest}),
		},
		Address: tx.PureAddress("0x2"),
	}); err != nil {
		t.Fatalf("transfer objects: %v", err)
	}
	if _, err := tx.MergeCoins(MergeCoinsInput{
		Destination: tx.ObjectRef(types.ObjectRef{ObjectID: mustAddress(t, "0x3"), Version: 1, Digest: digest}),
		Sources: []any{
			tx.ObjectRef(types.ObjectRef{ObjectID: mustAddress(t, "0x4"), Version: 1, Digest: digest}),
		},
	}); err != nil {
		t.Fatalf("merge coins: %v", err)
	}

	result, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var kind TransactionKind
	if _, err := bcs.UnmarshalInto(result.KindBytes, &kind); err != nil {
		t.Fatalf("unmarshal kind: %v", err)
	}
	if kind.ProgrammableTransaction == nil || len(kind.ProgrammableTransaction.Commands) != 2 {
		t.Fatalf("expected 2 commands")
	}
	if kind.ProgrammableTransaction.Commands[0].TransferObjects == nil {
		t.Fatalf("expected transfer objects at index 0")
	}
	if kind.ProgrammableTransaction.Commands[1].MergeCoins == nil {
		t.Fatalf("expected merge coins at index 1")
	}
}

func TestMakeMoveVecBeforePublishDiscriminant(t *testing.T) {
	tx := New()
	if _, err := tx.MakeMoveVec(MakeMoveVecInput{Elements: []any{tx.PureU8(1)}}); err != nil {
		t.Fatalf("make move vec: %v", err)
	}
	if _, err := tx.Publish(PublishInput{Modules: [][]byte{{1, 2, 3}}}); err != nil {
		t.Fatalf("publish: %v", err)
	}

	result, err := tx.Build(context.Background(), BuildOptions{OnlyTransactionKind: true})
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	var kind TransactionKind
	if _, err := bcs.UnmarshalInto(result.KindBytes, &kind); err != nil {
		t.Fatalf("unmarshal kind: %v", err)
	}
	cmds := kind.ProgrammableTransaction.Commands
	if cmds[0].MakeMoveVec == nil || cmds[1].Publish == nil {
		t.Fatalf("expected MakeMoveVec then Publish, reflecting the fixed discriminant order")
	}
	// Kind tag, input count, Pure tag, byte length, the u8, command count,
	// then the first command's discriminant.
	if len(result.KindBytes) < 7 || result.KindBytes[6] != 4 {
		t.Fatalf("expected MakeMoveVec discriminant 4, got kind bytes %x", result.KindBytes)
	}
}

func TestBuildRequiresSenderWhenGasComplete(t *testing.T) {
	tx := New()
	if _, err := tx.MoveCall(MoveCall{Target: "0x2::foo::bar"}); err != nil {
		t.Fatalf("move call: %v", err)
	}
	tx.SetGasPrice(1)
	tx.SetGasBudget(1)
	tx.SetGasPayment([]types.ObjectRef{{ObjectID: mustAddress(t, "0x2")}})

	_, err := tx.Build(context.Background(), BuildOptions{})
	if err != ErrSenderRequired {
		t.Fatalf("expected ErrSenderRequired, got %v", err)
	}
}

func TestDigestIsDeterministic(t *testing.T) {
	mkTx := func() *Transaction {
		tx := New()
		_ = tx.SetSender("0x1")
		tx.SetGasPrice(1000)
		tx.SetGasBudget(5_000_000)
		tx.SetGasPayment([]types.ObjectRef{{ObjectID: mustAddress(t, "0x5"), Version: 1}})
		if _, err := tx.SplitCoins(SplitCoinsInput{Coin: tx.Gas(), Amounts: []any{tx.PureU64(1)}}); err != nil {
			t.Fatalf("split coins: %v", err)
		}
		return tx
	}

	r1, err := mkTx().Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build 1: %v", err)
	}
	r2, err := mkTx().Build(context.Background(), BuildOptions{})
	if err != nil {
		t.Fatalf("build 2: %v", err)
	}
	if r1.Digest != r2.Digest {
		t.Fatalf("expected identical digests for identical transactions")
	}
	if r1.Digest == "" {
		t.Fatalf("expected non-empty digest")
	}
}

func mustAddress(t *testing.T, value string) types.Address {
	t.Helper()
	addr, err := parseAddressField(value)
	if err != nil {
		t.Fatalf("parse address %q: %v", value, err)
	}
	return addr
}
