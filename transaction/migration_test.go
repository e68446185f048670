package transaction

import (
	"encoding/json"
	"testing"

	"github.com/btcsuite/btcutil/base58"
	"github.com/stretchr/testify/require"
)

func TestV1ToV2Migration(t *testing.T) {
	price := uint64(1000)
	budget := uint64(5_000_000)
	raw := StateV1{
		Version:  1,
		Sender:   strPtr("0x1"),
		GasOwner: strPtr("0x1"),
		GasPrice: &price,
		GasBudget: &budget,
		GasPayment: []stateV1ObjectRef{
			{ObjectID: "0x2", Version: 1, Digest: mustDigestString(t)},
		},
		Inputs: []stateV1Input{
			{Kind: "pure", Pure: []byte{1, 2, 3}},
			{Kind: "object", Object: &stateV1ObjectArg{
				ObjectID: "0x3", Version: uint64Ptr(1), Digest: strPtr(mustDigestString(t)),
			}},
		},
		Commands: []stateV1Command{
			{
				Kind: "moveCall", Package: strPtr("0x2"), Module: strPtr("foo"), Function: strPtr("bar"),
				Arguments: []stateV1Argument{{Kind: "input", Index: uint16Ptr(0)}},
			},
			{
				Kind: "intent", IntentName: strPtr("stake"), IntentData: []byte{9, 9},
			},
		},
	}

	body, err := json.Marshal(raw)
	require.NoError(t, err, "marshal v1")

	state, err := restoreState(body)
	require.NoError(t, err, "restore v1")

	wantSender, err := parseAddressField("0x1")
	require.NoError(t, err, "parse expected sender")
	require.NotNil(t, state.Sender)
	require.Equal(t, wantSender, *state.Sender)
	require.Len(t, state.Inputs, 2)
	if state.Inputs[0].Pure == nil {
		t.Fatalf("expected pure input at 0")
	}
	if state.Inputs[1].Object == nil || state.Inputs[1].Object.ImmOrOwnedObject == nil {
		t.Fatalf("expected owned object input at 1")
	}
	if len(state.Commands) != 2 {
		t.Fatalf("expected 2 commands, got %d", len(state.Commands))
	}
	if state.Commands[0].MoveCall == nil {
		t.Fatalf("expected move call at 0")
	}
	if state.Commands[1].TransactionIntent == nil || state.Commands[1].TransactionIntent.Name != "stake" {
		t.Fatalf("expected unresolved intent named stake, got %+v", state.Commands[1].TransactionIntent)
	}
}

func strPtr(s string) *string   { return &s }
func uint64Ptr(v uint64) *uint64 { return &v }
func uint16Ptr(v uint16) *uint16 { return &v }

func mustDigestString(t *testing.T) string {
	t.Helper()
	return base58.Encode(make([]byte, 32))
}
