package typetag

import "github.com/openmove/ptb-core/types"

// ReferenceKind describes how a normalized Move parameter binds its argument:
// by value, by immutable reference, or by mutable reference.
type ReferenceKind int

const (
	ReferenceUnknown ReferenceKind = iota
	ReferenceImmutable
	ReferenceMutable
)

// OpenMoveTypeSignature is the shape a chain's normalized-function lookup
// reports for a single Move parameter: its reference mode plus the
// structural body of its type. It is richer than a TypeTag because it also
// carries unresolved type-parameter slots (generic functions) the way a
// live node's signature endpoint does.
type OpenMoveTypeSignature struct {
	Ref  ReferenceKind
	Body OpenMoveTypeSignatureBody
}

// OpenMoveTypeSignatureBody is a tagged sum over the shapes a normalized
// Move type can take. Exactly one field is set.
type OpenMoveTypeSignatureBody struct {
	Bool          *struct{}
	U8            *struct{}
	U16           *struct{}
	U32           *struct{}
	U64           *struct{}
	U128          *struct{}
	U256          *struct{}
	Address       *struct{}
	Signer        *struct{}
	Vector        *OpenMoveTypeSignatureBody
	Option        *OpenMoveTypeSignatureBody
	Struct        *OpenMoveStructSignature
	TypeParameter *uint16
}

// OpenMoveStructSignature identifies a Move struct type, including any
// still-unresolved type parameters (by index into the calling function's
// type-argument list).
type OpenMoveStructSignature struct {
	Address    types.Address
	Module     string
	Name       string
	TypeParams []OpenMoveTypeSignatureBody
}

// receivingStruct names the module and struct of 0x2::transfer::Receiving<T>
// (IsReceiving checks the package against suiFrameworkAddress), the marker
// type a parameter uses to opt into "receive" semantics instead of ordinary
// ownership.
var receivingStruct = struct {
	module, name string
}{module: "transfer", name: "Receiving"}

// IsPure reports whether the body is a primitive, or a vector/option of
// (recursively) pure bodies — the set of shapes normalizeInputs may encode
// as a CallArg.Pure rather than resolve as an object. normalizeInputs
// encodes a top-level address parameter itself; EncodePure rejects address
// bodies, so a vector or option of addresses fails to encode.
func (b OpenMoveTypeSignatureBody) IsPure() bool {
	switch {
	case b.Bool != nil, b.U8 != nil, b.U16 != nil, b.U32 != nil, b.U64 != nil,
		b.U128 != nil, b.U256 != nil, b.Address != nil:
		return true
	case b.Vector != nil:
		return b.Vector.IsPure()
	case b.Option != nil:
		return b.Option.IsPure()
	default:
		return false
	}
}

// IsReceiving reports whether the signature names 0x2::transfer::Receiving<T>.
func (s OpenMoveTypeSignature) IsReceiving() bool {
	body := s.Body
	if body.Struct == nil {
		return false
	}
	st := body.Struct
	return st.Address == suiFrameworkAddress() && st.Module == receivingStruct.module && st.Name == receivingStruct.name
}

// IsMutableRef reports whether the parameter is bound &mut.
func (s OpenMoveTypeSignature) IsMutableRef() bool {
	return s.Ref == ReferenceMutable
}

// IsByValue reports whether the parameter takes the argument by value
// (neither & nor &mut) — one of the conditions that forces a shared input
// to be treated as mutable (spec §4.4).
func (s OpenMoveTypeSignature) IsByValue() bool {
	return s.Ref == ReferenceUnknown
}

func suiFrameworkAddress() types.Address {
	var addr types.Address
	addr[len(addr)-1] = 0x02
	return addr
}

// SignatureBodyPrimitive builds the leaf OpenMoveTypeSignatureBody for a
// primitive TypeTag, for callers constructing stub ChainClients without a
// live node.
func SignatureBodyPrimitive(tag TypeTag) OpenMoveTypeSignatureBody {
	switch {
	case tag.Bool != nil:
		return OpenMoveTypeSignatureBody{Bool: &struct{}{}}
	case tag.U8 != nil:
		return OpenMoveTypeSignatureBody{U8: &struct{}{}}
	case tag.U16 != nil:
		return OpenMoveTypeSignatureBody{U16: &struct{}{}}
	case tag.U32 != nil:
		return OpenMoveTypeSignatureBody{U32: &struct{}{}}
	case tag.U64 != nil:
		return OpenMoveTypeSignatureBody{U64: &struct{}{}}
	case tag.U128 != nil:
		return OpenMoveTypeSignatureBody{U128: &struct{}{}}
	case tag.U256 != nil:
		return OpenMoveTypeSignatureBody{U256: &struct{}{}}
	case tag.Address != nil:
		return OpenMoveTypeSignatureBody{Address: &struct{}{}}
	case tag.Vector != nil:
		inner := SignatureBodyPrimitive(*tag.Vector)
		return OpenMoveTypeSignatureBody{Vector: &inner}
	default:
		return OpenMoveTypeSignatureBody{}
	}
}
