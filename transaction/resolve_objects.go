package transaction

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/openmove/ptb-core/typetag"
	"github.com/openmove/ptb-core/types"
)

const objectFetchChunkSize = 50

// resolveObjectReferencesStage resolves every UnresolvedObject input into
// its concrete ObjectArg (ImmOrOwnedObject, SharedObject, or Receiving),
// fetching object metadata from the chain in chunks of up to 50 ids
// concurrently. A shared object is treated as mutable if any Move call
// parameter it was bound to takes it &mut, by value, or is unable to
// report a reference kind.
func resolveObjectReferencesStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	ids := lo.UniqBy(collectUnresolvedObjectIDs(state), func(id string) string { return id })
	if len(ids) == 0 {
		return state, nil
	}
	if opts.Client == nil {
		return nil, ErrResolverRequired
	}

	metaByID, err := fetchObjectMetadata(ctx, opts.Client, ids)
	if err != nil {
		return nil, err
	}

	next := state.Clone()
	var missing []string
	for i, in := range next.Inputs {
		if in.UnresolvedObject == nil {
			continue
		}
		unresolved := in.UnresolvedObject
		meta, ok := metaByID[unresolved.ObjectID]
		if !ok {
			missing = append(missing, unresolved.ObjectID)
			continue
		}
		next.Inputs[i] = CallArg{Object: resolveObjectArg(meta, unresolved.TypeSignatures)}
	}
	if len(missing) > 0 {
		return nil, &InvalidObjectInputs{ObjectIDs: missing}
	}

	return next, nil
}

func collectUnresolvedObjectIDs(state *TransactionState) []string {
	var ids []string
	for _, in := range state.Inputs {
		if in.UnresolvedObject != nil {
			ids = append(ids, in.UnresolvedObject.ObjectID)
		}
	}
	return ids
}

func fetchObjectMetadata(ctx context.Context, client ChainClient, ids []string) (map[string]ObjectMetadata, error) {
	chunks := lo.Chunk(ids, objectFetchChunkSize)
	results := make([][]ObjectMetadata, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for i, chunk := range chunks {
		i, chunk := i, chunk
		g.Go(func() error {
			metas, err := client.MultiGetObjects(gctx, chunk)
			if err != nil {
				return fmt.Errorf("multi get objects: %w", err)
			}
			results[i] = metas
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string]ObjectMetadata)
	for _, metas := range results {
		for _, meta := range metas {
			out[meta.ID.String()] = meta
		}
	}
	return out, nil
}

func resolveObjectArg(meta ObjectMetadata, sigs []typetag.OpenMoveTypeSignature) *ObjectArg {
	if isReceivingBySignature(sigs) {
		return &ObjectArg{Receiving: &types.ObjectRef{ObjectID: meta.ID, Version: meta.Version, Digest: meta.Digest}}
	}

	if meta.OwnerKind == OwnerShared {
		version := meta.Version
		if meta.OwnerVersion != nil {
			version = *meta.OwnerVersion
		}
		return &ObjectArg{SharedObject: &types.SharedObjectRef{
			ObjectID:             meta.ID,
			InitialSharedVersion: version,
			Mutable:              sharedObjectIsMutable(sigs),
		}}
	}

	return &ObjectArg{ImmOrOwnedObject: &types.ObjectRef{ObjectID: meta.ID, Version: meta.Version, Digest: meta.Digest}}
}

func isReceivingBySignature(sigs []typetag.OpenMoveTypeSignature) bool {
	for _, sig := range sigs {
		if sig.IsReceiving() {
			return true
		}
	}
	return false
}

// sharedObjectIsMutable implements the mutability rule: a shared object is
// bound mutably if any call site takes it &mut or by value, or if no
// signature information is available at all (conservative default).
func sharedObjectIsMutable(sigs []typetag.OpenMoveTypeSignature) bool {
	if len(sigs) == 0 {
		return true
	}
	for _, sig := range sigs {
		if sig.IsMutableRef() || sig.IsByValue() {
			return true
		}
	}
	return false
}
