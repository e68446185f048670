package transaction

import "context"

// IntentResolver expands a single named TransactionIntent command into the
// primitive commands (and, via state.AddInput, any new inputs) that
// implement it. A resolver is registered per intent name; resolveIntents
// fails the build if any TransactionIntent command's name has no
// registered resolver.
type IntentResolver interface {
	Name() string
	Resolve(ctx context.Context, state *TransactionState, intent TransactionIntent) ([]Command, error)
}

// IntentResolverFunc adapts a plain function to IntentResolver.
type IntentResolverFunc struct {
	IntentName string
	Fn         func(ctx context.Context, state *TransactionState, intent TransactionIntent) ([]Command, error)
}

func (f IntentResolverFunc) Name() string { return f.IntentName }

func (f IntentResolverFunc) Resolve(ctx context.Context, state *TransactionState, intent TransactionIntent) ([]Command, error) {
	return f.Fn(ctx, state, intent)
}

// resolveIntentsStage expands every TransactionIntent command in reverse
// index order (so each splice's index shift never disturbs a
// not-yet-processed command) and fails with UnresolvedIntent if any
// intent's name has no registered resolver.
func resolveIntentsStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	next := state.Clone()

	for i := len(next.Commands) - 1; i >= 0; i-- {
		intent := next.Commands[i].TransactionIntent
		if intent == nil {
			continue
		}
		resolver, ok := opts.IntentResolvers[intent.Name]
		if !ok {
			return nil, &UnresolvedIntent{Name: intent.Name}
		}
		replacement, err := resolver.Resolve(ctx, next, *intent)
		if err != nil {
			return nil, err
		}
		if len(replacement) == 0 {
			replacement = []Command{{TransactionIntent: intent}}
		}
		if err := next.ReplaceCommand(i, replacement); err != nil {
			return nil, err
		}
	}

	for _, cmd := range next.Commands {
		if cmd.TransactionIntent != nil {
			return nil, &UnresolvedIntent{Name: cmd.TransactionIntent.Name}
		}
	}

	return next, nil
}

// validateStage checks the fully-resolved state against protocol limits:
// every pure input within the maximum argument size, and the built output
// (kind bytes alone in onlyTransactionKind mode, otherwise the full
// transaction) within the maximum transaction size.
func validateStage(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	limits := opts.Limits
	if limits == (ProtocolLimits{}) {
		limits = DefaultProtocolLimits()
	}

	for i, in := range state.Inputs {
		if in.Pure == nil {
			continue
		}
		if len(in.Pure.Bytes) > limits.MaxPureArgumentSize {
			return nil, &PureTooLarge{Index: i, Got: len(in.Pure.Bytes), Max: limits.MaxPureArgumentSize}
		}
	}

	if _, _, _, err := state.Build(BuildParams{
		OnlyTransactionKind: opts.OnlyTransactionKind,
		MaxSizeBytes:        limits.MaxTxSizeBytes,
	}); err != nil {
		return nil, err
	}

	return state, nil
}
