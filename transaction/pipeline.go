package transaction

import "context"

// StageOptions carries the shared build-time configuration every stage
// handler and plugin sees: the chain client collaborator, protocol limits,
// and the registered intent resolvers, plus anything a caller staged onto
// BuildOptions.
type StageOptions struct {
	Client          ChainClient
	Limits          ProtocolLimits
	IntentResolvers map[string]IntentResolver
	// OnlyTransactionKind, when set, skips setGasPrice/setGasBudget/
	// setGasPayment entirely: a kind-only build needs neither a sender nor
	// a resolved gas configuration.
	OnlyTransactionKind bool
}

// StageFunc is a single pipeline stage's terminal behavior: given the
// current state, produce the next state (or an error). Terminal handlers
// must be idempotent — running twice in a row must be a no-op the second
// time, since a plugin earlier in the chain may have already satisfied the
// stage's postcondition.
type StageFunc func(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error)

// Next is the continuation a plugin calls to hand control to the rest of
// the chain (the next plugin, and eventually the terminal handler).
type Next func(ctx context.Context, state *TransactionState) (*TransactionState, error)

// Plugin wraps a stage's behavior. It receives the state, a way to continue
// down the chain, and the stage options, and returns the resulting state.
// A plugin that wants to skip the rest of the chain simply doesn't call
// next and returns its own result.
type Plugin func(ctx context.Context, state *TransactionState, opts StageOptions, next Next) (*TransactionState, error)

// Stage is a named pipeline step: a terminal handler plus an ordered chain
// of plugins that run before it.
type Stage struct {
	Name     string
	Terminal StageFunc
	Plugins  []Plugin
}

// run drives the stage's plugin chain down to its terminal handler.
func (s Stage) run(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	var invoke func(i int) Next
	invoke = func(i int) Next {
		return func(ctx context.Context, state *TransactionState) (*TransactionState, error) {
			if i >= len(s.Plugins) {
				return s.Terminal(ctx, state, opts)
			}
			return s.Plugins[i](ctx, state, opts, invoke(i+1))
		}
	}
	return invoke(0)(ctx, state)
}

// Pipeline is the ordered sequence of stages a build runs through:
// normalizeInputs, resolveObjectReferences, setGasPrice, setGasBudget,
// setGasPayment, resolveIntents, validate.
type Pipeline struct {
	Stages []Stage
}

// NewPipeline returns the standard seven-stage pipeline with each stage's
// default terminal handler and no plugins registered.
func NewPipeline() *Pipeline {
	return &Pipeline{
		Stages: []Stage{
			{Name: "normalizeInputs", Terminal: normalizeInputsStage},
			{Name: "resolveObjectReferences", Terminal: resolveObjectReferencesStage},
			{Name: "setGasPrice", Terminal: setGasPriceStage},
			{Name: "setGasBudget", Terminal: setGasBudgetStage},
			{Name: "setGasPayment", Terminal: setGasPaymentStage},
			{Name: "resolveIntents", Terminal: resolveIntentsStage},
			{Name: "validate", Terminal: validateStage},
		},
	}
}

// Use registers a plugin on the named stage, appending it to that stage's
// existing chain. It panics if the stage name is not one of the seven
// standard stages, since that almost always indicates a typo at the call
// site rather than an intentional new stage.
func (p *Pipeline) Use(stageName string, plugin Plugin) {
	for i := range p.Stages {
		if p.Stages[i].Name == stageName {
			p.Stages[i].Plugins = append(p.Stages[i].Plugins, plugin)
			return
		}
	}
	panic("transaction: unknown pipeline stage " + stageName)
}

// gasStages names the three stages a kind-only build skips entirely.
var gasStages = map[string]bool{
	"setGasPrice":   true,
	"setGasBudget":  true,
	"setGasPayment": true,
}

// Run executes every stage in order, threading the resulting state from
// one stage into the next. When opts.OnlyTransactionKind is set, the gas
// stages are skipped outright rather than run for their (vacuous) no-op
// postcondition, since they would otherwise fail requiring a sender or
// chain client a kind-only build never needs.
func (p *Pipeline) Run(ctx context.Context, state *TransactionState, opts StageOptions) (*TransactionState, error) {
	current := state
	for _, stage := range p.Stages {
		if opts.OnlyTransactionKind && gasStages[stage.Name] {
			continue
		}
		next, err := stage.run(ctx, current, opts)
		if err != nil {
			return nil, err
		}
		current = next
	}
	return current, nil
}
