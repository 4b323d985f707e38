package hydrate

// SourceMode selects which source adapters the planner is allowed to
// reach.
type SourceMode string

const (
	BlobOnly SourceMode = "blob_only"
	RPCOnly  SourceMode = "rpc_only"
	Hybrid   SourceMode = "hybrid"
)

// SourcePolicy controls the hydration planner's behavior: which sources it
// may use, whether predictive prefetch runs, and whether missing data is
// synthesized rather than treated as fatal.
type SourcePolicy struct {
	Mode SourceMode

	// PredictivePrefetch enables the sink-propagation walk; on by
	// default.
	PredictivePrefetch bool
	// PrefetchDepth bounds the call-graph walk; defaults to 10.
	PrefetchDepth int

	// SynthesizeMissing corresponds to --synthesize-missing: a MissingInput
	// or MissingPackage becomes a DataGap record instead of a fatal
	// hydration error. No placeholder object is installed for the missing
	// data; the bundle only carries the DataGap record.
	SynthesizeMissing bool
	// SelfHealDynamicFields corresponds to --self-heal-dynamic-fields. Plan
	// does not read it: a failed predictive child prefetch never aborts
	// hydration and records no DataGap, whether or not it is set.
	SelfHealDynamicFields bool
}

// DefaultPolicy returns the out-of-the-box behavior: hybrid sourcing,
// predictive prefetch on at depth 10, synthesis off (hydration fails
// loud unless a caller opts in).
func DefaultPolicy() SourcePolicy {
	return SourcePolicy{
		Mode:               Hybrid,
		PredictivePrefetch: true,
		PrefetchDepth:      10,
	}
}
