package model

// StatusKind discriminates a transaction's terminal status.
type StatusKind uint8

const (
	StatusSuccess StatusKind = iota
	StatusAborted
	// StatusFailure covers non-Move failure classes (e.g. insufficient gas,
	// invalid input) that are distinct from a Move-level abort.
	StatusFailure
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccess:
		return "Success"
	case StatusAborted:
		return "Aborted"
	case StatusFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// Status is the transaction's terminal status; for StatusAborted, Code and
// Location identify the Move abort site.
type Status struct {
	Kind     StatusKind
	Code     uint64
	Location string // "package::module::function" for StatusAborted
	Reason   string // human-readable detail for StatusFailure
}

func (s Status) IsSuccess() bool { return s.Kind == StatusSuccess }

// GasUsed is the four-field gas accounting tuple compared with zero
// tolerance by the effect comparator.
type GasUsed struct {
	ComputationCost uint64
	StorageCost     uint64
	StorageRebate   uint64
	NonRefundable   uint64
}

func (g GasUsed) Equal(o GasUsed) bool {
	return g.ComputationCost == o.ComputationCost &&
		g.StorageCost == o.StorageCost &&
		g.StorageRebate == o.StorageRebate &&
		g.NonRefundable == o.NonRefundable
}

// ObjectRef identifies one object at a specific version/digest, used in the
// created/mutated/deleted/wrapped/unwrapped effect sets.
type ObjectRef struct {
	ID      ObjectID
	Version uint64
	Digest  Digest
}

// Effects is the recorded or locally-produced outcome of executing a
// transaction.
type Effects struct {
	Status  Status
	GasUsed GasUsed

	Created   []ObjectRef
	Mutated   []ObjectRef
	Deleted   []ObjectRef
	Wrapped   []ObjectRef
	Unwrapped []ObjectRef

	// SharedObjectInputVersions maps a shared object id to the version it
	// was actually read/mutated at during execution.
	SharedObjectInputVersions map[ObjectID]uint64

	UnchangedLoadedRuntimeObjects []ObjectRef
	Dependencies                  []Digest
}

// IDSet extracts the bare object id set from a slice of ObjectRef, used by
// the comparator's order-insensitive id-set comparisons.
func IDSet(refs []ObjectRef) map[ObjectID]ObjectRef {
	m := make(map[ObjectID]ObjectRef, len(refs))
	for _, r := range refs {
		m[r.ID] = r
	}
	return m
}
