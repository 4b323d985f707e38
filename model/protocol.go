package model

// ProtocolParams is the slice of chain-wide parameters needed to build a
// replay session: the protocol version in force, gas pricing, and the
// epoch it was pinned at. The epoch->params table that resolves these from
// a checkpoint lives in hydrate.EpochTable.
type ProtocolParams struct {
	ProtocolVersion   uint32
	Epoch             uint64
	ReferenceGasPrice uint64
	// FellBackToLatestKnown is set when the epoch->params table had no
	// entry for the requested epoch and hydrate substituted the most
	// recent known version; the comparator surfaces this as a warning on
	// the classification, never as a clean pass.
	FellBackToLatestKnown bool
}
