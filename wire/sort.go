package wire

import (
	"bytes"
	"sort"

	"github.com/sui-replay/replaycore/model"
)

// sortAddresses gives map-derived address slices a stable iteration order
// so EncodePackage/EncodeEffects are deterministic across runs and hosts;
// replay determinism checks compare these encodings byte for byte.
func sortAddresses(addrs []model.Address) {
	sort.Slice(addrs, func(i, j int) bool {
		return bytes.Compare(addrs[i][:], addrs[j][:]) < 0
	})
}

func sortStringsLocal(s []string) {
	sort.Strings(s)
}
