package histcache

import (
	"fmt"

	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/wire"
)

// ObjectCacheKey is the (object_id, version) keyspace key, stored under
// the "objects/" prefix so the pebble tier's on-disk layout mirrors the
// cache directory's own conventions directly.
func ObjectCacheKey(key model.ObjectKey) string {
	return fmt.Sprintf("%s%s/%d", prefixObjects, key.ID.Hex(), key.Version)
}

// PackageCacheKey is the (package_original_id, checkpoint) keyspace key.
func PackageCacheKey(originalID model.PackageID, checkpoint uint64) string {
	return fmt.Sprintf("%s%s/%d", prefixPackages, originalID.Hex(), checkpoint)
}

// TransactionCacheKey is the digest-keyed transaction-record key.
func TransactionCacheKey(digest model.Digest) string {
	return prefixTransactions + digest.Hex()
}

// ClosureCacheKey is the key under which a package's recorded transitive
// dependency set is stored.
func ClosureCacheKey(originalID model.PackageID, checkpoint uint64) string {
	return fmt.Sprintf("%s%s/%d", prefixClosures, originalID.Hex(), checkpoint)
}

func encodeTxAndEffects(te TxAndEffects) []byte {
	w := wire.NewWriter()
	w.WriteBytes(wire.EncodeTransaction(&te.Tx))
	w.WriteBytes(wire.EncodeEffects(&te.Effects))
	return w.Bytes()
}

func decodeTxAndEffects(raw []byte) (model.Transaction, model.Effects, error) {
	r, err := wire.NewReader(raw)
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	txBytes, err := r.ReadBytes()
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	tx, err := wire.DecodeTransaction(txBytes)
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	effectsBytes, err := r.ReadBytes()
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	effects, err := wire.DecodeEffects(effectsBytes)
	if err != nil {
		return model.Transaction{}, model.Effects{}, err
	}
	return *tx, *effects, nil
}
