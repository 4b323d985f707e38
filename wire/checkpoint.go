package wire

import "github.com/sui-replay/replaycore/model"

// CheckpointManifest is the decoded index of one archived checkpoint: the
// transaction digests it contains, in execution order. The blob archive
// serves the full checkpoint document; the replay core only ever needs
// this index from it, so the manifest is what the scan path decodes and
// what the local store caches.
type CheckpointManifest struct {
	Checkpoint uint64
	Digests    []model.Digest
}

// EncodeCheckpointManifest serializes a manifest to the canonical wire
// format.
func EncodeCheckpointManifest(m *CheckpointManifest) []byte {
	w := NewWriter()
	w.WriteUvarint(m.Checkpoint)
	w.WriteUvarint(uint64(len(m.Digests)))
	for _, d := range m.Digests {
		writeDigest(w, d)
	}
	return w.Bytes()
}

// DecodeCheckpointManifest parses bytes produced by
// EncodeCheckpointManifest.
func DecodeCheckpointManifest(data []byte) (*CheckpointManifest, error) {
	r, err := NewReader(data)
	if err != nil {
		return nil, err
	}
	m := &CheckpointManifest{}
	if m.Checkpoint, err = r.ReadUvarint(); err != nil {
		return nil, err
	}
	n, err := r.ReadUvarint()
	if err != nil {
		return nil, err
	}
	if n > 0 {
		m.Digests = make([]model.Digest, 0, n)
	}
	for i := uint64(0); i < n; i++ {
		d, err := readDigest(r)
		if err != nil {
			return nil, err
		}
		m.Digests = append(m.Digests, d)
	}
	return m, nil
}
