package sourceadapter

import (
	"context"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/sui-replay/replaycore/errtax"
)

// fileLocalStore is the LocalStore adapter: an afero-backed KV store
// keyed by a relative path, with atomic temp-then-rename writes so a reader
// never observes a partial file. On afero.OsFs, concurrent writers to the
// same key are serialized with a per-path advisory lock (a flock guards
// one on-disk path); on any other afero.Fs no lock is taken.
type fileLocalStore struct {
	fs   afero.Fs
	root string
}

// NewFileLocalStore opens a local store rooted at root. Pass
// afero.NewMemMapFs() in tests, afero.NewOsFs() in production.
func NewFileLocalStore(fs afero.Fs, root string) LocalStore {
	return &fileLocalStore{fs: fs, root: root}
}

func (s *fileLocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}

func (s *fileLocalStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	data, err := afero.ReadFile(s.fs, s.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errtax.Host("local store read", err)
	}
	return data, true, nil
}

func (s *fileLocalStore) Put(ctx context.Context, key string, value []byte) error {
	target := s.path(key)
	if err := s.fs.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return errtax.Host("local store mkdir", err)
	}

	// flock always locks a real OS path, so it is taken only when the store
	// sits on afero.OsFs; against afero.NewMemMapFs() in tests the target
	// directory exists only in memory and no lock is taken.
	if _, onOS := s.fs.(*afero.OsFs); onOS {
		lockPath := target + ".lock"
		lock := flock.New(lockPath)
		if err := lock.Lock(); err != nil {
			return errtax.Host("local store lock", err)
		}
		defer lock.Unlock()
	}

	tmp := target + ".tmp-" + uuid.NewString()
	if err := afero.WriteFile(s.fs, tmp, value, 0o644); err != nil {
		return errtax.Host("local store write temp", err)
	}
	if err := s.fs.Rename(tmp, target); err != nil {
		return errtax.Host("local store rename", err)
	}
	return nil
}
