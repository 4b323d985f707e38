package bundle

import (
	"github.com/cockroachdb/errors"
	"github.com/spf13/afero"
)

// SaveJSON writes doc's structured-text form to path on fs, the default
// form writers prefer. Pass afero.NewOsFs() in production,
// afero.NewMemMapFs() in tests — the same testable-filesystem discipline
// sourceadapter.fileLocalStore already follows for the local store.
func SaveJSON(fs afero.Fs, path string, doc *Doc) error {
	raw, err := EncodeJSON(doc)
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, raw, 0o644); err != nil {
		return errors.Wrap(err, "bundle: write json")
	}
	return nil
}

// LoadJSON reads and decodes a structured-text bundle from fs.
func LoadJSON(fs afero.Fs, path string) (*Doc, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "bundle: read json")
	}
	return DecodeJSON(raw)
}

// SaveBinary writes doc's compact wire form to path on fs.
func SaveBinary(fs afero.Fs, path string, doc *Doc) error {
	if err := afero.WriteFile(fs, path, EncodeBinary(doc), 0o644); err != nil {
		return errors.Wrap(err, "bundle: write binary")
	}
	return nil
}

// LoadBinary reads and decodes a compact-wire-form bundle from fs.
func LoadBinary(fs afero.Fs, path string) (*Doc, error) {
	raw, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrap(err, "bundle: read binary")
	}
	return DecodeBinary(raw)
}
