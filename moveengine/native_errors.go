//go:build movevm_native

package moveengine

import "github.com/cockroachdb/errors"

var errUnimplementedInShim = errors.New("movevm: publish not implemented by this shim build")
