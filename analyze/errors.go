package analyze

import "github.com/cockroachdb/errors"

func errFunctionNotFound(name string) error {
	return errors.Newf("analyze: function %q not found", name)
}
