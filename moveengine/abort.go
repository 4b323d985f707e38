package moveengine

import (
	"fmt"

	"github.com/sui-replay/replaycore/model"
)

// AbortError carries a Move-level abort — recoverable per-transaction,
// never a kernel fault — across the Engine boundary. The kernel's
// replaykernel.asAbort unwraps it via the AbortStatus accessor rather
// than treating it as an infrastructure error.
type AbortError struct {
	Status model.Status
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("move abort: code=%d location=%s", e.Status.Code, e.Status.Location)
}

func (e *AbortError) AbortStatus() *model.Status {
	s := e.Status
	return &s
}

// Abort builds an AbortError for the given code/location, the shape the
// reference and native engines both return from Call/Publish when the
// callee aborts rather than faulting the VM host.
func Abort(code uint64, location string) error {
	return &AbortError{Status: model.Status{Kind: model.StatusAborted, Code: code, Location: location}}
}
