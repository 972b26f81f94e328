package retention

import (
	"errors"
	"fmt"
	"strings"
)

// Backend operations reported in BackendError.Op.
const (
	OpConnect   = "connect"
	OpEnumerate = "enumerate"
	OpQuery     = "query"
	OpCommit    = "commit"
	OpArchive   = "archive"
	OpUpdate    = "update"
)

// ErrNoStore is returned when the cleaner was built without a store handle.
var ErrNoStore = errors.New("no tenant store configured")

// BackendError wraps a failure of the underlying store or archive.
type BackendError struct {
	Op     string
	Tenant string
	Err    error
}

func (e *BackendError) Error() string {
	if e.Tenant == "" {
		return fmt.Sprintf("retention: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("retention: %s tenant %s: %v", e.Op, e.Tenant, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// PanicError carries a recovered panic value.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("retention: panic: %v", e.Value)
}

// errorType names the concrete error type for RunSummary.ErrorType,
// e.g. "BackendError".
func errorType(err error) string {
	var be *BackendError
	if errors.As(err, &be) {
		return "BackendError"
	}
	var pe *PanicError
	if errors.As(err, &pe) {
		return "PanicError"
	}
	name := fmt.Sprintf("%T", err)
	name = strings.TrimLeft(name, "*")
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return name
}
