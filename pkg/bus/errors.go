package bus

import "errors"

// Bus errors. Callers match them with errors.Is; returned errors are
// usually wrapped with the offending participant or property.
var (
	ErrFailed          = errors.New("failed")
	ErrTooManyElements = errors.New("too many elements")
	ErrLockError       = errors.New("lock error")
	ErrNotFound        = errors.New("not found")
	ErrCantStartServer = errors.New("can't start server")
	ErrDuplicated      = errors.New("duplicated")
	ErrBusy            = errors.New("busy")
)

// Result is the numeric outcome of a bus operation, as used in protocol
// logs and metric labels.
type Result int

const (
	ResultOK Result = iota
	ResultFailed
	ResultTooManyElements
	ResultLockError
	ResultNotFound
	ResultCantStartServer
	ResultDuplicated
	ResultBusy
)

// String returns the result name.
func (r Result) String() string {
	switch r {
	case ResultOK:
		return "OK"
	case ResultFailed:
		return "Failed"
	case ResultTooManyElements:
		return "TooManyElements"
	case ResultLockError:
		return "LockError"
	case ResultNotFound:
		return "NotFound"
	case ResultCantStartServer:
		return "CantStartServer"
	case ResultDuplicated:
		return "Duplicated"
	case ResultBusy:
		return "Busy"
	default:
		return "Unknown"
	}
}

// ResultOf maps an error to its Result. Errors outside the bus taxonomy
// are ResultFailed.
func ResultOf(err error) Result {
	switch {
	case err == nil:
		return ResultOK
	case errors.Is(err, ErrTooManyElements):
		return ResultTooManyElements
	case errors.Is(err, ErrLockError):
		return ResultLockError
	case errors.Is(err, ErrNotFound):
		return ResultNotFound
	case errors.Is(err, ErrCantStartServer):
		return ResultCantStartServer
	case errors.Is(err, ErrDuplicated):
		return ResultDuplicated
	case errors.Is(err, ErrBusy):
		return ResultBusy
	default:
		return ResultFailed
	}
}
