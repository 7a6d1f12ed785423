package repositories

// statusError is a RepositoryError raised by repositories themselves, for
// conditions the backend driver cannot classify (for example an empty query
// result that the contract treats as not found).
type statusError struct {
	op       string
	msg      string
	notFound bool
	conflict bool
}

func (e *statusError) Error() string {
	if e.op != "" {
		return e.op + ": " + e.msg
	}
	return e.msg
}

func (e *statusError) IsNotFound() bool    { return e != nil && e.notFound }
func (e *statusError) IsConflict() bool    { return e != nil && e.conflict }
func (e *statusError) IsUnavailable() bool { return false }

// NewNotFoundError builds a RepositoryError classified as not found.
func NewNotFoundError(op, msg string) error {
	return &statusError{op: op, msg: msg, notFound: true}
}

// NewConflictError builds a RepositoryError classified as a conflict.
func NewConflictError(op, msg string) error {
	return &statusError{op: op, msg: msg, conflict: true}
}
