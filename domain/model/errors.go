package model

import "errors"

// Error kinds. Concrete errors wrap one of these with fmt.Errorf("%w: ...")
// so callers can classify them with errors.Is.
var (
	// ErrConfiguration marks invalid or contradictory user input.
	ErrConfiguration = errors.New("configuration error")
	// ErrReferential marks a broken reference between entities.
	ErrReferential       = errors.New("referential error")
	ErrDuplicateInstance = wrapKind(ErrReferential, "duplicate instance")
	ErrLocationNotFound  = wrapKind(ErrReferential, "location not found")
	ErrInstanceNotFound  = wrapKind(ErrReferential, "instance not found")
	// ErrCardinality is returned by Instances.Only and Instances.Maybe.
	ErrCardinality = errors.New("cardinality error")
	// ErrCapacity marks an allocation that cannot be satisfied.
	ErrCapacity = errors.New("capacity error")
	// ErrInternal marks a bug rather than bad input.
	ErrInternal          = errors.New("internal consistency error")
	ErrSchedulerDeadlock = wrapKind(ErrInternal, "no transmogrifier is ready")
	// ErrExternal marks a failure reported by an external collaborator.
	ErrExternal = errors.New("external collaborator error")
)

type kindError struct {
	kind error
	msg  string
}

func wrapKind(kind error, msg string) error { return &kindError{kind: kind, msg: msg} }

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.kind }
