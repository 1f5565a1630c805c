package casework

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput indicates a request was rejected before touching the store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrEmptyLocation indicates a task was filed without a location.
	ErrEmptyLocation = fmt.Errorf("%w: location must not be empty", ErrInvalidInput)
	// ErrInvalidPage indicates limit or offset are out of range.
	ErrInvalidPage = fmt.Errorf("%w: limit must be 1..500 and offset >= 0", ErrInvalidInput)
	// ErrUnknownState indicates a state label outside the lifecycle enum.
	ErrUnknownState = fmt.Errorf("%w: unknown task state", ErrInvalidInput)
	// ErrUnknownRole indicates a role label outside the role enum.
	ErrUnknownRole = fmt.Errorf("%w: unknown role", ErrInvalidInput)

	// ErrNotFound indicates a referenced task or actor does not exist.
	ErrNotFound = errors.New("not found")
	// ErrTaskNotFound indicates the task does not exist.
	ErrTaskNotFound = fmt.Errorf("task %w", ErrNotFound)
	// ErrActorNotFound indicates the actor does not exist.
	ErrActorNotFound = fmt.Errorf("actor %w", ErrNotFound)

	// ErrDuplicate indicates a unique key is already taken.
	ErrDuplicate = errors.New("already exists")
	// ErrActorExists indicates the actor code is already registered.
	ErrActorExists = fmt.Errorf("actor %w", ErrDuplicate)

	// ErrActiveCaseConflict indicates the actor already holds an open case.
	ErrActiveCaseConflict = errors.New("actor already holds an active case")
	// ErrAlreadyClaimed indicates the task left Open before the claim landed.
	ErrAlreadyClaimed = errors.New("task already claimed")
	// ErrWrongOwner indicates the actor is not the task's recorded owner.
	ErrWrongOwner = errors.New("actor does not own this task")
	// ErrInvalidState indicates the task is not in the state the transition starts from.
	ErrInvalidState = errors.New("task is not in the expected state")
	// ErrForbiddenRole indicates the actor's role does not permit the operation.
	ErrForbiddenRole = errors.New("role not permitted for this operation")

	// ErrStale is returned by stores when a conditional update matched no row.
	ErrStale = errors.New("conditional update matched no row")

	// ErrStoreTimeout indicates a store call exceeded its deadline. Retryable.
	ErrStoreTimeout = errors.New("store timeout")
	// ErrStoreUnavailable indicates the store could not serve the call. Retryable.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrIntegrity indicates persisted data violates a lifecycle invariant.
	ErrIntegrity = errors.New("data integrity violation")
	// ErrActiveCaseDiverged indicates an active-case flag disagrees with the task table.
	ErrActiveCaseDiverged = fmt.Errorf("%w: active-case flag diverged from tasks", ErrIntegrity)
)

// Kind is the stable, machine-readable name of a failure.
type Kind string

const (
	KindInvalidInput       Kind = "invalid_input"
	KindNotFound           Kind = "not_found"
	KindDuplicate          Kind = "duplicate"
	KindActiveCaseConflict Kind = "active_case_conflict"
	KindAlreadyClaimed     Kind = "already_claimed"
	KindWrongOwner         Kind = "wrong_owner"
	KindInvalidState       Kind = "invalid_state"
	KindForbiddenRole      Kind = "forbidden_role"
	KindStoreTimeout       Kind = "store_timeout"
	KindStoreUnavailable   Kind = "store_unavailable"
	KindIntegrity          Kind = "integrity_violation"
	KindInternal           Kind = "internal"
)

var kindSentinels = []struct {
	kind Kind
	err  error
}{
	{KindInvalidInput, ErrInvalidInput},
	{KindNotFound, ErrNotFound},
	{KindDuplicate, ErrDuplicate},
	{KindActiveCaseConflict, ErrActiveCaseConflict},
	{KindAlreadyClaimed, ErrAlreadyClaimed},
	{KindWrongOwner, ErrWrongOwner},
	{KindInvalidState, ErrInvalidState},
	{KindForbiddenRole, ErrForbiddenRole},
	{KindStoreTimeout, ErrStoreTimeout},
	{KindStoreUnavailable, ErrStoreUnavailable},
	{KindIntegrity, ErrIntegrity},
}

// KindOf classifies err. Unrecognised errors are KindInternal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, ks := range kindSentinels {
		if errors.Is(err, ks.err) {
			return ks.kind
		}
	}
	return KindInternal
}

// IsConflict reports whether err is a failed transition guard.
func IsConflict(err error) bool {
	switch KindOf(err) {
	case KindActiveCaseConflict, KindAlreadyClaimed, KindWrongOwner, KindInvalidState:
		return true
	}
	return false
}

// IsTransient reports whether a caller may retry err with some chance of success.
func IsTransient(err error) bool {
	switch KindOf(err) {
	case KindStoreTimeout, KindStoreUnavailable:
		return true
	}
	return false
}

// StoreFailure wraps an infrastructure error from a store backend into the
// store taxonomy. Errors already carrying a kind, and ErrStale, pass through
// unchanged.
func StoreFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStale) || KindOf(err) != KindInternal {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, ErrStoreTimeout, err)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// kindError carries a message across a process or transport boundary while
// still matching its sentinel with errors.Is.
type kindError struct {
	msg      string
	sentinel error
}

func (e *kindError) Error() string { return e.msg }
func (e *kindError) Unwrap() error { return e.sentinel }

// FromKind rebuilds a typed error from its wire form.
func FromKind(kind Kind, msg string) error {
	for _, ks := range kindSentinels {
		if ks.kind == kind {
			if msg == "" {
				return ks.err
			}
			return &kindError{msg: msg, sentinel: ks.err}
		}
	}
	if msg == "" {
		msg = string(kind)
	}
	return errors.New(msg)
}

// ErrorBody is the wire form of a failure in service responses.
type ErrorBody struct {
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// NewErrorBody converts err for transport. A nil error yields nil.
func NewErrorBody(err error) *ErrorBody {
	if err == nil {
		return nil
	}
	return &ErrorBody{Kind: KindOf(err), Message: err.Error()}
}

// Err converts the body back into an error. A nil body yields nil.
func (b *ErrorBody) Err() error {
	if b == nil {
		return nil
	}
	return FromKind(b.Kind, b.Message)
}
