package orders

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidRequest    = errors.New("invalid request")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConnection        = errors.New("storage connection unavailable")
	ErrInternal          = errors.New("internal error")
	ErrNotFound          = errors.New("not found")

	// ErrTxDone is returned by Commit on a transaction that was already finalized.
	ErrTxDone = errors.New("transaction already finalized")
)

// PlacementError is the failure value of PlaceOrder. It matches its Kind
// sentinel and the underlying cause under errors.Is.
type PlacementError struct {
	Kind      error
	ProductID int64
	Err       error
}

func (e *PlacementError) Error() string {
	switch {
	case errors.Is(e.Kind, ErrInsufficientStock):
		return fmt.Sprintf("Insufficient stock for product %d", e.ProductID)
	case errors.Is(e.Kind, ErrInvalidRequest) && e.Err != nil:
		return e.Err.Error()
	case e.Err != nil:
		return fmt.Sprintf("%v: %v", e.Kind, e.Err)
	default:
		return e.Kind.Error()
	}
}

func (e *PlacementError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func invalid(format string, args ...any) error {
	return &PlacementError{Kind: ErrInvalidRequest, Err: fmt.Errorf(format, args...)}
}

func internal(err error) error {
	return &PlacementError{Kind: ErrInternal, Err: err}
}

// IsClientError reports whether err is the caller's fault (bad input or a
// business-rule rejection) rather than a storage or internal failure.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) || errors.Is(err, ErrInsufficientStock)
}
