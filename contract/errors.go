package contract

import (
	"errors"
	"fmt"
)

var (
	// ErrUnparseablePaymentDate rejects a record whose payment date fields are
	// both missing or unparseable. A contract is useless without a date.
	ErrUnparseablePaymentDate = errors.New("unparseable payment date")

	// ErrMissingID rejects a record without an external ID; it cannot be keyed.
	ErrMissingID = errors.New("missing contract id")

	// ErrUnserializablePayload rejects a record whose audit payload cannot be
	// encoded; its snapshot would be unverifiable.
	ErrUnserializablePayload = errors.New("unserializable contract payload")

	// ErrContractNotFound is returned by stores for unknown IDs.
	ErrContractNotFound = errors.New("contract not found")
)

// RejectedError identifies the record that was dropped and why.
type RejectedError struct {
	IDContrato string
	Reason     error
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("contract %q rejected: %v", e.IDContrato, e.Reason)
}

func (e *RejectedError) Unwrap() error { return e.Reason }

// IsRejected reports whether err is a normalization rejection.
func IsRejected(err error) bool {
	var rej *RejectedError
	return errors.As(err, &rej)
}
