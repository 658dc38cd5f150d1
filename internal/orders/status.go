package orders

import (
	"fmt"

	"github.com/ariefcatur/go-farm-market/internal/apperr"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusDone      Status = "DONE"
	StatusCanceled  Status = "CANCELED"
)

var validNext = map[Status]map[Status]bool{
	StatusPending:   {StatusConfirmed: true, StatusCanceled: true},
	StatusConfirmed: {StatusDone: true, StatusCanceled: true},
	StatusDone:      {},
	StatusCanceled:  {},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

func (s Status) Terminal() bool {
	next, ok := validNext[s]
	return ok && len(next) == 0
}

func ParseStatus(s string) (Status, error) {
	st := Status(s)
	if _, ok := validNext[st]; !ok {
		return "", apperr.Validation(fmt.Sprintf("invalid status %q", s))
	}
	return st, nil
}

// checkTransition explains why from -> to is not allowed. Re-confirming a
// CONFIRMED order is rejected, not treated as a no-op.
func checkTransition(from, to Status) error {
	if CanTransition(from, to) {
		return nil
	}
	switch {
	case from.Terminal():
		return apperr.InvalidTransition(fmt.Sprintf("order already %s", from))
	case from == StatusPending && to == StatusDone:
		return apperr.InvalidTransition("cannot set DONE before CONFIRMED")
	case from == to:
		return apperr.InvalidTransition(fmt.Sprintf("order is already %s", from))
	default:
		return apperr.InvalidTransition(fmt.Sprintf("cannot move order from %s to %s", from, to))
	}
}
