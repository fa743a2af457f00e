package models

import (
	"errors"
	"fmt"
)

// Domain specific errors, matched with errors.Is in the handlers.
var (
	ErrNotFound            = errors.New("requested item not found")
	ErrConflict            = errors.New("item already exists or conflict")
	ErrUnauthenticated     = errors.New("authentication required or invalid session")
	ErrForbidden           = errors.New("action forbidden")
	ErrValidation          = errors.New("validation failed")
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// BalanceError reports a rejected debit together with the authoritative
// balance, so the client can resynchronize its displayed figure.
type BalanceError struct {
	Available float64
}

func (e *BalanceError) Error() string {
	return fmt.Sprintf("insufficient balance: %.2f available", e.Available)
}

func (e *BalanceError) Unwrap() error { return ErrInsufficientBalance }
