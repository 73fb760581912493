// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicateRun indicates a run already exists for the idempotency key.
var ErrDuplicateRun = errors.New("duplicate run for idempotency key")

// ErrDecrypt indicates an agent credential could not be unsealed.
var ErrDecrypt = errors.New("credential decrypt failed")
