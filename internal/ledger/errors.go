package ledger

import (
	"errors"

	"github.com/lib/pq"
)

// Error kinds surfaced by ledger operations. Handlers map these onto HTTP
// responses; anything else is treated as a storage failure.
var (
	ErrNotFound               = errors.New("record not found")
	ErrPoolExhausted          = errors.New("license pool exhausted")
	ErrAlreadyLicensed        = errors.New("user already holds an active license")
	ErrNotLicensed            = errors.New("user holds no active license")
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrInvalidAmount          = errors.New("amount must be positive")
	ErrInvalidPoolSize        = errors.New("invalid pool size")
	ErrConcurrentModification = errors.New("concurrent modification")
)

// concurrencyCodes are the Postgres errors a retry can resolve: serialization
// failures, deadlocks, and check violations raced past a row lock.
var concurrencyCodes = map[pq.ErrorCode]bool{
	"40001": true,
	"40P01": true,
	"23514": true,
}

func isConcurrencyError(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && concurrencyCodes[pqErr.Code]
}
