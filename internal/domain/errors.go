package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrQuoteUnavailable means the source was unreachable, every parse strategy failed,
	// or the sanity filter rejected the value.
	ErrQuoteUnavailable = errors.New("quote unavailable")

	// ErrUnsupportedSymbol means the symbol is outside the allow-list of its asset class.
	ErrUnsupportedSymbol = errors.New("unsupported symbol")

	// ErrNotQuoted means the asset class has no external quote (cash, insurance).
	ErrNotQuoted = errors.New("asset class is not quoted")

	// ErrStorageUnavailable means the backing store failed after bounded retries.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrInvalidAssetClass = errors.New("invalid asset class")
)

// QuoteError carries the lookup that failed.
type QuoteError struct {
	Class  AssetClass
	Symbol string
	Err    error
}

// NewQuoteError wraps err with the lookup it belongs to.
func NewQuoteError(class AssetClass, symbol string, err error) *QuoteError {
	return &QuoteError{Class: class, Symbol: symbol, Err: err}
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("%s:%s: %v", e.Class, e.Symbol, e.Err)
}

func (e *QuoteError) Unwrap() error {
	return e.Err
}
