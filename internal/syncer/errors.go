package syncer

import (
	"errors"
	"fmt"

	"github.com/omahs/minotaur-wallet/pkg/types"
)

// Integrity error kinds. They abort the window being applied and are never
// retried.
var (
	ErrDanglingSpend = errors.New("spend of unknown box")
	ErrMissingTx     = errors.New("referenced transaction not persisted")
	ErrDoubleSpend   = errors.New("box spent by two transactions")
)

// ErrCursorMoved means the stored cursor of an address changed while one of
// its windows was being fetched, usually because a reorg rewound it. The
// cycle stops; the next one resumes from the stored cursor.
var ErrCursorMoved = errors.New("address cursor moved during sync")

// ErrNegativeHeight is returned by GroupByHeight for a transaction with a
// negative inclusion height.
var ErrNegativeHeight = errors.New("negative inclusion height")

// IntegrityError reports provider or persisted data that contradicts the
// box/transaction ordering rules. Kind is one of ErrDanglingSpend,
// ErrMissingTx or ErrDoubleSpend.
type IntegrityError struct {
	Kind   error
	BoxID  types.BoxID
	TxID   types.TxID
	Height uint64
	Err    error
}

func (e *IntegrityError) Error() string {
	msg := fmt.Sprintf("%v: tx %s at height %d", e.Kind, e.TxID, e.Height)
	if !e.BoxID.IsZero() {
		msg += ", box " + e.BoxID.String()
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *IntegrityError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorKind names err for logs and metrics labels.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, ErrDanglingSpend):
		return "dangling_spend"
	case errors.Is(err, ErrMissingTx):
		return "missing_tx"
	case errors.Is(err, ErrDoubleSpend):
		return "double_spend"
	case errors.Is(err, ErrCursorMoved):
		return "cursor_moved"
	case errors.Is(err, ErrNegativeHeight):
		return "negative_height"
	default:
		return "provider"
	}
}
