package ledger

import (
	"time"

	errors "github.com/muzaffarov/bozor-billing/internal"
	"github.com/muzaffarov/bozor-billing/internal/core/datamodel/transaction"
)

// ExpiryWindow is how long a PENDING transaction stays performable.
// Expiry is evaluated lazily at access time; there is no sweeper.
const ExpiryWindow = 720 * time.Minute

// CancelReasonExpired is the gateway reason code written when a stale
// pending transaction is expired.
const CancelReasonExpired = 4

var (
	ErrNotFound       = errors.NewNotFoundError("Transaction not found", errors.ErrCodeTransactionNotFound)
	ErrAmountMismatch = errors.NewValidationError("Amount does not match the expected amount", errors.ErrCodeAmountMismatch)
	ErrAlreadyPaid    = errors.NewConflictError("Already paid for this billable", errors.ErrCodeAlreadyPaid)
	ErrNotPending     = errors.NewConflictError("Transaction is not pending", errors.ErrCodeTransactionNotPending)
	ErrExpired        = errors.NewConflictError("Transaction expired and was canceled", errors.ErrCodeTransactionExpired)
	ErrDuplicateRef   = errors.NewConflictError("Transaction with this external reference already exists", errors.ErrCodeDuplicateRequest)
)

// Repository persists transactions. Create must map a unique violation
// on external_id to ErrDuplicateRef so concurrent creators can re-read
// the winning row. GetByExternalID returns ErrNotFound for a missing
// reference.
type Repository interface {
	Create(tx *transaction.Transaction) error
	GetByExternalID(externalID string) (*transaction.Transaction, error)
	MarkPaid(id int64, performedAt time.Time) error
	MarkCanceled(id int64, state int, reason int, canceledAt time.Time) error
	MarkAttendancePaid(attendanceID, transactionID int64) error
	ListByMethodBetween(method string, from, to time.Time) ([]*transaction.Transaction, error)
	ActiveByAttendance(attendanceID int64) (*transaction.Transaction, error)
}
