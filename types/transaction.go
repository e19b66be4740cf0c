package types

import "time"

// TransactionType is the kind of exchange a transaction records.
type TransactionType string

const (
	TransactionBorrow  TransactionType = "BORROW"
	TransactionReserve TransactionType = "RESERVE"
	TransactionSale    TransactionType = "SALE"
)

// TransactionStatus is the lifecycle state of a transaction.
type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionActive    TransactionStatus = "ACTIVE"
	TransactionCompleted TransactionStatus = "COMPLETED"
	TransactionCancelled TransactionStatus = "CANCELLED"
)

// Transaction is a borrow, reserve or sale record between a borrower and
// the book's owner. It is not a database transaction.
type Transaction struct {
	ID         int `json:"id" db:"id"`
	BookID     int `json:"bookId" db:"book_id"`
	BorrowerID int `json:"borrowerId" db:"borrower_id"`
	LenderID   int `json:"lenderId" db:"lender_id"`

	Type   TransactionType   `json:"type" db:"type"`
	Status TransactionStatus `json:"status" db:"status"`

	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
}

// IsActive reports whether the transaction currently holds the book.
func (t Transaction) IsActive() bool {
	return t.Status == TransactionActive
}
