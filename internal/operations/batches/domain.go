package batches

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// QAStatus is the quality-assurance verdict of a batch.
type QAStatus string

const (
	QAPending QAStatus = "pending"
	QAPassed  QAStatus = "passed"
	QAFailed  QAStatus = "failed"
)

// Batch is one production run. Consumption attributed to a batch is
// irreversible; correcting a mistake means a compensating transfer or a new
// lot receipt, never editing the batch.
type Batch struct {
	ID              string          `json:"id"`
	BatchDate       time.Time       `json:"batch_date"`
	ProcessedGoodID string          `json:"processed_good_id"`
	OutputQuantity  decimal.Decimal `json:"output_quantity"`
	OutputUnit      string          `json:"output_unit"`
	QAStatus        QAStatus        `json:"qa_status"`
	IsLocked        bool            `json:"is_locked"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       int64           `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Usage is one lot consumption line of a batch.
type Usage struct {
	BatchID          string          `json:"batch_id"`
	LotID            string          `json:"lot_id"`
	QuantityConsumed decimal.Decimal `json:"quantity_consumed"`
	Unit             string          `json:"unit"`
}

var (
	// ErrNotFound indicates the batch does not exist.
	ErrNotFound = errors.New("batches: batch not found")
	// ErrLotNotFound indicates a consumed lot does not exist.
	ErrLotNotFound = errors.New("batches: lot not found")
	// ErrGoodNotFound indicates the output processed good does not exist.
	ErrGoodNotFound = errors.New("batches: processed good not found")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("batches: quantity must be positive")
	// ErrNoConsumption indicates a batch with no lot usage lines.
	ErrNoConsumption = errors.New("batches: at least one lot must be consumed")
	// ErrInsufficientStock indicates a lot has less available than consumed.
	ErrInsufficientStock = errors.New("batches: insufficient available quantity")
	// ErrDuplicateLot indicates the same lot appears twice in one batch.
	ErrDuplicateLot = errors.New("batches: duplicate lot in consumption lines")
	// ErrLocked indicates the batch is locked against modification.
	ErrLocked = errors.New("batches: batch is locked")
	// ErrInvalidQAStatus indicates an unknown QA verdict.
	ErrInvalidQAStatus = errors.New("batches: invalid qa status")
)
