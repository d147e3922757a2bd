package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"gorm.io/gorm"
)

// ===== SHARED FILTER STRUCTS =====

type AttemptFilters struct {
	Status    models.AttemptStatus `json:"status"`
	UserID    string               `json:"user_id"`
	TestID    *uint                `json:"test_id"`
	DateFrom  *time.Time           `json:"date_from"`
	DateTo    *time.Time           `json:"date_to"`
	Limit     int                  `json:"limit"`
	Offset    int                  `json:"offset"`
	SortBy    string               `json:"sort_by"`    // "started_at", "completed_at", "total_score"
	SortOrder string               `json:"sort_order"` // "asc", "desc"
}

// ===== REPOSITORY AGGREGATE =====

// Repository groups every store the services use. Write methods accept an
// optional transaction; pass nil to use the root connection.
type Repository interface {
	Test() TestRepository
	Module() ModuleRepository
	Attempt() AttemptRepository
	Answer() AnswerRepository
	ModuleResult() ModuleResultRepository
	User() UserRepository
	TransactionRepository
}

type TransactionRepository interface {
	WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// IsNotFoundError reports whether err is gorm's missing-record error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
