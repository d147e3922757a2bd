package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"gorm.io/gorm"
)

// AttemptRepository interface for test attempt operations
type AttemptRepository interface {
	Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	GetByID(ctx context.Context, id uint) (*models.TestAttempt, error)
	// GetForUser returns the attempt only when it belongs to userID.
	GetForUser(ctx context.Context, id uint, userID string) (*models.TestAttempt, error)
	GetForUserWithResults(ctx context.Context, id uint, userID string) (*models.TestAttempt, error)
	// GetActive returns nil, nil when the user has no in-progress attempt on
	// the test.
	GetActive(ctx context.Context, userID string, testID uint) (*models.TestAttempt, error)
	Update(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error
	List(ctx context.Context, filters AttemptFilters) ([]*models.TestAttempt, int64, error)
	TimeSpent(ctx context.Context, attemptIDs []uint) (map[uint]int, error)
}

// AnswerRepository interface for per-question answer records
type AnswerRepository interface {
	CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error)
}

// ModuleResultRepository interface for per-module scoring records
type ModuleResultRepository interface {
	Create(ctx context.Context, tx *gorm.DB, result *models.ModuleResult) error
	GetByAttempt(ctx context.Context, attemptID uint) ([]*models.ModuleResult, error)
	Exists(ctx context.Context, attemptID, moduleID uint) (bool, error)
}
