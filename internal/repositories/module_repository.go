package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
)

// ModuleRepository interface for test module and question lookups
type ModuleRepository interface {
	GetByID(ctx context.Context, id uint) (*models.TestModule, error)
	// GetWithQuestions loads the module with its questions ordered by number
	// and their passages.
	GetWithQuestions(ctx context.Context, id uint) (*models.TestModule, error)
	GetManyWithQuestions(ctx context.Context, ids []uint) ([]*models.TestModule, error)
	ListByTest(ctx context.Context, testID uint) ([]*models.TestModule, error)
	// FindBySlot returns the test's modules in the given section and slot,
	// ordered by order_index.
	FindBySlot(ctx context.Context, testID uint, section models.SATSection, module models.SATModule) ([]*models.TestModule, error)
	CountQuestions(ctx context.Context, moduleID uint) (int64, error)
}
