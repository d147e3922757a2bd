package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"gorm.io/gorm"
)

// TestRepository interface for test catalogue operations
type TestRepository interface {
	Create(ctx context.Context, tx *gorm.DB, test *models.Test) error
	GetByID(ctx context.Context, id uint) (*models.Test, error)
	GetByIDWithModules(ctx context.Context, id uint) (*models.Test, error)
	ListPublished(ctx context.Context) ([]*models.Test, error)
}
