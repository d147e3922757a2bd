package repositories

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"gorm.io/gorm"
)

// UserRepository interface for user operations (minimal for exam delivery)
type UserRepository interface {
	// Upsert creates the user or refreshes its profile fields.
	Upsert(ctx context.Context, tx *gorm.DB, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
}
