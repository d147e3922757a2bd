package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"gorm.io/gorm"
)

type AnswerPostgreSQL struct {
	db *gorm.DB
}

func NewAnswerPostgreSQL(db *gorm.DB) repositories.AnswerRepository {
	return &AnswerPostgreSQL{db: db}
}

func (a *AnswerPostgreSQL) CreateBatch(ctx context.Context, tx *gorm.DB, answers []*models.AttemptAnswer) error {
	if len(answers) == 0 {
		return nil
	}
	return getDB(a.db, tx).WithContext(ctx).CreateInBatches(answers, 100).Error
}

func (a *AnswerPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.AttemptAnswer, error) {
	var answers []*models.AttemptAnswer
	if err := a.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("id ASC").
		Find(&answers).Error; err != nil {
		return nil, err
	}
	return answers, nil
}

type ModuleResultPostgreSQL struct {
	db *gorm.DB
}

func NewModuleResultPostgreSQL(db *gorm.DB) repositories.ModuleResultRepository {
	return &ModuleResultPostgreSQL{db: db}
}

func (m *ModuleResultPostgreSQL) Create(ctx context.Context, tx *gorm.DB, result *models.ModuleResult) error {
	return getDB(m.db, tx).WithContext(ctx).Create(result).Error
}

func (m *ModuleResultPostgreSQL) GetByAttempt(ctx context.Context, attemptID uint) ([]*models.ModuleResult, error) {
	var results []*models.ModuleResult
	if err := m.db.WithContext(ctx).
		Where("attempt_id = ?", attemptID).
		Order("completed_at ASC, id ASC").
		Find(&results).Error; err != nil {
		return nil, err
	}
	return results, nil
}

func (m *ModuleResultPostgreSQL) Exists(ctx context.Context, attemptID, moduleID uint) (bool, error) {
	var count int64
	if err := m.db.WithContext(ctx).
		Model(&models.ModuleResult{}).
		Where("attempt_id = ? AND module_id = ?", attemptID, moduleID).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}
