package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"gorm.io/gorm"
)

type ModulePostgreSQL struct {
	db *gorm.DB
}

func NewModulePostgreSQL(db *gorm.DB) repositories.ModuleRepository {
	return &ModulePostgreSQL{db: db}
}

func (m *ModulePostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestModule, error) {
	var module models.TestModule
	if err := m.db.WithContext(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (m *ModulePostgreSQL) GetWithQuestions(ctx context.Context, id uint) (*models.TestModule, error) {
	var module models.TestModule
	if err := m.withQuestions(ctx).First(&module, id).Error; err != nil {
		return nil, err
	}
	return &module, nil
}

func (m *ModulePostgreSQL) GetManyWithQuestions(ctx context.Context, ids []uint) ([]*models.TestModule, error) {
	var modules []*models.TestModule
	if len(ids) == 0 {
		return modules, nil
	}
	if err := m.withQuestions(ctx).
		Where("id IN ?", ids).
		Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (m *ModulePostgreSQL) ListByTest(ctx context.Context, testID uint) ([]*models.TestModule, error) {
	var modules []*models.TestModule
	if err := m.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("order_index ASC").
		Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (m *ModulePostgreSQL) FindBySlot(ctx context.Context, testID uint, section models.SATSection, module models.SATModule) ([]*models.TestModule, error) {
	var modules []*models.TestModule
	if err := m.db.WithContext(ctx).
		Where("test_id = ? AND section = ? AND module = ?", testID, section, module).
		Order("order_index ASC").
		Find(&modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

func (m *ModulePostgreSQL) CountQuestions(ctx context.Context, moduleID uint) (int64, error) {
	var count int64
	if err := m.db.WithContext(ctx).
		Model(&models.Question{}).
		Where("module_id = ?", moduleID).
		Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

func (m *ModulePostgreSQL) withQuestions(ctx context.Context) *gorm.DB {
	return m.db.WithContext(ctx).
		Preload("Questions", func(db *gorm.DB) *gorm.DB {
			return db.Order("question_number ASC")
		}).
		Preload("Questions.Passage")
}
