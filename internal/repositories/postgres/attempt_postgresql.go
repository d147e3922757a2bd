package postgres

import (
	"context"
	"errors"

	"github.com/SAP-F-2025/exam-delivery-service/internal/models"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type AttemptPostgreSQL struct {
	db *gorm.DB
}

func NewAttemptPostgreSQL(db *gorm.DB) repositories.AttemptRepository {
	return &AttemptPostgreSQL{db: db}
}

func (a *AttemptPostgreSQL) Create(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	return getDB(a.db, tx).WithContext(ctx).Omit(clause.Associations).Create(attempt).Error
}

func (a *AttemptPostgreSQL) GetByID(ctx context.Context, id uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).Preload("Test").First(&attempt, id).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetForUser(ctx context.Context, id uint, userID string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Preload("Test").
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetForUserWithResults(ctx context.Context, id uint, userID string) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", id, userID).
		Preload("Test").
		Preload("ModuleResults", func(db *gorm.DB) *gorm.DB {
			return db.Order("completed_at ASC, id ASC")
		}).
		First(&attempt).Error; err != nil {
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) GetActive(ctx context.Context, userID string, testID uint) (*models.TestAttempt, error) {
	var attempt models.TestAttempt
	if err := a.db.WithContext(ctx).
		Where("user_id = ? AND test_id = ? AND status = ?", userID, testID, models.AttemptInProgress).
		Order("started_at DESC").
		Preload("Test").
		First(&attempt).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &attempt, nil
}

func (a *AttemptPostgreSQL) Update(ctx context.Context, tx *gorm.DB, attempt *models.TestAttempt) error {
	return getDB(a.db, tx).WithContext(ctx).Omit(clause.Associations).Save(attempt).Error
}

func (a *AttemptPostgreSQL) List(ctx context.Context, filters repositories.AttemptFilters) ([]*models.TestAttempt, int64, error) {
	var attempts []*models.TestAttempt
	var total int64

	// apply filter first
	query := a.db.WithContext(ctx).Model(&models.TestAttempt{})
	query = a.applyFilters(query, filters)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	// then apply pagination and sorting
	query = a.applyPaginationAndSort(query, filters)

	if err := query.Preload("Test").Find(&attempts).Error; err != nil {
		return nil, 0, err
	}

	return attempts, total, nil
}

func (a *AttemptPostgreSQL) TimeSpent(ctx context.Context, attemptIDs []uint) (map[uint]int, error) {
	totals := make(map[uint]int, len(attemptIDs))
	if len(attemptIDs) == 0 {
		return totals, nil
	}

	var rows []struct {
		AttemptID uint
		Total     int
	}
	if err := a.db.WithContext(ctx).
		Model(&models.ModuleResult{}).
		Select("attempt_id, COALESCE(SUM(time_spent_seconds), 0) AS total").
		Where("attempt_id IN ?", attemptIDs).
		Group("attempt_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	for _, r := range rows {
		totals[r.AttemptID] = r.Total
	}
	return totals, nil
}

func (a *AttemptPostgreSQL) applyFilters(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	if filters.UserID != "" {
		query = query.Where("user_id = ?", filters.UserID)
	}
	if filters.Status != "" {
		query = query.Where("status = ?", filters.Status)
	}
	if filters.TestID != nil {
		query = query.Where("test_id = ?", *filters.TestID)
	}
	if filters.DateFrom != nil {
		query = query.Where("started_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("started_at <= ?", *filters.DateTo)
	}
	return query
}

var attemptSortColumns = map[string]string{
	"started_at":   "started_at",
	"completed_at": "completed_at",
	"total_score":  "total_score",
}

func (a *AttemptPostgreSQL) applyPaginationAndSort(query *gorm.DB, filters repositories.AttemptFilters) *gorm.DB {
	column, ok := attemptSortColumns[filters.SortBy]
	if !ok {
		column = "started_at"
	}
	desc := filters.SortOrder != "asc"
	query = query.Order(clause.OrderByColumn{Column: clause.Column{Name: column}, Desc: desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: desc})

	if filters.Limit > 0 {
		query = query.Limit(filters.Limit)
	}
	if filters.Offset > 0 {
		query = query.Offset(filters.Offset)
	}
	return query
}
