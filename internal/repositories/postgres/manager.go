package postgres

import (
	"context"

	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"gorm.io/gorm"
)

// RepositoryManager is the gorm-backed repositories.Repository. The same
// implementation runs against postgres in production and sqlite in tests.
type RepositoryManager struct {
	db *gorm.DB

	test         repositories.TestRepository
	module       repositories.ModuleRepository
	attempt      repositories.AttemptRepository
	answer       repositories.AnswerRepository
	moduleResult repositories.ModuleResultRepository
	user         repositories.UserRepository
}

func NewRepositoryManager(db *gorm.DB) repositories.Repository {
	return &RepositoryManager{
		db:           db,
		test:         NewTestPostgreSQL(db),
		module:       NewModulePostgreSQL(db),
		attempt:      NewAttemptPostgreSQL(db),
		answer:       NewAnswerPostgreSQL(db),
		moduleResult: NewModuleResultPostgreSQL(db),
		user:         NewUserPostgreSQL(db),
	}
}

func (m *RepositoryManager) Test() repositories.TestRepository                 { return m.test }
func (m *RepositoryManager) Module() repositories.ModuleRepository             { return m.module }
func (m *RepositoryManager) Attempt() repositories.AttemptRepository           { return m.attempt }
func (m *RepositoryManager) Answer() repositories.AnswerRepository             { return m.answer }
func (m *RepositoryManager) ModuleResult() repositories.ModuleResultRepository { return m.moduleResult }
func (m *RepositoryManager) User() repositories.UserRepository                 { return m.user }

func (m *RepositoryManager) WithTransaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return m.db.WithContext(ctx).Transaction(fn)
}

// getDB returns tx when set, otherwise the root connection.
func getDB(db, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
