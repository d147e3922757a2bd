package services

import (
	"log/slog"

	"github.com/SAP-F-2025/exam-delivery-service/internal/cache"
	"github.com/SAP-F-2025/exam-delivery-service/internal/events"
	"github.com/SAP-F-2025/exam-delivery-service/internal/repositories"
	"github.com/SAP-F-2025/exam-delivery-service/internal/validator"
	"github.com/jonboulle/clockwork"
)

// ServiceManager exposes every service to the transport layer
type ServiceManager interface {
	Attempt() AttemptService
}

type serviceManager struct {
	attempt AttemptService
}

func NewServiceManager(
	repo repositories.Repository,
	cacheService cache.CacheService,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
	clock clockwork.Clock,
) ServiceManager {
	return &serviceManager{
		attempt: NewAttemptService(repo, cacheService, publisher, validator, logger, clock, DefaultAttemptServiceConfig()),
	}
}

func (m *serviceManager) Attempt() AttemptService {
	return m.attempt
}
