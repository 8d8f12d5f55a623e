package services

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/statline-io/statline-engine/pkg/apperrors"
	"github.com/statline-io/statline-engine/pkg/audit"
	"github.com/statline-io/statline-engine/pkg/models"
	"github.com/statline-io/statline-engine/pkg/repositories"
)

// AdminService is the administrative boundary: registry maintenance,
// deactivation, and synchronization repair. It never bypasses validation;
// deactivation and resync go through the entity store.
type AdminService interface {
	UpsertCategory(ctx context.Context, category *models.Category) error
	ListCategories(ctx context.Context) ([]*models.Category, error)
	UpsertRegistryValue(ctx context.Context, value *models.LookupValue) error
	ListRegistry(ctx context.Context, registry string) ([]*models.LookupValue, error)
	DeactivateEntity(ctx context.Context, entityType models.EntityType, id uuid.UUID) error
	ResyncEntity(ctx context.Context, entityType models.EntityType, id uuid.UUID) error
}

type adminService struct {
	store   EntityStore
	lookups repositories.LookupRepository
	audit   *audit.Recorder
	logger  *zap.Logger
}

// NewAdminService creates the AdminService.
func NewAdminService(store EntityStore, lookups repositories.LookupRepository, recorder *audit.Recorder, logger *zap.Logger) AdminService {
	return &adminService{
		store:   store,
		lookups: lookups,
		audit:   recorder,
		logger:  logger.Named("admin"),
	}
}

var _ AdminService = (*adminService)(nil)

func (s *adminService) UpsertCategory(ctx context.Context, category *models.Category) error {
	if category.Name == "" {
		return apperrors.NewValidationError("category_name", "category name must not be empty")
	}
	if category.MaxAgeDays != nil && *category.MaxAgeDays <= 0 {
		return apperrors.NewValidationError("category_max_age", "max_age_days must be positive when set")
	}
	if err := s.lookups.UpsertCategory(ctx, category); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventRegistryChange,
		Detail:    "category " + category.Name,
		Outcome:   "success",
	})
	s.logger.Info("Upserted category", zap.String("name", category.Name))
	return nil
}

func (s *adminService) ListCategories(ctx context.Context) ([]*models.Category, error) {
	return s.lookups.ListCategories(ctx)
}

func (s *adminService) UpsertRegistryValue(ctx context.Context, value *models.LookupValue) error {
	switch value.Registry {
	case models.RegistryStatuses, models.RegistryPriorities, models.RegistryComplexities, models.RegistryReadiness:
	default:
		return apperrors.NewValidationError("registry_name", "unknown registry %q", value.Registry)
	}
	if value.Value == "" {
		return apperrors.NewValidationError("registry_value", "registry value must not be empty")
	}
	if err := s.lookups.UpsertRegistryValue(ctx, value); err != nil {
		return err
	}
	s.audit.Record(ctx, audit.Event{
		EventType: audit.EventRegistryChange,
		Detail:    value.Registry + "=" + value.Value,
		Outcome:   "success",
	})
	s.logger.Info("Upserted registry value",
		zap.String("registry", value.Registry),
		zap.String("value", value.Value))
	return nil
}

func (s *adminService) ListRegistry(ctx context.Context, registry string) ([]*models.LookupValue, error) {
	return s.lookups.ListRegistry(ctx, registry)
}

func (s *adminService) DeactivateEntity(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	err := s.store.Deactivate(ctx, entityType, id)
	s.audit.Record(ctx, audit.Event{
		EventType:  audit.EventDeactivate,
		EntityType: entityType,
		EntityID:   id,
		Outcome:    outcome(err),
	})
	return err
}

func (s *adminService) ResyncEntity(ctx context.Context, entityType models.EntityType, id uuid.UUID) error {
	err := s.store.Resync(ctx, entityType, id)
	s.audit.Record(ctx, audit.Event{
		EventType:  audit.EventResync,
		EntityType: entityType,
		EntityID:   id,
		Outcome:    outcome(err),
	})
	return err
}

func outcome(err error) string {
	if err == nil {
		return "success"
	}
	if apperrors.IsValidation(err) {
		return "rejected"
	}
	return "error"
}
