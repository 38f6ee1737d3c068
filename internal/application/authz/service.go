package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/erp/bridge/internal/domain/authz"
	"github.com/erp/bridge/internal/domain/shared"
	"github.com/erp/bridge/internal/infrastructure/telemetry"
)

// Service is the authorization facade in front of the legacy system. Callers
// ask a domain question (may this subject perform this operation) and get a
// domain answer; everything legacy about the answer stays behind the gateway.
//
// The contract is strict: a denial is a valid answer, not an error. A missing
// authorization record is a denial. Only an unreachable legacy system turns
// into an error, and that error is always authz.ErrLegacyUnavailable.
type Service struct {
	gateway     authz.LegacyGateway
	mappingRepo authz.SubjectMappingRepository
	logger      *zap.Logger
}

// NewService creates a new authorization facade service
func NewService(
	gateway authz.LegacyGateway,
	mappingRepo authz.SubjectMappingRepository,
	logger *zap.Logger,
) *Service {
	return &Service{
		gateway:     gateway,
		mappingRepo: mappingRepo,
		logger:      logger,
	}
}

// CheckPermission answers whether the legacy subject may perform the
// operation. The legacy store's record shape never leaks past this method.
func (s *Service) CheckPermission(ctx context.Context, subjectID int64, operation string) (bool, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "authz", "check_permission")
	defer span.End()

	telemetry.SetAttributes(span,
		telemetry.SpanAttrLegacySubjectID, subjectID,
		telemetry.SpanAttrOperation, operation,
	)

	query, err := authz.NewPermissionQuery(subjectID, operation)
	if err != nil {
		return false, err
	}

	grant, err := s.gateway.FetchGrant(ctx, query.SubjectID, query.Operation)
	if err != nil {
		// No record means the legacy system answered: it is a denial.
		if errors.Is(err, authz.ErrGrantNotFound) {
			s.logger.Debug("No legacy authorization record",
				zap.Int64("subject_id", query.SubjectID),
				zap.String("operation", query.Operation))
			telemetry.SetAttribute(span, telemetry.SpanAttrAuthorized, false)
			return false, nil
		}

		// Anything else means the legacy system did not answer. Never report
		// that as a denial; the caller must be able to tell the two apart.
		if !errors.Is(err, authz.ErrLegacyUnavailable) {
			err = fmt.Errorf("%w: %v", authz.ErrLegacyUnavailable, err)
		}
		s.logger.Error("Legacy authorization lookup failed",
			zap.Int64("subject_id", query.SubjectID),
			zap.String("operation", query.Operation),
			zap.Error(err))
		telemetry.RecordError(span, err)
		return false, err
	}

	s.logger.Debug("Legacy authorization answered",
		zap.Int64("subject_id", query.SubjectID),
		zap.String("operation", query.Operation),
		zap.Bool("authorized", grant.Authorized),
		zap.String("source", grant.Source.String()))

	telemetry.SetAttribute(span, telemetry.SpanAttrAuthorized, grant.Authorized)
	return grant.Authorized, nil
}

// CheckPermissionForUser resolves the modern user to its legacy subject and
// delegates to CheckPermission. Users without an active mapping cannot be
// checked against the legacy store at all; that is ErrSubjectNotMapped (or
// ErrMappingInactive for a deactivated one), not a denial.
func (s *Service) CheckPermissionForUser(ctx context.Context, userID uuid.UUID, operation string) (bool, error) {
	mapping, err := s.resolveMapping(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.CheckPermission(ctx, mapping.LegacySubjectID, operation)
}

// ResolveLegacySubject returns the legacy subject ID for a modern user, or
// ErrSubjectNotMapped / ErrMappingInactive when no usable mapping exists.
func (s *Service) ResolveLegacySubject(ctx context.Context, userID uuid.UUID) (int64, error) {
	mapping, err := s.resolveMapping(ctx, userID)
	if err != nil {
		return 0, err
	}
	return mapping.LegacySubjectID, nil
}

func (s *Service) resolveMapping(ctx context.Context, userID uuid.UUID) (*authz.SubjectMapping, error) {
	if userID == uuid.Nil {
		return nil, authz.ErrMappingInvalidUserID
	}

	mapping, err := s.mappingRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, authz.ErrMappingNotFound) {
			return nil, authz.ErrSubjectNotMapped
		}
		return nil, err
	}
	if !mapping.Active {
		s.logger.Warn("Subject mapping is inactive",
			zap.String("user_id", userID.String()),
			zap.Int64("legacy_subject_id", mapping.LegacySubjectID))
		return nil, authz.ErrMappingInactive
	}

	return mapping, nil
}

// ==================== Subject Mapping Administration ====================

// CreateMapping maps a modern user to a legacy subject
func (s *Service) CreateMapping(ctx context.Context, req CreateSubjectMappingRequest) (*SubjectMappingResponse, error) {
	existing, err := s.mappingRepo.FindByUserID(ctx, req.UserID)
	if err != nil && !errors.Is(err, authz.ErrMappingNotFound) {
		return nil, err
	}
	if existing != nil {
		return nil, authz.ErrMappingAlreadyExists
	}

	mapping, err := authz.NewSubjectMapping(req.UserID, req.LegacySubjectID)
	if err != nil {
		return nil, err
	}
	if req.Note != "" {
		mapping.SetNote(req.Note)
	}

	if err := s.mappingRepo.Save(ctx, mapping); err != nil {
		return nil, err
	}

	s.logger.Info("Subject mapping created",
		zap.String("user_id", mapping.UserID.String()),
		zap.Int64("legacy_subject_id", mapping.LegacySubjectID))

	response := ToSubjectMappingResponse(mapping)
	return &response, nil
}

// GetMapping retrieves a subject mapping by ID
func (s *Service) GetMapping(ctx context.Context, id uuid.UUID) (*SubjectMappingResponse, error) {
	mapping, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToSubjectMappingResponse(mapping)
	return &response, nil
}

// GetMappingByUser retrieves the subject mapping for a modern user
func (s *Service) GetMappingByUser(ctx context.Context, userID uuid.UUID) (*SubjectMappingResponse, error) {
	mapping, err := s.mappingRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	response := ToSubjectMappingResponse(mapping)
	return &response, nil
}

// ListMappings retrieves subject mappings with filtering and pagination
func (s *Service) ListMappings(ctx context.Context, filter SubjectMappingListFilter) ([]SubjectMappingResponse, int64, error) {
	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	domainFilter := shared.Filter{
		Search:   filter.Search,
		Page:     filter.Page,
		PageSize: filter.PageSize,
	}

	mappings, err := s.mappingRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.mappingRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	return ToSubjectMappingResponses(mappings), total, nil
}

// UpdateMapping updates the active flag and note of a subject mapping
func (s *Service) UpdateMapping(ctx context.Context, id uuid.UUID, req UpdateSubjectMappingRequest) (*SubjectMappingResponse, error) {
	mapping, err := s.mappingRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Active != nil {
		if *req.Active {
			mapping.Activate()
		} else {
			mapping.Deactivate()
		}
	}
	if req.Note != nil {
		mapping.SetNote(*req.Note)
	}

	if err := s.mappingRepo.Save(ctx, mapping); err != nil {
		return nil, err
	}

	response := ToSubjectMappingResponse(mapping)
	return &response, nil
}

// DeleteMapping removes a subject mapping
func (s *Service) DeleteMapping(ctx context.Context, id uuid.UUID) error {
	if _, err := s.mappingRepo.FindByID(ctx, id); err != nil {
		return err
	}
	return s.mappingRepo.Delete(ctx, id)
}

// Interface guards
var (
	_ authz.Checker     = (*Service)(nil)
	_ authz.UserChecker = (*Service)(nil)
)
