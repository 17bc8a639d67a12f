package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/helpers"
)

// ScholarshipService defines the interface for scholarship operations
type ScholarshipService interface {
	CreateScholarship(ctx context.Context, ownerEmail string, req *dto.CreateScholarshipRequest) (*models.Scholarship, error)
	GetScholarshipByID(ctx context.Context, id uuid.UUID) (*models.Scholarship, error)
	GetScholarships(ctx context.Context, filter models.ScholarshipFilter) ([]*models.Scholarship, int64, error)
	UpdateScholarship(ctx context.Context, id uuid.UUID, req *dto.UpdateScholarshipRequest) (*models.Scholarship, error)
	DeleteScholarship(ctx context.Context, id uuid.UUID) error
}

type scholarshipServiceImpl struct {
	scholarshipRepo repositories.IScholarshipRepository
	logger          zerolog.Logger
}

// NewScholarshipService creates a new ScholarshipService
func NewScholarshipService(scholarshipRepo repositories.IScholarshipRepository, logger zerolog.Logger) ScholarshipService {
	return &scholarshipServiceImpl{
		scholarshipRepo: scholarshipRepo,
		logger:          logger,
	}
}

func parseDateField(field, value string) (time.Time, error) {
	t, err := helpers.ParseDate(value)
	if err != nil {
		return time.Time{}, apperrors.NewValidationError(fmt.Sprintf("%s must be a date (YYYY-MM-DD or RFC3339)", field))
	}
	return t, nil
}

// CreateScholarship stores a new scholarship. The owner is userEmail when the
// request names one, otherwise the caller.
func (s *scholarshipServiceImpl) CreateScholarship(ctx context.Context, ownerEmail string, req *dto.CreateScholarshipRequest) (*models.Scholarship, error) {
	deadline, err := parseDateField("applicationDeadline", req.ApplicationDeadline)
	if err != nil {
		return nil, err
	}
	posted, err := parseDateField("scholarshipPostDate", req.ScholarshipPostDate)
	if err != nil {
		return nil, err
	}
	if req.ApplicationFees == nil || req.ServiceCharge == nil {
		return nil, apperrors.NewValidationError("applicationFees and serviceCharge are required")
	}

	owner := strings.ToLower(strings.TrimSpace(req.UserEmail))
	if owner == "" {
		owner = ownerEmail
	}

	scholarship := &models.Scholarship{
		ScholarshipName:     strings.TrimSpace(req.ScholarshipName),
		UniversityName:      strings.TrimSpace(req.UniversityName),
		UniversityImage:     req.UniversityImage,
		UniversityCountry:   strings.TrimSpace(req.UniversityCountry),
		UniversityCity:      strings.TrimSpace(req.UniversityCity),
		UniversityWorldRank: req.UniversityWorldRank,
		SubjectCategory:     req.SubjectCategory,
		ScholarshipCategory: req.ScholarshipCategory,
		Degree:              req.Degree,
		ApplicationFees:     *req.ApplicationFees,
		ServiceCharge:       *req.ServiceCharge,
		ApplicationDeadline: deadline,
		ScholarshipPostDate: posted,
		OwnerEmail:          owner,
	}
	if req.TuitionFees != nil {
		scholarship.TuitionFees = *req.TuitionFees
	}

	if err := s.scholarshipRepo.Create(ctx, scholarship); err != nil {
		return nil, fmt.Errorf("error creating scholarship: %w", err)
	}
	s.logger.Info().Str("scholarshipID", scholarship.ID.String()).Str("owner", owner).Msg("Scholarship created")
	return scholarship, nil
}

// GetScholarshipByID retrieves a scholarship by ID
func (s *scholarshipServiceImpl) GetScholarshipByID(ctx context.Context, id uuid.UUID) (*models.Scholarship, error) {
	return s.scholarshipRepo.GetByID(ctx, id)
}

// GetScholarships returns a page of scholarships and the total match count
func (s *scholarshipServiceImpl) GetScholarships(ctx context.Context, filter models.ScholarshipFilter) ([]*models.Scholarship, int64, error) {
	return s.scholarshipRepo.List(ctx, filter)
}

func toPatch(req *dto.UpdateScholarshipRequest) (models.ScholarshipPatch, error) {
	patch := models.ScholarshipPatch{
		ScholarshipName:     req.ScholarshipName,
		UniversityName:      req.UniversityName,
		UniversityImage:     req.UniversityImage,
		UniversityCountry:   req.UniversityCountry,
		UniversityCity:      req.UniversityCity,
		UniversityWorldRank: req.UniversityWorldRank,
		SubjectCategory:     req.SubjectCategory,
		ScholarshipCategory: req.ScholarshipCategory,
		Degree:              req.Degree,
		TuitionFees:         req.TuitionFees,
		ApplicationFees:     req.ApplicationFees,
		ServiceCharge:       req.ServiceCharge,
	}
	if req.ApplicationDeadline != nil {
		t, err := parseDateField("applicationDeadline", *req.ApplicationDeadline)
		if err != nil {
			return patch, err
		}
		patch.ApplicationDeadline = &t
	}
	if req.ScholarshipPostDate != nil {
		t, err := parseDateField("scholarshipPostDate", *req.ScholarshipPostDate)
		if err != nil {
			return patch, err
		}
		patch.ScholarshipPostDate = &t
	}
	return patch, nil
}

// UpdateScholarship merges the supplied fields; absent fields keep their value
func (s *scholarshipServiceImpl) UpdateScholarship(ctx context.Context, id uuid.UUID, req *dto.UpdateScholarshipRequest) (*models.Scholarship, error) {
	patch, err := toPatch(req)
	if err != nil {
		return nil, err
	}

	updated, err := s.scholarshipRepo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("scholarshipID", id.String()).Msg("Scholarship updated")
	return updated, nil
}

// DeleteScholarship removes a scholarship. Existing applications keep their snapshot.
func (s *scholarshipServiceImpl) DeleteScholarship(ctx context.Context, id uuid.UUID) error {
	if err := s.scholarshipRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("scholarshipID", id.String()).Msg("Scholarship deleted")
	return nil
}
