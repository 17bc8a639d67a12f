package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/auth"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
)

// ReviewService defines the interface for review operations
type ReviewService interface {
	CreateReview(ctx context.Context, actor Actor, req *dto.CreateReviewRequest) (*models.Review, error)
	GetReviews(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error)
	DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error
}

type reviewServiceImpl struct {
	reviewRepo      repositories.IReviewRepository
	scholarshipRepo repositories.IScholarshipRepository
	userRepo        repositories.IUserRepository
	roles           auth.RoleResolver
	logger          zerolog.Logger
}

// NewReviewService creates a new ReviewService
func NewReviewService(
	reviewRepo repositories.IReviewRepository,
	scholarshipRepo repositories.IScholarshipRepository,
	userRepo repositories.IUserRepository,
	roles auth.RoleResolver,
	logger zerolog.Logger,
) ReviewService {
	return &reviewServiceImpl{
		reviewRepo:      reviewRepo,
		scholarshipRepo: scholarshipRepo,
		userRepo:        userRepo,
		roles:           roles,
		logger:          logger,
	}
}

// CreateReview stores a review written by actor. Name and image come from
// the actor's user record when there is one.
func (s *reviewServiceImpl) CreateReview(ctx context.Context, actor Actor, req *dto.CreateReviewRequest) (*models.Review, error) {
	scholarshipID, err := uuid.Parse(req.ScholarshipID)
	if err != nil {
		return nil, apperrors.ErrInvalidIDFormat
	}
	if req.RatingPoint < 1 || req.RatingPoint > 5 {
		return nil, apperrors.NewValidationError("ratingPoint must be between 1 and 5")
	}
	if _, err := s.scholarshipRepo.GetByID(ctx, scholarshipID); err != nil {
		return nil, err
	}

	review := &models.Review{
		ScholarshipID: scholarshipID,
		UserName:      actor.Name,
		UserEmail:     actor.Email,
		RatingPoint:   req.RatingPoint,
		ReviewComment: strings.TrimSpace(req.ReviewComment),
	}

	user, err := s.userRepo.GetByEmail(ctx, actor.Email)
	switch {
	case err == nil:
		if user.DisplayName != "" {
			review.UserName = user.DisplayName
		}
		review.UserImage = user.PhotoURL
	case !errors.Is(err, apperrors.ErrResourceNotFound):
		return nil, fmt.Errorf("error loading reviewer: %w", err)
	}

	if err := s.reviewRepo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("error creating review: %w", err)
	}
	return review, nil
}

// GetReviews lists reviews newest first
func (s *reviewServiceImpl) GetReviews(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	return s.reviewRepo.List(ctx, filter)
}

// DeleteReview removes a review. Only its author or staff may do so.
func (s *reviewServiceImpl) DeleteReview(ctx context.Context, actor Actor, id uuid.UUID) error {
	review, err := s.reviewRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	if review.UserEmail != actor.Email {
		role, err := s.roles.ResolveRole(ctx, actor.Email)
		if err != nil {
			return err
		}
		if !auth.IsStaff(role) {
			return apperrors.NewForbiddenError("only the author or a moderator can delete this review")
		}
	}

	if err := s.reviewRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info().Str("reviewID", id.String()).Str("by", actor.Email).Msg("Review deleted")
	return nil
}
