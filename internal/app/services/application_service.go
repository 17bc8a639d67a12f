package services

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/auth"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/events"
	"github.com/scholarstream/api/internal/pkg/metrics"
)

// Confirmation sources reported on payment events and metrics
const (
	SourceWebhook  = "webhook"
	SourceRedirect = "redirect"
)

// ApplicationService defines the application lifecycle operations
type ApplicationService interface {
	CreateApplication(ctx context.Context, actor Actor, req *dto.CreateApplicationRequest) (*models.Application, error)
	GetApplication(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error)
	GetApplications(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error)
	GetStudentApplications(ctx context.Context, actor Actor, email string) ([]*models.Application, error)
	HasApplied(ctx context.Context, scholarshipID uuid.UUID, email string) (bool, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string, feedback *string) (*models.Application, error)
	UpdateFeedback(ctx context.Context, actor Actor, id uuid.UUID, feedback string) (*models.Application, error)
	CancelApplication(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error)
	ConfirmPayment(ctx context.Context, id uuid.UUID, source string) (*models.Application, error)
	ConfirmPaymentCancelled(ctx context.Context, id uuid.UUID, source string) (*models.Application, error)
	// Authorize loads the application and checks that actor owns it or is staff
	Authorize(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error)
	// Lookup loads the application for callers that were authenticated some other way
	Lookup(ctx context.Context, id uuid.UUID) (*models.Application, error)
}

type applicationServiceImpl struct {
	applicationRepo repositories.IApplicationRepository
	scholarshipRepo repositories.IScholarshipRepository
	userRepo        repositories.IUserRepository
	roles           auth.RoleResolver
	publisher       events.Publisher
	logger          zerolog.Logger
}

// NewApplicationService creates a new ApplicationService
func NewApplicationService(
	applicationRepo repositories.IApplicationRepository,
	scholarshipRepo repositories.IScholarshipRepository,
	userRepo repositories.IUserRepository,
	roles auth.RoleResolver,
	publisher events.Publisher,
	logger zerolog.Logger,
) ApplicationService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &applicationServiceImpl{
		applicationRepo: applicationRepo,
		scholarshipRepo: scholarshipRepo,
		userRepo:        userRepo,
		roles:           roles,
		publisher:       publisher,
		logger:          logger,
	}
}

// InitialApplicationStatus derives the review state of a new application
func InitialApplicationStatus(payment models.PaymentStatus) models.ApplicationStatus {
	if payment == models.PaymentStatusPaid {
		return models.ApplicationStatusCompleted
	}
	return models.ApplicationStatusPending
}

// CreateApplication submits an application for actor. Only Admins may file
// on behalf of another student or record an already settled payment.
func (s *applicationServiceImpl) CreateApplication(ctx context.Context, actor Actor, req *dto.CreateApplicationRequest) (*models.Application, error) {
	scholarshipID, err := uuid.Parse(req.ScholarshipID)
	if err != nil {
		return nil, apperrors.ErrInvalidIDFormat
	}
	payment, ok := models.ParsePaymentStatus(req.PaymentStatus)
	if !ok {
		return nil, apperrors.ErrInvalidPayment
	}
	email := strings.ToLower(strings.TrimSpace(req.StudentEmail))

	if email != actor.Email || payment == models.PaymentStatusPaid {
		role, err := s.roles.ResolveRole(ctx, actor.Email)
		if err != nil {
			return nil, err
		}
		if role != models.RoleAdmin {
			if email != actor.Email {
				return nil, apperrors.NewForbiddenError("you can only apply for yourself")
			}
			return nil, apperrors.NewForbiddenError("payment must be confirmed by the payment provider")
		}
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	scholarship, err := s.scholarshipRepo.GetByID(ctx, scholarshipID)
	if err != nil {
		return nil, err
	}

	userID := user.ID
	application := &models.Application{
		ScholarshipID:       scholarship.ID,
		UserID:              &userID,
		StudentEmail:        email,
		UniversityName:      scholarship.UniversityName,
		ScholarshipCategory: scholarship.ScholarshipCategory,
		Degree:              scholarship.Degree,
		ApplicationFees:     scholarship.ApplicationFees,
		ServiceCharge:       0,
		ApplicationStatus:   InitialApplicationStatus(payment),
		PaymentStatus:       payment,
	}
	if err := s.applicationRepo.Create(ctx, application); err != nil {
		return nil, err
	}

	metrics.RecordApplicationCreated()
	s.publish(ctx, events.ApplicationSubmitted, application, "")
	s.logger.Info().
		Str("applicationID", application.ID.String()).
		Str("scholarshipID", scholarshipID.String()).
		Str("email", email).
		Msg("Application submitted")
	return application, nil
}

// Authorize loads the application and checks that actor owns it or is staff
func (s *applicationServiceImpl) Authorize(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error) {
	application, err := s.applicationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if application.IsOwnedBy(actor.Email) {
		return application, nil
	}
	if err := s.requireStaff(ctx, actor); err != nil {
		return nil, err
	}
	return application, nil
}

// Lookup loads an application without an ownership check
func (s *applicationServiceImpl) Lookup(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	return s.applicationRepo.GetByID(ctx, id)
}

func (s *applicationServiceImpl) requireStaff(ctx context.Context, actor Actor) error {
	role, err := s.roles.ResolveRole(ctx, actor.Email)
	if err != nil {
		return err
	}
	if !auth.IsStaff(role) {
		return apperrors.NewForbiddenError("you don't have permission for this application")
	}
	return nil
}

// GetApplication returns an application to its owner or to staff
func (s *applicationServiceImpl) GetApplication(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error) {
	return s.Authorize(ctx, actor, id)
}

// GetApplications lists all applications for moderators
func (s *applicationServiceImpl) GetApplications(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	return s.applicationRepo.List(ctx, filter)
}

// GetStudentApplications lists the applications of email. Students may only list their own.
func (s *applicationServiceImpl) GetStudentApplications(ctx context.Context, actor Actor, email string) ([]*models.Application, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		email = actor.Email
	}
	if email != actor.Email {
		if err := s.requireStaff(ctx, actor); err != nil {
			return nil, err
		}
	}
	return s.applicationRepo.ListByStudent(ctx, email)
}

// HasApplied reports whether email already applied to the scholarship
func (s *applicationServiceImpl) HasApplied(ctx context.Context, scholarshipID uuid.UUID, email string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false, apperrors.NewValidationError("studentEmail is required")
	}
	return s.applicationRepo.Exists(ctx, scholarshipID, email)
}

// UpdateStatus moves an application to any state of the closed status set
func (s *applicationServiceImpl) UpdateStatus(ctx context.Context, id uuid.UUID, status string, feedback *string) (*models.Application, error) {
	parsed, ok := models.ParseApplicationStatus(status)
	if !ok {
		return nil, apperrors.ErrInvalidStatus
	}

	application, err := s.applicationRepo.Update(ctx, id, models.ApplicationUpdate{
		ApplicationStatus:   &parsed,
		ApplicationFeedback: feedback,
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(parsed))
	s.publish(ctx, events.ApplicationStatusChanged, application, "")
	return application, nil
}

// UpdateFeedback changes only the feedback text. Feedback is written by staff.
func (s *applicationServiceImpl) UpdateFeedback(ctx context.Context, actor Actor, id uuid.UUID, feedback string) (*models.Application, error) {
	if err := s.requireStaff(ctx, actor); err != nil {
		return nil, err
	}
	return s.applicationRepo.Update(ctx, id, models.ApplicationUpdate{ApplicationFeedback: &feedback})
}

// CancelApplication is the student's delete: the record is kept as rejected
func (s *applicationServiceImpl) CancelApplication(ctx context.Context, actor Actor, id uuid.UUID) (*models.Application, error) {
	application, err := s.applicationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !application.IsOwnedBy(actor.Email) {
		return nil, apperrors.NewForbiddenError("only the applicant can cancel this application")
	}

	rejected := models.ApplicationStatusRejected
	application, err = s.applicationRepo.Update(ctx, id, models.ApplicationUpdate{ApplicationStatus: &rejected})
	if err != nil {
		return nil, err
	}

	metrics.RecordTransition(string(rejected))
	s.publish(ctx, events.ApplicationCancelled, application, "")
	return application, nil
}

// ConfirmPayment marks the application paid and completed. Confirming an
// already paid application succeeds without side effects.
func (s *applicationServiceImpl) ConfirmPayment(ctx context.Context, id uuid.UUID, source string) (*models.Application, error) {
	application, changed, err := s.applicationRepo.MarkPaid(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		s.logger.Debug().Str("applicationID", id.String()).Str("source", source).Msg("Payment already confirmed")
		return application, nil
	}

	metrics.RecordPaymentConfirmed(source)
	metrics.RecordTransition(string(application.ApplicationStatus))
	s.publish(ctx, events.ApplicationPaymentConfirmed, application, source)
	s.logger.Info().Str("applicationID", id.String()).Str("source", source).Msg("Payment confirmed")
	return application, nil
}

// ConfirmPaymentCancelled resets an abandoned checkout to unpaid/pending.
// Paid applications are left untouched.
func (s *applicationServiceImpl) ConfirmPaymentCancelled(ctx context.Context, id uuid.UUID, source string) (*models.Application, error) {
	application, changed, err := s.applicationRepo.MarkPaymentCancelled(ctx, id)
	if err != nil {
		return nil, err
	}
	if !changed {
		return application, nil
	}

	s.publish(ctx, events.ApplicationPaymentCancelled, application, source)
	return application, nil
}

// publish emits a lifecycle event. Delivery failures are logged only; the
// stored transition stands.
func (s *applicationServiceImpl) publish(ctx context.Context, eventType string, a *models.Application, source string) {
	event := events.ApplicationEvent{
		Type:              eventType,
		ApplicationID:     a.ID.String(),
		ScholarshipID:     a.ScholarshipID.String(),
		StudentEmail:      a.StudentEmail,
		ApplicationStatus: string(a.ApplicationStatus),
		PaymentStatus:     string(a.PaymentStatus),
		Source:            source,
		OccurredAt:        time.Now().UTC(),
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.Warn().Err(err).Str("event", eventType).Str("applicationID", event.ApplicationID).Msg("Failed to publish application event")
	}
}
