package services

import (
	"context"
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/cache"
	"github.com/scholarstream/api/internal/pkg/metrics"
	"github.com/scholarstream/api/internal/pkg/payment"
)

const (
	checkoutKeyPrefix = "checkout:"
	eventKeyPrefix    = "stripe-event:"
)

// PaymentService defines the interface for application fee payments
type PaymentService interface {
	CreateCheckoutSession(ctx context.Context, actor Actor, req *dto.CreateCheckoutSessionRequest) (*payment.CheckoutSession, error)
	// HandleWebhook applies a signed provider event. duplicate is true when the
	// event was already processed.
	HandleWebhook(ctx context.Context, payload []byte, signature string) (duplicate bool, err error)
	ConfirmFromRedirect(ctx context.Context, actor Actor, applicationID uuid.UUID, sessionID string) (*models.Application, error)
	CancelFromRedirect(ctx context.Context, actor Actor, applicationID uuid.UUID) (*models.Application, error)
}

// PaymentConfig holds cache lifetimes for checkout reuse and webhook de-duplication
type PaymentConfig struct {
	CheckoutTTL time.Duration
	EventTTL    time.Duration
}

type paymentServiceImpl struct {
	gateway      payment.Gateway
	applications ApplicationService
	cache        cache.Store
	config       PaymentConfig
	logger       zerolog.Logger
}

// NewPaymentService creates a new PaymentService
func NewPaymentService(gateway payment.Gateway, applications ApplicationService, store cache.Store, config PaymentConfig, logger zerolog.Logger) PaymentService {
	if store == nil {
		store = cache.NewMemoryStore()
	}
	if config.CheckoutTTL <= 0 {
		config.CheckoutTTL = 30 * time.Minute
	}
	if config.EventTTL <= 0 {
		config.EventTTL = 72 * time.Hour
	}
	return &paymentServiceImpl{
		gateway:      gateway,
		applications: applications,
		cache:        store,
		config:       config,
		logger:       logger,
	}
}

// ParseAmount accepts a JSON number greater than zero
func ParseAmount(v interface{}) (float64, error) {
	var amount float64
	switch n := v.(type) {
	case float64:
		amount = n
	case json.Number:
		f, err := n.Float64()
		if err != nil {
			return 0, apperrors.ErrInvalidAmount
		}
		amount = f
	case int:
		amount = float64(n)
	case int64:
		amount = float64(n)
	default:
		return 0, apperrors.ErrInvalidAmount
	}
	if math.IsNaN(amount) || math.IsInf(amount, 0) || amount <= 0 {
		return 0, apperrors.ErrInvalidAmount
	}
	return amount, nil
}

type cachedCheckout struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// CreateCheckoutSession opens a hosted checkout for the caller's own unpaid
// application. A session created recently for the same application is reused.
func (s *paymentServiceImpl) CreateCheckoutSession(ctx context.Context, actor Actor, req *dto.CreateCheckoutSessionRequest) (*payment.CheckoutSession, error) {
	amount, err := ParseAmount(req.Amount)
	if err != nil {
		return nil, err
	}
	applicationID, err := uuid.Parse(req.ApplicationID)
	if err != nil {
		return nil, apperrors.ErrInvalidIDFormat
	}
	scholarshipID, err := uuid.Parse(req.ScholarshipID)
	if err != nil {
		return nil, apperrors.ErrInvalidIDFormat
	}
	email := strings.ToLower(strings.TrimSpace(req.StudentEmail))

	application, err := s.applications.Authorize(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if !application.IsOwnedBy(email) || !application.IsOwnedBy(actor.Email) {
		return nil, apperrors.NewForbiddenError("application belongs to another student")
	}
	if application.ScholarshipID != scholarshipID {
		return nil, apperrors.NewValidationError("scholarshipId does not match the application")
	}
	if application.PaymentStatus == models.PaymentStatusPaid {
		return nil, apperrors.ErrAlreadyPaid
	}
	if payment.ToMinorUnits(amount) != payment.ToMinorUnits(application.AmountDue()) {
		return nil, apperrors.ErrAmountMismatch
	}

	key := checkoutKeyPrefix + applicationID.String()
	if raw, ok, err := s.cache.Get(ctx, key); err != nil {
		s.logger.Warn().Err(err).Str("applicationID", applicationID.String()).Msg("Checkout cache lookup failed")
	} else if ok {
		var cached cachedCheckout
		if json.Unmarshal([]byte(raw), &cached) == nil && cached.URL != "" {
			metrics.RecordCheckoutSession("reused")
			return &payment.CheckoutSession{ID: cached.ID, URL: cached.URL}, nil
		}
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, payment.CheckoutRequest{
		ApplicationID: applicationID.String(),
		ScholarshipID: scholarshipID.String(),
		StudentEmail:  email,
		Amount:        application.AmountDue(),
	})
	if err != nil {
		metrics.RecordCheckoutSession("failed")
		return nil, err
	}
	metrics.RecordCheckoutSession("created")

	if raw, err := json.Marshal(cachedCheckout{ID: session.ID, URL: session.URL}); err == nil {
		if err := s.cache.Set(ctx, key, string(raw), s.config.CheckoutTTL); err != nil {
			s.logger.Warn().Err(err).Str("applicationID", applicationID.String()).Msg("Failed to cache checkout session")
		}
	}

	s.logger.Info().Str("applicationID", applicationID.String()).Str("sessionID", session.ID).Msg("Checkout session created")
	return session, nil
}

// HandleWebhook verifies and applies a provider event. Each event ID is
// processed at most once within the event TTL.
func (s *paymentServiceImpl) HandleWebhook(ctx context.Context, payload []byte, signature string) (bool, error) {
	event, err := s.gateway.ParseWebhookEvent(payload, signature)
	if err != nil {
		return false, err
	}

	if event.Type != payment.EventCheckoutCompleted && event.Type != payment.EventCheckoutExpired {
		s.logger.Debug().Str("eventID", event.ID).Str("type", event.Type).Msg("Ignoring webhook event")
		return false, nil
	}

	first, err := s.cache.SetNX(ctx, eventKeyPrefix+event.ID, event.Type, s.config.EventTTL)
	if err != nil {
		// The transitions are idempotent, so processing without the marker is safe.
		s.logger.Warn().Err(err).Str("eventID", event.ID).Msg("Webhook de-duplication unavailable")
	} else if !first {
		return true, nil
	}

	if err := s.applyEvent(ctx, event); err != nil {
		// Release the marker so the provider's retry is processed.
		if delErr := s.cache.Delete(ctx, eventKeyPrefix+event.ID); delErr != nil {
			s.logger.Warn().Err(delErr).Str("eventID", event.ID).Msg("Failed to release webhook marker")
		}
		return false, err
	}
	return false, nil
}

func (s *paymentServiceImpl) applyEvent(ctx context.Context, event *payment.WebhookEvent) error {
	if event.Session == nil {
		s.logger.Warn().Str("eventID", event.ID).Msg("Webhook event carries no checkout session")
		return nil
	}
	applicationID, err := uuid.Parse(event.Session.ApplicationID())
	if err != nil {
		s.logger.Warn().Str("eventID", event.ID).Str("sessionID", event.Session.ID).Msg("Webhook session carries no application ID")
		return nil
	}

	switch event.Type {
	case payment.EventCheckoutCompleted:
		if !event.Session.IsPaid() {
			s.logger.Info().Str("eventID", event.ID).Str("paymentStatus", event.Session.PaymentStatus).Msg("Checkout completed without settled payment")
			return nil
		}
		var application *models.Application
		application, err = s.applications.Lookup(ctx, applicationID)
		if err != nil {
			break
		}
		if !event.Session.Covers(application.AmountDue()) {
			s.logger.Warn().
				Str("eventID", event.ID).
				Str("applicationID", applicationID.String()).
				Int64("amountTotal", event.Session.AmountTotal).
				Float64("amountDue", application.AmountDue()).
				Msg("Checkout session does not cover the application fee")
			return nil
		}
		_, err = s.applications.ConfirmPayment(ctx, applicationID, SourceWebhook)
	case payment.EventCheckoutExpired:
		_, err = s.applications.ConfirmPaymentCancelled(ctx, applicationID, SourceWebhook)
	}
	if err != nil {
		if apperrors.Is(err, apperrors.ErrResourceNotFound) {
			s.logger.Warn().Str("eventID", event.ID).Str("applicationID", applicationID.String()).Msg("Webhook references an unknown application")
			return nil
		}
		return err
	}

	_ = s.cache.Delete(ctx, checkoutKeyPrefix+applicationID.String())
	return nil
}

// ConfirmFromRedirect confirms a payment reported by the browser after the
// provider confirms the session server-side.
func (s *paymentServiceImpl) ConfirmFromRedirect(ctx context.Context, actor Actor, applicationID uuid.UUID, sessionID string) (*models.Application, error) {
	if strings.TrimSpace(sessionID) == "" {
		return nil, apperrors.NewValidationError("sessionId is required")
	}
	application, err := s.applications.Authorize(ctx, actor, applicationID)
	if err != nil {
		return nil, err
	}
	if application.PaymentStatus == models.PaymentStatusPaid {
		return application, nil
	}

	session, err := s.gateway.GetCheckoutSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session.ApplicationID() != applicationID.String() {
		return nil, apperrors.NewValidationError("checkout session does not belong to this application")
	}
	if !session.IsPaid() {
		return nil, apperrors.NewValidationError("checkout session is not paid")
	}
	if !session.Covers(application.AmountDue()) {
		s.logger.Warn().
			Str("applicationID", applicationID.String()).
			Int64("amountTotal", session.AmountTotal).
			Float64("amountDue", application.AmountDue()).
			Msg("Checkout session does not cover the application fee")
		return nil, apperrors.ErrAmountMismatch
	}

	application, err = s.applications.ConfirmPayment(ctx, applicationID, SourceRedirect)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, checkoutKeyPrefix+applicationID.String())
	return application, nil
}

// CancelFromRedirect resets the application after the student abandons checkout
func (s *paymentServiceImpl) CancelFromRedirect(ctx context.Context, actor Actor, applicationID uuid.UUID) (*models.Application, error) {
	if _, err := s.applications.Authorize(ctx, actor, applicationID); err != nil {
		return nil, err
	}
	application, err := s.applications.ConfirmPaymentCancelled(ctx, applicationID, SourceRedirect)
	if err != nil {
		return nil, err
	}
	_ = s.cache.Delete(ctx, checkoutKeyPrefix+applicationID.String())
	return application, nil
}
