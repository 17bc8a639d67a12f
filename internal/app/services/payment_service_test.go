package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseAmount(t *testing.T) {
	valid := []interface{}{50.0, json.Number("12.5"), 3, int64(7)}
	for _, v := range valid {
		amount, err := ParseAmount(v)
		require.NoError(t, err, "%v", v)
		assert.Greater(t, amount, 0.0)
	}

	invalid := []interface{}{nil, 0.0, -1.0, "50", json.Number("abc"), true, map[string]interface{}{}}
	for _, v := range invalid {
		_, err := ParseAmount(v)
		assert.ErrorIs(t, err, apperrors.ErrInvalidAmount, "%v", v)
		assert.Equal(t, "Invalid amount", err.Error())
	}
}

type paymentFixture struct {
	*fixture
	app     *models.Application
	student Actor
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newFixture(t)
	f.user(t, "a@x.com", models.RoleStudent)
	s := f.scholarship(t)
	student := NewActor("a@x.com", "A")
	app, err := f.services.ApplicationService.CreateApplication(context.Background(), student, &dto.CreateApplicationRequest{
		ScholarshipID: s.ID.String(),
		StudentEmail:  "a@x.com",
	})
	require.NoError(t, err)
	return &paymentFixture{fixture: f, app: app, student: student}
}

func (p *paymentFixture) checkoutRequest(amount interface{}) *dto.CreateCheckoutSessionRequest {
	return &dto.CreateCheckoutSessionRequest{
		ScholarshipID: p.app.ScholarshipID.String(),
		StudentEmail:  p.app.StudentEmail,
		ApplicationID: p.app.ID.String(),
		Amount:        amount,
	}
}

func TestCreateCheckoutSession_CreatesAndReuses(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	first, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(50.0))
	require.NoError(t, err)
	assert.NotEmpty(t, first.URL)
	require.Len(t, p.gateway.created, 1)
	assert.Equal(t, 50.0, p.gateway.created[0].Amount)
	assert.Equal(t, p.app.ID.String(), p.gateway.created[0].ApplicationID)
	assert.Equal(t, "a@x.com", p.gateway.created[0].StudentEmail)

	second, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(50.0))
	require.NoError(t, err)
	assert.Equal(t, first.URL, second.URL)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, p.gateway.created, 1)
}

func TestCreateCheckoutSession_Rejections(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	p.user(t, "b@x.com", models.RoleStudent)
	svc := p.services.PaymentService

	_, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest("fifty"))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(0))
	assert.ErrorIs(t, err, apperrors.ErrInvalidAmount)

	_, err = svc.CreateCheckoutSession(ctx, NewActor("b@x.com", ""), p.checkoutRequest(50.0))
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	req := p.checkoutRequest(50.0)
	req.ApplicationID = uuid.NewString()
	_, err = svc.CreateCheckoutSession(ctx, p.student, req)
	assert.ErrorIs(t, err, apperrors.ErrApplicationNotFound)

	req = p.checkoutRequest(50.0)
	req.ScholarshipID = uuid.NewString()
	_, err = svc.CreateCheckoutSession(ctx, p.student, req)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = p.services.ApplicationService.ConfirmPayment(ctx, p.app.ID, SourceWebhook)
	require.NoError(t, err)
	_, err = svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(50.0))
	assert.ErrorIs(t, err, apperrors.ErrAlreadyPaid)

	assert.Empty(t, p.gateway.created)
}

func TestCreateCheckoutSession_AmountMustMatchFee(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	for _, amount := range []interface{}{0.01, 49.99, 60.0, json.Number("50.01")} {
		_, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(amount))
		assert.ErrorIs(t, err, apperrors.ErrAmountMismatch, "%v", amount)
		assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "%v", amount)
	}
	assert.Empty(t, p.gateway.created)

	_, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(json.Number("50.00")))
	require.NoError(t, err)
	require.Len(t, p.gateway.created, 1)
	assert.Equal(t, p.app.AmountDue(), p.gateway.created[0].Amount)
}

func TestCreateCheckoutSession_ProviderFailure(t *testing.T) {
	p := newPaymentFixture(t)
	p.gateway.createErr = apperrors.NewPaymentGatewayError("Stripe session failed", errors.New("card_declined: secret detail"))

	_, err := p.services.PaymentService.CreateCheckoutSession(context.Background(), p.student, p.checkoutRequest(50.0))
	assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	assert.NotContains(t, err.Error(), "secret detail")
}

func (p *paymentFixture) webhook(id, eventType, paymentStatus string, applicationID string) string {
	key := "evt-" + id
	p.gateway.events[key] = &payment.WebhookEvent{
		ID:   id,
		Type: eventType,
		Session: &payment.CheckoutSession{
			ID:            "cs_" + id,
			PaymentStatus: paymentStatus,
			AmountTotal:   5000,
			Metadata:      map[string]string{payment.MetaApplicationID: applicationID},
		},
	}
	return key
}

func TestHandleWebhook_ConfirmsOnceAndDeduplicates(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService
	key := p.webhook("evt_1", payment.EventCheckoutCompleted, payment.SessionPaid, p.app.ID.String())

	dup, err := svc.HandleWebhook(ctx, []byte(key), "valid")
	require.NoError(t, err)
	assert.False(t, dup)

	stored, err := p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, stored.PaymentStatus)
	assert.Equal(t, models.ApplicationStatusCompleted, stored.ApplicationStatus)

	dup, err = svc.HandleWebhook(ctx, []byte(key), "valid")
	require.NoError(t, err)
	assert.True(t, dup)
}

func TestHandleWebhook_Variants(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	_, err := svc.HandleWebhook(ctx, []byte("anything"), "forged")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	unpaid := p.webhook("evt_unpaid", payment.EventCheckoutCompleted, "unpaid", p.app.ID.String())
	_, err = svc.HandleWebhook(ctx, []byte(unpaid), "valid")
	require.NoError(t, err)
	stored, _ := p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)

	unknown := p.webhook("evt_unknown", payment.EventCheckoutCompleted, payment.SessionPaid, uuid.NewString())
	_, err = svc.HandleWebhook(ctx, []byte(unknown), "valid")
	assert.NoError(t, err)

	other := p.webhook("evt_other", "payment_intent.created", "", p.app.ID.String())
	dup, err := svc.HandleWebhook(ctx, []byte(other), "valid")
	require.NoError(t, err)
	assert.False(t, dup)

	expired := p.webhook("evt_expired", payment.EventCheckoutExpired, "unpaid", p.app.ID.String())
	_, err = svc.HandleWebhook(ctx, []byte(expired), "valid")
	require.NoError(t, err)
	stored, _ = p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
	assert.Equal(t, models.ApplicationStatusPending, stored.ApplicationStatus)
}

func TestHandleWebhook_UnderpaidSessionIgnored(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	key := p.webhook("evt_short", payment.EventCheckoutCompleted, payment.SessionPaid, p.app.ID.String())
	p.gateway.events[key].Session.AmountTotal = 1

	dup, err := p.services.PaymentService.HandleWebhook(ctx, []byte(key), "valid")
	require.NoError(t, err)
	assert.False(t, dup)

	stored, err := p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
	assert.Equal(t, models.ApplicationStatusPending, stored.ApplicationStatus)
}

func TestConfirmFromRedirect_RejectsUnderpaidSession(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	session, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(50.0))
	require.NoError(t, err)
	p.gateway.markPaid(session.ID)
	p.gateway.mu.Lock()
	p.gateway.sessions[session.ID].AmountTotal = 1
	p.gateway.mu.Unlock()

	_, err = svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrAmountMismatch)

	stored, err := p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
}

func TestConfirmFromRedirect_VerifiesSession(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	session, err := svc.CreateCheckoutSession(ctx, p.student, p.checkoutRequest(50.0))
	require.NoError(t, err)

	_, err = svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "unpaid session must not confirm")

	_, err = svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, "cs_forged")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	p.gateway.markPaid(session.ID)
	app, err := svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, app.PaymentStatus)
	assert.Equal(t, models.ApplicationStatusCompleted, app.ApplicationStatus)

	app, err = svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, session.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, app.PaymentStatus)

	_, ok, _ := p.cache.Get(ctx, checkoutKeyPrefix+p.app.ID.String())
	assert.False(t, ok)
}

func TestConfirmFromRedirect_SessionOfAnotherApplication(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	svc := p.services.PaymentService

	s2 := p.scholarship(t)
	other, err := p.services.ApplicationService.CreateApplication(ctx, p.student, &dto.CreateApplicationRequest{ScholarshipID: s2.ID.String(), StudentEmail: "a@x.com"})
	require.NoError(t, err)

	req := p.checkoutRequest(50.0)
	req.ApplicationID = other.ID.String()
	req.ScholarshipID = s2.ID.String()
	session, err := svc.CreateCheckoutSession(ctx, p.student, req)
	require.NoError(t, err)
	p.gateway.markPaid(session.ID)

	_, err = svc.ConfirmFromRedirect(ctx, p.student, p.app.ID, session.ID)
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	stored, err := p.repos.ApplicationRepository.GetByID(ctx, p.app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, stored.PaymentStatus)
}

func TestCancelFromRedirect(t *testing.T) {
	ctx := context.Background()
	p := newPaymentFixture(t)
	p.user(t, "b@x.com", models.RoleStudent)
	svc := p.services.PaymentService

	_, err := svc.CancelFromRedirect(ctx, NewActor("b@x.com", ""), p.app.ID)
	assert.ErrorIs(t, err, apperrors.ErrPermissionDenied)

	app, err := svc.CancelFromRedirect(ctx, p.student, p.app.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusUnpaid, app.PaymentStatus)
	assert.Equal(t, models.ApplicationStatusPending, app.ApplicationStatus)
}
