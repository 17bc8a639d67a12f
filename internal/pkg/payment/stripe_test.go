package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWebhookSecret = "whsec_test_secret"

func sign(payload []byte, secret string, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts.Unix(), payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func TestToMinorUnits(t *testing.T) {
	assert.Equal(t, int64(1999), ToMinorUnits(19.99))
	assert.Equal(t, int64(5000), ToMinorUnits(50))
	assert.Equal(t, int64(1005), ToMinorUnits(10.05))
}

func TestRedirectURLs(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", FrontendURL: "https://app.example.com/"})

	assert.Equal(t,
		"https://app.example.com/payment-success?applicationId=app-1&session_id={CHECKOUT_SESSION_ID}",
		g.SuccessURL("app-1"))
	assert.Equal(t, "https://app.example.com/payment-cancel?applicationId=app-1", g.CancelURL("app-1"))
}

func TestCreateCheckoutSession_SendsExpectedParams(t *testing.T) {
	var form map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.NoError(t, r.ParseForm())
		form = map[string]string{}
		for k := range r.PostForm {
			form[k] = r.PostForm.Get(k)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"cs_test_123","object":"checkout.session","url":"https://checkout.stripe.com/c/pay/cs_test_123","payment_status":"unpaid","metadata":{"applicationId":"app-1"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", FrontendURL: "http://localhost:5173", APIURL: srv.URL})

	session, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{
		ApplicationID: "app-1",
		ScholarshipID: "sch-1",
		StudentEmail:  "student@example.com",
		Amount:        19.99,
	})
	require.NoError(t, err)

	assert.Equal(t, "cs_test_123", session.ID)
	assert.Equal(t, "https://checkout.stripe.com/c/pay/cs_test_123", session.URL)
	assert.Equal(t, "app-1", session.ApplicationID())
	assert.False(t, session.IsPaid())

	assert.Equal(t, "payment", form["mode"])
	assert.Equal(t, "card", form["payment_method_types[0]"])
	assert.Equal(t, "usd", form["line_items[0][price_data][currency]"])
	assert.Equal(t, "Scholarship Application Fee", form["line_items[0][price_data][product_data][name]"])
	assert.Equal(t, "1999", form["line_items[0][price_data][unit_amount]"])
	assert.Equal(t, "1", form["line_items[0][quantity]"])
	assert.Equal(t, "app-1", form["metadata[applicationId]"])
	assert.Equal(t, "sch-1", form["metadata[scholarshipId]"])
	assert.Equal(t, "student@example.com", form["metadata[studentEmail]"])
	assert.Equal(t, "http://localhost:5173/payment-cancel?applicationId=app-1", form["cancel_url"])
}

func TestCreateCheckoutSession_ProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"Invalid API Key provided"}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_bad", APIURL: srv.URL})

	_, err := g.CreateCheckoutSession(context.Background(), CheckoutRequest{ApplicationID: "a", Amount: 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrPaymentGateway)
	assert.Equal(t, "Stripe session failed", apperrors.PublicMessage(err, ""))
}

func TestGetCheckoutSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v1/checkout/sessions/cs_missing" {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","message":"No such checkout.session"}}`))
			return
		}
		_, _ = w.Write([]byte(`{"id":"cs_paid","object":"checkout.session","payment_status":"paid","amount_total":5000,"client_reference_id":"app-9","metadata":{}}`))
	}))
	defer srv.Close()

	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", APIURL: srv.URL})

	session, err := g.GetCheckoutSession(context.Background(), "cs_paid")
	require.NoError(t, err)
	assert.True(t, session.IsPaid())
	assert.Equal(t, "app-9", session.ApplicationID())
	assert.Equal(t, int64(5000), session.AmountTotal)
	assert.True(t, session.Covers(50))
	assert.False(t, session.Covers(50.01))

	_, err = g.GetCheckoutSession(context.Background(), "cs_missing")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestParseWebhookEvent(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})

	payload := []byte(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "payment_status": "paid", "metadata": {"applicationId": "app-1"}}}
	}`)

	event, err := g.ParseWebhookEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "evt_1", event.ID)
	assert.Equal(t, EventCheckoutCompleted, event.Type)
	require.NotNil(t, event.Session)
	assert.True(t, event.Session.IsPaid())
	assert.Equal(t, "app-1", event.Session.ApplicationID())

	_, err = g.ParseWebhookEvent(payload, sign(payload, "whsec_other", time.Now()))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = g.ParseWebhookEvent(payload, "")
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = g.ParseWebhookEvent(payload, sign(payload, testWebhookSecret, time.Now().Add(-time.Hour)))
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed, "stale signatures are rejected")
}

func TestParseWebhookEvent_NonCheckoutEvent(t *testing.T) {
	g := NewStripeGateway(StripeConfig{SecretKey: "sk_test", WebhookSecret: testWebhookSecret})
	payload := []byte(`{"id":"evt_2","object":"event","type":"customer.created","data":{"object":{"id":"cus_1","object":"customer"}}}`)

	event, err := g.ParseWebhookEvent(payload, sign(payload, testWebhookSecret, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, "customer.created", event.Type)
	assert.Nil(t, event.Session)
}
