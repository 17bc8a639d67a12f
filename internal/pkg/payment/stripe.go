package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/logger"
	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"github.com/stripe/stripe-go/v76/webhook"
)

// StripeConfig defines Stripe settings
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	ProductName   string
	FrontendURL   string
	Timeout       time.Duration
	// APIURL overrides the Stripe API base URL, used against local fakes
	APIURL string
}

// StripeGateway implements Gateway with Stripe Checkout
type StripeGateway struct {
	config StripeConfig
	api    *client.API
}

// NewStripeGateway creates a new StripeGateway
func NewStripeGateway(config StripeConfig) *StripeGateway {
	if config.Currency == "" {
		config.Currency = string(stripe.CurrencyUSD)
	}
	if config.ProductName == "" {
		config.ProductName = "Scholarship Application Fee"
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	config.FrontendURL = strings.TrimRight(config.FrontendURL, "/")

	backendConfig := &stripe.BackendConfig{
		HTTPClient:        &http.Client{Timeout: config.Timeout},
		MaxNetworkRetries: stripe.Int64(1),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelError},
	}
	if config.APIURL != "" {
		backendConfig.URL = stripe.String(config.APIURL)
		backendConfig.MaxNetworkRetries = stripe.Int64(0)
	}

	api := &client.API{}
	api.Init(config.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendConfig),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendConfig),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendConfig),
	})

	return &StripeGateway{config: config, api: api}
}

// CreateCheckoutSession opens a one-item hosted checkout for an application fee
func (g *StripeGateway) CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
		Mode:               stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(g.config.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(g.config.ProductName),
					},
					UnitAmount: stripe.Int64(ToMinorUnits(req.Amount)),
				},
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL:        stripe.String(g.SuccessURL(req.ApplicationID)),
		CancelURL:         stripe.String(g.CancelURL(req.ApplicationID)),
		ClientReferenceID: stripe.String(req.ApplicationID),
		CustomerEmail:     stripe.String(req.StudentEmail),
	}
	params.Context = ctx
	params.AddMetadata(MetaApplicationID, req.ApplicationID)
	params.AddMetadata(MetaScholarshipID, req.ScholarshipID)
	params.AddMetadata(MetaStudentEmail, req.StudentEmail)

	session, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		logger.Error().Err(err).Str("applicationId", req.ApplicationID).Msg("Stripe checkout session creation failed")
		return nil, apperrors.NewPaymentGatewayError("Stripe session failed", err)
	}

	return fromStripeSession(session), nil
}

// GetCheckoutSession fetches a session so a redirect confirmation can be verified
func (g *StripeGateway) GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error) {
	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	session, err := g.api.CheckoutSessions.Get(sessionID, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == http.StatusNotFound {
			return nil, apperrors.NewValidationError("unknown checkout session")
		}
		logger.Error().Err(err).Str("sessionId", sessionID).Msg("Stripe checkout session lookup failed")
		return nil, apperrors.NewPaymentGatewayError("Stripe session lookup failed", err)
	}

	return fromStripeSession(session), nil
}

// ParseWebhookEvent verifies the Stripe-Signature header and decodes checkout events
func (g *StripeGateway) ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.config.WebhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		logger.Warn().Err(err).Msg("Rejected Stripe webhook")
		return nil, apperrors.NewValidationError("invalid webhook signature")
	}

	out := &WebhookEvent{ID: event.ID, Type: string(event.Type)}
	if strings.HasPrefix(out.Type, "checkout.session.") && event.Data != nil {
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return nil, apperrors.NewValidationError("malformed checkout session payload")
		}
		out.Session = fromStripeSession(&session)
	}
	return out, nil
}

// SuccessURL is where the provider redirects after a successful payment
func (g *StripeGateway) SuccessURL(applicationID string) string {
	return fmt.Sprintf("%s/payment-success?applicationId=%s&session_id={CHECKOUT_SESSION_ID}",
		g.config.FrontendURL, url.QueryEscape(applicationID))
}

// CancelURL is where the provider redirects when the payer abandons checkout
func (g *StripeGateway) CancelURL(applicationID string) string {
	return fmt.Sprintf("%s/payment-cancel?applicationId=%s", g.config.FrontendURL, url.QueryEscape(applicationID))
}

// ToMinorUnits converts a decimal amount into the smallest currency unit
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

func fromStripeSession(s *stripe.CheckoutSession) *CheckoutSession {
	if s == nil {
		return nil
	}
	metadata := make(map[string]string, len(s.Metadata)+1)
	for k, v := range s.Metadata {
		metadata[k] = v
	}
	if metadata[MetaApplicationID] == "" && s.ClientReferenceID != "" {
		metadata[MetaApplicationID] = s.ClientReferenceID
	}
	return &CheckoutSession{
		ID:            s.ID,
		URL:           s.URL,
		PaymentStatus: string(s.PaymentStatus),
		AmountTotal:   s.AmountTotal,
		Metadata:      metadata,
	}
}
