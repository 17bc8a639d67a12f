package payment

import (
	"context"
)

// Provider event types the service reacts to
const (
	EventCheckoutCompleted = "checkout.session.completed"
	EventCheckoutExpired   = "checkout.session.expired"
)

// SessionPaid is the provider's payment_status for a settled session
const SessionPaid = "paid"

// Metadata keys attached to every checkout session
const (
	MetaApplicationID = "applicationId"
	MetaScholarshipID = "scholarshipId"
	MetaStudentEmail  = "studentEmail"
)

// CheckoutRequest describes the fee to collect for one application
type CheckoutRequest struct {
	ApplicationID string
	ScholarshipID string
	StudentEmail  string
	Amount        float64
}

// CheckoutSession is the provider-neutral view of a hosted checkout
type CheckoutSession struct {
	ID            string
	URL           string
	PaymentStatus string
	AmountTotal   int64 // minor currency units
	Metadata      map[string]string
}

// ApplicationID returns the application the session was created for
func (s *CheckoutSession) ApplicationID() string {
	if s == nil {
		return ""
	}
	return s.Metadata[MetaApplicationID]
}

// IsPaid reports whether the provider considers the session settled
func (s *CheckoutSession) IsPaid() bool {
	return s != nil && s.PaymentStatus == SessionPaid
}

// Covers reports whether the session charged at least amount
func (s *CheckoutSession) Covers(amount float64) bool {
	return s != nil && s.AmountTotal >= ToMinorUnits(amount)
}

// WebhookEvent is a verified provider notification
type WebhookEvent struct {
	ID      string
	Type    string
	Session *CheckoutSession
}

// Gateway creates and inspects hosted checkout sessions
type Gateway interface {
	CreateCheckoutSession(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
	GetCheckoutSession(ctx context.Context, sessionID string) (*CheckoutSession, error)
	ParseWebhookEvent(payload []byte, signature string) (*WebhookEvent, error)
}
