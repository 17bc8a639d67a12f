package dto

// CreateCheckoutSessionRequest starts a hosted checkout for an application fee.
// Amount is validated in the service so a missing or non-numeric value maps
// onto the same "Invalid amount" message.
type CreateCheckoutSessionRequest struct {
	ScholarshipID string      `json:"scholarshipId" binding:"required,uuid"`
	StudentEmail  string      `json:"studentEmail" binding:"required,email"`
	ApplicationID string      `json:"applicationId" binding:"required,uuid"`
	Amount        interface{} `json:"amount"`
}

// CheckoutSessionResponse carries the redirect URL of the hosted checkout
type CheckoutSessionResponse struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// UpdatePaymentStatusRequest is sent by the frontend after a successful redirect
type UpdatePaymentStatusRequest struct {
	ApplicationID string `json:"applicationId" binding:"required,uuid"`
	SessionID     string `json:"sessionId" binding:"required"`
}

// PaymentSuccessQuery carries the session ID appended to the success URL
type PaymentSuccessQuery struct {
	SessionID string `form:"session_id" binding:"required"`
}

// WebhookAck acknowledges a processed provider event
type WebhookAck struct {
	Received  bool `json:"received"`
	Duplicate bool `json:"duplicate,omitempty"`
}
