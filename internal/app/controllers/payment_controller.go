package controllers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
)

// maxWebhookBody bounds the provider payload read into memory
const maxWebhookBody = 64 << 10

// PaymentController handles checkout and payment confirmation requests
type PaymentController struct {
	paymentService services.PaymentService
}

// NewPaymentController creates a new PaymentController
func NewPaymentController(paymentService services.PaymentService) *PaymentController {
	return &PaymentController{
		paymentService: paymentService,
	}
}

// CreateCheckoutSession starts a hosted checkout for an application fee
// @Summary Create a checkout session
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateCheckoutSessionRequest true "Checkout request"
// @Success 200 {object} dto.APIResponse{data=dto.CheckoutSessionResponse}
// @Failure 400 {object} dto.ErrorResponse "Invalid amount or amount differs from the application fee"
// @Failure 403 {object} dto.ErrorResponse
// @Failure 409 {object} dto.ErrorResponse "Application already paid"
// @Failure 500 {object} dto.ErrorResponse "Payment provider error"
// @Router /create-checkout-session [post]
func (c *PaymentController) CreateCheckoutSession(ctx *gin.Context) {
	var req dto.CreateCheckoutSessionRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	session, err := c.paymentService.CreateCheckoutSession(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.CheckoutSessionResponse{URL: session.URL, SessionID: session.ID}, "")
}

// UpdatePaymentStatus confirms a payment reported by the frontend after the
// success redirect. The session is verified with the provider first.
// @Summary Confirm a payment
// @Tags payments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.UpdatePaymentStatusRequest true "Application and session"
// @Success 200 {object} dto.APIResponse{data=models.Application}
// @Failure 400 {object} dto.ErrorResponse "Session not paid or not for this application"
// @Router /update-payment-status [patch]
func (c *PaymentController) UpdatePaymentStatus(ctx *gin.Context) {
	var req dto.UpdatePaymentStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}
	c.confirm(ctx, uuid.MustParse(req.ApplicationID), req.SessionID)
}

// PaymentSuccess is the success-redirect variant keyed by path and query
func (c *PaymentController) PaymentSuccess(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	var query dto.PaymentSuccessQuery
	if !middleware.BindQuery(ctx, &query) {
		return
	}
	c.confirm(ctx, id, query.SessionID)
}

func (c *PaymentController) confirm(ctx *gin.Context, applicationID uuid.UUID, sessionID string) {
	app, err := c.paymentService.ConfirmFromRedirect(ctx.Request.Context(), actorFrom(ctx), applicationID, sessionID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "Payment confirmed")
}

// PaymentCancel resets the payment state after the cancel redirect
func (c *PaymentController) PaymentCancel(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}

	app, err := c.paymentService.CancelFromRedirect(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "Payment cancelled")
}

// StripeWebhook receives signed provider events. The raw body is needed for
// signature verification, so it is read before any binding.
// @Summary Stripe webhook
// @Tags payments
// @Accept json
// @Produce json
// @Param Stripe-Signature header string true "Webhook signature"
// @Success 200 {object} dto.WebhookAck
// @Failure 400 {object} dto.ErrorResponse "Invalid signature"
// @Router /webhooks/stripe [post]
func (c *PaymentController) StripeWebhook(ctx *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(ctx.Request.Body, maxWebhookBody))
	if err != nil {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Unreadable request body")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	duplicate, err := c.paymentService.HandleWebhook(ctx.Request.Context(), payload, ctx.GetHeader("Stripe-Signature"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.WebhookAck{Received: true, Duplicate: duplicate})
}
