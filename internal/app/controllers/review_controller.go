package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
)

// ReviewController handles review-related HTTP requests
type ReviewController struct {
	reviewService services.ReviewService
}

// NewReviewController creates a new ReviewController
func NewReviewController(reviewService services.ReviewService) *ReviewController {
	return &ReviewController{
		reviewService: reviewService,
	}
}

// CreateReview stores a review by the caller
// @Summary Review a scholarship
// @Tags reviews
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateReviewRequest true "Review"
// @Success 201 {object} dto.APIResponse{data=models.Review}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "Scholarship not found"
// @Router /reviews [post]
func (c *ReviewController) CreateReview(ctx *gin.Context) {
	var req dto.CreateReviewRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	review, err := c.reviewService.CreateReview(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, review, "Review created")
}

// GetReviews lists reviews, optionally for one scholarship or one reviewer
// @Summary List reviews
// @Tags reviews
// @Produce json
// @Param scholarshipId query string false "Scholarship ID"
// @Param email query string false "Reviewer email"
// @Success 200 {object} dto.APIResponse{data=[]models.Review}
// @Router /reviews [get]
func (c *ReviewController) GetReviews(ctx *gin.Context) {
	var req dto.ReviewFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	filter := models.ReviewFilter{UserEmail: strings.ToLower(req.Email)}
	if req.ScholarshipID != "" {
		id := uuid.MustParse(req.ScholarshipID)
		filter.ScholarshipID = &id
	}

	reviews, err := c.reviewService.GetReviews(ctx.Request.Context(), filter)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, reviews, "")
}

// DeleteReview removes a review owned by the caller, or any review for staff
func (c *ReviewController) DeleteReview(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	if err := c.reviewService.DeleteReview(ctx.Request.Context(), actorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, nil, "Review deleted")
}
