package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/helpers"
)

// ApplicationController handles scholarship application requests
type ApplicationController struct {
	applicationService services.ApplicationService
}

// NewApplicationController creates a new ApplicationController
func NewApplicationController(applicationService services.ApplicationService) *ApplicationController {
	return &ApplicationController{
		applicationService: applicationService,
	}
}

// CreateApplication submits an application
// @Summary Apply for a scholarship
// @Description A scholarship accepts one application per student.
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateApplicationRequest true "Application"
// @Success 201 {object} dto.APIResponse{data=dto.CreatedResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse "User or scholarship not found"
// @Failure 409 {object} dto.ErrorResponse "Already applied"
// @Router /applications [post]
func (c *ApplicationController) CreateApplication(ctx *gin.Context) {
	var req dto.CreateApplicationRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.CreateApplication(ctx.Request.Context(), actorFrom(ctx), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, dto.CreatedResponse{InsertedID: app.ID.String()}, "Application submitted")
}

// GetApplications lists all applications for staff
// @Summary List applications
// @Tags applications
// @Produce json
// @Security BearerAuth
// @Param status query string false "pending, completed or rejected"
// @Param paymentStatus query string false "unpaid, pending or paid"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.APIResponse{data=dto.ApplicationListResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /applications [get]
func (c *ApplicationController) GetApplications(ctx *gin.Context) {
	var req dto.ApplicationFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	apps, total, err := c.applicationService.GetApplications(ctx.Request.Context(), req.ToFilter())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.ApplicationListResponse{
		Applications: dto.FromApplicationSummaries(apps),
		Pagination:   helpers.NewPaginationInfo(total, req.Page, req.Limit),
	}, "")
}

// GetMyApplications lists the caller's applications
func (c *ApplicationController) GetMyApplications(ctx *gin.Context) {
	actor := actorFrom(ctx)
	c.listForStudent(ctx, actor, actor.Email)
}

// GetStudentApplications lists one student's applications; self or staff
func (c *ApplicationController) GetStudentApplications(ctx *gin.Context) {
	c.listForStudent(ctx, actorFrom(ctx), ctx.Param("email"))
}

func (c *ApplicationController) listForStudent(ctx *gin.Context, actor services.Actor, email string) {
	apps, err := c.applicationService.GetStudentApplications(ctx.Request.Context(), actor, email)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, apps, "")
}

// CheckApplication reports whether a student already applied
// @Summary Check for an existing application
// @Tags applications
// @Produce json
// @Param scholarshipId query string true "Scholarship ID"
// @Param studentEmail query string false "Student email"
// @Param email query string false "Alias of studentEmail"
// @Success 200 {object} dto.APIResponse{data=dto.CheckApplicationResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /applications/check [get]
func (c *ApplicationController) CheckApplication(ctx *gin.Context) {
	var req dto.CheckApplicationRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}
	email := req.ResolvedEmail()
	if email == "" {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "studentEmail is required").WithField("studentEmail")
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
		return
	}

	applied, err := c.applicationService.HasApplied(ctx.Request.Context(), uuid.MustParse(req.ScholarshipID), email)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.CheckApplicationResponse{Applied: applied}, "")
}

// GetApplication returns one application to its owner or to staff
func (c *ApplicationController) GetApplication(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}

	app, err := c.applicationService.GetApplication(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "")
}

// UpdateStatus sets the review status and optional feedback
// @Summary Update application status
// @Tags applications
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Application ID"
// @Param request body dto.UpdateApplicationStatusRequest true "New status"
// @Success 200 {object} dto.APIResponse{data=models.Application}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /applications/{id} [patch]
func (c *ApplicationController) UpdateStatus(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateApplicationStatusRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.UpdateStatus(ctx.Request.Context(), id, req.Status, req.Feedback)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "Application updated")
}

// UpdateFeedback replaces the feedback text only
func (c *ApplicationController) UpdateFeedback(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateFeedbackRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	app, err := c.applicationService.UpdateFeedback(ctx.Request.Context(), actorFrom(ctx), id, req.Feedback)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "Feedback updated")
}

// CancelApplication marks the caller's application rejected. The record is kept.
func (c *ApplicationController) CancelApplication(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}

	app, err := c.applicationService.CancelApplication(ctx.Request.Context(), actorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, app, "Application cancelled")
}
