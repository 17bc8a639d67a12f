package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/helpers"
)

// ScholarshipController handles scholarship-related HTTP requests
type ScholarshipController struct {
	scholarshipService services.ScholarshipService
}

// NewScholarshipController creates a new ScholarshipController
func NewScholarshipController(scholarshipService services.ScholarshipService) *ScholarshipController {
	return &ScholarshipController{
		scholarshipService: scholarshipService,
	}
}

// CreateScholarship handles scholarship creation
// @Summary Create a scholarship
// @Tags scholarships
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body dto.CreateScholarshipRequest true "Scholarship information"
// @Success 201 {object} dto.APIResponse{data=dto.CreatedResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /scholarships [post]
func (c *ScholarshipController) CreateScholarship(ctx *gin.Context) {
	var req dto.CreateScholarshipRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	scholarship, err := c.scholarshipService.CreateScholarship(ctx.Request.Context(), actorFrom(ctx).Email, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusCreated, dto.CreatedResponse{InsertedID: scholarship.ID.String()}, "Scholarship created")
}

// GetScholarships lists scholarships
// @Summary List scholarships
// @Description Search matches name, university and degree. Filters are exact.
// @Tags scholarships
// @Produce json
// @Param search query string false "Search text"
// @Param subjectCategory query string false "Subject category"
// @Param scholarshipCategory query string false "Scholarship category"
// @Param degree query string false "Degree"
// @Param country query string false "University country"
// @Param sortBy query string false "postDate, deadline or fees"
// @Param order query string false "asc or desc" default(desc)
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.ScholarshipListResponse}
// @Router /scholarships [get]
func (c *ScholarshipController) GetScholarships(ctx *gin.Context) {
	var req dto.ScholarshipFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	items, total, err := c.scholarshipService.GetScholarships(ctx.Request.Context(), req.ToFilter())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, dto.ScholarshipListResponse{
		Scholarships: items,
		Total:        total,
		Pagination:   helpers.NewPaginationInfo(total, req.Page, req.Limit),
	}, "")
}

// GetScholarship returns one scholarship
func (c *ScholarshipController) GetScholarship(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}

	scholarship, err := c.scholarshipService.GetScholarshipByID(ctx.Request.Context(), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, scholarship, "")
}

// UpdateScholarship merges the supplied fields into a scholarship.
// Served for both PATCH and PUT.
func (c *ScholarshipController) UpdateScholarship(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateScholarshipRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	scholarship, err := c.scholarshipService.UpdateScholarship(ctx.Request.Context(), id, &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, scholarship, "Scholarship updated")
}

// DeleteScholarship removes a scholarship
func (c *ScholarshipController) DeleteScholarship(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	if err := c.scholarshipService.DeleteScholarship(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, nil, "Scholarship deleted")
}
