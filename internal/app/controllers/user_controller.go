package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/models/dto"
	"github.com/scholarstream/api/internal/app/services"
	"github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/helpers"
)

// UserController handles user-related HTTP requests
type UserController struct {
	userService services.UserService
}

// NewUserController creates a new UserController
func NewUserController(userService services.UserService) *UserController {
	return &UserController{
		userService: userService,
	}
}

// Register creates a user on first sign in
// @Summary Register a user
// @Description Idempotent. Returns 201 when the user was inserted and 200 when it already existed.
// @Tags users
// @Accept json
// @Produce json
// @Param request body dto.CreateUserRequest true "User information"
// @Success 201 {object} dto.APIResponse{data=dto.CreateUserResponse}
// @Success 200 {object} dto.APIResponse{data=dto.CreateUserResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Router /users [post]
func (c *UserController) Register(ctx *gin.Context) {
	var req dto.CreateUserRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, created, err := c.userService.Register(ctx.Request.Context(), &req)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	status, message := http.StatusOK, "User already exists"
	if created {
		status, message = http.StatusCreated, "User created"
	}
	respond(ctx, status, dto.CreateUserResponse{User: dto.FromUser(user), Created: created}, message)
}

// ListUsers returns a page of users, optionally filtered by searchText
// @Summary List users
// @Tags users
// @Produce json
// @Security BearerAuth
// @Param searchText query string false "Matches display name or email"
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Page size" default(10)
// @Success 200 {object} dto.APIResponse{data=dto.UserListResponse}
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Router /users [get]
func (c *UserController) ListUsers(ctx *gin.Context) {
	var req dto.UserFilterRequest
	if !middleware.BindQuery(ctx, &req) {
		return
	}

	users, total, err := c.userService.GetUsersByFilter(ctx.Request.Context(), models.UserFilter{
		Search: req.SearchText,
		Page:   req.Page,
		Limit:  req.Limit,
	})
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}

	respond(ctx, http.StatusOK, dto.UserListResponse{
		Users:      dto.FromUsers(users),
		Pagination: helpers.NewPaginationInfo(total, req.Page, req.Limit),
	}, "")
}

// Me returns the caller's own profile
func (c *UserController) Me(ctx *gin.Context) {
	user, err := c.userService.GetByEmail(ctx.Request.Context(), actorFrom(ctx).Email)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.FromUser(user), "")
}

// GetRole returns the role of an email. Unknown emails are Students.
// @Summary Look up a role
// @Tags users
// @Produce json
// @Param email path string true "User email"
// @Success 200 {object} dto.APIResponse{data=dto.RoleResponse}
// @Router /users/{email}/role [get]
func (c *UserController) GetRole(ctx *gin.Context) {
	role, err := c.userService.GetRole(ctx.Request.Context(), ctx.Param("email"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.RoleResponse{Role: role}, "")
}

// UpdateRole changes a user's role
// @Summary Change a user's role
// @Tags users
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param request body dto.UpdateRoleRequest true "New role"
// @Success 200 {object} dto.APIResponse{data=dto.UserResponse}
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{id}/role [patch]
func (c *UserController) UpdateRole(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	var req dto.UpdateRoleRequest
	if !middleware.BindJSON(ctx, &req) {
		return
	}

	user, err := c.userService.UpdateRole(ctx.Request.Context(), id, req.Role)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, dto.FromUser(user), "Role updated")
}

// DeleteUser removes a user
// @Summary Delete a user
// @Tags users
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.APIResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /users/{id} [delete]
func (c *UserController) DeleteUser(ctx *gin.Context) {
	id, valid := parseIDParam(ctx, "id")
	if !valid {
		return
	}
	if err := c.userService.DeleteUser(ctx.Request.Context(), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	respond(ctx, http.StatusOK, nil, "User deleted")
}
