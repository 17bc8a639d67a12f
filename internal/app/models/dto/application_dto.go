package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models"
)

// CreateApplicationRequest submits an application for a scholarship
type CreateApplicationRequest struct {
	ScholarshipID string `json:"scholarshipId" binding:"required,uuid"`
	StudentEmail  string `json:"studentEmail" binding:"required,email"`
	PaymentStatus string `json:"paymentStatus" binding:"omitempty,oneof=unpaid pending paid"`
}

// UpdateApplicationStatusRequest is sent by moderators
type UpdateApplicationStatusRequest struct {
	Status   string  `json:"status" binding:"required"`
	Feedback *string `json:"feedback,omitempty" binding:"omitempty,max=2000"`
}

// UpdateFeedbackRequest updates only the feedback text
type UpdateFeedbackRequest struct {
	Feedback string `json:"feedback" binding:"max=2000"`
}

// ApplicationFilterRequest represents moderator listing parameters
type ApplicationFilterRequest struct {
	Status        string `form:"status" binding:"omitempty,oneof=pending completed rejected"`
	PaymentStatus string `form:"paymentStatus" binding:"omitempty,oneof=unpaid pending paid"`
	Page          int    `form:"page,default=1" binding:"min=1"`
	Limit         int    `form:"limit,default=20" binding:"min=1,max=100"`
}

// ToFilter converts the request into a repository filter
func (r ApplicationFilterRequest) ToFilter() models.ApplicationFilter {
	filter := models.ApplicationFilter{Page: r.Page, Limit: r.Limit}
	if status, ok := models.ParseApplicationStatus(r.Status); ok {
		filter.ApplicationStatus = &status
	}
	if r.PaymentStatus != "" {
		if ps, ok := models.ParsePaymentStatus(r.PaymentStatus); ok {
			filter.PaymentStatus = &ps
		}
	}
	return filter
}

// CheckApplicationRequest asks whether a student already applied.
// email is accepted as an alias of studentEmail.
type CheckApplicationRequest struct {
	ScholarshipID string `form:"scholarshipId" binding:"required,uuid"`
	StudentEmail  string `form:"studentEmail"`
	Email         string `form:"email"`
}

// ResolvedEmail returns whichever email parameter was supplied
func (r CheckApplicationRequest) ResolvedEmail() string {
	if r.StudentEmail != "" {
		return r.StudentEmail
	}
	return r.Email
}

// CheckApplicationResponse is the answer to CheckApplicationRequest
type CheckApplicationResponse struct {
	Applied bool `json:"applied"`
}

// ApplicationSummary is the projected view used in moderator listings
type ApplicationSummary struct {
	ID                  uuid.UUID                `json:"id"`
	ScholarshipID       uuid.UUID                `json:"scholarshipId"`
	StudentEmail        string                   `json:"studentEmail"`
	UniversityName      string                   `json:"universityName"`
	Degree              string                   `json:"degree"`
	ApplicationStatus   models.ApplicationStatus `json:"applicationStatus"`
	PaymentStatus       models.PaymentStatus     `json:"paymentStatus"`
	ApplicationFeedback string                   `json:"applicationFeedback"`
	ApplicationDate     time.Time                `json:"applicationDate"`
}

// ApplicationListResponse represents a page of projected applications
type ApplicationListResponse struct {
	Applications []ApplicationSummary `json:"applications"`
	Pagination   PaginationInfo       `json:"pagination"`
}

// FromApplicationSummaries projects applications for listings
func FromApplicationSummaries(apps []*models.Application) []ApplicationSummary {
	out := make([]ApplicationSummary, 0, len(apps))
	for _, a := range apps {
		out = append(out, ApplicationSummary{
			ID:                  a.ID,
			ScholarshipID:       a.ScholarshipID,
			StudentEmail:        a.StudentEmail,
			UniversityName:      a.UniversityName,
			Degree:              a.Degree,
			ApplicationStatus:   a.ApplicationStatus,
			PaymentStatus:       a.PaymentStatus,
			ApplicationFeedback: a.ApplicationFeedback,
			ApplicationDate:     a.ApplicationDate,
		})
	}
	return out
}
