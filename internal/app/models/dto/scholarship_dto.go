package dto

import (
	"github.com/scholarstream/api/internal/app/models"
)

// CreateScholarshipRequest represents the payload for a new scholarship.
// Dates accept RFC3339 or YYYY-MM-DD.
type CreateScholarshipRequest struct {
	ScholarshipName     string   `json:"scholarshipName" binding:"required"`
	UniversityName      string   `json:"universityName" binding:"required"`
	UniversityImage     string   `json:"universityImage" binding:"required"`
	UniversityCountry   string   `json:"universityCountry" binding:"required"`
	UniversityCity      string   `json:"universityCity" binding:"required"`
	UniversityWorldRank *int     `json:"universityWorldRank,omitempty" binding:"omitempty,min=1"`
	SubjectCategory     string   `json:"subjectCategory" binding:"required"`
	ScholarshipCategory string   `json:"scholarshipCategory" binding:"required"`
	Degree              string   `json:"degree" binding:"required"`
	TuitionFees         *float64 `json:"tuitionFees,omitempty" binding:"omitempty,gte=0"`
	ApplicationFees     *float64 `json:"applicationFees" binding:"required,gte=0"`
	ServiceCharge       *float64 `json:"serviceCharge" binding:"required,gte=0"`
	ApplicationDeadline string   `json:"applicationDeadline" binding:"required"`
	ScholarshipPostDate string   `json:"scholarshipPostDate" binding:"required"`
	UserEmail           string   `json:"userEmail,omitempty" binding:"omitempty,email"`
}

// UpdateScholarshipRequest carries a partial update; absent fields are untouched
type UpdateScholarshipRequest struct {
	ScholarshipName     *string  `json:"scholarshipName,omitempty" binding:"omitempty,min=1"`
	UniversityName      *string  `json:"universityName,omitempty" binding:"omitempty,min=1"`
	UniversityImage     *string  `json:"universityImage,omitempty"`
	UniversityCountry   *string  `json:"universityCountry,omitempty" binding:"omitempty,min=1"`
	UniversityCity      *string  `json:"universityCity,omitempty" binding:"omitempty,min=1"`
	UniversityWorldRank *int     `json:"universityWorldRank,omitempty" binding:"omitempty,min=1"`
	SubjectCategory     *string  `json:"subjectCategory,omitempty" binding:"omitempty,min=1"`
	ScholarshipCategory *string  `json:"scholarshipCategory,omitempty" binding:"omitempty,min=1"`
	Degree              *string  `json:"degree,omitempty" binding:"omitempty,min=1"`
	TuitionFees         *float64 `json:"tuitionFees,omitempty" binding:"omitempty,gte=0"`
	ApplicationFees     *float64 `json:"applicationFees,omitempty" binding:"omitempty,gte=0"`
	ServiceCharge       *float64 `json:"serviceCharge,omitempty" binding:"omitempty,gte=0"`
	ApplicationDeadline *string  `json:"applicationDeadline,omitempty"`
	ScholarshipPostDate *string  `json:"scholarshipPostDate,omitempty"`
}

// ScholarshipFilterRequest represents scholarship listing parameters
type ScholarshipFilterRequest struct {
	Search              string `form:"search"`
	SubjectCategory     string `form:"subjectCategory"`
	ScholarshipCategory string `form:"scholarshipCategory"`
	Degree              string `form:"degree"`
	Country             string `form:"country"`
	SortBy              string `form:"sortBy" binding:"omitempty,oneof=postDate deadline fees"`
	Order               string `form:"order" binding:"omitempty,oneof=asc desc"`
	Page                int    `form:"page,default=1" binding:"min=1"`
	Limit               int    `form:"limit,default=10" binding:"min=1,max=100"`
}

// ToFilter converts the request into a repository filter
func (r ScholarshipFilterRequest) ToFilter() models.ScholarshipFilter {
	return models.ScholarshipFilter{
		Search:              r.Search,
		SubjectCategory:     r.SubjectCategory,
		ScholarshipCategory: r.ScholarshipCategory,
		Degree:              r.Degree,
		Country:             r.Country,
		SortBy:              r.SortBy,
		SortDesc:            r.Order != "asc",
		Page:                r.Page,
		Limit:               r.Limit,
	}
}

// ScholarshipListResponse represents a page of scholarships
type ScholarshipListResponse struct {
	Scholarships []*models.Scholarship `json:"scholarships"`
	Total        int64                 `json:"total"`
	Pagination   PaginationInfo        `json:"pagination"`
}

// CreatedResponse returns the identifier of a new resource
type CreatedResponse struct {
	InsertedID string `json:"insertedId"`
}
