package models

import (
	"time"

	"github.com/google/uuid"
)

// Scholarship defines the scholarship model based on the 'scholarships' table
type Scholarship struct {
	ID                  uuid.UUID `json:"id" db:"id"`
	ScholarshipName     string    `json:"scholarshipName" db:"scholarship_name" example:"Global Excellence Award"`
	UniversityName      string    `json:"universityName" db:"university_name" example:"University of Toronto"`
	UniversityImage     string    `json:"universityImage" db:"university_image"`
	UniversityCountry   string    `json:"universityCountry" db:"university_country" example:"Canada"`
	UniversityCity      string    `json:"universityCity" db:"university_city" example:"Toronto"`
	UniversityWorldRank *int      `json:"universityWorldRank,omitempty" db:"university_world_rank" example:"21"`
	SubjectCategory     string    `json:"subjectCategory" db:"subject_category" example:"Engineering"`
	ScholarshipCategory string    `json:"scholarshipCategory" db:"scholarship_category" example:"Full fund"`
	Degree              string    `json:"degree" db:"degree" example:"Masters"`
	TuitionFees         float64   `json:"tuitionFees" db:"tuition_fees"`
	ApplicationFees     float64   `json:"applicationFees" db:"application_fees" example:"50"`
	ServiceCharge       float64   `json:"serviceCharge" db:"service_charge" example:"10"`
	ApplicationDeadline time.Time `json:"applicationDeadline" db:"application_deadline"`
	ScholarshipPostDate time.Time `json:"scholarshipPostDate" db:"scholarship_post_date"`
	OwnerEmail          string    `json:"postedUserEmail" db:"owner_email"`
	CreatedAt           time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt           time.Time `json:"updatedAt" db:"updated_at"`
}

// ScholarshipPatch carries the fields of a partial update. Nil means untouched.
type ScholarshipPatch struct {
	ScholarshipName     *string
	UniversityName      *string
	UniversityImage     *string
	UniversityCountry   *string
	UniversityCity      *string
	UniversityWorldRank *int
	SubjectCategory     *string
	ScholarshipCategory *string
	Degree              *string
	TuitionFees         *float64
	ApplicationFees     *float64
	ServiceCharge       *float64
	ApplicationDeadline *time.Time
	ScholarshipPostDate *time.Time
}

// IsEmpty reports whether the patch changes nothing
func (p ScholarshipPatch) IsEmpty() bool {
	return p == ScholarshipPatch{}
}

// Apply merges the supplied fields into s
func (p ScholarshipPatch) Apply(s *Scholarship) {
	if p.ScholarshipName != nil {
		s.ScholarshipName = *p.ScholarshipName
	}
	if p.UniversityName != nil {
		s.UniversityName = *p.UniversityName
	}
	if p.UniversityImage != nil {
		s.UniversityImage = *p.UniversityImage
	}
	if p.UniversityCountry != nil {
		s.UniversityCountry = *p.UniversityCountry
	}
	if p.UniversityCity != nil {
		s.UniversityCity = *p.UniversityCity
	}
	if p.UniversityWorldRank != nil {
		rank := *p.UniversityWorldRank
		s.UniversityWorldRank = &rank
	}
	if p.SubjectCategory != nil {
		s.SubjectCategory = *p.SubjectCategory
	}
	if p.ScholarshipCategory != nil {
		s.ScholarshipCategory = *p.ScholarshipCategory
	}
	if p.Degree != nil {
		s.Degree = *p.Degree
	}
	if p.TuitionFees != nil {
		s.TuitionFees = *p.TuitionFees
	}
	if p.ApplicationFees != nil {
		s.ApplicationFees = *p.ApplicationFees
	}
	if p.ServiceCharge != nil {
		s.ServiceCharge = *p.ServiceCharge
	}
	if p.ApplicationDeadline != nil {
		s.ApplicationDeadline = *p.ApplicationDeadline
	}
	if p.ScholarshipPostDate != nil {
		s.ScholarshipPostDate = *p.ScholarshipPostDate
	}
}

// Sort keys for scholarship listings
const (
	ScholarshipSortPostDate = "postDate"
	ScholarshipSortDeadline = "deadline"
	ScholarshipSortFees     = "fees"
)

// ScholarshipFilter narrows and orders scholarship listings
type ScholarshipFilter struct {
	Search              string
	SubjectCategory     string
	ScholarshipCategory string
	Degree              string
	Country             string
	SortBy              string
	SortDesc            bool
	Page                int
	Limit               int
}
