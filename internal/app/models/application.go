package models

import (
	"time"

	"github.com/google/uuid"
)

// Application defines the application model based on the 'applications' table
type Application struct {
	ID                  uuid.UUID         `json:"id" db:"id"`
	ScholarshipID       uuid.UUID         `json:"scholarshipId" db:"scholarship_id"`
	UserID              *uuid.UUID        `json:"userId,omitempty" db:"user_id"`
	StudentEmail        string            `json:"studentEmail" db:"student_email"`
	UniversityName      string            `json:"universityName" db:"university_name"`
	ScholarshipCategory string            `json:"scholarshipCategory" db:"scholarship_category"`
	Degree              string            `json:"degree" db:"degree"`
	ApplicationFees     float64           `json:"applicationFees" db:"application_fees"`
	ServiceCharge       float64           `json:"serviceCharge" db:"service_charge"`
	ApplicationStatus   ApplicationStatus `json:"applicationStatus" db:"application_status"`
	PaymentStatus       PaymentStatus     `json:"paymentStatus" db:"payment_status"`
	ApplicationFeedback string            `json:"applicationFeedback" db:"application_feedback"`
	ApplicationDate     time.Time         `json:"applicationDate" db:"application_date"`
	UpdatedAt           time.Time         `json:"updatedAt" db:"updated_at"`
}

// IsOwnedBy reports whether email is the applying student
func (a *Application) IsOwnedBy(email string) bool {
	return a != nil && a.StudentEmail == email
}

// AmountDue is the fee a checkout must collect for the application
func (a *Application) AmountDue() float64 {
	return a.ApplicationFees + a.ServiceCharge
}

// ApplicationFilter narrows the moderator listing. Nil values match everything.
type ApplicationFilter struct {
	ApplicationStatus *ApplicationStatus
	PaymentStatus     *PaymentStatus
	Page              int
	Limit             int
}

// ApplicationUpdate is the set of mutable lifecycle fields. Nil means untouched.
type ApplicationUpdate struct {
	ApplicationStatus   *ApplicationStatus
	PaymentStatus       *PaymentStatus
	ApplicationFeedback *string
}
