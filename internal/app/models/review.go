package models

import (
	"time"

	"github.com/google/uuid"
)

// Review defines the review model based on the 'reviews' table
type Review struct {
	ID            uuid.UUID `json:"id" db:"id"`
	ScholarshipID uuid.UUID `json:"scholarshipId" db:"scholarship_id"`
	UserName      string    `json:"userName" db:"user_name"`
	UserEmail     string    `json:"userEmail" db:"user_email"`
	UserImage     *string   `json:"userImage,omitempty" db:"user_image"`
	RatingPoint   int       `json:"ratingPoint" db:"rating_point" example:"5"`
	ReviewComment string    `json:"reviewComment" db:"review_comment"`
	ReviewDate    time.Time `json:"reviewDate" db:"review_date"`
}

// ReviewFilter narrows review listings. Zero values match everything.
type ReviewFilter struct {
	ScholarshipID *uuid.UUID
	UserEmail     string
}
