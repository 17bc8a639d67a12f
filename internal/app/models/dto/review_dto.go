package dto

// CreateReviewRequest represents a new review. The reviewer is the caller.
type CreateReviewRequest struct {
	ScholarshipID string `json:"scholarshipId" binding:"required,uuid"`
	RatingPoint   int    `json:"ratingPoint" binding:"required,min=1,max=5"`
	ReviewComment string `json:"reviewComment" binding:"required,max=2000"`
}

// ReviewFilterRequest narrows GET /reviews
type ReviewFilterRequest struct {
	ScholarshipID string `form:"scholarshipId" binding:"omitempty,uuid"`
	Email         string `form:"email" binding:"omitempty,email"`
}
