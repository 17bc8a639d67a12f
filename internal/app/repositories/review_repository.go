package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/dberrors"
	"github.com/scholarstream/api/internal/pkg/helpers"
	"github.com/scholarstream/api/internal/pkg/logger"
)

var reviewColumns = []string{"id", "scholarship_id", "user_name", "user_email", "user_image", "rating_point", "review_comment", "review_date"}

// ReviewRepository handles review database operations
type ReviewRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewReviewRepository creates a new ReviewRepository
func NewReviewRepository(db *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanReview(row rowScanner) (*models.Review, error) {
	rv := &models.Review{}
	var image sql.NullString
	if err := row.Scan(&rv.ID, &rv.ScholarshipID, &rv.UserName, &rv.UserEmail, &image, &rv.RatingPoint, &rv.ReviewComment, &rv.ReviewDate); err != nil {
		return nil, err
	}
	rv.UserImage = helpers.NullStringPtr(image)
	return rv, nil
}

// Create inserts a review
func (r *ReviewRepository) Create(ctx context.Context, rv *models.Review) error {
	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	if rv.ReviewDate.IsZero() {
		rv.ReviewDate = time.Now().UTC()
	}

	query, args, err := r.sb.Insert("reviews").
		Columns(reviewColumns...).
		Values(rv.ID, rv.ScholarshipID, rv.UserName, rv.UserEmail, helpers.GetNullString(rv.UserImage), rv.RatingPoint, rv.ReviewComment, rv.ReviewDate).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create review SQL")
		return fmt.Errorf("failed to build create review query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		logger.Error().Err(err).Msg("Error executing create review query")
		return fmt.Errorf("error creating review: %w", err)
	}
	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error) {
	query, args, err := r.sb.Select(reviewColumns...).From("reviews").Where(squirrel.Eq{"id": id}).Limit(1).ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build get review query: %w", err)
	}

	rv, err := scanReview(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrReviewNotFound
		}
		logger.Error().Err(err).Str("reviewID", id.String()).Msg("Error scanning review row")
		return nil, fmt.Errorf("error getting review: %w", err)
	}
	return rv, nil
}

// List returns reviews newest first, optionally narrowed by scholarship or author
func (r *ReviewRepository) List(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	where := squirrel.And{}
	if filter.ScholarshipID != nil {
		where = append(where, squirrel.Eq{"scholarship_id": *filter.ScholarshipID})
	}
	if filter.UserEmail != "" {
		where = append(where, squirrel.Eq{"user_email": strings.ToLower(filter.UserEmail)})
	}

	query, args, err := r.sb.Select(reviewColumns...).From("reviews").Where(where).OrderBy("review_date DESC", "id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list reviews query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list reviews query")
		return nil, fmt.Errorf("error querying reviews: %w", err)
	}
	defer rows.Close()

	reviews := []*models.Review{}
	for rows.Next() {
		rv, err := scanReview(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning review row during list")
			return nil, fmt.Errorf("error scanning review row: %w", err)
		}
		reviews = append(reviews, rv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating review rows: %w", err)
	}
	return reviews, nil
}

// Delete removes a review
func (r *ReviewRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := r.sb.Delete("reviews").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete review query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("reviewID", id.String()).Msg("Error executing delete review query")
		return fmt.Errorf("error deleting review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrReviewNotFound
	}
	return nil
}
