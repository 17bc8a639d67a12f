package repositories

import (
	"context"
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

var scholarshipColumns = []string{
	"id", "scholarship_name", "university_name", "university_image", "university_country",
	"university_city", "university_world_rank", "subject_category", "scholarship_category",
	"degree", "tuition_fees", "application_fees", "service_charge", "application_deadline",
	"scholarship_post_date", "owner_email", "created_at", "updated_at",
}

var scholarshipSortColumns = map[string]string{
	models.ScholarshipSortPostDate: "scholarship_post_date",
	models.ScholarshipSortDeadline: "application_deadline",
	models.ScholarshipSortFees:     "application_fees",
}

// ScholarshipRepository handles scholarship database operations
type ScholarshipRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewScholarshipRepository creates a new ScholarshipRepository
func NewScholarshipRepository(db *pgxpool.Pool) *ScholarshipRepository {
	return &ScholarshipRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanScholarship(row rowScanner) (*models.Scholarship, error) {
	s := &models.Scholarship{}
	err := row.Scan(
		&s.ID, &s.ScholarshipName, &s.UniversityName, &s.UniversityImage, &s.UniversityCountry,
		&s.UniversityCity, &s.UniversityWorldRank, &s.SubjectCategory, &s.ScholarshipCategory,
		&s.Degree, &s.TuitionFees, &s.ApplicationFees, &s.ServiceCharge, &s.ApplicationDeadline,
		&s.ScholarshipPostDate, &s.OwnerEmail, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Create inserts a new scholarship
func (r *ScholarshipRepository) Create(ctx context.Context, s *models.Scholarship) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	now := time.Now().UTC()
	s.CreatedAt, s.UpdatedAt = now, now

	query, args, err := r.sb.Insert("scholarships").
		Columns(scholarshipColumns...).
		Values(
			s.ID, s.ScholarshipName, s.UniversityName, s.UniversityImage, s.UniversityCountry,
			s.UniversityCity, s.UniversityWorldRank, s.SubjectCategory, s.ScholarshipCategory,
			s.Degree, s.TuitionFees, s.ApplicationFees, s.ServiceCharge, s.ApplicationDeadline,
			s.ScholarshipPostDate, s.OwnerEmail, s.CreatedAt, s.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create scholarship SQL")
		return fmt.Errorf("failed to build create scholarship query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		logger.Error().Err(err).Msg("Error executing create scholarship query")
		return fmt.Errorf("error creating scholarship: %w", err)
	}
	return nil
}

// GetByID retrieves a scholarship by ID
func (r *ScholarshipRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Scholarship, error) {
	query, args, err := r.sb.Select(scholarshipColumns...).
		From("scholarships").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get scholarship SQL")
		return nil, fmt.Errorf("failed to build get scholarship query: %w", err)
	}

	s, err := scanScholarship(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrScholarshipNotFound
		}
		logger.Error().Err(err).Str("scholarshipID", id.String()).Msg("Error scanning scholarship row")
		return nil, fmt.Errorf("error getting scholarship: %w", err)
	}
	return s, nil
}

func scholarshipWhere(filter models.ScholarshipFilter) squirrel.And {
	where := squirrel.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := helpers.ContainsPattern(s)
		where = append(where, squirrel.Or{
			squirrel.ILike{"scholarship_name": pattern},
			squirrel.ILike{"university_name": pattern},
			squirrel.ILike{"degree": pattern},
		})
	}
	if filter.SubjectCategory != "" {
		where = append(where, squirrel.Eq{"subject_category": filter.SubjectCategory})
	}
	if filter.ScholarshipCategory != "" {
		where = append(where, squirrel.Eq{"scholarship_category": filter.ScholarshipCategory})
	}
	if filter.Degree != "" {
		where = append(where, squirrel.Eq{"degree": filter.Degree})
	}
	if filter.Country != "" {
		where = append(where, squirrel.Eq{"university_country": filter.Country})
	}
	return where
}

// List returns one page of scholarships matching filter and the total match count
func (r *ScholarshipRepository) List(ctx context.Context, filter models.ScholarshipFilter) ([]*models.Scholarship, int64, error) {
	where := scholarshipWhere(filter)

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("scholarships").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count scholarships query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting scholarships")
		return nil, 0, fmt.Errorf("error counting scholarships: %w", err)
	}

	column, ok := scholarshipSortColumns[filter.SortBy]
	if !ok {
		column = scholarshipSortColumns[models.ScholarshipSortPostDate]
	}
	direction := "ASC"
	if filter.SortDesc {
		direction = "DESC"
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
	query, args, err := r.sb.Select(scholarshipColumns...).
		From("scholarships").
		Where(where).
		OrderBy(column+" "+direction, "created_at DESC", "id").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list scholarships query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list scholarships query")
		return nil, 0, fmt.Errorf("error querying scholarships: %w", err)
	}
	defer rows.Close()

	scholarships := []*models.Scholarship{}
	for rows.Next() {
		s, err := scanScholarship(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning scholarship row during list")
			return nil, 0, fmt.Errorf("error scanning scholarship row: %w", err)
		}
		scholarships = append(scholarships, s)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating scholarship rows")
		return nil, 0, fmt.Errorf("error iterating scholarship rows: %w", err)
	}

	return scholarships, total, nil
}

func patchSetMap(p models.ScholarshipPatch) map[string]interface{} {
	set := map[string]interface{}{}
	if p.ScholarshipName != nil {
		set["scholarship_name"] = *p.ScholarshipName
	}
	if p.UniversityName != nil {
		set["university_name"] = *p.UniversityName
	}
	if p.UniversityImage != nil {
		set["university_image"] = *p.UniversityImage
	}
	if p.UniversityCountry != nil {
		set["university_country"] = *p.UniversityCountry
	}
	if p.UniversityCity != nil {
		set["university_city"] = *p.UniversityCity
	}
	if p.UniversityWorldRank != nil {
		set["university_world_rank"] = *p.UniversityWorldRank
	}
	if p.SubjectCategory != nil {
		set["subject_category"] = *p.SubjectCategory
	}
	if p.ScholarshipCategory != nil {
		set["scholarship_category"] = *p.ScholarshipCategory
	}
	if p.Degree != nil {
		set["degree"] = *p.Degree
	}
	if p.TuitionFees != nil {
		set["tuition_fees"] = *p.TuitionFees
	}
	if p.ApplicationFees != nil {
		set["application_fees"] = *p.ApplicationFees
	}
	if p.ServiceCharge != nil {
		set["service_charge"] = *p.ServiceCharge
	}
	if p.ApplicationDeadline != nil {
		set["application_deadline"] = *p.ApplicationDeadline
	}
	if p.ScholarshipPostDate != nil {
		set["scholarship_post_date"] = *p.ScholarshipPostDate
	}
	return set
}

// Update merges the supplied fields into the stored scholarship
func (r *ScholarshipRepository) Update(ctx context.Context, id uuid.UUID, patch models.ScholarshipPatch) (*models.Scholarship, error) {
	if patch.IsEmpty() {
		return r.GetByID(ctx, id)
	}

	set := patchSetMap(patch)
	set["updated_at"] = time.Now().UTC()

	query, args, err := r.sb.Update("scholarships").
		SetMap(set).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(scholarshipColumns, ", ")).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update scholarship SQL")
		return nil, fmt.Errorf("failed to build update scholarship query: %w", err)
	}

	s, err := scanScholarship(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrScholarshipNotFound
		}
		logger.Error().Err(err).Str("scholarshipID", id.String()).Msg("Error executing update scholarship query")
		return nil, fmt.Errorf("error updating scholarship: %w", err)
	}
	return s, nil
}

// Delete removes a scholarship
func (r *ScholarshipRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := r.sb.Delete("scholarships").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete scholarship SQL")
		return fmt.Errorf("failed to build delete scholarship query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("scholarshipID", id.String()).Msg("Error executing delete scholarship query")
		return fmt.Errorf("error deleting scholarship: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrScholarshipNotFound
	}
	return nil
}
