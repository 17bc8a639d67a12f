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

// ApplicationUniqueConstraint guards one application per (scholarship, student)
const ApplicationUniqueConstraint = "applications_scholarship_student_key"

var applicationColumns = []string{
	"id", "scholarship_id", "user_id", "student_email", "university_name", "scholarship_category",
	"degree", "application_fees", "service_charge", "application_status", "payment_status",
	"application_feedback", "application_date", "updated_at",
}

// ApplicationRepository handles application database operations
type ApplicationRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewApplicationRepository creates a new ApplicationRepository
func NewApplicationRepository(db *pgxpool.Pool) *ApplicationRepository {
	return &ApplicationRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanApplication(row rowScanner) (*models.Application, error) {
	a := &models.Application{}
	var userID uuid.NullUUID
	err := row.Scan(
		&a.ID, &a.ScholarshipID, &userID, &a.StudentEmail, &a.UniversityName, &a.ScholarshipCategory,
		&a.Degree, &a.ApplicationFees, &a.ServiceCharge, &a.ApplicationStatus, &a.PaymentStatus,
		&a.ApplicationFeedback, &a.ApplicationDate, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		id := userID.UUID
		a.UserID = &id
	}
	return a, nil
}

// Create inserts an application. The unique constraint makes the duplicate
// check atomic across concurrent requests.
func (r *ApplicationRepository) Create(ctx context.Context, a *models.Application) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.StudentEmail = strings.ToLower(strings.TrimSpace(a.StudentEmail))
	now := time.Now().UTC()
	if a.ApplicationDate.IsZero() {
		a.ApplicationDate = now
	}
	a.UpdatedAt = now

	var userID interface{}
	if a.UserID != nil {
		userID = *a.UserID
	}

	query, args, err := r.sb.Insert("applications").
		Columns(applicationColumns...).
		Values(
			a.ID, a.ScholarshipID, userID, a.StudentEmail, a.UniversityName, a.ScholarshipCategory,
			a.Degree, a.ApplicationFees, a.ServiceCharge, string(a.ApplicationStatus), string(a.PaymentStatus),
			a.ApplicationFeedback, a.ApplicationDate, a.UpdatedAt,
		).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create application SQL")
		return fmt.Errorf("failed to build create application query: %w", err)
	}

	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		if dberrors.IsDuplicateConstraintError(err, ApplicationUniqueConstraint) {
			return apperrors.ErrAlreadyApplied
		}
		logger.Error().Err(err).Str("scholarshipID", a.ScholarshipID.String()).Msg("Error executing create application query")
		return fmt.Errorf("error creating application: %w", err)
	}
	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error) {
	query, args, err := r.sb.Select(applicationColumns...).
		From("applications").
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get application SQL")
		return nil, fmt.Errorf("failed to build get application query: %w", err)
	}

	a, err := scanApplication(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrApplicationNotFound
		}
		logger.Error().Err(err).Str("applicationID", id.String()).Msg("Error scanning application row")
		return nil, fmt.Errorf("error getting application: %w", err)
	}
	return a, nil
}

// List returns one page of applications, newest first, with the total count
func (r *ApplicationRepository) List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	where := squirrel.And{}
	if filter.ApplicationStatus != nil {
		where = append(where, squirrel.Eq{"application_status": string(*filter.ApplicationStatus)})
	}
	if filter.PaymentStatus != nil {
		where = append(where, squirrel.Eq{"payment_status": string(*filter.PaymentStatus)})
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("applications").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count applications query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting applications")
		return nil, 0, fmt.Errorf("error counting applications: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
	query, args, err := r.sb.Select(applicationColumns...).
		From("applications").
		Where(where).
		OrderBy("application_date DESC", "id").
		Limit(uint64(limit)).
		Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list applications query: %w", err)
	}

	apps, err := r.query(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return apps, total, nil
}

// ListByStudent returns every application of one student, newest first
func (r *ApplicationRepository) ListByStudent(ctx context.Context, email string) ([]*models.Application, error) {
	query, args, err := r.sb.Select(applicationColumns...).
		From("applications").
		Where(squirrel.Eq{"student_email": strings.ToLower(strings.TrimSpace(email))}).
		OrderBy("application_date DESC", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build list student applications query: %w", err)
	}
	return r.query(ctx, query, args)
}

func (r *ApplicationRepository) query(ctx context.Context, query string, args []interface{}) ([]*models.Application, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list applications query")
		return nil, fmt.Errorf("error querying applications: %w", err)
	}
	defer rows.Close()

	apps := []*models.Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning application row during list")
			return nil, fmt.Errorf("error scanning application row: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating application rows")
		return nil, fmt.Errorf("error iterating application rows: %w", err)
	}
	return apps, nil
}

// Exists reports whether the student already applied to the scholarship
func (r *ApplicationRepository) Exists(ctx context.Context, scholarshipID uuid.UUID, email string) (bool, error) {
	sub := r.sb.Select("1").From("applications").Where(squirrel.Eq{
		"scholarship_id": scholarshipID,
		"student_email":  strings.ToLower(strings.TrimSpace(email)),
	})
	subSQL, args, err := sub.ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build application exists query: %w", err)
	}

	var exists bool
	if err := r.db.QueryRow(ctx, "SELECT EXISTS("+subSQL+")", args...).Scan(&exists); err != nil {
		logger.Error().Err(err).Msg("Error executing application exists query")
		return false, fmt.Errorf("error checking application: %w", err)
	}
	return exists, nil
}

// Update writes the supplied lifecycle fields
func (r *ApplicationRepository) Update(ctx context.Context, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error) {
	set := map[string]interface{}{"updated_at": time.Now().UTC()}
	if update.ApplicationStatus != nil {
		set["application_status"] = string(*update.ApplicationStatus)
	}
	if update.PaymentStatus != nil {
		set["payment_status"] = string(*update.PaymentStatus)
	}
	if update.ApplicationFeedback != nil {
		set["application_feedback"] = *update.ApplicationFeedback
	}
	return r.updateReturning(ctx, set, squirrel.Eq{"id": id})
}

// MarkPaid sets the payment to paid and the application to completed. A row
// that is already paid is left alone and reported unchanged.
func (r *ApplicationRepository) MarkPaid(ctx context.Context, id uuid.UUID) (*models.Application, bool, error) {
	return r.guardedUpdate(ctx, id, map[string]interface{}{
		"payment_status":     string(models.PaymentStatusPaid),
		"application_status": string(models.ApplicationStatusCompleted),
		"updated_at":         time.Now().UTC(),
	}, squirrel.NotEq{"payment_status": string(models.PaymentStatusPaid)})
}

// MarkPaymentCancelled resets an unpaid checkout. Paid applications are never
// downgraded, even when a late cancel redirect races the webhook.
func (r *ApplicationRepository) MarkPaymentCancelled(ctx context.Context, id uuid.UUID) (*models.Application, bool, error) {
	return r.guardedUpdate(ctx, id, map[string]interface{}{
		"payment_status":     string(models.PaymentStatusUnpaid),
		"application_status": string(models.ApplicationStatusPending),
		"updated_at":         time.Now().UTC(),
	}, squirrel.NotEq{"payment_status": string(models.PaymentStatusPaid)})
}

func (r *ApplicationRepository) guardedUpdate(ctx context.Context, id uuid.UUID, set map[string]interface{}, guard squirrel.Sqlizer) (*models.Application, bool, error) {
	a, err := r.updateReturning(ctx, set, squirrel.And{squirrel.Eq{"id": id}, guard})
	if err == nil {
		return a, true, nil
	}
	if err != apperrors.ErrApplicationNotFound {
		return nil, false, err
	}

	// Either the row is missing or the guard rejected it.
	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return current, false, nil
}

func (r *ApplicationRepository) updateReturning(ctx context.Context, set map[string]interface{}, where squirrel.Sqlizer) (*models.Application, error) {
	query, args, err := r.sb.Update("applications").
		SetMap(set).
		Where(where).
		Suffix("RETURNING " + strings.Join(applicationColumns, ", ")).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update application SQL")
		return nil, fmt.Errorf("failed to build update application query: %w", err)
	}

	a, err := scanApplication(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrApplicationNotFound
		}
		logger.Error().Err(err).Msg("Error executing update application query")
		return nil, fmt.Errorf("error updating application: %w", err)
	}
	return a, nil
}
