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

var userColumns = []string{"id", "email", "display_name", "photo_url", "role", "created_at", "updated_at"}

// UserRepository handles user database operations
type UserRepository struct {
	db *pgxpool.Pool
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		db: db,
		sb: statementBuilder(),
	}
}

func scanUser(row rowScanner) (*models.User, error) {
	u := &models.User{}
	var photo sql.NullString
	if err := row.Scan(&u.ID, &u.Email, &u.DisplayName, &photo, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.PhotoURL = helpers.NullStringPtr(photo)
	return u, nil
}

// CreateIfNotExists inserts the user, or loads the existing record for the same email
func (r *UserRepository) CreateIfNotExists(ctx context.Context, user *models.User) (bool, error) {
	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	now := time.Now().UTC()

	query, args, err := r.sb.Insert("users").
		Columns("id", "email", "display_name", "photo_url", "role", "created_at", "updated_at").
		Values(user.ID, user.Email, user.DisplayName, helpers.GetNullString(user.PhotoURL), string(user.Role), now, now).
		Suffix("ON CONFLICT (email) DO NOTHING RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return false, fmt.Errorf("failed to build create user query: %w", err)
	}

	stored, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err == nil {
		*user = *stored
		return true, nil
	}
	if !dberrors.IsNoRows(err) {
		logger.Error().Err(err).Str("email", user.Email).Msg("Error executing create user query")
		return false, fmt.Errorf("error creating user: %w", err)
	}

	existing, err := r.GetByEmail(ctx, user.Email)
	if err != nil {
		return false, err
	}
	*user = *existing
	return false, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"id": id})
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getOne(ctx, squirrel.Eq{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *UserRepository) getOne(ctx context.Context, where squirrel.Sqlizer) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(where).Limit(1).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, fmt.Errorf("failed to build get user query: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error scanning user row")
		return nil, fmt.Errorf("error getting user: %w", err)
	}
	return u, nil
}

// List returns users matching the search, newest first, with the total count
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error) {
	var where squirrel.Sqlizer = squirrel.And{}
	if s := strings.TrimSpace(filter.Search); s != "" {
		pattern := helpers.ContainsPattern(s)
		where = squirrel.Or{
			squirrel.ILike{"display_name": pattern},
			squirrel.ILike{"email": pattern},
		}
	}

	countSQL, countArgs, err := r.sb.Select("COUNT(*)").From("users").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build count users query: %w", err)
	}
	var total int64
	if err := r.db.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		logger.Error().Err(err).Msg("Error counting users")
		return nil, 0, fmt.Errorf("error counting users: %w", err)
	}

	offset, limit := helpers.CalculateOffsetLimit(filter.Page, filter.Limit)
	query, args, err := r.sb.Select(userColumns...).From("users").Where(where).
		OrderBy("created_at DESC", "id").
		Limit(uint64(limit)).Offset(offset).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to build list users query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Msg("Error executing list users query")
		return nil, 0, fmt.Errorf("error querying users: %w", err)
	}
	defer rows.Close()

	users := []*models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			logger.Error().Err(err).Msg("Error scanning user row during list")
			return nil, 0, fmt.Errorf("error scanning user row: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		logger.Error().Err(err).Msg("Error iterating user rows")
		return nil, 0, fmt.Errorf("error iterating user rows: %w", err)
	}

	return users, total, nil
}

// UpdateRole sets the role of a user
func (r *UserRepository) UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	query, args, err := r.sb.Update("users").
		SetMap(map[string]interface{}{
			"role":       string(role),
			"updated_at": time.Now().UTC(),
		}).
		Where(squirrel.Eq{"id": id}).
		Suffix("RETURNING " + strings.Join(userColumns, ", ")).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building update role SQL")
		return nil, fmt.Errorf("failed to build update role query: %w", err)
	}

	u, err := scanUser(r.db.QueryRow(ctx, query, args...))
	if err != nil {
		if dberrors.IsNoRows(err) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Str("userID", id.String()).Msg("Error executing update role query")
		return nil, fmt.Errorf("error updating user role: %w", err)
	}
	return u, nil
}

// Delete hard-deletes a user. Applications keep the student email; their
// user reference is cleared by the foreign key.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query, args, err := r.sb.Delete("users").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building delete user SQL")
		return fmt.Errorf("failed to build delete user query: %w", err)
	}

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		logger.Error().Err(err).Str("userID", id.String()).Msg("Error executing delete user query")
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrUserNotFound
	}
	return nil
}
