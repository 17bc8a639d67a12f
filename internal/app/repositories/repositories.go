package repositories

import (
	"context"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/scholarstream/api/internal/app/models"
)

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	// CreateIfNotExists inserts user unless the email is taken. The stored
	// record is written back into user either way.
	CreateIfNotExists(ctx context.Context, user *models.User) (created bool, err error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, filter models.UserFilter) ([]*models.User, int64, error)
	UpdateRole(ctx context.Context, id uuid.UUID, role models.Role) (*models.User, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IScholarshipRepository defines the interface for scholarship database operations
type IScholarshipRepository interface {
	Create(ctx context.Context, scholarship *models.Scholarship) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Scholarship, error)
	List(ctx context.Context, filter models.ScholarshipFilter) ([]*models.Scholarship, int64, error)
	Update(ctx context.Context, id uuid.UUID, patch models.ScholarshipPatch) (*models.Scholarship, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IReviewRepository defines the interface for review database operations
type IReviewRepository interface {
	Create(ctx context.Context, review *models.Review) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Review, error)
	List(ctx context.Context, filter models.ReviewFilter) ([]*models.Review, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// IApplicationRepository defines the interface for application database operations
type IApplicationRepository interface {
	// Create inserts the application; a second application for the same
	// (scholarship, student) pair fails with apperrors.ErrAlreadyApplied.
	Create(ctx context.Context, application *models.Application) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Application, error)
	List(ctx context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error)
	ListByStudent(ctx context.Context, email string) ([]*models.Application, error)
	Exists(ctx context.Context, scholarshipID uuid.UUID, email string) (bool, error)
	Update(ctx context.Context, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error)
	// MarkPaid sets paid/completed. changed is false when it already was.
	MarkPaid(ctx context.Context, id uuid.UUID) (app *models.Application, changed bool, err error)
	// MarkPaymentCancelled sets unpaid/pending unless the application is paid.
	MarkPaymentCancelled(ctx context.Context, id uuid.UUID) (app *models.Application, changed bool, err error)
}

// Pinger reports store liveness
type Pinger interface {
	Ping(ctx context.Context) error
}

// Repositories holds all the repository instances
type Repositories struct {
	UserRepository        IUserRepository
	ScholarshipRepository IScholarshipRepository
	ReviewRepository      IReviewRepository
	ApplicationRepository IApplicationRepository
	Pinger                Pinger
}

// NewRepositories initializes all Postgres repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		UserRepository:        NewUserRepository(db),
		ScholarshipRepository: NewScholarshipRepository(db),
		ReviewRepository:      NewReviewRepository(db),
		ApplicationRepository: NewApplicationRepository(db),
		Pinger:                db,
	}
}

func statementBuilder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

type rowScanner interface {
	Scan(dest ...any) error
}
