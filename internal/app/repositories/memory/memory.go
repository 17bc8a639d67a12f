// Package memory holds in-process implementations of the repository
// interfaces. They back the "memory" database driver and the service tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/helpers"
)

// NewRepositories builds a full repository set over process memory
func NewRepositories() *repositories.Repositories {
	users := NewUserRepository()
	applications := NewApplicationRepository()
	users.onDelete = applications.detachUser

	return &repositories.Repositories{
		UserRepository:        users,
		ScholarshipRepository: NewScholarshipRepository(),
		ReviewRepository:      NewReviewRepository(),
		ApplicationRepository: applications,
		Pinger:                alwaysUp{},
	}
}

type alwaysUp struct{}

func (alwaysUp) Ping(context.Context) error { return nil }

var now = func() time.Time { return time.Now().UTC() }

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func page[T any](items []T, p, limit int) []T {
	start, end := helpers.CalculateSliceIndices(p, limit, len(items))
	return items[start:end]
}

// UserRepository is a mutex-guarded user table keyed by ID
type UserRepository struct {
	mu      sync.RWMutex
	byID    map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	// onDelete mirrors ON DELETE SET NULL on applications.user_id
	onDelete func(userID uuid.UUID)
}

// NewUserRepository creates an empty UserRepository
func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

// CreateIfNotExists inserts user unless the email is taken, in which case user is filled from the stored record
func (r *UserRepository) CreateIfNotExists(_ context.Context, user *models.User) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	user.Email = normalizeEmail(user.Email)
	if id, ok := r.byEmail[user.Email]; ok {
		*user = *r.byID[id]
		return false, nil
	}

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}
	ts := now()
	user.CreatedAt, user.UpdatedAt = ts, ts
	stored := *user
	r.byID[user.ID] = &stored
	r.byEmail[user.Email] = user.ID
	return true, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	out := *u
	return &out, nil
}

// GetByEmail retrieves a user by email, case-insensitively
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.RLock()
	id, ok := r.byEmail[normalizeEmail(email)]
	r.mu.RUnlock()
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	return r.GetByID(ctx, id)
}

// List returns a page of users, newest first, with the total match count
func (r *UserRepository) List(_ context.Context, filter models.UserFilter) ([]*models.User, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	search := strings.TrimSpace(filter.Search)
	matched := []*models.User{}
	for _, u := range r.byID {
		if search != "" && !containsFold(u.DisplayName, search) && !containsFold(u.Email, search) {
			continue
		}
		out := *u
		matched = append(matched, &out)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return page(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// UpdateRole sets the role of a user
func (r *UserRepository) UpdateRole(_ context.Context, id uuid.UUID, role models.Role) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = now()
	out := *u
	return &out, nil
}

// Delete removes a user and detaches their applications
func (r *UserRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.byID[id]
	if !ok {
		return apperrors.ErrUserNotFound
	}
	delete(r.byEmail, u.Email)
	delete(r.byID, id)
	if r.onDelete != nil {
		r.onDelete(id)
	}
	return nil
}

// ScholarshipRepository is a mutex-guarded scholarship table
type ScholarshipRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Scholarship
}

// NewScholarshipRepository creates an empty ScholarshipRepository
func NewScholarshipRepository() *ScholarshipRepository {
	return &ScholarshipRepository{items: make(map[uuid.UUID]*models.Scholarship)}
}

// Create stores a new scholarship
func (r *ScholarshipRepository) Create(_ context.Context, s *models.Scholarship) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	ts := now()
	s.CreatedAt, s.UpdatedAt = ts, ts
	stored := *s
	r.items[s.ID] = &stored
	return nil
}

// GetByID retrieves a scholarship by ID
func (r *ScholarshipRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Scholarship, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrScholarshipNotFound
	}
	out := *s
	return &out, nil
}

func scholarshipMatches(s *models.Scholarship, f models.ScholarshipFilter) bool {
	if q := strings.TrimSpace(f.Search); q != "" &&
		!containsFold(s.ScholarshipName, q) && !containsFold(s.UniversityName, q) && !containsFold(s.Degree, q) {
		return false
	}
	if f.SubjectCategory != "" && s.SubjectCategory != f.SubjectCategory {
		return false
	}
	if f.ScholarshipCategory != "" && s.ScholarshipCategory != f.ScholarshipCategory {
		return false
	}
	if f.Degree != "" && s.Degree != f.Degree {
		return false
	}
	if f.Country != "" && s.UniversityCountry != f.Country {
		return false
	}
	return true
}

// compareScholarships orders by the requested key, ascending
func compareScholarships(a, b *models.Scholarship, sortBy string) int {
	switch sortBy {
	case models.ScholarshipSortDeadline:
		return a.ApplicationDeadline.Compare(b.ApplicationDeadline)
	case models.ScholarshipSortFees:
		switch {
		case a.ApplicationFees < b.ApplicationFees:
			return -1
		case a.ApplicationFees > b.ApplicationFees:
			return 1
		}
		return 0
	default:
		return a.ScholarshipPostDate.Compare(b.ScholarshipPostDate)
	}
}

// List filters, sorts and pages scholarships
func (r *ScholarshipRepository) List(_ context.Context, filter models.ScholarshipFilter) ([]*models.Scholarship, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.Scholarship{}
	for _, s := range r.items {
		if !scholarshipMatches(s, filter) {
			continue
		}
		out := *s
		matched = append(matched, &out)
	}
	sort.SliceStable(matched, func(i, j int) bool {
		c := compareScholarships(matched[i], matched[j], filter.SortBy)
		if filter.SortDesc {
			c = -c
		}
		if c != 0 {
			return c < 0
		}
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID.String() < matched[j].ID.String()
	})
	return page(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// Update merges the supplied fields into a scholarship
func (r *ScholarshipRepository) Update(_ context.Context, id uuid.UUID, patch models.ScholarshipPatch) (*models.Scholarship, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrScholarshipNotFound
	}
	if !patch.IsEmpty() {
		patch.Apply(s)
		s.UpdatedAt = now()
	}
	out := *s
	return &out, nil
}

// Delete removes a scholarship
func (r *ScholarshipRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.ErrScholarshipNotFound
	}
	delete(r.items, id)
	return nil
}

// ReviewRepository is a mutex-guarded review table
type ReviewRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*models.Review
}

// NewReviewRepository creates an empty ReviewRepository
func NewReviewRepository() *ReviewRepository {
	return &ReviewRepository{items: make(map[uuid.UUID]*models.Review)}
}

// Create stores a new review
func (r *ReviewRepository) Create(_ context.Context, rv *models.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rv.ID == uuid.Nil {
		rv.ID = uuid.New()
	}
	if rv.ReviewDate.IsZero() {
		rv.ReviewDate = now()
	}
	stored := *rv
	r.items[rv.ID] = &stored
	return nil
}

// GetByID retrieves a review by ID
func (r *ReviewRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rv, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrReviewNotFound
	}
	out := *rv
	return &out, nil
}

// List returns reviews matching the filter, newest first
func (r *ReviewRepository) List(_ context.Context, filter models.ReviewFilter) ([]*models.Review, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email := normalizeEmail(filter.UserEmail)
	out := []*models.Review{}
	for _, rv := range r.items {
		if filter.ScholarshipID != nil && rv.ScholarshipID != *filter.ScholarshipID {
			continue
		}
		if email != "" && rv.UserEmail != email {
			continue
		}
		cp := *rv
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].ReviewDate.Equal(out[j].ReviewDate) {
			return out[i].ReviewDate.After(out[j].ReviewDate)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// Delete removes a review
func (r *ReviewRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return apperrors.ErrReviewNotFound
	}
	delete(r.items, id)
	return nil
}

type applicationKey struct {
	scholarshipID uuid.UUID
	email         string
}

// ApplicationRepository is a mutex-guarded application table with a
// (scholarship, student) uniqueness index
type ApplicationRepository struct {
	mu     sync.RWMutex
	items  map[uuid.UUID]*models.Application
	unique map[applicationKey]uuid.UUID
}

// NewApplicationRepository creates an empty ApplicationRepository
func NewApplicationRepository() *ApplicationRepository {
	return &ApplicationRepository{
		items:  make(map[uuid.UUID]*models.Application),
		unique: make(map[applicationKey]uuid.UUID),
	}
}

// Create inserts an application, failing with ErrAlreadyApplied for a taken (scholarship, student) pair
func (r *ApplicationRepository) Create(_ context.Context, a *models.Application) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.StudentEmail = normalizeEmail(a.StudentEmail)
	key := applicationKey{scholarshipID: a.ScholarshipID, email: a.StudentEmail}
	if _, taken := r.unique[key]; taken {
		return apperrors.ErrAlreadyApplied
	}

	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	ts := now()
	if a.ApplicationDate.IsZero() {
		a.ApplicationDate = ts
	}
	a.UpdatedAt = ts
	stored := *a
	r.items[a.ID] = &stored
	r.unique[key] = a.ID
	return nil
}

// GetByID retrieves an application by ID
func (r *ApplicationRepository) GetByID(_ context.Context, id uuid.UUID) (*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	out := *a
	return &out, nil
}

func sortApplications(apps []*models.Application) {
	sort.Slice(apps, func(i, j int) bool {
		if !apps[i].ApplicationDate.Equal(apps[j].ApplicationDate) {
			return apps[i].ApplicationDate.After(apps[j].ApplicationDate)
		}
		return apps[i].ID.String() < apps[j].ID.String()
	})
}

// List returns a page of applications matching the filter
func (r *ApplicationRepository) List(_ context.Context, filter models.ApplicationFilter) ([]*models.Application, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := []*models.Application{}
	for _, a := range r.items {
		if filter.ApplicationStatus != nil && a.ApplicationStatus != *filter.ApplicationStatus {
			continue
		}
		if filter.PaymentStatus != nil && a.PaymentStatus != *filter.PaymentStatus {
			continue
		}
		out := *a
		matched = append(matched, &out)
	}
	sortApplications(matched)
	return page(matched, filter.Page, filter.Limit), int64(len(matched)), nil
}

// ListByStudent returns every application of a student
func (r *ApplicationRepository) ListByStudent(_ context.Context, email string) ([]*models.Application, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	out := []*models.Application{}
	for _, a := range r.items {
		if a.StudentEmail == email {
			cp := *a
			out = append(out, &cp)
		}
	}
	sortApplications(out)
	return out, nil
}

// Exists reports whether the student applied for the scholarship
func (r *ApplicationRepository) Exists(_ context.Context, scholarshipID uuid.UUID, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.unique[applicationKey{scholarshipID: scholarshipID, email: normalizeEmail(email)}]
	return ok, nil
}

// Update applies a status and feedback change
func (r *ApplicationRepository) Update(_ context.Context, id uuid.UUID, update models.ApplicationUpdate) (*models.Application, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, apperrors.ErrApplicationNotFound
	}
	if update.ApplicationStatus != nil {
		a.ApplicationStatus = *update.ApplicationStatus
	}
	if update.PaymentStatus != nil {
		a.PaymentStatus = *update.PaymentStatus
	}
	if update.ApplicationFeedback != nil {
		a.ApplicationFeedback = *update.ApplicationFeedback
	}
	a.UpdatedAt = now()
	out := *a
	return &out, nil
}

func (r *ApplicationRepository) detachUser(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, a := range r.items {
		if a.UserID != nil && *a.UserID == userID {
			a.UserID = nil
			a.UpdatedAt = now()
		}
	}
}

// MarkPaid moves an application to paid and completed
func (r *ApplicationRepository) MarkPaid(_ context.Context, id uuid.UUID) (*models.Application, bool, error) {
	return r.transition(id, models.PaymentStatusPaid, models.ApplicationStatusCompleted)
}

// MarkPaymentCancelled resets an unpaid application to pending
func (r *ApplicationRepository) MarkPaymentCancelled(_ context.Context, id uuid.UUID) (*models.Application, bool, error) {
	return r.transition(id, models.PaymentStatusUnpaid, models.ApplicationStatusPending)
}

// transition applies a payment change unless the application is already paid
func (r *ApplicationRepository) transition(id uuid.UUID, payment models.PaymentStatus, status models.ApplicationStatus) (*models.Application, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, false, apperrors.ErrApplicationNotFound
	}
	if a.PaymentStatus == models.PaymentStatusPaid {
		out := *a
		return &out, false, nil
	}
	a.PaymentStatus = payment
	a.ApplicationStatus = status
	a.UpdatedAt = now()
	out := *a
	return &out, true, nil
}
