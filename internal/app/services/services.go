package services

import (
	"strings"

	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/auth"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/pkg/cache"
	"github.com/scholarstream/api/internal/pkg/events"
	"github.com/scholarstream/api/internal/pkg/payment"
)

// Actor is the authenticated caller of a service operation
type Actor struct {
	Email string
	Name  string
}

// NewActor normalizes the identity reported by the verifier
func NewActor(email, name string) Actor {
	return Actor{Email: strings.ToLower(strings.TrimSpace(email)), Name: strings.TrimSpace(name)}
}

// Dependencies groups the collaborators the services are built from
type Dependencies struct {
	Repositories *repositories.Repositories
	Gateway      payment.Gateway
	Cache        cache.Store
	Publisher    events.Publisher
	Payment      PaymentConfig
	Logger       zerolog.Logger
}

// Services holds all the service instances
type Services struct {
	Authorization      *auth.AuthorizationService
	UserService        UserService
	ScholarshipService ScholarshipService
	ReviewService      ReviewService
	ApplicationService ApplicationService
	PaymentService     PaymentService
}

// NewServices wires every service over one repository set
func NewServices(deps Dependencies) *Services {
	repos := deps.Repositories
	authz := auth.NewAuthorizationService(repos.UserRepository)

	applications := NewApplicationService(
		repos.ApplicationRepository,
		repos.ScholarshipRepository,
		repos.UserRepository,
		authz,
		deps.Publisher,
		deps.Logger.With().Str("service", "applications").Logger(),
	)

	reviews := NewReviewService(
		repos.ReviewRepository,
		repos.ScholarshipRepository,
		repos.UserRepository,
		authz,
		deps.Logger.With().Str("service", "reviews").Logger(),
	)
	payments := NewPaymentService(
		deps.Gateway,
		applications,
		deps.Cache,
		deps.Payment,
		deps.Logger.With().Str("service", "payments").Logger(),
	)

	return &Services{
		Authorization:      authz,
		UserService:        NewUserService(repos.UserRepository, authz, deps.Logger.With().Str("service", "users").Logger()),
		ScholarshipService: NewScholarshipService(repos.ScholarshipRepository, deps.Logger.With().Str("service", "scholarships").Logger()),
		ReviewService:      reviews,
		ApplicationService: applications,
		PaymentService:     payments,
	}
}
