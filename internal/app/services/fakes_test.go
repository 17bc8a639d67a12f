package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/scholarstream/api/internal/app/models"
	"github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/app/repositories/memory"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/cache"
	"github.com/scholarstream/api/internal/pkg/events"
	"github.com/scholarstream/api/internal/pkg/payment"
	"github.com/stretchr/testify/require"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.ApplicationEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e events.ApplicationEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGateway struct {
	mu        sync.Mutex
	created   []payment.CheckoutRequest
	sessions  map[string]*payment.CheckoutSession
	events    map[string]*payment.WebhookEvent
	createErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		sessions: make(map[string]*payment.CheckoutSession),
		events:   make(map[string]*payment.WebhookEvent),
	}
}

func (g *fakeGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.createErr != nil {
		return nil, g.createErr
	}
	g.created = append(g.created, req)
	s := &payment.CheckoutSession{
		ID:            "cs_test_" + uuid.NewString(),
		URL:           "https://checkout.example/pay/" + req.ApplicationID,
		PaymentStatus: "unpaid",
		AmountTotal:   payment.ToMinorUnits(req.Amount),
		Metadata:      map[string]string{payment.MetaApplicationID: req.ApplicationID},
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *fakeGateway) GetCheckoutSession(_ context.Context, id string) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, apperrors.NewValidationError("unknown checkout session")
	}
	cp := *s
	return &cp, nil
}

// ParseWebhookEvent treats the payload as an event key and the signature as a shared secret
func (g *fakeGateway) ParseWebhookEvent(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "valid" {
		return nil, apperrors.NewValidationError("invalid webhook signature")
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.events[string(payload)]
	if !ok {
		return nil, apperrors.NewValidationError("invalid webhook payload")
	}
	return e, nil
}

func (g *fakeGateway) markPaid(id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[id].PaymentStatus = payment.SessionPaid
}

type fixture struct {
	repos     *repositories.Repositories
	gateway   *fakeGateway
	publisher *recordingPublisher
	cache     *cache.MemoryStore
	services  *Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		repos:     memory.NewRepositories(),
		gateway:   newFakeGateway(),
		publisher: &recordingPublisher{},
		cache:     cache.NewMemoryStore(),
	}
	f.services = NewServices(Dependencies{
		Repositories: f.repos,
		Gateway:      f.gateway,
		Cache:        f.cache,
		Publisher:    f.publisher,
		Payment:      PaymentConfig{CheckoutTTL: time.Minute, EventTTL: time.Hour},
		Logger:       zerolog.Nop(),
	})
	return f
}

func (f *fixture) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u := &models.User{Email: email, DisplayName: "User " + email, Role: role}
	_, err := f.repos.UserRepository.CreateIfNotExists(context.Background(), u)
	require.NoError(t, err)
	return u
}

func (f *fixture) scholarship(t *testing.T) *models.Scholarship {
	t.Helper()
	s := &models.Scholarship{
		ScholarshipName:     "Global Excellence Award",
		UniversityName:      "University of Toronto",
		UniversityCountry:   "Canada",
		SubjectCategory:     "Engineering",
		ScholarshipCategory: "Full fund",
		Degree:              "Masters",
		ApplicationFees:     50,
		ServiceCharge:       10,
		ApplicationDeadline: time.Now().AddDate(0, 3, 0),
		ScholarshipPostDate: time.Now(),
	}
	require.NoError(t, f.repos.ScholarshipRepository.Create(context.Background(), s))
	return s
}

type failingRoles struct{}

func (failingRoles) ResolveRole(context.Context, string) (models.Role, error) {
	return "", errors.New("store unavailable")
}
