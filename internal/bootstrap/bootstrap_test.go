package bootstrap

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appModels "github.com/scholarstream/api/internal/app/models"
	appRepos "github.com/scholarstream/api/internal/app/repositories"
	"github.com/scholarstream/api/internal/app/repositories/memory"
	appServices "github.com/scholarstream/api/internal/app/services"
	appMiddleware "github.com/scholarstream/api/internal/middleware"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/cache"
	"github.com/scholarstream/api/internal/pkg/events"
	"github.com/scholarstream/api/internal/pkg/identity"
	"github.com/scholarstream/api/internal/pkg/payment"
)

// stubVerifier accepts "token-<email>"
type stubVerifier struct{}

func (stubVerifier) VerifyIDToken(_ context.Context, token string) (*identity.Principal, error) {
	email, ok := strings.CutPrefix(token, "token-")
	if !ok || email == "" {
		return nil, errors.New("invalid token")
	}
	return &identity.Principal{UID: "uid-" + email, Email: email, Name: "Name " + email}, nil
}

// stubGateway settles every session immediately and accepts webhooks signed "ok"
type stubGateway struct {
	mu       sync.Mutex
	sessions map[string]*payment.CheckoutSession
}

func (g *stubGateway) CreateCheckoutSession(_ context.Context, req payment.CheckoutRequest) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s := &payment.CheckoutSession{
		ID:            "cs_" + req.ApplicationID,
		URL:           "https://checkout.example/" + req.ApplicationID,
		PaymentStatus: payment.SessionPaid,
		AmountTotal:   payment.ToMinorUnits(req.Amount),
		Metadata:      map[string]string{payment.MetaApplicationID: req.ApplicationID},
	}
	g.sessions[s.ID] = s
	return s, nil
}

func (g *stubGateway) GetCheckoutSession(_ context.Context, id string) (*payment.CheckoutSession, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.sessions[id]
	if !ok {
		return nil, apperrors.NewValidationError("unknown checkout session")
	}
	return s, nil
}

// ParseWebhookEvent reads the payload as "<eventID>:<applicationID>"
func (g *stubGateway) ParseWebhookEvent(payload []byte, signature string) (*payment.WebhookEvent, error) {
	if signature != "ok" {
		return nil, apperrors.NewValidationError("invalid webhook signature")
	}
	eventID, applicationID, _ := strings.Cut(string(payload), ":")
	return &payment.WebhookEvent{
		ID:   eventID,
		Type: payment.EventCheckoutCompleted,
		Session: &payment.CheckoutSession{
			ID:            "cs_" + applicationID,
			PaymentStatus: payment.SessionPaid,
			AmountTotal:   5000,
			Metadata:      map[string]string{payment.MetaApplicationID: applicationID},
		},
	}, nil
}

type testApp struct {
	repos  *appRepos.Repositories
	engine *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repos := memory.NewRepositories()
	svc := appServices.NewServices(appServices.Dependencies{
		Repositories: repos,
		Gateway:      &stubGateway{sessions: make(map[string]*payment.CheckoutSession)},
		Cache:        cache.NewMemoryStore(),
		Publisher:    events.NoopPublisher{},
		Payment:      appServices.PaymentConfig{CheckoutTTL: time.Minute, EventTTL: time.Hour},
		Logger:       zerolog.Nop(),
	})
	authMiddleware := appMiddleware.NewAuthMiddleware(stubVerifier{}, svc.Authorization)
	engine := NewEngine(NewControllers(svc, repos.Pinger), authMiddleware, nil, nil, zerolog.Nop())

	app := &testApp{repos: repos, engine: engine}
	app.seedUser(t, "admin@example.com", appModels.RoleAdmin)
	app.seedUser(t, "mod@example.com", appModels.RoleModerator)
	return app
}

func (a *testApp) seedUser(t *testing.T, email string, role appModels.Role) {
	t.Helper()
	_, err := a.repos.UserRepository.CreateIfNotExists(context.Background(), &appModels.User{Email: email, DisplayName: email, Role: role})
	require.NoError(t, err)
}

func (a *testApp) do(t *testing.T, method, path, email string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if email != "" {
		req.Header.Set("Authorization", "Bearer token-"+email)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil {
		require.NoError(t, json.Unmarshal(env.Data, data), w.Body.String())
	}
	return env
}

func scholarshipPayload() map[string]interface{} {
	return map[string]interface{}{
		"scholarshipName":     "Global Excellence Award",
		"universityName":      "University of Toronto",
		"universityImage":     "https://img.example/uoft.png",
		"universityCountry":   "Canada",
		"universityCity":      "Toronto",
		"subjectCategory":     "Engineering",
		"scholarshipCategory": "Full fund",
		"degree":              "Masters",
		"applicationFees":     50,
		"serviceCharge":       10,
		"applicationDeadline": time.Now().AddDate(0, 3, 0).Format("2006-01-02"),
		"scholarshipPostDate": time.Now().Format("2006-01-02"),
	}
}

func TestEngine_SystemRoutes(t *testing.T) {
	app := newTestApp(t)

	w := app.do(t, http.MethodGet, "/", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"up"`)

	w = app.do(t, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = app.do(t, http.MethodGet, "/swagger/doc.json", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"/create-checkout-session"`)
	assert.Contains(t, w.Body.String(), "ScholarStream API")
}

func TestEngine_AuthenticationPrecedesAuthorization(t *testing.T) {
	app := newTestApp(t)

	tests := []struct {
		name   string
		method string
		path   string
		email  string
		want   int
	}{
		{"anonymous create scholarship", http.MethodPost, "/scholarships", "", http.StatusUnauthorized},
		{"student create scholarship", http.MethodPost, "/scholarships", "stu@example.com", http.StatusForbidden},
		{"moderator create scholarship", http.MethodPost, "/scholarships", "mod@example.com", http.StatusForbidden},
		{"anonymous list applications", http.MethodGet, "/applications", "", http.StatusUnauthorized},
		{"student list applications", http.MethodGet, "/applications", "stu@example.com", http.StatusForbidden},
		{"moderator list applications", http.MethodGet, "/applications", "mod@example.com", http.StatusOK},
		{"anonymous list users", http.MethodGet, "/users", "", http.StatusUnauthorized},
		{"moderator list users", http.MethodGet, "/users", "mod@example.com", http.StatusForbidden},
		{"admin list users", http.MethodGet, "/users", "admin@example.com", http.StatusOK},
		{"anonymous me", http.MethodGet, "/users/me", "", http.StatusUnauthorized},
		{"public scholarships", http.MethodGet, "/scholarships", "", http.StatusOK},
		{"public role lookup", http.MethodGet, "/users/nobody@example.com/role", "", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := app.do(t, tt.method, tt.path, tt.email, nil)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestEngine_ApplicationLifecycle(t *testing.T) {
	app := newTestApp(t)
	const student = "stu@example.com"

	w := app.do(t, http.MethodPost, "/users", "", map[string]string{"email": student, "displayName": "Stu"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var role struct {
		Role appModels.Role `json:"role"`
	}
	w = app.do(t, http.MethodGet, "/users/"+student+"/role", "", nil)
	decode(t, w, &role)
	assert.Equal(t, appModels.RoleStudent, role.Role)

	w = app.do(t, http.MethodPost, "/scholarships", "admin@example.com", scholarshipPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	decode(t, w, &created)
	scholarshipID := created.InsertedID
	require.NotEmpty(t, scholarshipID)

	w = app.do(t, http.MethodGet, "/applications/check?scholarshipId="+scholarshipID+"&email="+student, "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"applied":false`)

	w = app.do(t, http.MethodPost, "/applications", student, map[string]string{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &created)
	applicationID := created.InsertedID

	w = app.do(t, http.MethodPost, "/applications", student, map[string]string{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(t, http.MethodGet, "/applications/check?scholarshipId="+scholarshipID+"&studentEmail="+student, "", nil)
	assert.Contains(t, w.Body.String(), `"applied":true`)

	// another student can neither read nor pay for it
	w = app.do(t, http.MethodGet, "/applications/"+applicationID, "other@example.com", nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, "/create-checkout-session", student, map[string]interface{}{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
		"applicationId": applicationID,
		"amount":        "abc",
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPost, "/create-checkout-session", student, map[string]interface{}{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
		"applicationId": applicationID,
		"amount":        60,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code, "amount must equal the stored fee")

	w = app.do(t, http.MethodPost, "/create-checkout-session", student, map[string]interface{}{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
		"applicationId": applicationID,
		"amount":        50,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var checkout struct {
		URL       string `json:"url"`
		SessionID string `json:"sessionId"`
	}
	decode(t, w, &checkout)
	assert.NotEmpty(t, checkout.URL)

	w = app.do(t, http.MethodPatch, "/update-payment-status", student, map[string]string{
		"applicationId": applicationID,
		"sessionId":     checkout.SessionID,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var application appModels.Application
	decode(t, w, &application)
	assert.Equal(t, appModels.PaymentStatusPaid, application.PaymentStatus)

	// a late cancel redirect never downgrades a paid application
	w = app.do(t, http.MethodPatch, "/applications/"+applicationID+"/payment-cancel", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &application)
	assert.Equal(t, appModels.PaymentStatusPaid, application.PaymentStatus)

	w = app.do(t, http.MethodPatch, "/applications/"+applicationID, "mod@example.com", map[string]string{"status": "bogus"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodPatch, "/applications/"+applicationID, "mod@example.com", map[string]string{
		"status":   "completed",
		"feedback": "Congratulations",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &application)
	assert.Equal(t, appModels.ApplicationStatusCompleted, application.ApplicationStatus)
	assert.Equal(t, "Congratulations", application.ApplicationFeedback)

	w = app.do(t, http.MethodPatch, "/applications/feedback/"+applicationID, student, map[string]string{"feedback": "self-praise"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	var mine []appModels.Application
	w = app.do(t, http.MethodGet, "/applications/student", student, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &mine)
	require.Len(t, mine, 1)
	assert.Equal(t, applicationID, mine[0].ID.String())
}

func TestEngine_ReviewsAndWebhook(t *testing.T) {
	app := newTestApp(t)
	const student = "stu@example.com"
	app.seedUser(t, student, appModels.RoleStudent)

	w := app.do(t, http.MethodPost, "/scholarships", "admin@example.com", scholarshipPayload())
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created struct {
		InsertedID string `json:"insertedId"`
	}
	decode(t, w, &created)
	scholarshipID := created.InsertedID

	w = app.do(t, http.MethodPost, "/reviews", "", map[string]interface{}{"scholarshipId": scholarshipID, "ratingPoint": 5})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(t, http.MethodPost, "/reviews", student, map[string]interface{}{
		"scholarshipId":  scholarshipID,
		"ratingPoint":    4,
		"reviewComment":  "Smooth process",
		"universityName": "University of Toronto",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = app.do(t, http.MethodGet, "/reviews?scholarshipId="+scholarshipID, "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "Smooth process")

	w = app.do(t, http.MethodPost, "/applications", student, map[string]string{
		"scholarshipId": scholarshipID,
		"studentEmail":  student,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	decode(t, w, &created)
	applicationID := uuid.MustParse(created.InsertedID)

	webhook := func(signature, payload string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", strings.NewReader(payload))
		req.Header.Set("Stripe-Signature", signature)
		rec := httptest.NewRecorder()
		app.engine.ServeHTTP(rec, req)
		return rec
	}

	w = webhook("forged", "evt_1:"+applicationID.String())
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = webhook("ok", "evt_1:"+applicationID.String())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"received":true`)
	assert.NotContains(t, w.Body.String(), `"duplicate"`)

	w = webhook("ok", "evt_1:"+applicationID.String())
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"duplicate":true`)

	stored, err := app.repos.ApplicationRepository.GetByID(context.Background(), applicationID)
	require.NoError(t, err)
	assert.Equal(t, appModels.PaymentStatusPaid, stored.PaymentStatus)
}
