package identity

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/scholarstream/api/internal/pkg/logger"
)

const (
	// DefaultCertsURL publishes the x509 certificates that sign Firebase ID tokens
	DefaultCertsURL   = "https://www.googleapis.com/robot/v1/metadata/x509/securetoken@system.gserviceaccount.com"
	issuerPrefix      = "https://securetoken.google.com/"
	defaultKeysMaxAge = time.Hour
	clockSkew         = 30 * time.Second
	// minForcedRefresh bounds refetches triggered by an unknown kid while the cached set is still valid
	minForcedRefresh = time.Minute
)

// Principal is the verified identity behind a request
type Principal struct {
	UID           string
	Email         string
	Name          string
	EmailVerified bool
}

// Verifier validates an opaque bearer token
type Verifier interface {
	VerifyIDToken(ctx context.Context, token string) (*Principal, error)
}

// FirebaseConfig defines Firebase verification settings
type FirebaseConfig struct {
	ProjectID  string
	CertsURL   string
	Timeout    time.Duration
	HTTPClient *http.Client
	// Now overrides the clock, mainly for tests
	Now func() time.Time
}

type firebaseClaims struct {
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	jwt.RegisteredClaims
}

// FirebaseVerifier verifies Firebase ID tokens against Google's published keys
type FirebaseVerifier struct {
	config FirebaseConfig
	client *http.Client

	mu         sync.RWMutex
	keys       map[string]*rsa.PublicKey
	expiresAt  time.Time
	lastForced time.Time
}

// NewFirebaseVerifier creates a new FirebaseVerifier
func NewFirebaseVerifier(config FirebaseConfig) (*FirebaseVerifier, error) {
	if config.ProjectID == "" {
		return nil, fmt.Errorf("firebase project id is required")
	}
	if config.CertsURL == "" {
		config.CertsURL = DefaultCertsURL
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	if config.Now == nil {
		config.Now = time.Now
	}

	client := config.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: config.Timeout}
	}

	return &FirebaseVerifier{
		config: config,
		client: client,
	}, nil
}

// VerifyIDToken checks signature, audience, issuer and expiry of a Firebase ID
// token. Every failure is reported as apperrors.ErrUnauthenticated.
func (v *FirebaseVerifier) VerifyIDToken(ctx context.Context, tokenString string) (*Principal, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	claims := &firebaseClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		kid, _ := token.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid header")
		}
		return v.publicKey(ctx, kid)
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithAudience(v.config.ProjectID),
		jwt.WithIssuer(issuerPrefix+v.config.ProjectID),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithLeeway(clockSkew),
		jwt.WithTimeFunc(v.config.Now),
	)
	if err != nil {
		logger.Debug().Err(err).Msg("ID token rejected")
		return nil, apperrors.ErrUnauthenticated
	}

	if claims.Subject == "" || claims.Email == "" {
		logger.Debug().Str("sub", claims.Subject).Msg("ID token missing subject or email")
		return nil, apperrors.ErrUnauthenticated
	}

	return &Principal{
		UID:           claims.Subject,
		Email:         strings.ToLower(claims.Email),
		Name:          claims.Name,
		EmailVerified: claims.EmailVerified,
	}, nil
}

// publicKey returns the key for kid, refreshing the cached set when it has
// expired or does not know kid yet.
func (v *FirebaseVerifier) publicKey(ctx context.Context, kid string) (*rsa.PublicKey, error) {
	now := v.config.Now()
	v.mu.RLock()
	key, ok := v.keys[kid]
	fresh := now.Before(v.expiresAt)
	v.mu.RUnlock()

	if ok && fresh {
		return key, nil
	}
	if fresh && !v.claimForcedRefresh(now) {
		return nil, fmt.Errorf("unknown signing key %q", kid)
	}

	if err := v.refreshKeys(ctx); err != nil {
		return nil, err
	}

	v.mu.RLock()
	defer v.mu.RUnlock()
	if key, ok := v.keys[kid]; ok {
		return key, nil
	}
	return nil, fmt.Errorf("unknown signing key %q", kid)
}

// claimForcedRefresh reports whether an unknown kid may trigger a refetch now
func (v *FirebaseVerifier) claimForcedRefresh(now time.Time) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.lastForced.IsZero() && now.Sub(v.lastForced) < minForcedRefresh {
		return false
	}
	v.lastForced = now
	return true
}

func (v *FirebaseVerifier) refreshKeys(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, v.config.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.CertsURL, nil)
	if err != nil {
		return fmt.Errorf("build certs request: %w", err)
	}

	resp, err := v.client.Do(req)
	if err != nil {
		logger.Warn().Err(err).Str("url", v.config.CertsURL).Msg("Failed to fetch signing certificates")
		return fmt.Errorf("fetch certs: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Warn().Int("status", resp.StatusCode).Str("url", v.config.CertsURL).Msg("Unexpected status fetching signing certificates")
		return fmt.Errorf("fetch certs: status %d", resp.StatusCode)
	}

	var certs map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&certs); err != nil {
		return fmt.Errorf("decode certs: %w", err)
	}

	keys := make(map[string]*rsa.PublicKey, len(certs))
	for kid, pemCert := range certs {
		key, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemCert))
		if err != nil {
			logger.Warn().Err(err).Str("kid", kid).Msg("Skipping unparsable signing certificate")
			continue
		}
		keys[kid] = key
	}
	if len(keys) == 0 {
		return errors.New("no usable signing certificates")
	}

	v.mu.Lock()
	v.keys = keys
	v.expiresAt = v.config.Now().Add(maxAge(resp.Header.Get("Cache-Control")))
	v.mu.Unlock()

	return nil
}

// maxAge extracts max-age from a Cache-Control header
func maxAge(cacheControl string) time.Duration {
	for _, directive := range strings.Split(cacheControl, ",") {
		directive = strings.TrimSpace(directive)
		if !strings.HasPrefix(directive, "max-age=") {
			continue
		}
		seconds, err := strconv.Atoi(strings.TrimPrefix(directive, "max-age="))
		if err == nil && seconds > 0 {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultKeysMaxAge
}

// ExtractBearerToken extracts the token from the Authorization header
func ExtractBearerToken(authHeader string) (string, error) {
	const prefix = "bearer "
	if len(authHeader) <= len(prefix) || !strings.EqualFold(authHeader[:len(prefix)], prefix) {
		return "", apperrors.ErrTokenNotFound
	}
	token := strings.TrimSpace(authHeader[len(prefix):])
	if token == "" {
		return "", apperrors.ErrTokenNotFound
	}
	return token, nil
}
