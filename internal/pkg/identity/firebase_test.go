package identity

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/json"
	"encoding/pem"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/scholarstream/api/internal/pkg/apperrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProject = "scholarstream-test"

type certServer struct {
	*httptest.Server
	key   *rsa.PrivateKey
	kid   string
	hits  atomic.Int32
	fails atomic.Bool
}

func newCertServer(t *testing.T) *certServer {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "securetoken.system.gserviceaccount.com"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(24 * time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	certPEM := string(pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}))

	cs := &certServer{key: key, kid: "key-1"}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		if cs.fails.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Cache-Control", "public, max-age=3600, must-revalidate")
		_ = json.NewEncoder(w).Encode(map[string]string{cs.kid: certPEM})
	}))
	t.Cleanup(cs.Close)
	return cs
}

func (cs *certServer) sign(t *testing.T, claims jwt.MapClaims, kid string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = kid
	signed, err := token.SignedString(cs.key)
	require.NoError(t, err)
	return signed
}

func validClaims() jwt.MapClaims {
	now := time.Now()
	return jwt.MapClaims{
		"iss":            "https://securetoken.google.com/" + testProject,
		"aud":            testProject,
		"sub":            "uid-123",
		"email":          "Student@Example.com",
		"email_verified": true,
		"name":           "Jane",
		"iat":            now.Add(-time.Minute).Unix(),
		"exp":            now.Add(time.Hour).Unix(),
	}
}

func newTestVerifier(t *testing.T, cs *certServer) *FirebaseVerifier {
	t.Helper()
	v, err := NewFirebaseVerifier(FirebaseConfig{ProjectID: testProject, CertsURL: cs.URL, Timeout: time.Second})
	require.NoError(t, err)
	return v
}

func TestFirebaseVerifier_ValidToken(t *testing.T) {
	cs := newCertServer(t)
	v := newTestVerifier(t, cs)

	p, err := v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	require.NoError(t, err)
	assert.Equal(t, "uid-123", p.UID)
	assert.Equal(t, "student@example.com", p.Email)
	assert.Equal(t, "Jane", p.Name)
	assert.True(t, p.EmailVerified)

	_, err = v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	require.NoError(t, err)
	assert.Equal(t, int32(1), cs.hits.Load(), "certificates should be cached")
}

func TestFirebaseVerifier_Rejections(t *testing.T) {
	cs := newCertServer(t)
	v := newTestVerifier(t, cs)

	mutate := func(f func(jwt.MapClaims)) jwt.MapClaims {
		c := validClaims()
		f(c)
		return c
	}

	otherKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	foreign := jwt.NewWithClaims(jwt.SigningMethodRS256, validClaims())
	foreign.Header["kid"] = cs.kid
	foreignSigned, err := foreign.SignedString(otherKey)
	require.NoError(t, err)

	hmacSigned, err := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims()).SignedString([]byte("secret"))
	require.NoError(t, err)

	cases := map[string]string{
		"empty":          "",
		"garbage":        "not-a-jwt",
		"wrong audience": cs.sign(t, mutate(func(c jwt.MapClaims) { c["aud"] = "other-project" }), cs.kid),
		"wrong issuer":   cs.sign(t, mutate(func(c jwt.MapClaims) { c["iss"] = "https://evil.example.com" }), cs.kid),
		"expired":        cs.sign(t, mutate(func(c jwt.MapClaims) { c["exp"] = time.Now().Add(-time.Hour).Unix() }), cs.kid),
		"no expiry":      cs.sign(t, mutate(func(c jwt.MapClaims) { delete(c, "exp") }), cs.kid),
		"no email":       cs.sign(t, mutate(func(c jwt.MapClaims) { delete(c, "email") }), cs.kid),
		"no subject":     cs.sign(t, mutate(func(c jwt.MapClaims) { c["sub"] = "" }), cs.kid),
		"unknown kid":    cs.sign(t, validClaims(), "key-unknown"),
		"bad signature":  foreignSigned,
		"hmac algorithm": hmacSigned,
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			p, err := v.VerifyIDToken(context.Background(), token)
			assert.Nil(t, p)
			assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
		})
	}
}

func TestFirebaseVerifier_CertFetchFailure(t *testing.T) {
	cs := newCertServer(t)
	cs.fails.Store(true)
	v := newTestVerifier(t, cs)

	_, err := v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
}

func TestFirebaseVerifier_RefreshesAfterExpiry(t *testing.T) {
	cs := newCertServer(t)
	now := time.Now()
	v, err := NewFirebaseVerifier(FirebaseConfig{
		ProjectID: testProject,
		CertsURL:  cs.URL,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	require.NoError(t, err)

	now = now.Add(2 * time.Hour)
	claims := validClaims()
	claims["iat"] = now.Add(-time.Minute).Unix()
	claims["exp"] = now.Add(time.Hour).Unix()
	_, err = v.VerifyIDToken(context.Background(), cs.sign(t, claims, cs.kid))
	require.NoError(t, err)
	assert.Equal(t, int32(2), cs.hits.Load())
}

func TestFirebaseVerifier_UnknownKidRefetchIsThrottled(t *testing.T) {
	cs := newCertServer(t)
	now := time.Now()
	v, err := NewFirebaseVerifier(FirebaseConfig{
		ProjectID: testProject,
		CertsURL:  cs.URL,
		Now:       func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	require.NoError(t, err)
	require.Equal(t, int32(1), cs.hits.Load())

	rogue := cs.sign(t, validClaims(), "rogue-kid")
	for i := 0; i < 5; i++ {
		_, err = v.VerifyIDToken(context.Background(), rogue)
		assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	}
	assert.Equal(t, int32(2), cs.hits.Load())

	now = now.Add(2 * minForcedRefresh)
	_, err = v.VerifyIDToken(context.Background(), rogue)
	assert.ErrorIs(t, err, apperrors.ErrUnauthenticated)
	assert.Equal(t, int32(3), cs.hits.Load())

	// the cached set keeps serving known keys without refetching
	_, err = v.VerifyIDToken(context.Background(), cs.sign(t, validClaims(), cs.kid))
	require.NoError(t, err)
	assert.Equal(t, int32(3), cs.hits.Load())
}

func TestNewFirebaseVerifier_RequiresProject(t *testing.T) {
	_, err := NewFirebaseVerifier(FirebaseConfig{})
	assert.Error(t, err)
}

func TestMaxAge(t *testing.T) {
	assert.Equal(t, 19800*time.Second, maxAge("public, max-age=19800, must-revalidate, no-transform"))
	assert.Equal(t, defaultKeysMaxAge, maxAge(""))
	assert.Equal(t, defaultKeysMaxAge, maxAge("max-age=abc"))
}

func TestExtractBearerToken(t *testing.T) {
	token, err := ExtractBearerToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", token)

	token, err = ExtractBearerToken("bearer xyz")
	require.NoError(t, err)
	assert.Equal(t, "xyz", token)

	for _, h := range []string{"", "Bearer", "Bearer   ", "Basic abc", "abc.def"} {
		_, err := ExtractBearerToken(h)
		assert.ErrorIs(t, err, apperrors.ErrTokenNotFound, h)
	}
}
