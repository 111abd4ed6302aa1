package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/chatbees/chatbees-go/pkg/logger"
)

const secret = "test-secret"

func whoami(w http.ResponseWriter, r *http.Request) {
	p, _ := PrincipalFrom(r.Context())
	_, _ = w.Write([]byte(p.TenantID + "/" + p.UserID))
}

func TestAuthAcceptsIssuedToken(t *testing.T) {
	token, err := IssueToken(secret, "acme", "alice", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	Auth(secret)(http.HandlerFunc(whoami)).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "acme/alice", rec.Body.String())
}

func TestAuthRejects(t *testing.T) {
	expired, err := IssueToken(secret, "acme", "alice", -time.Minute)
	require.NoError(t, err)
	wrongKey, err := IssueToken("other", "acme", "alice", time.Hour)
	require.NoError(t, err)
	noTenant, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "alice"},
	}).SignedString([]byte(secret))
	require.NoError(t, err)
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{TenantID: "acme"}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"expired":        "Bearer " + expired,
		"wrong key":      "Bearer " + wrongKey,
		"no tenant":      "Bearer " + noTenant,
		"alg none":       "Bearer " + unsigned,
	}
	for name, header := range tests {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if header != "" {
				req.Header.Set("Authorization", header)
			}
			rec := httptest.NewRecorder()
			Auth(secret)(http.HandlerFunc(whoami)).ServeHTTP(rec, req)
			require.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestRateLimitPerTenant(t *testing.T) {
	limited := RateLimit(2, time.Minute)(http.HandlerFunc(whoami))

	call := func(tenant string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req = req.WithContext(WithPrincipal(req.Context(), Principal{TenantID: tenant}))
		rec := httptest.NewRecorder()
		limited.ServeHTTP(rec, req)
		return rec
	}

	require.Equal(t, http.StatusOK, call("acme").Code)
	require.Equal(t, http.StatusOK, call("acme").Code)
	rec := call("acme")
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))

	require.Equal(t, http.StatusOK, call("globex").Code)
}

func TestLoggingSetsCorrelationID(t *testing.T) {
	var seen string
	r := chi.NewRouter()
	r.Use(Logging(logger.NewNop()))
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		seen = GetCorrelationID(r.Context())
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/1", nil))
	require.NotEmpty(t, seen)
	require.Equal(t, seen, rec.Header().Get(CorrelationHeader))

	req := httptest.NewRequest(http.MethodGet, "/items/2", nil)
	req.Header.Set(CorrelationHeader, "abc")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, "abc", seen)
	require.Equal(t, "abc", rec.Header().Get(CorrelationHeader))
}

func TestRequestLoggerCarriesRequestFields(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	base := &logger.Logger{Logger: zap.New(core)}

	r := chi.NewRouter()
	r.Use(Logging(base), Auth(secret))
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		logger.NewNop().For(r.Context()).Info("handled")
	})

	token, err := IssueToken(secret, "acme", "alice", time.Hour)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set(CorrelationHeader, "abc")
	r.ServeHTTP(httptest.NewRecorder(), req)

	handled := logs.FilterMessage("handled").All()
	require.Len(t, handled, 1)
	fields := handled[0].ContextMap()
	require.Equal(t, "abc", fields["correlation_id"])
	require.Equal(t, "acme", fields["tenant_id"])
	require.Equal(t, "alice", fields["user_id"])
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	SecurityHeaders(http.HandlerFunc(whoami)).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	require.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}

func TestValidation(t *testing.T) {
	require.NoError(t, ValidateQuestion("what is a bee?"))
	require.Error(t, ValidateQuestion(" \n"))
	require.Error(t, ValidateQuestion(string(make([]byte, maxQuestionLength+1))))
	require.Error(t, ValidateQuestion("\xff"))

	require.NoError(t, ValidateSessionID("0190b4a2-7c1e-7d3a-9f3e-5d1b2c3a4e5f"))
	require.Error(t, ValidateSessionID("session-1"))

	require.NoError(t, ValidateName("collection", ""))
	require.NoError(t, ValidateName("collection", "llm_research"))
	require.Error(t, ValidateName("collection", "bad\nname"))

	require.NoError(t, ValidateTopK(0))
	require.Error(t, ValidateTopK(-1))
	require.Error(t, ValidateTopK(101))
}
