package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
}

func serve(h http.Handler, r *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func TestChain_Order(t *testing.T) {
	var order []string
	mark := func(name string) Middleware {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}

	h := Chain(okHandler(), mark("outer"), mark("inner"))
	serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, []string{"outer", "inner"}, order)
}

func TestSecurityHeaders_ChainedWithRequestID(t *testing.T) {
	h := Chain(okHandler(), SecurityHeaders(), RequestID())

	w := serve(h, httptest.NewRequest(http.MethodGet, "/test", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "default-src 'self'", w.Header().Get("Content-Security-Policy"))
	assert.Contains(t, w.Header().Get("X-Request-ID"), "req-")
}

func TestRequestID_PreservesClientID(t *testing.T) {
	var seen string
	h := RequestID()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.Header.Set("X-Request-ID", "client-42")
	w := serve(h, r)

	assert.Equal(t, "client-42", seen)
	assert.Equal(t, "client-42", w.Header().Get("X-Request-ID"))
	assert.Empty(t, RequestIDFromContext(context.Background()))
}

func TestRecovery(t *testing.T) {
	h := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"success":false,"error":{"code":"INTERNAL","message":"internal server error"}}`, w.Body.String())
}

func TestCORS(t *testing.T) {
	h := CORS([]string{"http://localhost:5173"})(okHandler())

	r := httptest.NewRequest(http.MethodGet, "/suggestions", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w := serve(h, r)
	assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))

	r = httptest.NewRequest(http.MethodOptions, "/upload", nil)
	r.Header.Set("Origin", "http://localhost:5173")
	w = serve(h, r)
	assert.Equal(t, http.StatusNoContent, w.Code)

	r = httptest.NewRequest(http.MethodOptions, "/upload", nil)
	r.Header.Set("Origin", "http://evil.example")
	w = serve(h, r)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))

	// 同源请求不受影响
	w = serve(h, httptest.NewRequest(http.MethodGet, "/suggestions", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRateLimiter(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	h := RateLimiter(ctx, 0.001, 2, zap.NewNop())(okHandler())

	req := func(addr string) int {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = addr
		return serve(h, r).Code
	}

	assert.Equal(t, http.StatusOK, req("10.0.0.1:1000"))
	assert.Equal(t, http.StatusOK, req("10.0.0.1:1001"))
	assert.Equal(t, http.StatusTooManyRequests, req("10.0.0.1:1002"))
	// 其他 IP 拥有独立的令牌桶
	assert.Equal(t, http.StatusOK, req("10.0.0.2:1000"))
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return s
}

func TestJWTAuth(t *testing.T) {
	cfg := JWTConfig{Secret: "s3cret", Issuer: "crossref"}
	var subject string
	h := JWTAuth(cfg, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, _ = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusAccepted)
	}))

	valid := signToken(t, "s3cret", jwt.MapClaims{
		"sub": "analyst-1",
		"iss": "crossref",
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage", "Bearer not-a-token", http.StatusUnauthorized},
		{"wrong secret", "Bearer " + signToken(t, "other", jwt.MapClaims{"iss": "crossref"}), http.StatusUnauthorized},
		{"wrong issuer", "Bearer " + signToken(t, "s3cret", jwt.MapClaims{"iss": "someone"}), http.StatusUnauthorized},
		{"expired", "Bearer " + signToken(t, "s3cret", jwt.MapClaims{
			"iss": "crossref", "exp": time.Now().Add(-time.Minute).Unix(),
		}), http.StatusUnauthorized},
		{"valid", "Bearer " + valid, http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/upload", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, serve(h, r).Code)
		})
	}
	assert.Equal(t, "analyst-1", subject)
}

func TestNormalizePath(t *testing.T) {
	tests := []struct{ in, want string }{
		{"/semantic-search", "/semantic-search"},
		{"/upload-status/0b6f2c1e-8d4a-4f1b-9c3e-2a7d5e6f8a9b", "/upload-status/:id"},
		{"/upload-status/12345", "/upload-status/:id"},
		{"/suggestions", "/suggestions"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, normalizePath(tt.in))
	}
}

func TestMetrics_RecordsWithNilCollector(t *testing.T) {
	h := Metrics(nil)(okHandler())
	w := serve(h, httptest.NewRequest(http.MethodGet, "/upload-status/12345", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestOTelTracing_PassesThrough(t *testing.T) {
	h := OTelTracing()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	w := serve(h, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, w.Code)
}
