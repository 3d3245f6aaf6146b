package mw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"appliance-warranty-backend/internal/auth"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestRateLimiter(t *testing.T) {
	r := gin.New()
	r.Use(RateLimiter(1, 2))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	codes := make([]int, 0, 3)
	for range 3 {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)

	// A different client has its own bucket.
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestKeyedRateLimiter_SameBucket(t *testing.T) {
	l := NewKeyedRateLimiter(1, 1)
	assert.Same(t, l.Limiter("a"), l.Limiter("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
}

func TestRequireAuth(t *testing.T) {
	issuer, err := auth.NewIssuer("secret", time.Hour)
	require.NoError(t, err)
	id := uuid.New()
	tok, err := issuer.Issue(id)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", RequireAuth(issuer), func(c *gin.Context) {
		got, ok := UserID(c)
		require.True(t, ok)
		c.String(http.StatusOK, got.String())
	})

	cases := []struct {
		name   string
		header string
		want   int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized},
		{"bad token", "Bearer nope", http.StatusUnauthorized},
		{"valid", "Bearer " + tok.Raw, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			assert.Equal(t, tc.want, w.Code)
			if tc.want == http.StatusOK {
				assert.Equal(t, id.String(), w.Body.String())
			}
		})
	}
}

func TestCache_MemoryStore(t *testing.T) {
	calls := 0
	r := gin.New()
	r.Use(Cache(NewMemoryStore(time.Minute), time.Minute))
	r.GET("/img", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusOK, gin.H{"n": calls})
	})
	r.GET("/fail", func(c *gin.Context) {
		calls++
		c.JSON(http.StatusBadGateway, gin.H{"error": "x"})
	})

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/img?model=a", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"n":1}`, w.Body.String())
	}
	assert.Equal(t, 1, calls)

	for range 2 {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))
		assert.Equal(t, http.StatusBadGateway, w.Code)
	}
	assert.Equal(t, 3, calls)
}

func TestResponseCodec(t *testing.T) {
	in := &CachedResponse{
		Status:  http.StatusOK,
		Headers: http.Header{"Content-Type": {"application/json"}},
		Body:    []byte(`{"ok":true}`),
	}
	bs, err := encodeResponse(in)
	require.NoError(t, err)

	out, ok := decodeResponse(bs)
	require.True(t, ok)
	assert.Equal(t, in.Status, out.Status)
	assert.Equal(t, in.Headers, out.Headers)
	assert.Equal(t, in.Body, out.Body)

	_, ok = decodeResponse([]byte{0, 1})
	assert.False(t, ok)
	_, ok = decodeResponse([]byte{0, 0, 0, 200, 0, 0, 1, 0})
	assert.False(t, ok)
}

func TestMemoryStore_Expiry(t *testing.T) {
	s := NewMemoryStore(time.Minute)
	ctx := context.Background()
	s.Set(ctx, "k", &CachedResponse{Status: 200}, time.Millisecond)
	time.Sleep(5 * time.Millisecond)
	_, ok := s.Get(ctx, "k")
	assert.False(t, ok)
}

func TestLogger(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	r := gin.New()
	r.Use(Logger(zap.New(core)), Recovery(zap.New(core)))
	r.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/panic", func(c *gin.Context) { panic("boom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/ok", nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	assert.Equal(t, 1, logs.FilterMessage("panic recovered").Len())
	entries := logs.FilterMessage("request").All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
}
