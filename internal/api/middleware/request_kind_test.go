package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agrimind/agrimind/internal/api/middleware"
)

func TestKind_VisibleToOuterMiddleware(t *testing.T) {
	var seen middleware.RequestKind
	outer := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r)
			seen = middleware.GetRequestKind(r.Context())
		})
	}

	var inner middleware.RequestKind
	handler := middleware.RequestID(outer(
		middleware.Kind(middleware.KindChat)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			inner = middleware.GetRequestKind(r.Context())
			w.WriteHeader(http.StatusOK)
		})),
	))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/chat", http.NoBody))

	assert.Equal(t, middleware.KindChat, inner)
	assert.Equal(t, middleware.KindChat, seen)
}

func TestKind_WithoutRequestID(t *testing.T) {
	var got middleware.RequestKind
	handler := middleware.Kind(middleware.KindOps)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = middleware.GetRequestKind(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody))

	assert.Equal(t, middleware.KindOps, got)
}

func TestGetRequestKind_Untagged(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	assert.Empty(t, middleware.GetRequestKind(req.Context()))
}
