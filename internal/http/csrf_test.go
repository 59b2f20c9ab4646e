package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCSRFProtectedLoginForm(t *testing.T) {
	env := newTestEnv(t)
	protected := CSRFProtection("test-csrf-key", false)(env.router)

	w := httptest.NewRecorder()
	protected.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/login", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `name="csrf_token"`)

	w = httptest.NewRecorder()
	protected.ServeHTTP(w, postForm("/login", url.Values{"username": {"admin"}, "password": {"actionfi"}}))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Zero(t, env.store.Len())
}
