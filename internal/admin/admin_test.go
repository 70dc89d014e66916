package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drblury/catalogsync/internal/dispatcher"
	"github.com/drblury/catalogsync/internal/reconciler"
	jsoncodec "github.com/drblury/catalogsync/internal/runtime/jsoncodec"
	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

const secret = "test-secret"

type stubResyncer struct {
	result dispatcher.ResyncResult
	err    error
	calls  int
}

func (s *stubResyncer) OnForceResync(context.Context) (dispatcher.ResyncResult, error) {
	s.calls++
	return s.result, s.err
}

type stubCounter struct {
	n   int64
	err error
}

func (c stubCounter) Count(context.Context) (int64, error) { return c.n, c.err }

type stubStats struct{ stats reconciler.Stats }

func (s stubStats) Stats() reconciler.Stats { return s.stats }

func signToken(t *testing.T, method jwt.SigningMethod, key any, roles ...string) string {
	t.Helper()
	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "operator",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func newHandler(t *testing.T, deps Dependencies) *Handler {
	t.Helper()
	h, err := NewHandler(Options{Secret: secret, Role: "ADMIN", Topic: "product-sync"}, deps, loggingpkg.NewCaptureLogger())
	require.NoError(t, err)
	return h
}

func do(h http.Handler, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, jsoncodec.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestNewHandlerRequiresDependencies(t *testing.T) {
	_, err := NewHandler(Options{}, Dependencies{}, loggingpkg.NewCaptureLogger())
	assert.Error(t, err)
	_, err = NewHandler(Options{}, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{}}, nil)
	assert.Error(t, err)
}

func TestForceResyncRequiresToken(t *testing.T) {
	resyncer := &stubResyncer{}
	h := newHandler(t, Dependencies{Resyncer: resyncer, Catalog: stubCounter{}})

	rec := do(h, http.MethodPost, ForceResyncPath, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, ErrMissingToken.Error(), decode(t, rec)["message"])

	rec = do(h, http.MethodPost, ForceResyncPath, "not-a-jwt")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(h, http.MethodPost, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte("other-secret"), "ADMIN"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Zero(t, resyncer.calls)
}

func TestForceResyncRejectsOtherAlgorithms(t *testing.T) {
	h := newHandler(t, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{}})

	token := signToken(t, jwt.SigningMethodHS512, []byte(secret), "ADMIN")
	assert.Equal(t, http.StatusUnauthorized, do(h, http.MethodPost, ForceResyncPath, token).Code)
}

func TestForceResyncRequiresRole(t *testing.T) {
	resyncer := &stubResyncer{}
	h := newHandler(t, Dependencies{Resyncer: resyncer, Catalog: stubCounter{}})

	rec := do(h, http.MethodPost, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "VIEWER"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, resyncer.calls)
}

func TestForceResyncSucceeds(t *testing.T) {
	resyncer := &stubResyncer{result: dispatcher.ResyncResult{Count: 3, Message: "3 records republished"}}
	h := newHandler(t, Dependencies{Resyncer: resyncer, Catalog: stubCounter{}})

	rec := do(h, http.MethodPost, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ROLE_ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	body := decode(t, rec)
	assert.Equal(t, "3 records republished", body["message"])
	assert.Equal(t, 3.0, body["data"].(map[string]any)["count"])
	assert.NotContains(t, body["data"], "failed")
	assert.Equal(t, 1, resyncer.calls)
}

func TestForceResyncReportsRejectedDeliveries(t *testing.T) {
	resyncer := &stubResyncer{result: dispatcher.ResyncResult{Count: 0, Failed: 2, Message: "0 records republished, 2 failed"}}
	h := newHandler(t, Dependencies{Resyncer: resyncer, Catalog: stubCounter{}})

	rec := do(h, http.MethodPost, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, "0 records republished, 2 failed", body["message"])
	data := body["data"].(map[string]any)
	assert.Equal(t, 0.0, data["count"])
	assert.Equal(t, 2.0, data["failed"])
}

func TestForceResyncFailureIsStructured(t *testing.T) {
	resyncer := &stubResyncer{err: &dispatcher.ResyncError{Stage: "fetch", Err: errors.New("connection refused")}}
	h := newHandler(t, Dependencies{Resyncer: resyncer, Catalog: stubCounter{}})

	rec := do(h, http.MethodPost, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "fetch", data["stage"])
	assert.Equal(t, 0.0, data["count"])
	assert.Contains(t, data["error"], "connection refused")
}

func TestForceResyncOnlyAcceptsPost(t *testing.T) {
	h := newHandler(t, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{}})

	rec := do(h, http.MethodGet, ForceResyncPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestStatusReportsCounts(t *testing.T) {
	h := newHandler(t, Dependencies{
		Resyncer:   &stubResyncer{},
		Catalog:    stubCounter{n: 12},
		Replica:    stubCounter{n: 11},
		Reconciler: stubStats{reconciler.Stats{Applied: 20, Skipped: 1, UnknownKind: 2}},
		Handlers:   func() []string { return []string{reconciler.HandlerName} },
	})

	rec := do(h, http.MethodGet, StatusPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]any)
	assert.Equal(t, "product-sync", data["topic"])
	assert.Equal(t, 12.0, data["productCount"])
	assert.Equal(t, 11.0, data["replicaCount"])
	assert.ElementsMatch(t, []any{"clothes", "smartphone", "electronics"}, data["categories"])
	assert.Equal(t, 20.0, data["reconciler"].(map[string]any)["applied"])
	assert.Equal(t, []any{reconciler.HandlerName}, data["handlers"])
}

func TestStatusWithoutReplica(t *testing.T) {
	h := newHandler(t, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{n: 2}})

	rec := do(h, http.MethodGet, StatusPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	require.Equal(t, http.StatusOK, rec.Code)

	data := decode(t, rec)["data"].(map[string]any)
	assert.NotContains(t, data, "replicaCount")
	assert.NotContains(t, data, "reconciler")
}

func TestStatusCountFailure(t *testing.T) {
	h := newHandler(t, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{err: errors.New("db down")}})

	rec := do(h, http.MethodGet, StatusPath, signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestMountRegistersBothRoutes(t *testing.T) {
	h := newHandler(t, Dependencies{Resyncer: &stubResyncer{}, Catalog: stubCounter{}})

	var patterns []string
	h.Mount(8082, func(port int, pattern string, _ http.Handler) {
		assert.Equal(t, 8082, port)
		patterns = append(patterns, pattern)
	})
	assert.Equal(t, []string{ForceResyncPath, StatusPath}, patterns)
}

func TestValidatorWithoutSecretFailsClosed(t *testing.T) {
	v := NewTokenValidator("  ")
	_, err := v.Validate(signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidatorRejectsExpiredToken(t *testing.T) {
	v := NewTokenValidator(secret)
	v.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err := v.Validate(signToken(t, jwt.SigningMethodHS256, []byte(secret), "ADMIN"))
	assert.ErrorIs(t, err, ErrInvalidToken)
}
