package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, sub string, expires time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Sub: sub,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func doAuthed(t *testing.T, header string) (*httptest.ResponseRecorder, uuid.UUID) {
	t.Helper()
	var gotOwner uuid.UUID
	handler := NewJWTMiddleware(testSecret).Authenticate(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotOwner = OwnerFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/documents", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec, gotOwner
}

func TestAuthenticate_ValidToken(t *testing.T) {
	userID := uuid.New()
	token := signToken(t, userID.String(), time.Now().Add(time.Hour))

	rec, owner := doAuthed(t, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, userID, owner)
}

func TestAuthenticate_MissingToken(t *testing.T) {
	rec, _ := doAuthed(t, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "missing authorization token")
}

func TestAuthenticate_WrongSecret(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{Sub: uuid.New().String()})
	signed, err := token.SignedString([]byte("other-secret"))
	require.NoError(t, err)

	rec, _ := doAuthed(t, "Bearer "+signed)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_ExpiredToken(t *testing.T) {
	token := signToken(t, uuid.New().String(), time.Now().Add(-time.Hour))

	rec, _ := doAuthed(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthenticate_NonUUIDSubject(t *testing.T) {
	token := signToken(t, "not-a-uuid", time.Now().Add(time.Hour))

	rec, _ := doAuthed(t, "Bearer "+token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "invalid user ID")
}

func TestOwnerFromContext_Unauthenticated(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Equal(t, uuid.Nil, OwnerFromContext(req.Context()))
}
