package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"
	"github.com/protomem/credit-bank/internal/auth"
	"github.com/protomem/credit-bank/internal/database"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestApplication(t *testing.T) (*application, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db := database.Wrap(sqlx.NewDb(sqlDB, "pgx"))

	return &application{
		db:      db,
		logger:  logger,
		service: workflow.New(logger, db),
		issuer:  auth.NewIssuer("test-secret", time.Hour),
		limiter: newIPRateLimiter(100, 100),
	}, mock
}

func tokenFor(t *testing.T, app *application, user model.User) string {
	t.Helper()

	token, err := app.issuer.Issue(user)
	require.NoError(t, err)
	return token
}

func send(t *testing.T, h http.Handler, method, target, token, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleStatus(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodGet, "/api/v1/status", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"OK"}`, rec.Body.String())
}

func TestGuards(t *testing.T) {
	app, mock := newTestApplication(t)
	h := app.routes()

	borrower := tokenFor(t, app, model.User{ID: 7})
	specialist := tokenFor(t, app, model.User{ID: 1, IsSpec: true})

	testCases := []struct {
		name   string
		method string
		target string
		token  string
		status int
	}{
		{name: "no token", method: http.MethodGet, target: "/api/v1/check", status: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, target: "/api/v1/check", token: "garbage", status: http.StatusUnauthorized},
		{name: "borrower check", method: http.MethodGet, target: "/api/v1/check", token: borrower, status: http.StatusOK},
		{name: "borrower check-spec", method: http.MethodGet, target: "/api/v1/check-spec", token: borrower, status: http.StatusForbidden},
		{name: "specialist check-spec", method: http.MethodGet, target: "/api/v1/check-spec", token: specialist, status: http.StatusOK},
		{name: "borrower patches order", method: http.MethodPatch, target: "/api/v1/orders/3?status=processed", token: borrower, status: http.StatusForbidden},
		{name: "borrower answers order", method: http.MethodPost, target: "/api/v1/responses", token: borrower, status: http.StatusForbidden},
		{name: "borrower deletes user", method: http.MethodDelete, target: "/api/v1/users/7", token: borrower, status: http.StatusForbidden},
		{name: "anonymous orders", method: http.MethodGet, target: "/api/v1/orders", status: http.StatusUnauthorized},
		{name: "logout", method: http.MethodPost, target: "/api/v1/auth/jwt/logout", token: borrower, status: http.StatusNoContent},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := send(t, h, tc.method, tc.target, tc.token, "")
			assert.Equal(t, tc.status, rec.Code)
		})
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUnauthorizedHeader(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodGet, "/api/v1/users/me", "", "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
}

func TestCreateOrderValidation(t *testing.T) {
	app, mock := newTestApplication(t)
	token := tokenFor(t, app, model.User{ID: 7})

	rec := send(t, app.routes(), http.MethodPost, "/api/v1/orders", token,
		`{"credit_size": 100, "period": 1, "target": "Car"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	body := decodeBody(t, rec)
	errBody, ok := body["error"].(map[string]any)
	require.True(t, ok)
	fieldErrors, ok := errBody["fieldErrors"].(map[string]any)
	require.True(t, ok)
	assert.Contains(t, fieldErrors, "credit_size")
	assert.Contains(t, fieldErrors, "period")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderOutOfRange(t *testing.T) {
	app, mock := newTestApplication(t)
	token := tokenFor(t, app, model.User{ID: 7})

	rec := send(t, app.routes(), http.MethodPost, "/api/v1/orders", token,
		`{"credit_size": 1e15, "period": 3000000000, "target": "Car"}`)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "credit_size")
	assert.Contains(t, rec.Body.String(), "period")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderRejectedByStore(t *testing.T) {
	app, mock := newTestApplication(t)
	token := tokenFor(t, app, model.User{ID: 7})

	mock.ExpectBegin()
	mock.ExpectQuery(`INSERT INTO orders`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.NumericValueOutOfRange})
	mock.ExpectRollback()

	rec := send(t, app.routes(), http.MethodPost, "/api/v1/orders", token,
		`{"credit_size": 50000, "period": 12, "target": "Car"}`)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrderForOtherUser(t *testing.T) {
	app, mock := newTestApplication(t)
	token := tokenFor(t, app, model.User{ID: 7})

	rec := send(t, app.routes(), http.MethodPost, "/api/v1/orders", token,
		`{"user_id": 8, "credit_size": 50000, "period": 12, "target": "Car"}`)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBadRequests(t *testing.T) {
	app, mock := newTestApplication(t)
	h := app.routes()
	token := tokenFor(t, app, model.User{ID: 1, IsSpec: true})

	t.Run("unknown field", func(t *testing.T) {
		rec := send(t, h, http.MethodPost, "/api/v1/orders", token, `{"amount": 5}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad user_id", func(t *testing.T) {
		rec := send(t, h, http.MethodGet, "/api/v1/orders?user_id=abc", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad personal", func(t *testing.T) {
		rec := send(t, h, http.MethodGet, "/api/v1/credits?personal=maybe", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bad order id", func(t *testing.T) {
		rec := send(t, h, http.MethodGet, "/api/v1/orders/zero", token, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := send(t, h, http.MethodPatch, "/api/v1/orders/3?status=approved", token, "")
		require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Contains(t, rec.Body.String(), "status")
	})

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetOrderNotFound(t *testing.T) {
	app, mock := newTestApplication(t)
	token := tokenFor(t, app, model.User{ID: 7})

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM orders WHERE id = \$1 AND user_id = \$2 LIMIT 1`).
		WithArgs(3, 7).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	rec := send(t, app.routes(), http.MethodGet, "/api/v1/orders/3", token, "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogin(t *testing.T) {
	app, mock := newTestApplication(t)

	hashed, err := auth.HashPassword("secret")
	require.NoError(t, err)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT \* FROM users WHERE email = \$1 LIMIT 1`).
		WithArgs("ivan@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "hashed_password", "is_active", "is_spec"}).
			AddRow(7, "ivan@example.com", hashed, true, true))
	mock.ExpectCommit()

	form := url.Values{"username": {"ivan@example.com"}, "password": {"secret"}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/jwt/login", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := httptest.NewRecorder()
	app.routes().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	body := decodeBody(t, rec)
	assert.Equal(t, "bearer", body["token_type"])

	claims, err := app.issuer.Parse(body["access_token"].(string))
	require.NoError(t, err)
	assert.Equal(t, model.ID(7), claims.UserID)
	assert.True(t, claims.Privileged)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoginRateLimit(t *testing.T) {
	app, _ := newTestApplication(t)
	app.limiter = newIPRateLimiter(0.001, 1)
	h := app.routes()

	rec := send(t, h, http.MethodPost, "/api/v1/auth/jwt/login", "", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = send(t, h, http.MethodPost, "/api/v1/auth/jwt/login", "", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLoginRateLimitIgnoresForwardedFor(t *testing.T) {
	app, _ := newTestApplication(t)
	app.limiter = newIPRateLimiter(0.001, 1)
	h := app.routes()

	codes := make([]int, 0, 5)
	for i := 1; i <= 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/jwt/login", strings.NewReader(""))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Forwarded-For", fmt.Sprintf("8.8.8.%d", i))

		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	assert.Equal(t, []int{
		http.StatusBadRequest,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
		http.StatusTooManyRequests,
	}, codes)
}

func TestClientIP(t *testing.T) {
	app, _ := newTestApplication(t)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:5120"
	req.Header.Set("X-Forwarded-For", "8.8.8.8")

	assert.Equal(t, "203.0.113.9", app.clientIP(req))

	app.config.trustedProxies = []string{"203.0.113.9"}
	assert.Equal(t, "8.8.8.8", app.clientIP(req))
}

func TestNotFoundRoute(t *testing.T) {
	app, _ := newTestApplication(t)

	rec := send(t, app.routes(), http.MethodGet, "/api/v1/nope", "", "")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
