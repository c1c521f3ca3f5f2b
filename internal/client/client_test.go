package client

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/protomem/credit-bank/internal/model"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func newTestSession(t *testing.T, h http.Handler) (*Session, *MemoryTokenStore) {
	t.Helper()

	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	tokens := &MemoryTokenStore{}
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

	s, err := NewSession(srv.URL, tokens, WithHTTPClient(srv.Client()), WithClock(func() time.Time { return now }))
	require.NoError(t, err)

	return s, tokens
}

func TestFileTokenStore(t *testing.T) {
	ctx := context.Background()
	store := NewFileTokenStore(filepath.Join(t.TempDir(), "auth_token"))

	token, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, store.Store(ctx, "abc.def.ghi"))
	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc.def.ghi", token)

	require.NoError(t, store.Store(ctx, ""))
	token, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestNewSessionRejectsRelativeURL(t *testing.T) {
	_, err := NewSession("localhost:8080", &MemoryTokenStore{})
	assert.Error(t, err)
}

func TestLoginStoresToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/auth/jwt/login", func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		if r.PostForm.Get("password") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"You must be authenticated to access this resource"}`)
			return
		}
		io.WriteString(w, `{"access_token":"tok","token_type":"bearer"}`)
	})
	mux.HandleFunc("/api/v1/users/me", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		io.WriteString(w, `{"id":7,"email":"ivan@example.com","birthday":"1990-05-17","per_month_profit":90000}`)
	})

	s, tokens := newTestSession(t, mux)
	ctx := context.Background()

	require.NoError(t, s.Login(ctx, model.Credentials{Username: "ivan@example.com", Password: "secret"}))
	token, _ := tokens.Load(ctx)
	assert.Equal(t, "tok", token)

	user, err := s.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ID(7), user.ID)
	assert.Equal(t, "1990-05-17", user.Birthday.String())

	err = s.Login(ctx, model.Credentials{Username: "ivan@example.com", Password: "wrong"})
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	token, _ = tokens.Load(ctx)
	assert.Empty(t, token)
}

func TestValidationErrorDecoding(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		io.WriteString(w, `{"error":{"fieldErrors":{"credit_size":["must be at least 5000"],"period":["must be at least 3 months"]}}}`)
	}))

	_, err := s.CreateOrder(context.Background(), model.OrderInput{CreditSize: decimal.NewFromInt(10)})

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.IsValidation())
	assert.Equal(t, []string{"must be at least 5000"}, apiErr.FieldErrors["credit_size"])
	assert.Equal(t, "api: 422 credit_size: must be at least 5000; period: must be at least 3 months", apiErr.Error())
}

func TestChecks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/v1/check", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"user_id":7,"is_spec":false}`)
	})
	mux.HandleFunc("/api/v1/check-spec", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		io.WriteString(w, `{"error":"You do not have permission to access this resource"}`)
	})

	s, _ := newTestSession(t, mux)
	ctx := context.Background()

	ok, err := s.IsAuthorized(ctx)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.IsSpec(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestListOrdersQuery(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/orders", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("new"))
		assert.Equal(t, "5", r.URL.Query().Get("user_id"))
		assert.False(t, r.URL.Query().Has("personal"))
		io.WriteString(w, `[{"id":1,"status":"submitted","status_text":"Submitted","credit_size":50000,"period":12,"active":true,"user_id":5,"response":null}]`)
	}))

	userID := model.ID(5)
	orders, err := s.ListOrders(context.Background(), ListOptions{UserID: &userID, OnlyNew: true})

	require.NoError(t, err)
	require.Len(t, orders, 1)
	assert.Equal(t, model.StatusSubmitted, orders[0].Status)
	assert.True(t, orders[0].CreditSize.Equal(decimal.NewFromInt(50000)))
}

func TestAcceptResponse(t *testing.T) {
	s, _ := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/credits", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		assert.NoError(t, err)

		assert.Equal(t, int64(7), gjson.GetBytes(body, "user_id").Int())
		assert.Equal(t, int64(9), gjson.GetBytes(body, "response_id").Int())
		assert.Equal(t, "2026-11-15", gjson.GetBytes(body, "next_pay_date").String())
		assert.Equal(t, "50000", gjson.GetBytes(body, "remain_to_pay").Raw)
		assert.Equal(t, "4500", gjson.GetBytes(body, "monthly_pay").Raw)

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":4,"user_id":7,"response_id":9,"next_pay_date":"2026-11-15","remain_to_pay":50000,"monthly_pay":4500,"percent":12}`)
	}))

	order := model.Order{
		ID:         3,
		UserID:     7,
		CreditSize: decimal.NewFromInt(50000),
		Response: &model.Response{
			ID:         9,
			OrderID:    3,
			Percent:    decimal.NewFromInt(12),
			MonthlyPay: decimal.NewFromInt(4500),
		},
	}

	credit, err := s.AcceptResponse(context.Background(), order)

	require.NoError(t, err)
	assert.Equal(t, model.ID(4), credit.ID)

	order.Response = nil
	_, err = s.AcceptResponse(context.Background(), order)
	assert.ErrorIs(t, err, ErrNoResponse)
}

func TestLogoutClearsToken(t *testing.T) {
	s, tokens := newTestSession(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	ctx := context.Background()
	require.NoError(t, tokens.Store(ctx, "tok"))

	require.NoError(t, s.Logout(ctx))

	token, _ := tokens.Load(ctx)
	assert.Empty(t, token)
}
