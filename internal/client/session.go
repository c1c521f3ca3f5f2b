// Package client talks to the credit-bank HTTP API on behalf of one signed-in
// user. The bearer token lives behind a TokenStore and is read on every call.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/protomem/credit-bank/internal/model"
)

const (
	_apiPrefix      = "/api/v1"
	_defaultTimeout = 10 * time.Second
	_maxErrorBody   = 64 << 10
)

var ErrNoResponse = errors.New("order has no response")

type Session struct {
	baseURL *url.URL
	http    *http.Client
	tokens  TokenStore
	now     func() time.Time
}

type Option func(*Session)

func WithHTTPClient(c *http.Client) Option {
	return func(s *Session) { s.http = c }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

func NewSession(baseURL string, tokens TokenStore, opts ...Option) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("client: base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("client: base url %q must be absolute", baseURL)
	}

	s := &Session{
		baseURL: u,
		http:    &http.Client{Timeout: _defaultTimeout},
		tokens:  tokens,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *Session) Register(ctx context.Context, in model.RegisterUserInput) (model.User, error) {
	var user model.User
	err := s.doJSON(ctx, http.MethodPost, "/auth/register", nil, in, &user)
	return user, err
}

// Login exchanges credentials for a token and stores it. A failed login
// clears the stored token.
func (s *Session) Login(ctx context.Context, creds model.Credentials) error {
	form := url.Values{
		"username": {creds.Username},
		"password": {creds.Password},
	}

	req, err := s.newRequest(ctx, http.MethodPost, "/auth/jwt/login", nil, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	var out struct {
		AccessToken string `json:"access_token"`
	}
	if err := s.send(req, &out); err != nil {
		return errors.Join(err, s.tokens.Store(ctx, ""))
	}

	return s.tokens.Store(ctx, out.AccessToken)
}

func (s *Session) Logout(ctx context.Context) error {
	err := s.doJSON(ctx, http.MethodPost, "/auth/jwt/logout", nil, nil, nil)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
		err = nil
	}

	return errors.Join(err, s.tokens.Store(ctx, ""))
}

func (s *Session) IsAuthorized(ctx context.Context) (bool, error) {
	return s.check(ctx, "/check")
}

func (s *Session) IsSpec(ctx context.Context) (bool, error) {
	return s.check(ctx, "/check-spec")
}

func (s *Session) check(ctx context.Context, path string) (bool, error) {
	err := s.doJSON(ctx, http.MethodGet, path, nil, nil, nil)

	var apiErr *APIError
	switch {
	case err == nil:
		return true, nil
	case errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusForbidden):
		return false, nil
	}
	return false, err
}

func (s *Session) Me(ctx context.Context) (model.User, error) {
	var user model.User
	err := s.doJSON(ctx, http.MethodGet, "/users/me", nil, nil, &user)
	return user, err
}

// ListOptions narrows list calls. Servers ignore UserID and Personal for
// borrowers.
type ListOptions struct {
	UserID   *model.ID
	Personal bool
	OnlyNew  bool
	Limit    int
	Offset   int
}

func (o ListOptions) query() url.Values {
	q := url.Values{}
	if o.UserID != nil {
		q.Set("user_id", strconv.FormatUint(uint64(*o.UserID), 10))
	}
	if o.Personal {
		q.Set("personal", "true")
	}
	if o.OnlyNew {
		q.Set("new", "true")
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	if o.Offset > 0 {
		q.Set("offset", strconv.Itoa(o.Offset))
	}
	return q
}

func (s *Session) CreateOrder(ctx context.Context, in model.OrderInput) (model.Order, error) {
	var order model.Order
	err := s.doJSON(ctx, http.MethodPost, "/orders", nil, in, &order)
	return order, err
}

func (s *Session) ListOrders(ctx context.Context, opts ListOptions) ([]model.Order, error) {
	var orders []model.Order
	err := s.doJSON(ctx, http.MethodGet, "/orders", opts.query(), nil, &orders)
	return orders, err
}

func (s *Session) GetOrder(ctx context.Context, id model.ID) (model.Order, error) {
	var order model.Order
	err := s.doJSON(ctx, http.MethodGet, "/orders/"+formatID(id), nil, nil, &order)
	return order, err
}

// PatchOrder changes the status and/or the active flag of an order. Empty
// status or nil active leave the value unchanged.
func (s *Session) PatchOrder(ctx context.Context, id model.ID, status model.OrderStatus, active *bool) (model.Order, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if active != nil {
		q.Set("active", strconv.FormatBool(*active))
	}

	var order model.Order
	err := s.doJSON(ctx, http.MethodPatch, "/orders/"+formatID(id), q, nil, &order)
	return order, err
}

func (s *Session) CreateResponse(ctx context.Context, in model.ResponseInput) (model.Response, error) {
	var response model.Response
	err := s.doJSON(ctx, http.MethodPost, "/responses", nil, in, &response)
	return response, err
}

func (s *Session) ListResponses(ctx context.Context, opts ListOptions) ([]model.Response, error) {
	var responses []model.Response
	err := s.doJSON(ctx, http.MethodGet, "/responses", opts.query(), nil, &responses)
	return responses, err
}

func (s *Session) GetResponse(ctx context.Context, id model.ID) (model.Response, error) {
	var response model.Response
	err := s.doJSON(ctx, http.MethodGet, "/responses/"+formatID(id), nil, nil, &response)
	return response, err
}

func (s *Session) CreateCredit(ctx context.Context, in model.CreditInput) (model.Credit, error) {
	var credit model.Credit
	err := s.doJSON(ctx, http.MethodPost, "/credits", nil, in, &credit)
	return credit, err
}

func (s *Session) ListCredits(ctx context.Context, opts ListOptions) ([]model.Credit, error) {
	var credits []model.Credit
	err := s.doJSON(ctx, http.MethodGet, "/credits", opts.query(), nil, &credits)
	return credits, err
}

func (s *Session) GetCredit(ctx context.Context, id model.ID) (model.Credit, error) {
	var credit model.Credit
	err := s.doJSON(ctx, http.MethodGet, "/credits/"+formatID(id), nil, nil, &credit)
	return credit, err
}

// AcceptResponse turns the offer attached to order into a credit. The first
// payment is due in 30 days and the whole requested amount remains to pay.
func (s *Session) AcceptResponse(ctx context.Context, order model.Order) (model.Credit, error) {
	if order.Response == nil {
		return model.Credit{}, ErrNoResponse
	}

	responseID := order.Response.ID
	return s.CreateCredit(ctx, model.CreditInput{
		UserID:      order.UserID,
		ResponseID:  &responseID,
		NextPayDate: model.DateOf(s.now()).AddDays(30),
		RemainToPay: order.CreditSize,
		MonthlyPay:  order.Response.MonthlyPay,
		Percent:     order.Response.Percent,
	})
}

func (s *Session) doJSON(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("client: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := s.newRequest(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return s.send(req, out)
}

func (s *Session) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	u := s.baseURL.JoinPath(_apiPrefix, path)
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	token, err := s.tokens.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("client: load token: %w", err)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req, nil
}

func (s *Session) send(req *http.Request, out any) error {
	res, err := s.http.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(res.Body, _maxErrorBody))
		return decodeAPIError(res.StatusCode, data)
	}

	if out == nil || res.StatusCode == http.StatusNoContent {
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("client: decode response: %w", err)
	}

	return nil
}

func formatID(id model.ID) string {
	return strconv.FormatUint(uint64(id), 10)
}
