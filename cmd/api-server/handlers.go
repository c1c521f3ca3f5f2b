package main

import (
	"errors"
	"net/http"
	"strings"

	"github.com/protomem/credit-bank/internal/auth"
	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/request"
	"github.com/protomem/credit-bank/internal/response"
	"github.com/protomem/credit-bank/internal/workflow"
)

const _maxFormBytes = 4096

// Handle Status
// GET /api/v1/status
func (app *application) handleStatus(w http.ResponseWriter, r *http.Request) {
	if err := response.JSON(w, http.StatusOK, response.JSONObject{"status": "OK"}); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Register
// POST /api/v1/auth/register
func (app *application) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input model.RegisterUserInput
	if err := request.DecodeJSONStrict(w, r, &input); err != nil {
		app.badRequest(w, r, err)
		return
	}

	user, err := app.serviceFor(r).Register(r.Context(), input)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusCreated, user); err != nil {
		app.serverError(w, r, err)
	}
}

type responseLogin struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

// Handle Login
// POST /api/v1/auth/jwt/login
//
// Credentials are accepted as a url-encoded form (username, password) or as
// a JSON object with the same keys.
func (app *application) handleLogin(w http.ResponseWriter, r *http.Request) {
	creds, err := credentialsFromRequest(w, r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	user, err := app.serviceFor(r).Authenticate(r.Context(), creds)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	token, err := app.issuer.Issue(user)
	if err != nil {
		app.serverError(w, r, err)
		return
	}

	app.requestLogger(r).Info("user logged in", "userId", user.ID)

	if err := response.JSON(w, http.StatusOK, responseLogin{AccessToken: token, TokenType: auth.TokenType}); err != nil {
		app.serverError(w, r, err)
	}
}

func credentialsFromRequest(w http.ResponseWriter, r *http.Request) (model.Credentials, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded") {
		var creds model.Credentials
		err := request.DecodeJSONStrict(w, r, &creds)
		return creds, err
	}

	r.Body = http.MaxBytesReader(w, r.Body, _maxFormBytes)
	if err := r.ParseForm(); err != nil {
		return model.Credentials{}, errors.New("body must be a valid form")
	}

	return model.Credentials{
		Username: r.PostForm.Get("username"),
		Password: r.PostForm.Get("password"),
	}, nil
}

// Handle Logout
// POST /api/v1/auth/jwt/logout
//
// Tokens are stateless; the client forgets its token.
func (app *application) handleLogout(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

// Handle Check
// GET /api/v1/check and GET /api/v1/check-spec
func (app *application) handleCheck(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	data := response.JSONObject{"user_id": principal.ID, "is_spec": principal.Privileged}
	if err := response.JSON(w, http.StatusOK, data); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Get Me
// GET /api/v1/users/me
func (app *application) handleGetMe(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	user, err := app.serviceFor(r).GetUser(r.Context(), principal, principal.ID)
	if err != nil {
		app.handleError(w, r, err)
		return
	}

	if err := response.JSON(w, http.StatusOK, user); err != nil {
		app.serverError(w, r, err)
	}
}

// Handle Delete User
// DELETE /api/v1/users/{userId}
func (app *application) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	principal, _ := principalFrom(r)

	userID, err := userIDFromRequest(r)
	if err != nil {
		app.badRequest(w, r, err)
		return
	}

	if err := app.serviceFor(r).DeleteUser(r.Context(), principal, userID); err != nil {
		app.handleError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func listQueryFromRequest(r *http.Request) (workflow.ListQuery, error) {
	userID, err := optionalIDQueryParams(r, "user_id")
	if err != nil {
		return workflow.ListQuery{}, err
	}

	personal, err := boolQueryParams(r, "personal")
	if err != nil {
		return workflow.ListQuery{}, err
	}

	return workflow.ListQuery{
		UserID:      userID,
		Personal:    personal,
		FindOptions: findOptionsFromRequest(r),
	}, nil
}
