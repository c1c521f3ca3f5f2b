package main

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"

	"github.com/protomem/credit-bank/internal/model"
	"github.com/protomem/credit-bank/internal/response"
	"github.com/protomem/credit-bank/internal/validator"
)

func (app *application) reportServerError(r *http.Request, err error) {
	var (
		message = err.Error()
		method  = r.Method
		url     = r.URL.String()
		trace   = string(debug.Stack())
	)

	requestAttrs := slog.Group("request", "method", method, "url", url)
	app.requestLogger(r).Error(message, requestAttrs, "trace", trace)
}

func (app *application) errorMessage(w http.ResponseWriter, r *http.Request, status int, message any, headers http.Header) {
	if msg, ok := message.(string); ok && msg != "" {
		message = strings.ToUpper(msg[:1]) + msg[1:]
	}

	err := response.JSONWithHeaders(w, status, response.JSONObject{"error": message}, headers)
	if err != nil {
		app.reportServerError(r, err)
		w.WriteHeader(http.StatusInternalServerError)
	}
}

func (app *application) serverError(w http.ResponseWriter, r *http.Request, err error) {
	app.reportServerError(r, err)

	message := "The server encountered a problem and could not process your request"
	app.errorMessage(w, r, http.StatusInternalServerError, message, nil)
}

func (app *application) notFound(w http.ResponseWriter, r *http.Request) {
	message := "The requested resource could not be found"
	app.errorMessage(w, r, http.StatusNotFound, message, nil)
}

func (app *application) methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("The %s method is not supported for this resource", r.Method)
	app.errorMessage(w, r, http.StatusMethodNotAllowed, message, nil)
}

func (app *application) badRequest(w http.ResponseWriter, r *http.Request, err error) {
	app.errorMessage(w, r, http.StatusBadRequest, err.Error(), nil)
}

func (app *application) failedValidation(w http.ResponseWriter, r *http.Request, verr *validator.Error) {
	app.errorMessage(w, r, http.StatusUnprocessableEntity, verr, nil)
}

func (app *application) unauthorized(w http.ResponseWriter, r *http.Request) {
	headers := make(http.Header)
	headers.Set("WWW-Authenticate", "Bearer")

	message := "You must be authenticated to access this resource"
	app.errorMessage(w, r, http.StatusUnauthorized, message, headers)
}

func (app *application) forbidden(w http.ResponseWriter, r *http.Request) {
	message := "You do not have permission to access this resource"
	app.errorMessage(w, r, http.StatusForbidden, message, nil)
}

func (app *application) rateLimitExceeded(w http.ResponseWriter, r *http.Request) {
	message := "Too many requests, try again later"
	app.errorMessage(w, r, http.StatusTooManyRequests, message, nil)
}

// handleError writes the response for an error returned by the workflow
// layer. Anything it does not recognize is a server error.
func (app *application) handleError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *validator.Error

	switch {
	case errors.As(err, &verr):
		app.failedValidation(w, r, verr)
	case errors.Is(err, model.ErrNotFound):
		app.errorMessage(w, r, http.StatusNotFound, err.Error(), nil)
	case errors.Is(err, model.ErrExists),
		errors.Is(err, model.ErrInvalidTransition),
		errors.Is(err, model.ErrHasDependents):
		app.errorMessage(w, r, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, model.ErrUnauthorized):
		app.unauthorized(w, r)
	case errors.Is(err, model.ErrForbidden):
		app.forbidden(w, r)
	default:
		app.serverError(w, r, err)
	}
}
