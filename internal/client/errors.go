package client

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
)

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status      int
	Message     string
	Errors      []string
	FieldErrors map[string][]string
}

func (e *APIError) Error() string {
	if len(e.FieldErrors) == 0 && len(e.Errors) == 0 {
		return fmt.Sprintf("api: %d %s", e.Status, e.Message)
	}

	parts := append([]string(nil), e.Errors...)

	keys := make([]string, 0, len(e.FieldErrors))
	for key := range e.FieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		parts = append(parts, key+": "+strings.Join(e.FieldErrors[key], ", "))
	}

	return fmt.Sprintf("api: %d %s", e.Status, strings.Join(parts, "; "))
}

func (e *APIError) IsValidation() bool {
	return e.Status == http.StatusUnprocessableEntity
}

// decodeAPIError reads the {"error": ...} envelope. The value is either a
// message or an object with errors and fieldErrors.
func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status}

	payload := gjson.GetBytes(body, "error")
	switch {
	case !payload.Exists():
		apiErr.Message = strings.TrimSpace(string(body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
	case payload.IsObject():
		apiErr.Message = http.StatusText(status)
		for _, message := range payload.Get("errors").Array() {
			apiErr.Errors = append(apiErr.Errors, message.String())
		}
		payload.Get("fieldErrors").ForEach(func(key, value gjson.Result) bool {
			if apiErr.FieldErrors == nil {
				apiErr.FieldErrors = make(map[string][]string)
			}
			for _, message := range value.Array() {
				apiErr.FieldErrors[key.String()] = append(apiErr.FieldErrors[key.String()], message.String())
			}
			return true
		})
	default:
		apiErr.Message = payload.String()
	}

	return apiErr
}
