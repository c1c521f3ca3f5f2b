package validator

import (
	"sort"
	"strings"
)

type Validator struct {
	Errors      []string            `json:",omitempty"`
	FieldErrors map[string][]string `json:",omitempty"`
}

func (v Validator) HasErrors() bool {
	return len(v.Errors) != 0 || len(v.FieldErrors) != 0
}

func (v *Validator) AddError(message string) {
	if v.Errors == nil {
		v.Errors = []string{}
	}

	v.Errors = append(v.Errors, message)
}

func (v *Validator) AddFieldError(key, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = map[string][]string{}
	}

	v.FieldErrors[key] = append(v.FieldErrors[key], message)
}

func (v *Validator) Check(ok bool, message string) {
	if !ok {
		v.AddError(message)
	}
}

func (v *Validator) CheckField(ok bool, key, message string) {
	if !ok {
		v.AddFieldError(key, message)
	}
}

// Err returns the collected failures as an *Error, or nil when there are none.
func (v Validator) Err() error {
	if !v.HasErrors() {
		return nil
	}

	e := &Error{
		Errors:      append([]string(nil), v.Errors...),
		FieldErrors: make(map[string][]string, len(v.FieldErrors)),
	}
	for key, messages := range v.FieldErrors {
		e.FieldErrors[key] = append([]string(nil), messages...)
	}

	return e
}

// Error is a failed validation listing every violated rule.
type Error struct {
	Errors      []string            `json:"errors,omitempty"`
	FieldErrors map[string][]string `json:"fieldErrors,omitempty"`
}

func (e *Error) Error() string {
	parts := make([]string, 0, len(e.Errors)+len(e.FieldErrors))
	parts = append(parts, e.Errors...)

	keys := make([]string, 0, len(e.FieldErrors))
	for key := range e.FieldErrors {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		for _, message := range e.FieldErrors[key] {
			parts = append(parts, key+": "+message)
		}
	}

	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *Error) Has(key string) bool {
	return len(e.FieldErrors[key]) != 0
}
